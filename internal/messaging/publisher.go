package messaging

import (
	"context"

	"github.com/feral-file/registry-indexer/internal/domain"
)

// Publisher announces projected records to downstream consumers
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishProjection publishes a notice for a newly inserted record
	PublishProjection(ctx context.Context, notice domain.ProjectionNotice) error
	// Close closes the connection
	Close()
}

type nopPublisher struct{}

// NewNopPublisher returns a Publisher that drops every notice.
// It is used when no message broker is configured.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) PublishProjection(context.Context, domain.ProjectionNotice) error {
	return nil
}

func (nopPublisher) Close() {}
