package messaging

import (
	"context"

	"github.com/feral-file/registry-indexer/internal/contracts"
	"github.com/feral-file/registry-indexer/internal/domain"
)

// LogHandler is called for every decoded log, in delivery order.
// A returned error stops the stream it was called from.
type LogHandler func(ctx context.Context, log contracts.DecodedLog) error

// LogSource reads the logs of one registry contract.
// The Authenticity and Ownership registries each get their own source.
//
//go:generate mockgen -source=subscriber.go -destination=../mocks/log_source.go -package=mocks -mock_names=LogSource=MockLogSource
type LogSource interface {
	// Domain returns the registry this source reads
	Domain() domain.Domain

	// Verify checks the contract is reachable and deployed; a missing
	// contract is reported as a non-retryable error
	Verify(ctx context.Context) error

	// LatestBlock returns the current head block number
	LatestBlock(ctx context.Context) (uint64, error)

	// BackfillKinds returns the kinds queried per backfill chunk, in query order
	BackfillKinds() []domain.EventKind

	// QueryRange returns the logs of one kind within the inclusive range [from, to]
	QueryRange(ctx context.Context, kind domain.EventKind, from, to uint64) ([]contracts.DecodedLog, error)

	// Subscribe streams all declared logs from fromBlock onwards until ctx is
	// canceled, handler fails or the transport fails
	Subscribe(ctx context.Context, fromBlock uint64, handler LogHandler) error
}
