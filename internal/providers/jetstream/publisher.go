package jetstream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/registry-indexer/internal/adapter"
	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/logger"
	"github.com/feral-file/registry-indexer/internal/messaging"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	SubjectPrefix  string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type publisher struct {
	nc            adapter.NatsConn
	js            adapter.JetStream
	subjectPrefix string
	json          adapter.JSON
}

// NewPublisher connects to NATS and makes sure the projection stream exists
func NewPublisher(ctx context.Context, cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	prefix := strings.TrimSuffix(cfg.SubjectPrefix, ".")
	if err := js.EnsureStream(ctx, jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{prefix + ".>"},
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.StreamName, err)
	}

	return &publisher{
		nc:            nc,
		js:            js,
		subjectPrefix: prefix,
		json:          jsonAdapter,
	}, nil
}

// PublishProjection publishes a projection notice to JetStream
func (p *publisher) PublishProjection(ctx context.Context, notice domain.ProjectionNotice) error {
	data, err := p.json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	if _, err := p.js.Publish(ctx, p.buildSubject(notice), data); err != nil {
		return fmt.Errorf("failed to publish notice: %w", err)
	}

	return nil
}

// buildSubject constructs the subject as {prefix}.{domain}.{table}
// e.g., registry.ownership.items
func (p *publisher) buildSubject(notice domain.ProjectionNotice) string {
	return fmt.Sprintf("%s.%s.%s", p.subjectPrefix, notice.Domain, notice.Table)
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}
