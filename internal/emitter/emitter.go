package emitter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/registry-indexer/internal/adapter"
	"github.com/feral-file/registry-indexer/internal/contracts"
	"github.com/feral-file/registry-indexer/internal/logger"
	"github.com/feral-file/registry-indexer/internal/messaging"
	"github.com/feral-file/registry-indexer/internal/metrics"
	"github.com/feral-file/registry-indexer/internal/projector"
	"github.com/feral-file/registry-indexer/internal/store"
)

// Config holds the configuration for the live emitter
type Config struct {
	CursorSaveFreq  uint64        // Save cursor every N blocks
	CursorSaveDelay time.Duration // Or save cursor every N seconds
}

// Emitter routes the live log stream of one registry contract
//
//go:generate mockgen -source=emitter.go -destination=../mocks/emitter.go -package=mocks -mock_names=Emitter=MockEmitter
type Emitter interface {
	// Run streams logs from fromBlock until ctx is canceled, routing fails or the stream fails
	Run(ctx context.Context, fromBlock uint64) error
}

type emitter struct {
	source  messaging.LogSource
	router  projector.EventRouter
	cursors store.CursorStore
	config  Config
	clock   adapter.Clock
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewEmitter creates a new live emitter
func NewEmitter(
	source messaging.LogSource,
	router projector.EventRouter,
	cursors store.CursorStore,
	cfg Config,
	clock adapter.Clock,
	m *metrics.Metrics,
) Emitter {
	return &emitter{
		source:  source,
		router:  router,
		cursors: cursors,
		config:  cfg,
		clock:   clock,
		metrics: m,
		log:     logger.ForDomain(source.Domain()),
	}
}

// Run opens the stream at fromBlock and routes every log in arrival order.
//
// Logs arrive in block order, so a log of block M means every block below M
// is fully processed; M-1 is then persisted as the cursor, at most every
// CursorSaveFreq blocks or CursorSaveDelay.
func (e *emitter) Run(ctx context.Context, fromBlock uint64) error {
	d := e.source.Domain()
	e.log.Info("Starting live stream", zap.Uint64("from_block", fromBlock))

	lastSavedBlock := uint64(0)
	if fromBlock > 0 {
		lastSavedBlock = fromBlock - 1
	}
	lastSaveTime := e.clock.Now()

	handler := func(ctx context.Context, log contracts.DecodedLog) error {
		if err := e.router.Route(ctx, log); err != nil {
			return err
		}

		if log.Meta.BlockNumber == 0 {
			return nil
		}
		processed := log.Meta.BlockNumber - 1
		if processed <= lastSavedBlock {
			return nil
		}

		// Save cursor periodically (every N blocks or N seconds)
		shouldSave := processed-lastSavedBlock >= e.config.CursorSaveFreq ||
			e.clock.Since(lastSaveTime) >= e.config.CursorSaveDelay
		if !shouldSave {
			return nil
		}

		if err := e.cursors.SetBlockCursor(ctx, d, processed); err != nil {
			e.log.Warn("Failed to save block cursor", zap.Error(err), logger.Block(processed))
			return nil
		}
		lastSavedBlock = processed
		lastSaveTime = e.clock.Now()
		e.metrics.SetCursor(d, processed)

		return nil
	}

	err := e.source.Subscribe(ctx, fromBlock, handler)
	e.log.Info("Live stream stopped", zap.Uint64("last_saved_block", lastSavedBlock), zap.Error(err))
	return err
}
