package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/emitter"
	"github.com/feral-file/registry-indexer/internal/logger"
	"github.com/feral-file/registry-indexer/internal/messaging"
	"github.com/feral-file/registry-indexer/internal/metrics"
	"github.com/feral-file/registry-indexer/internal/projector"
	"github.com/feral-file/registry-indexer/internal/store"
)

// Config holds the pass parameters shared by every domain supervisor
type Config struct {
	// BackfillWindow is how many blocks below the head are replayed on each pass
	BackfillWindow uint64
	// ChunkSize is the maximum number of blocks per backfill query
	ChunkSize uint64
	// RetryDelay is the fixed pause before a failed pass is restarted
	RetryDelay time.Duration
	// ResumeFromCursor starts the backfill after the persisted cursor when one exists
	ResumeFromCursor bool
}

// Status is a point-in-time view of a supervisor
type Status struct {
	Domain    domain.Domain          `json:"domain"`
	State     domain.SupervisorState `json:"state"`
	PassID    string                 `json:"passId,omitempty"`
	Restarts  int                    `json:"restarts"`
	LastError string                 `json:"lastError,omitempty"`
	Since     time.Time              `json:"since"`
}

// Supervisor keeps one registry indexed: each pass backfills the recent
// history and then follows the live stream; a failed pass is restarted after
// a fixed delay, forever, until the context is canceled or the error is
// non-retryable.
type Supervisor struct {
	source  messaging.LogSource
	cursors store.CursorStore
	scanner *Scanner
	emitter emitter.Emitter
	config  Config
	metrics *metrics.Metrics
	log     *zap.Logger

	mu     sync.RWMutex
	status Status
}

// NewSupervisor creates the supervisor of the registry read by source
func NewSupervisor(
	source messaging.LogSource,
	router projector.EventRouter,
	cursors store.CursorStore,
	em emitter.Emitter,
	cfg Config,
	m *metrics.Metrics,
) *Supervisor {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = domain.DefaultRetryDelay
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = domain.DefaultChunkSize
	}

	d := source.Domain()
	log := logger.ForDomain(d)

	return &Supervisor{
		source:  source,
		cursors: cursors,
		scanner: NewScanner(source, router, cursors, cfg.ChunkSize, m, log),
		emitter: em,
		config:  cfg,
		metrics: m,
		log:     log,
		status: Status{
			Domain: d,
			State:  domain.SupervisorStateBackfilling,
		},
	}
}

// Domain returns the supervised registry
func (s *Supervisor) Domain() domain.Domain {
	return s.source.Domain()
}

// Status returns a copy of the current status
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Run executes passes until ctx is canceled or a non-retryable error occurs.
// Cancellation is a clean stop and returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(s.config.RetryDelay), ctx)

	operation := func() error {
		err := s.pass(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			// the stream only returns nil when it was closed without error
			err = domain.ErrStreamEnded
		}
		if errors.Is(err, domain.ErrNonRetryable) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		s.setState(domain.SupervisorStateFailed, err)
		s.incRestarts()
		s.metrics.SupervisorRestart(s.Domain())
		s.log.Error("Indexing pass failed, restarting",
			zap.Error(err),
			zap.Duration("retry_in", wait))
	}

	err := backoff.RetryNotify(operation, b, notify)

	if ctx.Err() != nil {
		s.setState(domain.SupervisorStateStopped, nil)
		s.log.Info("Supervisor stopped")
		return nil
	}

	s.setState(domain.SupervisorStateStopped, err)
	s.log.Error("Supervisor stopped on non-retryable error", zap.Error(err))
	return fmt.Errorf("%s supervisor: %w", s.Domain(), err)
}

// pass runs one backfill then streams from the head snapshot
func (s *Supervisor) pass(ctx context.Context) error {
	passID := ulid.Make().String()
	log := s.log.With(logger.PassID(passID))

	s.mu.Lock()
	s.status.PassID = passID
	s.mu.Unlock()
	s.setState(domain.SupervisorStateBackfilling, nil)

	if err := s.source.Verify(ctx); err != nil {
		return err
	}

	head, err := s.source.LatestBlock(ctx)
	if err != nil {
		return err
	}

	start, err := s.startBlock(ctx, head)
	if err != nil {
		return err
	}

	log.Info("Starting indexing pass", zap.Uint64("head", head), zap.Uint64("start_block", start))

	if head > start {
		if err := s.scanner.Scan(ctx, start, head-1); err != nil {
			return err
		}
	}

	s.setState(domain.SupervisorStateStreaming, nil)
	log.Info("Backfill complete, streaming", zap.Uint64("from_block", head))

	return s.emitter.Run(ctx, head)
}

// startBlock returns the first block to backfill for the head snapshot
func (s *Supervisor) startBlock(ctx context.Context, head uint64) (uint64, error) {
	start := domain.BackfillStart(head, s.config.BackfillWindow)
	if !s.config.ResumeFromCursor {
		return start, nil
	}

	cursor, ok, err := s.cursors.GetBlockCursor(ctx, s.Domain())
	if err != nil {
		return 0, err
	}
	if !ok {
		return start, nil
	}

	if cursor >= head {
		return head, nil
	}
	return cursor + 1, nil
}

func (s *Supervisor) setState(state domain.SupervisorState, err error) {
	s.mu.Lock()
	if s.status.State != state {
		s.status.Since = time.Now()
	}
	s.status.State = state
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.mu.Unlock()

	s.metrics.SetSupervisorState(s.Domain(), state)
}

func (s *Supervisor) incRestarts() {
	s.mu.Lock()
	s.status.Restarts++
	s.mu.Unlock()
}
