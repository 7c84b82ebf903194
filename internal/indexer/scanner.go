package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/logger"
	"github.com/feral-file/registry-indexer/internal/messaging"
	"github.com/feral-file/registry-indexer/internal/metrics"
	"github.com/feral-file/registry-indexer/internal/projector"
	"github.com/feral-file/registry-indexer/internal/store"
)

// Scanner replays a historical block range through the router in bounded chunks
type Scanner struct {
	source    messaging.LogSource
	router    projector.EventRouter
	cursors   store.CursorStore
	chunkSize uint64
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewScanner creates a scanner querying at most chunkSize blocks per request
func NewScanner(source messaging.LogSource, router projector.EventRouter, cursors store.CursorStore, chunkSize uint64, m *metrics.Metrics, log *zap.Logger) *Scanner {
	if chunkSize == 0 {
		chunkSize = domain.DefaultChunkSize
	}
	return &Scanner{
		source:    source,
		router:    router,
		cursors:   cursors,
		chunkSize: chunkSize,
		metrics:   m,
		log:       log,
	}
}

// Scan routes every backfill log in the inclusive range [from, to].
//
// Each chunk is queried once per kind, in the fixed kind order of the
// contract, and the next chunk starts only after all kinds are routed.
// The cursor is moved to the end of each completed chunk.
func (s *Scanner) Scan(ctx context.Context, from, to uint64) error {
	d := s.source.Domain()
	kinds := s.source.BackfillKinds()
	chunks := domain.SplitBlockRange(from, to, s.chunkSize)

	s.log.Info("Backfilling",
		zap.Uint64("from_block", from),
		zap.Uint64("to_block", to),
		zap.Int("chunks", len(chunks)))

	for _, chunk := range chunks {
		for _, kind := range kinds {
			logs, err := s.source.QueryRange(ctx, kind, chunk.From, chunk.To)
			if err != nil {
				return fmt.Errorf("failed to query %s logs in %d-%d: %w", kind, chunk.From, chunk.To, err)
			}

			for _, log := range logs {
				if err := s.router.Route(ctx, log); err != nil {
					return err
				}
			}
		}

		s.metrics.BackfillChunk(d)
		s.log.Debug("Backfilled chunk", zap.Uint64("from_block", chunk.From), zap.Uint64("to_block", chunk.To))

		if err := s.cursors.SetBlockCursor(ctx, d, chunk.To); err != nil {
			s.log.Warn("Failed to save block cursor", zap.Error(err), logger.Block(chunk.To))
			continue
		}
		s.metrics.SetCursor(d, chunk.To)
	}

	return nil
}
