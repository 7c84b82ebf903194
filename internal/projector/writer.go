package projector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/registry-indexer/internal/block"
	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/logger"
	"github.com/feral-file/registry-indexer/internal/messaging"
	"github.com/feral-file/registry-indexer/internal/metrics"
	"github.com/feral-file/registry-indexer/internal/store"
	"github.com/feral-file/registry-indexer/internal/store/schema"
)

// BuildFunc completes the row of an absent record.
// blockTime is the timestamp of the emitting block.
type BuildFunc func(ctx context.Context, blockTime time.Time) (schema.Record, error)

// Writer stores each projected record at most once
type Writer struct {
	domain    domain.Domain
	store     store.Store
	blocks    block.BlockProvider
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewWriter creates the writer of domain d
func NewWriter(d domain.Domain, st store.Store, blocks block.BlockProvider, publisher messaging.Publisher, m *metrics.Metrics, log *zap.Logger) *Writer {
	return &Writer{
		domain:    d,
		store:     st,
		blocks:    blocks,
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

// Write stores the record identified by probe unless it is already present.
//
// build runs only when the existence check misses, so contract reads are not
// repeated for replayed events. The insert itself is atomic: losing a race
// against a concurrent writer is reported as a duplicate, not an error.
func (w *Writer) Write(ctx context.Context, meta domain.LogMeta, probe schema.Record, build BuildFunc) error {
	table := probe.TableName()

	exists, err := w.store.Exists(ctx, probe)
	if err != nil {
		return err
	}
	if exists {
		w.skipDuplicate(table, probe, meta)
		return nil
	}

	blockTime, err := w.blocks.GetBlockTimestamp(ctx, meta.BlockNumber)
	if err != nil {
		return fmt.Errorf("failed to get block time: %w", err)
	}

	record, err := build(ctx, blockTime)
	if err != nil {
		return err
	}

	inserted, err := w.store.InsertIfAbsent(ctx, record)
	if err != nil {
		return err
	}
	if !inserted {
		w.skipDuplicate(table, record, meta)
		return nil
	}

	key := schema.KeyString(record)
	w.metrics.RecordInserted(w.domain, table)
	w.log.Info("Projected record",
		zap.String("table", table),
		zap.String("key", key),
		logger.TxHash(meta.TxHash),
		logger.Block(meta.BlockNumber))

	notice := domain.ProjectionNotice{
		Domain:      w.domain,
		Table:       table,
		Key:         key,
		TxHash:      meta.TxHash,
		BlockNumber: meta.BlockNumber,
	}
	if err := w.publisher.PublishProjection(ctx, notice); err != nil {
		w.metrics.PublishFailure(w.domain)
		w.log.Warn("Failed to publish projection notice", zap.Error(err),
			zap.String("table", table), zap.String("key", key))
	}

	return nil
}

func (w *Writer) skipDuplicate(table string, record schema.Record, meta domain.LogMeta) {
	w.metrics.RecordDuplicate(w.domain, table)
	w.log.Info("Skip duplicate",
		zap.String("table", table),
		zap.String("key", schema.KeyString(record)),
		logger.TxHash(meta.TxHash))
}
