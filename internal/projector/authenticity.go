package projector

import (
	"context"
	"fmt"
	"time"

	"github.com/feral-file/registry-indexer/internal/contracts"
	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/metrics"
	"github.com/feral-file/registry-indexer/internal/store/schema"
)

// AuthenticityProjector projects Authenticity registry events
type AuthenticityProjector struct {
	writer  *Writer
	reader  contracts.AuthenticityReader
	metrics *metrics.Metrics
}

func NewAuthenticityProjector(writer *Writer, reader contracts.AuthenticityReader, m *metrics.Metrics) *AuthenticityProjector {
	return &AuthenticityProjector{writer: writer, reader: reader, metrics: m}
}

// Routes returns the dispatch table of the Authenticity registry
func (p *AuthenticityProjector) Routes() Routes {
	return Routes{
		Handlers: map[domain.EventKind]Handler{
			domain.KindManufacturerRegistered: p.handleManufacturerRegistered,
			domain.KindContractCreated:        p.handleContractCreated,
		},
		Discard: []domain.EventKind{domain.KindEIP712DomainChanged},
	}
}

func (p *AuthenticityProjector) handleManufacturerRegistered(ctx context.Context, log contracts.DecodedLog) error {
	ev, ok := log.Event.(contracts.ManufacturerRegistered)
	if !ok {
		return unexpectedPayload(log)
	}
	address := ev.ManufacturerAddress.Hex()

	probe := &schema.Manufacturer{ManufacturerAddress: address}
	return p.writer.Write(ctx, log.Meta, probe, func(ctx context.Context, blockTime time.Time) (schema.Record, error) {
		manufacturer, err := p.reader.GetManufacturer(ctx, ev.ManufacturerAddress)
		p.metrics.AugmentCall(domain.DomainAuthenticity, "getManufacturer", err)
		if err != nil {
			return nil, fmt.Errorf("failed to read manufacturer %s: %w", address, err)
		}

		return &schema.Manufacturer{
			ManufacturerAddress: address,
			Name:                manufacturer.Name,
			TxHash:              log.Meta.TxHash,
			BlockNumber:         log.Meta.BlockNumber,
			LogIndex:            log.Meta.LogIndex,
			RegisteredAt:        blockTime,
		}, nil
	})
}

func (p *AuthenticityProjector) handleContractCreated(ctx context.Context, log contracts.DecodedLog) error {
	ev, ok := log.Event.(contracts.ContractCreated)
	if !ok {
		return unexpectedPayload(log)
	}
	address := ev.ContractAddress.Hex()

	probe := &schema.ContractCreated{ContractAddress: address}
	return p.writer.Write(ctx, log.Meta, probe, func(_ context.Context, blockTime time.Time) (schema.Record, error) {
		return &schema.ContractCreated{
			ContractAddress: address,
			Owner:           ev.Owner.Hex(),
			TxHash:          log.Meta.TxHash,
			BlockNumber:     log.Meta.BlockNumber,
			LogIndex:        log.Meta.LogIndex,
			CreatedAt:       blockTime,
		}, nil
	})
}

func unexpectedPayload(log contracts.DecodedLog) error {
	return fmt.Errorf("%w: unexpected payload %T for %s", domain.ErrUnknownEventKind, log.Event, log.Kind())
}
