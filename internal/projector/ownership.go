package projector

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/registry-indexer/internal/contracts"
	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/metrics"
	"github.com/feral-file/registry-indexer/internal/store/schema"
)

// OwnershipProjector projects Ownership registry events
type OwnershipProjector struct {
	writer  *Writer
	reader  contracts.OwnershipReader
	metrics *metrics.Metrics
}

func NewOwnershipProjector(writer *Writer, reader contracts.OwnershipReader, m *metrics.Metrics) *OwnershipProjector {
	return &OwnershipProjector{writer: writer, reader: reader, metrics: m}
}

// Routes returns the dispatch table of the Ownership registry
func (p *OwnershipProjector) Routes() Routes {
	return Routes{
		Handlers: map[domain.EventKind]Handler{
			domain.KindOwnershipCreated: p.handleOwnershipCreated,
			domain.KindUserRegistered:   p.handleUserRegistered,
			domain.KindOwnershipCode:    p.handleOwnershipCode,
			domain.KindItemCreated:      p.handleItemCreated,
			domain.KindOwnershipClaimed: p.handleOwnershipClaimed,
			domain.KindCodeRevoked:      p.handleCodeRevoked,
			domain.KindAuthenticitySet:  p.handleAuthenticitySet,
		},
		Discard: []domain.EventKind{domain.KindEIP712DomainChanged},
	}
}

func (p *OwnershipProjector) handleOwnershipCreated(ctx context.Context, log contracts.DecodedLog) error {
	ev, ok := log.Event.(contracts.OwnershipCreated)
	if !ok {
		return unexpectedPayload(log)
	}
	address := ev.ContractAddress.Hex()

	probe := &schema.Contract{ContractAddress: address}
	return p.writer.Write(ctx, log.Meta, probe, func(_ context.Context, blockTime time.Time) (schema.Record, error) {
		return &schema.Contract{
			ContractAddress: address,
			Owner:           ev.Owner.Hex(),
			TxHash:          log.Meta.TxHash,
			BlockNumber:     log.Meta.BlockNumber,
			LogIndex:        log.Meta.LogIndex,
			CreatedAt:       blockTime,
		}, nil
	})
}

func (p *OwnershipProjector) handleUserRegistered(ctx context.Context, log contracts.DecodedLog) error {
	ev, ok := log.Event.(contracts.UserRegistered)
	if !ok {
		return unexpectedPayload(log)
	}
	address := ev.UserAddress.Hex()

	probe := &schema.User{UserAddress: address}
	return p.writer.Write(ctx, log.Meta, probe, func(_ context.Context, blockTime time.Time) (schema.Record, error) {
		return &schema.User{
			UserAddress: address,
			Username:    ev.Username,
			Registered:  true,
			TxHash:      log.Meta.TxHash,
			BlockNumber: log.Meta.BlockNumber,
			LogIndex:    log.Meta.LogIndex,
			CreatedAt:   blockTime,
		}, nil
	})
}

// handleOwnershipCode records a claim code together with the item owner at issue time
func (p *OwnershipProjector) handleOwnershipCode(ctx context.Context, log contracts.DecodedLog) error {
	ev, ok := log.Event.(contracts.OwnershipCode)
	if !ok {
		return unexpectedPayload(log)
	}
	code := common.Hash(ev.OwnershipCode).Hex()

	probe := &schema.OwnershipCode{Code: code}
	return p.writer.Write(ctx, log.Meta, probe, func(ctx context.Context, blockTime time.Time) (schema.Record, error) {
		item, err := p.getItem(ctx, ev.ItemID)
		if err != nil {
			return nil, err
		}

		return &schema.OwnershipCode{
			Code:        code,
			ItemID:      ev.ItemID,
			TempOwner:   ev.TempOwner.Hex(),
			ItemOwner:   item.Owner.Hex(),
			TxHash:      log.Meta.TxHash,
			BlockNumber: log.Meta.BlockNumber,
			LogIndex:    log.Meta.LogIndex,
			CreatedAt:   blockTime,
		}, nil
	})
}

// handleItemCreated takes the owner from the event and everything else from getItem
func (p *OwnershipProjector) handleItemCreated(ctx context.Context, log contracts.DecodedLog) error {
	ev, ok := log.Event.(contracts.ItemCreated)
	if !ok {
		return unexpectedPayload(log)
	}

	probe := &schema.Item{ItemID: ev.ItemID}
	return p.writer.Write(ctx, log.Meta, probe, func(ctx context.Context, blockTime time.Time) (schema.Record, error) {
		item, err := p.getItem(ctx, ev.ItemID)
		if err != nil {
			return nil, err
		}

		date := "0"
		if item.Date != nil {
			date = item.Date.String()
		}
		metadata := item.Metadata
		if metadata == nil {
			metadata = []string{}
		}

		return &schema.Item{
			ItemID:          ev.ItemID,
			Name:            item.Name,
			Serial:          item.Serial,
			ManufactureDate: date,
			Owner:           ev.Owner.Hex(),
			Manufacturer:    item.Manufacturer,
			Metadata:        metadata,
			TxHash:          log.Meta.TxHash,
			BlockNumber:     log.Meta.BlockNumber,
			LogIndex:        log.Meta.LogIndex,
			CreatedAt:       blockTime,
		}, nil
	})
}

// handleOwnershipClaimed stores the claim by log position; the event does not name the item
func (p *OwnershipProjector) handleOwnershipClaimed(ctx context.Context, log contracts.DecodedLog) error {
	ev, ok := log.Event.(contracts.OwnershipClaimed)
	if !ok {
		return unexpectedPayload(log)
	}

	probe := &schema.OwnershipClaim{TxHash: log.Meta.TxHash, LogIndex: log.Meta.LogIndex}
	return p.writer.Write(ctx, log.Meta, probe, func(_ context.Context, blockTime time.Time) (schema.Record, error) {
		return &schema.OwnershipClaim{
			ItemID:      "",
			NewOwner:    ev.NewOwner.Hex(),
			OldOwner:    ev.OldOwner.Hex(),
			TxHash:      log.Meta.TxHash,
			LogIndex:    log.Meta.LogIndex,
			BlockNumber: log.Meta.BlockNumber,
			CreatedAt:   blockTime,
		}, nil
	})
}

func (p *OwnershipProjector) handleCodeRevoked(ctx context.Context, log contracts.DecodedLog) error {
	ev, ok := log.Event.(contracts.CodeRevoked)
	if !ok {
		return unexpectedPayload(log)
	}
	itemHash := common.Hash(ev.ItemHash).Hex()

	probe := &schema.CodeRevocation{ItemHash: itemHash}
	return p.writer.Write(ctx, log.Meta, probe, func(_ context.Context, blockTime time.Time) (schema.Record, error) {
		return &schema.CodeRevocation{
			ItemHash:    itemHash,
			TxHash:      log.Meta.TxHash,
			BlockNumber: log.Meta.BlockNumber,
			LogIndex:    log.Meta.LogIndex,
			CreatedAt:   blockTime,
		}, nil
	})
}

func (p *OwnershipProjector) handleAuthenticitySet(ctx context.Context, log contracts.DecodedLog) error {
	ev, ok := log.Event.(contracts.AuthenticitySet)
	if !ok {
		return unexpectedPayload(log)
	}
	address := ev.AuthenticityAddress.Hex()

	probe := &schema.AuthenticitySetting{AuthenticityAddress: address}
	return p.writer.Write(ctx, log.Meta, probe, func(_ context.Context, blockTime time.Time) (schema.Record, error) {
		return &schema.AuthenticitySetting{
			AuthenticityAddress: address,
			TxHash:              log.Meta.TxHash,
			BlockNumber:         log.Meta.BlockNumber,
			LogIndex:            log.Meta.LogIndex,
			CreatedAt:           blockTime,
		}, nil
	})
}

func (p *OwnershipProjector) getItem(ctx context.Context, itemID string) (*contracts.Item, error) {
	item, err := p.reader.GetItem(ctx, itemID)
	p.metrics.AugmentCall(domain.DomainOwnership, "getItem", err)
	if err != nil {
		return nil, fmt.Errorf("failed to read item %s: %w", itemID, err)
	}
	return item, nil
}
