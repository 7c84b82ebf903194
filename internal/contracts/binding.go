package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/feral-file/registry-indexer/internal/domain"
)

var (
	// authenticityBackfillKinds is the order kinds are queried per backfill chunk
	authenticityBackfillKinds = []domain.EventKind{
		domain.KindManufacturerRegistered,
		domain.KindContractCreated,
	}

	ownershipBackfillKinds = []domain.EventKind{
		domain.KindOwnershipCreated,
		domain.KindUserRegistered,
		domain.KindOwnershipCode,
		domain.KindItemCreated,
		domain.KindOwnershipClaimed,
		domain.KindCodeRevoked,
		domain.KindAuthenticitySet,
	}

	// discardedKinds are declared by both contracts but carry nothing to project
	discardedKinds = []domain.EventKind{
		domain.KindEIP712DomainChanged,
	}
)

// Binding ties a registry ABI to its deployed address and decodes its logs
type Binding struct {
	domain        domain.Domain
	address       common.Address
	abi           abi.ABI
	backfillKinds []domain.EventKind
	discardKinds  []domain.EventKind
	byTopic       map[common.Hash]domain.EventKind
}

// NewAuthenticityBinding creates the binding of the Authenticity registry
func NewAuthenticityBinding(address common.Address) (*Binding, error) {
	return newBinding(domain.DomainAuthenticity, address, AuthenticityABI, authenticityBackfillKinds, discardedKinds)
}

// NewOwnershipBinding creates the binding of the Ownership registry
func NewOwnershipBinding(address common.Address) (*Binding, error) {
	return newBinding(domain.DomainOwnership, address, OwnershipABI, ownershipBackfillKinds, discardedKinds)
}

func newBinding(d domain.Domain, address common.Address, rawABI string, backfill, discard []domain.EventKind) (*Binding, error) {
	parsed, err := abi.JSON(strings.NewReader(rawABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s ABI: %w", d, err)
	}

	b := &Binding{
		domain:        d,
		address:       address,
		abi:           parsed,
		backfillKinds: backfill,
		discardKinds:  discard,
		byTopic:       make(map[common.Hash]domain.EventKind),
	}

	for _, kind := range b.DeclaredKinds() {
		event, ok := parsed.Events[string(kind)]
		if !ok {
			return nil, fmt.Errorf("event %s missing from %s ABI", kind, d)
		}
		if _, ok := newEvent(kind); !ok {
			return nil, fmt.Errorf("event %s has no payload type", kind)
		}
		b.byTopic[event.ID] = kind
	}

	return b, nil
}

// Domain returns the registry the binding belongs to
func (b *Binding) Domain() domain.Domain {
	return b.domain
}

// Address returns the deployed contract address
func (b *Binding) Address() common.Address {
	return b.address
}

// ABI returns the parsed contract ABI
func (b *Binding) ABI() abi.ABI {
	return b.abi
}

// BackfillKinds returns the projected kinds in their fixed query order
func (b *Binding) BackfillKinds() []domain.EventKind {
	return append([]domain.EventKind(nil), b.backfillKinds...)
}

// DiscardKinds returns the declared kinds that are acknowledged and dropped
func (b *Binding) DiscardKinds() []domain.EventKind {
	return append([]domain.EventKind(nil), b.discardKinds...)
}

// DeclaredKinds returns every event kind the contract can emit
func (b *Binding) DeclaredKinds() []domain.EventKind {
	kinds := make([]domain.EventKind, 0, len(b.backfillKinds)+len(b.discardKinds))
	kinds = append(kinds, b.backfillKinds...)
	return append(kinds, b.discardKinds...)
}

// Topic returns the topic0 hash of kind
func (b *Binding) Topic(kind domain.EventKind) (common.Hash, error) {
	event, ok := b.abi.Events[string(kind)]
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: %s on %s", domain.ErrUnknownEventKind, kind, b.domain)
	}
	return event.ID, nil
}

// Topics returns the topic0 hashes of all declared kinds
func (b *Binding) Topics() []common.Hash {
	topics := make([]common.Hash, 0, len(b.byTopic))
	for _, kind := range b.DeclaredKinds() {
		topics = append(topics, b.abi.Events[string(kind)].ID)
	}
	return topics
}

// Decode turns a raw log of this contract into a typed event
func (b *Binding) Decode(vLog types.Log) (DecodedLog, error) {
	if len(vLog.Topics) == 0 {
		return DecodedLog{}, fmt.Errorf("%w: log without topics in tx %s", domain.ErrMalformedEvent, vLog.TxHash.Hex())
	}

	kind, ok := b.byTopic[vLog.Topics[0]]
	if !ok {
		return DecodedLog{}, fmt.Errorf("%w: unknown topic %s on %s", domain.ErrMalformedEvent, vLog.Topics[0].Hex(), b.domain)
	}

	event := b.abi.Events[string(kind)]
	out, _ := newEvent(kind)

	if len(event.Inputs.NonIndexed()) > 0 {
		if err := b.abi.UnpackIntoInterface(out, event.Name, vLog.Data); err != nil {
			return DecodedLog{}, fmt.Errorf("%w: failed to unpack %s data: %v", domain.ErrMalformedEvent, kind, err)
		}
	}

	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopics(out, indexed, vLog.Topics[1:]); err != nil {
		return DecodedLog{}, fmt.Errorf("%w: failed to parse %s topics: %v", domain.ErrMalformedEvent, kind, err)
	}

	return DecodedLog{
		Event: deref(out),
		Meta: domain.LogMeta{
			TxHash:      vLog.TxHash.Hex(),
			BlockNumber: vLog.BlockNumber,
			BlockHash:   vLog.BlockHash.Hex(),
			LogIndex:    vLog.Index,
		},
	}, nil
}
