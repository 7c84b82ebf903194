package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/registry-indexer/internal/adapter"
	"github.com/feral-file/registry-indexer/internal/domain"
)

// Manufacturer is the getManufacturer return tuple.
// Field order must follow the ABI components.
type Manufacturer struct {
	Name                string
	ManufacturerAddress common.Address
}

// Item is the getItem return tuple.
// Field order must follow the ABI components.
type Item struct {
	Name         string
	ItemID       string `abi:"itemId"`
	Serial       string
	Date         *big.Int
	Owner        common.Address
	Manufacturer string
	Metadata     []string
}

// AuthenticityReader reads canonical manufacturer state from the Authenticity registry
//
//go:generate mockgen -source=caller.go -destination=../mocks/contract_reader.go -package=mocks -mock_names=AuthenticityReader=MockAuthenticityReader,OwnershipReader=MockOwnershipReader
type AuthenticityReader interface {
	// GetManufacturer calls getManufacturer(address)
	GetManufacturer(ctx context.Context, address common.Address) (*Manufacturer, error)
}

// OwnershipReader reads canonical item state from the Ownership registry
type OwnershipReader interface {
	// GetItem calls getItem(itemId)
	GetItem(ctx context.Context, itemID string) (*Item, error)
}

// Caller performs read-only calls against a bound contract at the latest block
type Caller struct {
	binding *Binding
	client  adapter.EthClient
}

// NewCaller creates a read-call client for binding
func NewCaller(binding *Binding, client adapter.EthClient) *Caller {
	return &Caller{binding: binding, client: client}
}

// GetManufacturer fetches the registered manufacturer for address
func (c *Caller) GetManufacturer(ctx context.Context, address common.Address) (*Manufacturer, error) {
	if c.binding.Domain() != domain.DomainAuthenticity {
		return nil, fmt.Errorf("getManufacturer is not available on %s", c.binding.Domain())
	}

	out, err := c.call(ctx, "getManufacturer", address)
	if err != nil {
		return nil, err
	}

	manufacturer := *abi.ConvertType(out[0], new(Manufacturer)).(*Manufacturer)
	return &manufacturer, nil
}

// GetItem fetches the item registered under itemID
func (c *Caller) GetItem(ctx context.Context, itemID string) (*Item, error) {
	if c.binding.Domain() != domain.DomainOwnership {
		return nil, fmt.Errorf("getItem is not available on %s", c.binding.Domain())
	}

	out, err := c.call(ctx, "getItem", itemID)
	if err != nil {
		return nil, err
	}

	item := *abi.ConvertType(out[0], new(Item)).(*Item)
	return &item, nil
}

func (c *Caller) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	contractABI := c.binding.ABI()

	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	contractAddr := c.binding.Address()
	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &contractAddr,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	out, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s result length %d", method, len(out))
	}

	return out, nil
}
