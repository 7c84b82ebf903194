package store

import (
	"context"

	"github.com/feral-file/registry-indexer/internal/store/schema"
)

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	CursorStore

	// Exists reports whether a row with the natural key of record is stored
	Exists(ctx context.Context, record schema.Record) (bool, error)
	// InsertIfAbsent inserts record unless a row with the same natural key exists.
	// It reports whether a row was inserted.
	InsertIfAbsent(ctx context.Context, record schema.Record) (bool, error)

	// GetManufacturer retrieves a manufacturer by address, nil if not indexed
	GetManufacturer(ctx context.Context, address string) (*schema.Manufacturer, error)
	// GetUser retrieves a user by address, nil if not indexed
	GetUser(ctx context.Context, address string) (*schema.User, error)
	// UserExists reports whether a user with address is indexed
	UserExists(ctx context.Context, address string) (bool, error)
	// GetItem retrieves an item by item id, nil if not indexed
	GetItem(ctx context.Context, itemID string) (*schema.Item, error)
	// GetItemsByOwner retrieves the items whose recorded owner is owner, oldest first
	GetItemsByOwner(ctx context.Context, owner string) ([]schema.Item, error)
}
