package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new store instance.
// Only portable SQL is issued, so any gorm dialect with ON CONFLICT support works.
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates every indexer table and its unique indexes
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(schema.Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero values are replaced by the defaults of NormalizeConnectionPoolSettings.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 10, enough for two domain supervisors and the health endpoint
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns <= 0 {
		maxOpenConns = 10
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// Exists reports whether a row with the natural key of record is stored
func (s *pgStore) Exists(ctx context.Context, record schema.Record) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(record).
		Where(record.NaturalKey()).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: failed to check %s: %v", domain.ErrStore, record.TableName(), err)
	}
	return count > 0, nil
}

// InsertIfAbsent inserts record with ON CONFLICT DO NOTHING.
// A concurrent insert of the same natural key results in (false, nil).
func (s *pgStore) InsertIfAbsent(ctx context.Context, record schema.Record) (bool, error) {
	tx := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record)
	if tx.Error != nil {
		return false, fmt.Errorf("%w: failed to insert into %s: %v", domain.ErrStore, record.TableName(), tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// GetBlockCursor retrieves the last processed block number for a domain
func (s *pgStore) GetBlockCursor(ctx context.Context, d domain.Domain) (uint64, bool, error) {
	return getBlockCursor(ctx, s.db, d)
}

// SetBlockCursor stores the last processed block number for a domain
func (s *pgStore) SetBlockCursor(ctx context.Context, d domain.Domain, blockNumber uint64) error {
	return setBlockCursor(ctx, s.db, d, blockNumber)
}

// GetManufacturer retrieves a manufacturer by address
func (s *pgStore) GetManufacturer(ctx context.Context, address string) (*schema.Manufacturer, error) {
	var manufacturer schema.Manufacturer
	err := s.db.WithContext(ctx).
		Where(schema.Manufacturer{ManufacturerAddress: normalizeAddress(address)}.NaturalKey()).
		First(&manufacturer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to get manufacturer: %v", domain.ErrStore, err)
	}
	return &manufacturer, nil
}

// GetUser retrieves a user by address
func (s *pgStore) GetUser(ctx context.Context, address string) (*schema.User, error) {
	var user schema.User
	err := s.db.WithContext(ctx).
		Where(schema.User{UserAddress: normalizeAddress(address)}.NaturalKey()).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to get user: %v", domain.ErrStore, err)
	}
	return &user, nil
}

// UserExists reports whether a user with address is indexed
func (s *pgStore) UserExists(ctx context.Context, address string) (bool, error) {
	return s.Exists(ctx, &schema.User{UserAddress: normalizeAddress(address)})
}

// GetItem retrieves an item by item id
func (s *pgStore) GetItem(ctx context.Context, itemID string) (*schema.Item, error) {
	var item schema.Item
	err := s.db.WithContext(ctx).
		Where(schema.Item{ItemID: itemID}.NaturalKey()).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to get item: %v", domain.ErrStore, err)
	}
	return &item, nil
}

// GetItemsByOwner retrieves the items recorded for owner, oldest first
func (s *pgStore) GetItemsByOwner(ctx context.Context, owner string) ([]schema.Item, error) {
	var items []schema.Item
	err := s.db.WithContext(ctx).
		Where("owner = ?", normalizeAddress(owner)).
		Order("block_number ASC, log_index ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get items by owner: %v", domain.ErrStore, err)
	}
	return items, nil
}

// normalizeAddress returns the checksummed form of hex addresses, other input unchanged
func normalizeAddress(address string) string {
	if common.IsHexAddress(address) {
		return common.HexToAddress(address).Hex()
	}
	return address
}
