package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/store/schema"
)

// CursorStore defines the interface for storing and retrieving block cursors
//
//go:generate mockgen -source=cursor_store.go -destination=../mocks/cursor_store.go -package=mocks -mock_names=CursorStore=MockCursorStore
type CursorStore interface {
	// GetBlockCursor returns the last fully processed block of a domain and whether one is stored
	GetBlockCursor(ctx context.Context, d domain.Domain) (uint64, bool, error)
	// SetBlockCursor stores the last fully processed block of a domain
	SetBlockCursor(ctx context.Context, d domain.Domain, blockNumber uint64) error
}

func cursorKey(d domain.Domain) string {
	return fmt.Sprintf("block_cursor:%s", d)
}

type cursorStore struct {
	db *gorm.DB
}

// NewCursorStore creates a cursor store on db
func NewCursorStore(db *gorm.DB) CursorStore {
	return &cursorStore{db: db}
}

func (s *cursorStore) GetBlockCursor(ctx context.Context, d domain.Domain) (uint64, bool, error) {
	return getBlockCursor(ctx, s.db, d)
}

func (s *cursorStore) SetBlockCursor(ctx context.Context, d domain.Domain, blockNumber uint64) error {
	return setBlockCursor(ctx, s.db, d, blockNumber)
}

func getBlockCursor(ctx context.Context, db *gorm.DB, d domain.Domain) (uint64, bool, error) {
	var kv schema.KeyValueStore
	err := db.WithContext(ctx).Where(map[string]interface{}{"key": cursorKey(d)}).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("%w: failed to get block cursor: %v", domain.ErrStore, err)
	}

	blockNumber, err := strconv.ParseUint(kv.Value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: failed to parse block cursor %q: %v", domain.ErrStore, kv.Value, err)
	}

	return blockNumber, true, nil
}

func setBlockCursor(ctx context.Context, db *gorm.DB, d domain.Domain, blockNumber uint64) error {
	kv := schema.KeyValueStore{
		Key:   cursorKey(d),
		Value: strconv.FormatUint(blockNumber, 10),
	}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&kv).Error
	if err != nil {
		return fmt.Errorf("%w: failed to set block cursor: %v", domain.ErrStore, err)
	}

	return nil
}
