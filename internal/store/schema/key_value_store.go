package schema

import "time"

// KeyValueStore stores small pieces of indexer state, such as the
// per-domain block cursors
type KeyValueStore struct {
	Key       string    `gorm:"column:key;primaryKey;type:text"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (KeyValueStore) TableName() string {
	return "key_value_store"
}
