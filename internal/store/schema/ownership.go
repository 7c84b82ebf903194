package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Contract represents the contracts table, projected from OwnershipCreated
type Contract struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ContractAddress string    `gorm:"column:contract_address;not null;type:text;uniqueIndex:idx_contracts_address"`
	Owner           string    `gorm:"column:owner;not null;type:text;index"`
	TxHash          string    `gorm:"column:tx_hash;not null;type:text"`
	BlockNumber     uint64    `gorm:"column:block_number;not null"`
	LogIndex        uint      `gorm:"column:log_index;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;not null"`
	IndexedAt       time.Time `gorm:"column:indexed_at;not null;autoCreateTime"`
}

func (Contract) TableName() string {
	return "contracts"
}

func (c Contract) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"contract_address": c.ContractAddress}
}

// User represents the users table, projected from UserRegistered
type User struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	UserAddress string `gorm:"column:user_address;not null;type:text;uniqueIndex:idx_users_address"`
	Username    string `gorm:"column:username;not null;type:text"`
	// Registered is always true for indexed users; the API layer reads it as-is
	Registered  bool      `gorm:"column:registered;not null;default:true"`
	TxHash      string    `gorm:"column:tx_hash;not null;type:text"`
	BlockNumber uint64    `gorm:"column:block_number;not null"`
	LogIndex    uint      `gorm:"column:log_index;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	IndexedAt   time.Time `gorm:"column:indexed_at;not null;autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}

func (u User) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"user_address": u.UserAddress}
}

// Item represents the items table, projected from ItemCreated and completed with getItem
type Item struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ItemID string `gorm:"column:item_id;not null;type:text;uniqueIndex:idx_items_item_id"`
	Name   string `gorm:"column:name;not null;type:text"`
	Serial string `gorm:"column:serial;not null;type:text"`
	// ManufactureDate is the uint256 date returned by getItem, as a decimal string
	ManufactureDate string `gorm:"column:manufacture_date;not null;type:text"`
	Owner           string `gorm:"column:owner;not null;type:text;index"`
	Manufacturer    string `gorm:"column:manufacturer;not null;type:text"`
	// Metadata keeps the order returned by the contract
	Metadata    datatypes.JSONSlice[string] `gorm:"column:metadata;not null"`
	TxHash      string                      `gorm:"column:tx_hash;not null;type:text"`
	BlockNumber uint64                      `gorm:"column:block_number;not null"`
	LogIndex    uint                        `gorm:"column:log_index;not null"`
	CreatedAt   time.Time                   `gorm:"column:created_at;not null"`
	IndexedAt   time.Time                   `gorm:"column:indexed_at;not null;autoCreateTime"`
}

func (Item) TableName() string {
	return "items"
}

func (i Item) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"item_id": i.ItemID}
}

// OwnershipClaim represents the ownership_claims table, projected from OwnershipClaimed.
// The event does not name the item, so ItemID is always empty and the row is
// identified by its log position.
type OwnershipClaim struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ItemID      string    `gorm:"column:item_id;not null;type:text;default:''"`
	NewOwner    string    `gorm:"column:new_owner;not null;type:text;index"`
	OldOwner    string    `gorm:"column:old_owner;not null;type:text;index"`
	TxHash      string    `gorm:"column:tx_hash;not null;type:text;uniqueIndex:idx_ownership_claims_log,priority:1"`
	LogIndex    uint      `gorm:"column:log_index;not null;uniqueIndex:idx_ownership_claims_log,priority:2"`
	BlockNumber uint64    `gorm:"column:block_number;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	IndexedAt   time.Time `gorm:"column:indexed_at;not null;autoCreateTime"`
}

func (OwnershipClaim) TableName() string {
	return "ownership_claims"
}

func (c OwnershipClaim) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"tx_hash": c.TxHash, "log_index": c.LogIndex}
}

// OwnershipCode represents the ownership_codes table, projected from OwnershipCode
type OwnershipCode struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Code is the 0x-prefixed hex of the bytes32 ownership code
	Code      string `gorm:"column:ownership_code;not null;type:text;uniqueIndex:idx_ownership_codes_code"`
	ItemID    string `gorm:"column:item_id;not null;type:text;index"`
	TempOwner string `gorm:"column:temp_owner;not null;type:text"`
	// ItemOwner is the owner reported by getItem when the code was indexed
	ItemOwner   string    `gorm:"column:item_owner;not null;type:text"`
	TxHash      string    `gorm:"column:tx_hash;not null;type:text"`
	BlockNumber uint64    `gorm:"column:block_number;not null"`
	LogIndex    uint      `gorm:"column:log_index;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	IndexedAt   time.Time `gorm:"column:indexed_at;not null;autoCreateTime"`
}

func (OwnershipCode) TableName() string {
	return "ownership_codes"
}

func (c OwnershipCode) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"ownership_code": c.Code}
}

// CodeRevocation represents the code_revocations table, projected from CodeRevoked
type CodeRevocation struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ItemHash    string    `gorm:"column:item_hash;not null;type:text;uniqueIndex:idx_code_revocations_item_hash"`
	TxHash      string    `gorm:"column:tx_hash;not null;type:text"`
	BlockNumber uint64    `gorm:"column:block_number;not null"`
	LogIndex    uint      `gorm:"column:log_index;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	IndexedAt   time.Time `gorm:"column:indexed_at;not null;autoCreateTime"`
}

func (CodeRevocation) TableName() string {
	return "code_revocations"
}

func (r CodeRevocation) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"item_hash": r.ItemHash}
}

// AuthenticitySetting represents the authenticity_settings table, projected from AuthenticitySet
type AuthenticitySetting struct {
	ID                  int64     `gorm:"column:id;primaryKey;autoIncrement"`
	AuthenticityAddress string    `gorm:"column:authenticity_address;not null;type:text;uniqueIndex:idx_authenticity_settings_address"`
	TxHash              string    `gorm:"column:tx_hash;not null;type:text"`
	BlockNumber         uint64    `gorm:"column:block_number;not null"`
	LogIndex            uint      `gorm:"column:log_index;not null"`
	CreatedAt           time.Time `gorm:"column:created_at;not null"`
	IndexedAt           time.Time `gorm:"column:indexed_at;not null;autoCreateTime"`
}

func (AuthenticitySetting) TableName() string {
	return "authenticity_settings"
}

func (s AuthenticitySetting) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"authenticity_address": s.AuthenticityAddress}
}
