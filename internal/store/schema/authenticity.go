package schema

import "time"

// Manufacturer represents the manufacturers table, projected from ManufacturerRegistered
type Manufacturer struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ManufacturerAddress is the checksummed address of the manufacturer
	ManufacturerAddress string `gorm:"column:manufacturer_address;not null;type:text;uniqueIndex:idx_manufacturers_address"`
	// Name is read from getManufacturer at indexing time
	Name         string    `gorm:"column:name;not null;type:text"`
	TxHash       string    `gorm:"column:tx_hash;not null;type:text"`
	BlockNumber  uint64    `gorm:"column:block_number;not null"`
	LogIndex     uint      `gorm:"column:log_index;not null"`
	RegisteredAt time.Time `gorm:"column:registered_at;not null"`
	IndexedAt    time.Time `gorm:"column:indexed_at;not null;autoCreateTime"`
}

// TableName specifies the table name for the Manufacturer model
func (Manufacturer) TableName() string {
	return "manufacturers"
}

func (m Manufacturer) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"manufacturer_address": m.ManufacturerAddress}
}

// ContractCreated represents the contracts_created table, projected from the Authenticity ContractCreated event
type ContractCreated struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ContractAddress string    `gorm:"column:contract_address;not null;type:text;uniqueIndex:idx_contracts_created_address"`
	Owner           string    `gorm:"column:owner;not null;type:text;index"`
	TxHash          string    `gorm:"column:tx_hash;not null;type:text"`
	BlockNumber     uint64    `gorm:"column:block_number;not null"`
	LogIndex        uint      `gorm:"column:log_index;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;not null"`
	IndexedAt       time.Time `gorm:"column:indexed_at;not null;autoCreateTime"`
}

func (ContractCreated) TableName() string {
	return "contracts_created"
}

func (c ContractCreated) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"contract_address": c.ContractAddress}
}
