package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Record is a projected read-model row identified by its natural key
type Record interface {
	// TableName returns the table the record lives in
	TableName() string
	// NaturalKey returns the column/value pairs that identify the record
	NaturalKey() map[string]interface{}
}

// KeyString renders the natural key of r as "col=value" pairs, e.g. for notices and logs
func KeyString(r Record) string {
	key := r.NaturalKey()
	cols := make([]string, 0, len(key))
	for col := range key {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		parts = append(parts, fmt.Sprintf("%s=%v", col, key[col]))
	}
	return strings.Join(parts, ",")
}

// Models returns every table managed by the indexer, for migrations
func Models() []interface{} {
	return []interface{}{
		&KeyValueStore{},
		&Manufacturer{},
		&ContractCreated{},
		&Contract{},
		&User{},
		&Item{},
		&OwnershipClaim{},
		&OwnershipCode{},
		&CodeRevocation{},
		&AuthenticitySetting{},
	}
}
