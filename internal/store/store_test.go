package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/store/schema"
)

// addresses are stored checksummed
var (
	testAlice   = common.HexToAddress("0x00000000000000000000000000000000000a11ce").Hex()
	testBob     = common.HexToAddress("0x0000000000000000000000000000000000000b0b").Hex()
	testFactory = common.HexToAddress("0x1111111111111111111111111111111111111111").Hex()
)

const (
	testTxHash  = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testTxHash2 = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func buildTestUser(address, username string, blockNumber uint64) *schema.User {
	return &schema.User{
		UserAddress: address,
		Username:    username,
		Registered:  true,
		TxHash:      testTxHash,
		BlockNumber: blockNumber,
		LogIndex:    0,
		CreatedAt:   time.Unix(1700000000, 0).UTC(),
	}
}

func buildTestItem(itemID, owner string, blockNumber uint64, logIndex uint) *schema.Item {
	return &schema.Item{
		ItemID:          itemID,
		Name:            "Watch " + itemID,
		Serial:          "SN-" + itemID,
		ManufactureDate: "1700000000",
		Owner:           owner,
		Manufacturer:    testFactory,
		Metadata:        []string{"ipfs://b", "ipfs://a", "ipfs://c"},
		TxHash:          testTxHash,
		BlockNumber:     blockNumber,
		LogIndex:        logIndex,
		CreatedAt:       time.Unix(1700000000, 0).UTC(),
	}
}

func buildTestClaim(txHash string, logIndex uint) *schema.OwnershipClaim {
	return &schema.OwnershipClaim{
		NewOwner:    testBob,
		OldOwner:    testAlice,
		TxHash:      txHash,
		LogIndex:    logIndex,
		BlockNumber: 42,
		CreatedAt:   time.Unix(1700000000, 0).UTC(),
	}
}

// =============================================================================
// Tests
// =============================================================================

func testInsertIfAbsent(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("first insert wins", func(t *testing.T) {
		inserted, err := store.InsertIfAbsent(ctx, buildTestUser(testAlice, "alice", 10))
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = store.InsertIfAbsent(ctx, buildTestUser(testAlice, "alice-again", 20))
		require.NoError(t, err)
		assert.False(t, inserted)

		user, err := store.GetUser(ctx, testAlice)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, uint64(10), user.BlockNumber)
		assert.True(t, user.Registered)
	})

	t.Run("different keys are independent", func(t *testing.T) {
		inserted, err := store.InsertIfAbsent(ctx, buildTestUser(testBob, "bob", 11))
		require.NoError(t, err)
		assert.True(t, inserted)
	})
}

func testExists(t *testing.T, store Store) {
	ctx := context.Background()

	exists, err := store.Exists(ctx, &schema.Manufacturer{ManufacturerAddress: testFactory})
	require.NoError(t, err)
	assert.False(t, exists)

	inserted, err := store.InsertIfAbsent(ctx, &schema.Manufacturer{
		ManufacturerAddress: testFactory,
		Name:                "Acme",
		TxHash:              testTxHash,
		BlockNumber:         5,
		RegisteredAt:        time.Unix(1700000000, 0).UTC(),
	})
	require.NoError(t, err)
	require.True(t, inserted)

	exists, err = store.Exists(ctx, &schema.Manufacturer{ManufacturerAddress: testFactory})
	require.NoError(t, err)
	assert.True(t, exists)

	manufacturer, err := store.GetManufacturer(ctx, strings.ToLower(testFactory))
	require.NoError(t, err)
	require.NotNil(t, manufacturer)
	assert.Equal(t, "Acme", manufacturer.Name)
}

func testOwnershipClaimsKeyedByLog(t *testing.T, store Store) {
	ctx := context.Background()

	inserted, err := store.InsertIfAbsent(ctx, buildTestClaim(testTxHash, 0))
	require.NoError(t, err)
	assert.True(t, inserted)

	// same transaction, next log
	inserted, err = store.InsertIfAbsent(ctx, buildTestClaim(testTxHash, 1))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.InsertIfAbsent(ctx, buildTestClaim(testTxHash2, 0))
	require.NoError(t, err)
	assert.True(t, inserted)

	// replay
	inserted, err = store.InsertIfAbsent(ctx, buildTestClaim(testTxHash, 1))
	require.NoError(t, err)
	assert.False(t, inserted)

	exists, err := store.Exists(ctx, &schema.OwnershipClaim{TxHash: testTxHash, LogIndex: 1})
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, &schema.OwnershipClaim{TxHash: testTxHash, LogIndex: 2})
	require.NoError(t, err)
	assert.False(t, exists)
}

func testItems(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.InsertIfAbsent(ctx, buildTestItem("item-2", testAlice, 20, 3))
	require.NoError(t, err)
	_, err = store.InsertIfAbsent(ctx, buildTestItem("item-1", testAlice, 10, 0))
	require.NoError(t, err)
	_, err = store.InsertIfAbsent(ctx, buildTestItem("item-3", testBob, 30, 0))
	require.NoError(t, err)

	t.Run("get item keeps metadata order", func(t *testing.T) {
		item, err := store.GetItem(ctx, "item-1")
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, []string{"ipfs://b", "ipfs://a", "ipfs://c"}, []string(item.Metadata))
		assert.Equal(t, "1700000000", item.ManufactureDate)
		assert.Equal(t, testFactory, item.Manufacturer)
	})

	t.Run("get unknown item", func(t *testing.T) {
		item, err := store.GetItem(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("items by owner oldest first", func(t *testing.T) {
		items, err := store.GetItemsByOwner(ctx, strings.ToLower(testAlice))
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "item-1", items[0].ItemID)
		assert.Equal(t, "item-2", items[1].ItemID)
	})
}

func testUserLookups(t *testing.T, store Store) {
	ctx := context.Background()

	user, err := store.GetUser(ctx, testAlice)
	require.NoError(t, err)
	assert.Nil(t, user)

	exists, err := store.UserExists(ctx, testAlice)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.InsertIfAbsent(ctx, buildTestUser(testAlice, "alice", 10))
	require.NoError(t, err)

	exists, err = store.UserExists(ctx, strings.ToLower(testAlice))
	require.NoError(t, err)
	assert.True(t, exists)

	// an empty address never matches a stored user
	user, err = store.GetUser(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func testBlockCursor(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("get non-existent cursor", func(t *testing.T) {
		cursor, ok, err := store.GetBlockCursor(ctx, domain.DomainAuthenticity)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, uint64(0), cursor)
	})

	t.Run("set and update cursor", func(t *testing.T) {
		require.NoError(t, store.SetBlockCursor(ctx, domain.DomainOwnership, 100))
		require.NoError(t, store.SetBlockCursor(ctx, domain.DomainOwnership, 200))

		cursor, ok, err := store.GetBlockCursor(ctx, domain.DomainOwnership)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint64(200), cursor)
	})

	t.Run("domains are independent", func(t *testing.T) {
		require.NoError(t, store.SetBlockCursor(ctx, domain.DomainAuthenticity, 7))

		cursor, ok, err := store.GetBlockCursor(ctx, domain.DomainAuthenticity)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint64(7), cursor)

		cursor, _, err = store.GetBlockCursor(ctx, domain.DomainOwnership)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), cursor)
	})
}

func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"InsertIfAbsent", testInsertIfAbsent},
		{"Exists", testExists},
		{"OwnershipClaimsKeyedByLog", testOwnershipClaimsKeyedByLog},
		{"Items", testItems},
		{"UserLookups", testUserLookups},
		{"BlockCursor", testBlockCursor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
