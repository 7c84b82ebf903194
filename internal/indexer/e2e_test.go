package indexer_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/feral-file/registry-indexer/internal/adapter"
	"github.com/feral-file/registry-indexer/internal/contracts"
	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/emitter"
	"github.com/feral-file/registry-indexer/internal/indexer"
	"github.com/feral-file/registry-indexer/internal/logger"
	"github.com/feral-file/registry-indexer/internal/messaging"
	"github.com/feral-file/registry-indexer/internal/metrics"
	"github.com/feral-file/registry-indexer/internal/mocks"
	"github.com/feral-file/registry-indexer/internal/projector"
	"github.com/feral-file/registry-indexer/internal/store"
	"github.com/feral-file/registry-indexer/internal/store/schema"
)

var (
	testOwnershipAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testAliceAddress     = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	testBobAddress       = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

// openTestDB opens an in-memory database holding the indexer schema
func openTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	require.NoError(t, store.Migrate(context.Background(), db))
	return db
}

// TestOwnershipPipeline_ReplayIsIdempotent runs a full pass against a real
// store: the logs found by the backfill are delivered again by the stream
func TestOwnershipPipeline_ReplayIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := openTestDB(t)
	st := store.NewPGStore(db)
	m := metrics.New(prometheus.NewRegistry())

	binding, err := contracts.NewOwnershipBinding(testOwnershipAddress)
	require.NoError(t, err)

	blocks := mocks.NewMockBlockProvider(ctrl)
	blocks.EXPECT().GetBlockTimestamp(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n uint64) (time.Time, error) {
			return time.Unix(int64(1700000000+n*12), 0).UTC(), nil //nolint:gosec,G115
		}).AnyTimes()
	reader := mocks.NewMockOwnershipReader(ctrl)

	writer := projector.NewWriter(domain.DomainOwnership, st, blocks, messaging.NewNopPublisher(), m, logger.With())
	router, err := projector.NewRouter(domain.DomainOwnership, binding.DeclaredKinds(),
		projector.NewOwnershipProjector(writer, reader, m).Routes(), m)
	require.NoError(t, err)

	userLog := contracts.DecodedLog{
		Event: contracts.UserRegistered{UserAddress: testAliceAddress, Username: "alice"},
		Meta:  domain.LogMeta{TxHash: testTxHash, BlockNumber: 1500, LogIndex: 0},
	}
	claimLog := contracts.DecodedLog{
		Event: contracts.OwnershipClaimed{NewOwner: testBobAddress, OldOwner: testAliceAddress},
		Meta:  domain.LogMeta{TxHash: testTxHash, BlockNumber: 1500, LogIndex: 1},
	}
	discardLog := contracts.DecodedLog{
		Event: contracts.EIP712DomainChanged{},
		Meta:  domain.LogMeta{TxHash: testTxHash, BlockNumber: 2001, LogIndex: 0},
	}

	source := mocks.NewMockLogSource(ctrl)
	source.EXPECT().Domain().Return(domain.DomainOwnership).AnyTimes()
	source.EXPECT().BackfillKinds().Return(binding.BackfillKinds()).AnyTimes()
	source.EXPECT().Verify(gomock.Any()).Return(nil)
	source.EXPECT().LatestBlock(gomock.Any()).Return(uint64(2000), nil)
	source.EXPECT().QueryRange(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, kind domain.EventKind, from, to uint64) ([]contracts.DecodedLog, error) {
			if from > 1500 || to < 1500 {
				return nil, nil
			}
			switch kind {
			case domain.KindUserRegistered:
				return []contracts.DecodedLog{userLog}, nil
			case domain.KindOwnershipClaimed:
				return []contracts.DecodedLog{claimLog}, nil
			}
			return nil, nil
		}).AnyTimes()
	source.EXPECT().Subscribe(gomock.Any(), uint64(2000), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ uint64, handler messaging.LogHandler) error {
			// the endpoint replays what the backfill already stored
			for _, l := range []contracts.DecodedLog{userLog, claimLog, discardLog} {
				if err := handler(ctx, l); err != nil {
					return err
				}
			}
			cancel()
			return ctx.Err()
		})

	em := emitter.NewEmitter(source, router, st, emitter.Config{CursorSaveFreq: 1, CursorSaveDelay: time.Minute}, adapter.NewClock(), m)
	sup := indexer.NewSupervisor(source, router, st, em, indexer.Config{
		BackfillWindow:   domain.DefaultBackfillWindow,
		ChunkSize:        domain.DefaultChunkSize,
		RetryDelay:       10 * time.Millisecond,
		ResumeFromCursor: true,
	}, m)

	require.NoError(t, sup.Run(ctx))

	var users []schema.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
	assert.True(t, users[0].Registered)
	assert.Equal(t, testAliceAddress.Hex(), users[0].UserAddress)
	assert.Equal(t, time.Unix(1700000000+1500*12, 0).UTC(), users[0].CreatedAt.UTC())

	var claims []schema.OwnershipClaim
	require.NoError(t, db.Find(&claims).Error)
	require.Len(t, claims, 1)
	assert.Equal(t, "", claims[0].ItemID)
	assert.Equal(t, testBobAddress.Hex(), claims[0].NewOwner)
	assert.Equal(t, uint(1), claims[0].LogIndex)

	// the stream reached block 2001, so block 2000 is complete
	cursor, ok, err := st.GetBlockCursor(context.Background(), domain.DomainOwnership)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(2000), cursor)
}
