package block_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/registry-indexer/internal/block"
	"github.com/feral-file/registry-indexer/internal/logger"
	"github.com/feral-file/registry-indexer/internal/mocks"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

// testBlockProviderMocks contains all the mocks needed for testing the block provider
type testBlockProviderMocks struct {
	ctrl     *gomock.Controller
	fetcher  *mocks.MockBlockFetcher
	clock    *mocks.MockClock
	provider block.BlockProvider
}

// setupTest creates all the mocks and the block provider for testing
func setupTest(t *testing.T, cfg block.Config) *testBlockProviderMocks {
	ctrl := gomock.NewController(t)

	mockFetcher := mocks.NewMockBlockFetcher(ctrl)
	mockClock := mocks.NewMockClock(ctrl)

	return &testBlockProviderMocks{
		ctrl:     ctrl,
		fetcher:  mockFetcher,
		clock:    mockClock,
		provider: block.NewBlockProvider(mockFetcher, cfg, mockClock),
	}
}

// tearDownTest cleans up the test mocks
func tearDownTest(tm *testBlockProviderMocks) {
	tm.ctrl.Finish()
}

func defaultConfig() block.Config {
	return block.Config{
		TTL:         10 * time.Second,
		StaleWindow: 2 * time.Minute,
	}
}

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestBlockProvider_GetLatestBlock(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		fetched *uint64
		fetch   error
		want    uint64
		wantErr bool
	}{
		{name: "within ttl uses cache", elapsed: 5 * time.Second, want: 1000},
		{name: "after ttl refreshes", elapsed: 11 * time.Second, fetched: ptr(1010), want: 1010},
		{name: "fetch failure inside stale window serves cache", elapsed: time.Minute, fetch: errors.New("503 Service Unavailable"), want: 1000},
		{name: "fetch failure beyond stale window fails", elapsed: 3 * time.Minute, fetch: errors.New("503 Service Unavailable"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTest(t, defaultConfig())
			defer tearDownTest(tm)
			ctx := context.Background()

			// prime the cache
			tm.clock.EXPECT().Now().Return(baseTime)
			tm.fetcher.EXPECT().FetchLatestBlock(ctx).Return(uint64(1000), nil)
			_, err := tm.provider.GetLatestBlock(ctx)
			require.NoError(t, err)

			tm.clock.EXPECT().Now().Return(baseTime.Add(tt.elapsed))
			if tt.fetched != nil {
				tm.fetcher.EXPECT().FetchLatestBlock(ctx).Return(*tt.fetched, nil)
			}
			if tt.fetch != nil {
				tm.fetcher.EXPECT().FetchLatestBlock(ctx).Return(uint64(0), tt.fetch)
			}

			got, err := tm.provider.GetLatestBlock(ctx)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBlockProvider_GetLatestBlock_NoCacheFailure(t *testing.T) {
	tm := setupTest(t, defaultConfig())
	defer tearDownTest(tm)
	ctx := context.Background()

	tm.clock.EXPECT().Now().Return(baseTime)
	tm.fetcher.EXPECT().FetchLatestBlock(ctx).Return(uint64(0), errors.New("connection refused"))

	_, err := tm.provider.GetLatestBlock(ctx)
	assert.ErrorContains(t, err, "no valid cache available")
}

func TestBlockProvider_GetBlockTimestamp_CachedForever(t *testing.T) {
	tm := setupTest(t, defaultConfig())
	defer tearDownTest(tm)
	ctx := context.Background()

	blockTime := time.Unix(1700000000, 0).UTC()
	tm.clock.EXPECT().Now().Return(baseTime).Times(3)
	tm.fetcher.EXPECT().FetchBlockTimestamp(ctx, uint64(42)).Return(blockTime, nil).Times(1)

	// events of the same block share one lookup
	for i := 0; i < 3; i++ {
		got, err := tm.provider.GetBlockTimestamp(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, blockTime, got)
	}
}

func TestBlockProvider_GetBlockTimestamp_TTLExpiry(t *testing.T) {
	cfg := defaultConfig()
	cfg.BlockTimestampTTL = time.Minute
	tm := setupTest(t, cfg)
	defer tearDownTest(tm)
	ctx := context.Background()

	blockTime := time.Unix(1700000000, 0).UTC()
	gomock.InOrder(
		tm.clock.EXPECT().Now().Return(baseTime),
		tm.clock.EXPECT().Now().Return(baseTime.Add(2*time.Minute)),
	)
	tm.fetcher.EXPECT().FetchBlockTimestamp(ctx, uint64(42)).Return(blockTime, nil).Times(2)

	for i := 0; i < 2; i++ {
		_, err := tm.provider.GetBlockTimestamp(ctx, 42)
		require.NoError(t, err)
	}
}

func TestBlockProvider_GetBlockTimestamp_FetchError(t *testing.T) {
	tm := setupTest(t, defaultConfig())
	defer tearDownTest(tm)
	ctx := context.Background()

	tm.clock.EXPECT().Now().Return(baseTime)
	tm.fetcher.EXPECT().FetchBlockTimestamp(ctx, uint64(7)).Return(time.Time{}, errors.New("block 7 not found"))

	_, err := tm.provider.GetBlockTimestamp(ctx, 7)
	assert.ErrorContains(t, err, "failed to fetch timestamp of block 7")
}

func TestBlockProvider_GetBlockTimestamp_EvictsOldest(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxCachedTimestamps = 2
	tm := setupTest(t, cfg)
	defer tearDownTest(tm)
	ctx := context.Background()

	tm.clock.EXPECT().Now().Return(baseTime).AnyTimes()
	tm.fetcher.EXPECT().FetchBlockTimestamp(ctx, uint64(1)).Return(time.Unix(1, 0), nil).Times(2)
	tm.fetcher.EXPECT().FetchBlockTimestamp(ctx, uint64(2)).Return(time.Unix(2, 0), nil).Times(1)
	tm.fetcher.EXPECT().FetchBlockTimestamp(ctx, uint64(3)).Return(time.Unix(3, 0), nil).Times(1)

	for _, n := range []uint64{1, 2, 3, 2, 1} {
		got, err := tm.provider.GetBlockTimestamp(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, time.Unix(int64(n), 0), got) //nolint:gosec,G115
	}
}

func ptr(v uint64) *uint64 {
	return &v
}
