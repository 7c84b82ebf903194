package ethereum_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/registry-indexer/internal/contracts"
	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/mocks"
	ethprovider "github.com/feral-file/registry-indexer/internal/providers/ethereum"
)

var errStop = errors.New("stop")

// collect returns a handler that records blocks and stops after n logs
func collect(n int, seen *[]uint64) func(context.Context, contracts.DecodedLog) error {
	return func(_ context.Context, l contracts.DecodedLog) error {
		*seen = append(*seen, l.Meta.BlockNumber)
		if len(*seen) == n {
			return errStop
		}
		return nil
	}
}

func TestSubscribe_CatchUpThenStream(t *testing.T) {
	tm := setupTestLogSource(t, ethprovider.Config{})
	defer tearDownTestLogSource(tm)

	sub := mocks.NewMockSubscription(tm.ctrl)
	sub.EXPECT().Err().Return(make(chan error)).AnyTimes()
	sub.EXPECT().Unsubscribe()

	tm.client.EXPECT().SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
			// one topic set covering every declared kind
			assert.Len(t, q.Topics[0], len(tm.binding.DeclaredKinds()))
			// pushed while the catch-up runs: 104 overlaps, 106 is new
			ch <- tm.userRegisteredLog(t, 104, 0, "alice")
			ch <- tm.userRegisteredLog(t, 106, 0, "bob")
			return sub, nil
		})
	tm.client.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(header(105), nil)
	tm.client.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
			assert.Equal(t, [2]uint64{100, 105}, queryRange(q))
			return []types.Log{
				tm.userRegisteredLog(t, 101, 0, "carol"),
				tm.userRegisteredLog(t, 104, 0, "alice"),
			}, nil
		})

	var seen []uint64
	err := tm.source.Subscribe(context.Background(), 100, collect(3, &seen))
	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, []uint64{101, 104, 106}, seen)
}

func TestSubscribe_SubscriptionFailure(t *testing.T) {
	tests := []struct {
		name    string
		subErr  func() chan error
		wantErr error
	}{
		{
			name: "transport error",
			subErr: func() chan error {
				ch := make(chan error, 1)
				ch <- errors.New("websocket: close 1006 (abnormal closure)")
				return ch
			},
			wantErr: domain.ErrStreamFailed,
		},
		{
			name: "closed without error",
			subErr: func() chan error {
				ch := make(chan error)
				close(ch)
				return ch
			},
			wantErr: domain.ErrStreamEnded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTestLogSource(t, ethprovider.Config{})
			defer tearDownTestLogSource(tm)

			sub := mocks.NewMockSubscription(tm.ctrl)
			sub.EXPECT().Err().Return(tt.subErr()).AnyTimes()
			sub.EXPECT().Unsubscribe()

			tm.client.EXPECT().SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(sub, nil)
			// head below the start block: nothing to catch up
			tm.client.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(header(99), nil)

			err := tm.source.Subscribe(context.Background(), 100, collect(1, new([]uint64)))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSubscribe_OpenFailure(t *testing.T) {
	tm := setupTestLogSource(t, ethprovider.Config{})
	defer tearDownTestLogSource(tm)

	tm.client.EXPECT().SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("dial tcp: connection refused"))

	err := tm.source.Subscribe(context.Background(), 100, collect(1, new([]uint64)))
	assert.ErrorIs(t, err, domain.ErrStreamFailed)
}

func TestSubscribe_PollsWithoutNotifications(t *testing.T) {
	tm := setupTestLogSource(t, ethprovider.Config{PollInterval: time.Second})
	defer tearDownTestLogSource(tm)

	tick := make(chan time.Time, 1)
	tick <- time.Now()

	tm.client.EXPECT().SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, rpc.ErrNotificationsUnsupported)
	tm.clock.EXPECT().After(time.Second).Return(tick).AnyTimes()

	gomock.InOrder(
		tm.client.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(header(10), nil),
		tm.client.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(header(12), nil),
	)
	gomock.InOrder(
		tm.client.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
				assert.Equal(t, [2]uint64{5, 10}, queryRange(q))
				return []types.Log{tm.userRegisteredLog(t, 9, 0, "alice")}, nil
			}),
		tm.client.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
				assert.Equal(t, [2]uint64{11, 12}, queryRange(q))
				return []types.Log{tm.userRegisteredLog(t, 12, 0, "bob")}, nil
			}),
	)

	var seen []uint64
	err := tm.source.Subscribe(context.Background(), 5, collect(2, &seen))
	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, []uint64{9, 12}, seen)
}

func TestSubscribe_PollingStopsOnCancel(t *testing.T) {
	tm := setupTestLogSource(t, ethprovider.Config{})
	defer tearDownTestLogSource(tm)

	ctx, cancel := context.WithCancel(context.Background())

	tm.client.EXPECT().SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("the method eth_subscribe does not exist/is not available"))
	tm.client.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).
		DoAndReturn(func(context.Context, *big.Int) (*types.Header, error) {
			cancel()
			return header(3), nil
		})
	tm.client.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).Return(nil, nil)
	tm.clock.EXPECT().After(gomock.Any()).Return(make(chan time.Time)).AnyTimes()

	err := tm.source.Subscribe(ctx, 0, collect(1, new([]uint64)))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
