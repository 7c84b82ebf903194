package jetstream_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/registry-indexer/internal/adapter"
	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/logger"
	"github.com/feral-file/registry-indexer/internal/mocks"
	"github.com/feral-file/registry-indexer/internal/providers/jetstream"
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

// testPublisherMocks contains all the mocks needed for testing the publisher
type testPublisherMocks struct {
	ctrl   *gomock.Controller
	natsJS *mocks.MockNatsJetStream
	conn   *mocks.MockNatsConn
	js     *mocks.MockJetStream
	json   *mocks.MockJSON
}

func setupTestPublisher(t *testing.T) *testPublisherMocks {
	ctrl := gomock.NewController(t)
	return &testPublisherMocks{
		ctrl:   ctrl,
		natsJS: mocks.NewMockNatsJetStream(ctrl),
		conn:   mocks.NewMockNatsConn(ctrl),
		js:     mocks.NewMockJetStream(ctrl),
		json:   mocks.NewMockJSON(ctrl),
	}
}

func tearDownTestPublisher(tm *testPublisherMocks) {
	tm.ctrl.Finish()
}

var testConfig = jetstream.Config{
	URL:            "nats://localhost:4222",
	StreamName:     "REGISTRY",
	SubjectPrefix:  "registry.",
	MaxReconnects:  10,
	ReconnectWait:  time.Second,
	ConnectionName: "registry-indexer",
}

var testNotice = domain.ProjectionNotice{
	Domain:      domain.DomainOwnership,
	Table:       "users",
	Key:         "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
	TxHash:      "0xabc",
	BlockNumber: 1500,
}

func TestNewPublisher_EnsuresStream(t *testing.T) {
	tm := setupTestPublisher(t)
	defer tearDownTestPublisher(tm)

	tm.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(tm.conn, tm.js, nil)
	tm.js.EXPECT().EnsureStream(gomock.Any(), natsjs.StreamConfig{
		Name:     "REGISTRY",
		Subjects: []string{"registry.>"},
	}).Return(nil)
	tm.conn.EXPECT().Close()

	pub, err := jetstream.NewPublisher(context.Background(), testConfig, tm.natsJS, adapter.NewJSON())
	require.NoError(t, err)
	pub.Close()
}

func TestNewPublisher_Failures(t *testing.T) {
	t.Run("connect", func(t *testing.T) {
		tm := setupTestPublisher(t)
		defer tearDownTestPublisher(tm)

		tm.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(nil, nil, errors.New("no servers available"))

		_, err := jetstream.NewPublisher(context.Background(), testConfig, tm.natsJS, adapter.NewJSON())
		assert.ErrorContains(t, err, "no servers available")
	})

	t.Run("stream", func(t *testing.T) {
		tm := setupTestPublisher(t)
		defer tearDownTestPublisher(tm)

		tm.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(tm.conn, tm.js, nil)
		tm.js.EXPECT().EnsureStream(gomock.Any(), gomock.Any()).Return(errors.New("insufficient resources"))
		// the connection is not leaked
		tm.conn.EXPECT().Close()

		_, err := jetstream.NewPublisher(context.Background(), testConfig, tm.natsJS, adapter.NewJSON())
		assert.ErrorContains(t, err, "failed to ensure stream REGISTRY")
	})
}

func TestPublisher_PublishProjection(t *testing.T) {
	tm := setupTestPublisher(t)
	defer tearDownTestPublisher(tm)
	ctx := context.Background()

	tm.natsJS.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(tm.conn, tm.js, nil)
	tm.js.EXPECT().EnsureStream(gomock.Any(), gomock.Any()).Return(nil)

	pub, err := jetstream.NewPublisher(ctx, testConfig, tm.natsJS, adapter.NewJSON())
	require.NoError(t, err)

	tm.js.EXPECT().Publish(ctx, "registry.ownership.users", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, data []byte, _ ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
			assert.JSONEq(t, `{
				"domain": "ownership",
				"table": "users",
				"key": "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
				"txHash": "0xabc",
				"blockNumber": 1500
			}`, string(data))
			return &natsjs.PubAck{Stream: "REGISTRY", Sequence: 1}, nil
		})

	require.NoError(t, pub.PublishProjection(ctx, testNotice))

	tm.js.EXPECT().Publish(ctx, gomock.Any(), gomock.Any()).Return(nil, errors.New("nats: timeout"))
	assert.ErrorContains(t, pub.PublishProjection(ctx, testNotice), "failed to publish notice")
}

func TestPublisher_MarshalFailure(t *testing.T) {
	tm := setupTestPublisher(t)
	defer tearDownTestPublisher(tm)
	ctx := context.Background()

	tm.natsJS.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(tm.conn, tm.js, nil)
	tm.js.EXPECT().EnsureStream(gomock.Any(), gomock.Any()).Return(nil)
	tm.json.EXPECT().Marshal(testNotice).Return(nil, errors.New("unsupported value"))

	pub, err := jetstream.NewPublisher(ctx, testConfig, tm.natsJS, tm.json)
	require.NoError(t, err)

	assert.ErrorContains(t, pub.PublishProjection(ctx, testNotice), "failed to marshal notice")
}
