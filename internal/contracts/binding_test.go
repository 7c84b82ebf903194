package contracts_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/registry-indexer/internal/contracts"
	"github.com/feral-file/registry-indexer/internal/domain"
)

var (
	testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testAlice    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	testBob      = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	testTx       = common.HexToHash("0x8a8f5e7b1f0e1c9b2f7a7d0c3d1b4e6f9a2c5d8e1f4a7b0c3d6e9f2a5b8c1d4e")
)

// buildLog encodes an event of binding the way a node returns it
func buildLog(t *testing.T, b *contracts.Binding, kind domain.EventKind, indexed []common.Hash, data ...interface{}) types.Log {
	t.Helper()

	event, ok := b.ABI().Events[string(kind)]
	require.True(t, ok)

	packed, err := event.Inputs.NonIndexed().Pack(data...)
	require.NoError(t, err)

	return types.Log{
		Address:     b.Address(),
		Topics:      append([]common.Hash{event.ID}, indexed...),
		Data:        packed,
		BlockNumber: 1500,
		BlockHash:   common.HexToHash("0x01"),
		TxHash:      testTx,
		Index:       3,
	}
}

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func TestBinding_DeclaredKinds(t *testing.T) {
	auth, err := contracts.NewAuthenticityBinding(testContract)
	require.NoError(t, err)
	assert.Equal(t, domain.DomainAuthenticity, auth.Domain())
	assert.Equal(t, []domain.EventKind{
		domain.KindManufacturerRegistered,
		domain.KindContractCreated,
	}, auth.BackfillKinds())
	assert.Equal(t, []domain.EventKind{domain.KindEIP712DomainChanged}, auth.DiscardKinds())
	assert.Len(t, auth.Topics(), 3)

	own, err := contracts.NewOwnershipBinding(testContract)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventKind{
		domain.KindOwnershipCreated,
		domain.KindUserRegistered,
		domain.KindOwnershipCode,
		domain.KindItemCreated,
		domain.KindOwnershipClaimed,
		domain.KindCodeRevoked,
		domain.KindAuthenticitySet,
	}, own.BackfillKinds())
	assert.Len(t, own.DeclaredKinds(), 8)

	// callers cannot alter the query order
	kinds := own.BackfillKinds()
	kinds[0] = domain.KindCodeRevoked
	assert.Equal(t, domain.KindOwnershipCreated, own.BackfillKinds()[0])
}

func TestBinding_Topic(t *testing.T) {
	auth, err := contracts.NewAuthenticityBinding(testContract)
	require.NoError(t, err)

	topic, err := auth.Topic(domain.KindContractCreated)
	require.NoError(t, err)
	assert.Equal(t, auth.ABI().Events["ContractCreated"].ID, topic)

	_, err = auth.Topic(domain.KindItemCreated)
	assert.ErrorIs(t, err, domain.ErrUnknownEventKind)
}

func TestBinding_DecodeAuthenticity(t *testing.T) {
	b, err := contracts.NewAuthenticityBinding(testContract)
	require.NoError(t, err)

	tests := []struct {
		name string
		log  types.Log
		want contracts.Event
	}{
		{
			name: "manufacturer registered",
			log:  buildLog(t, b, domain.KindManufacturerRegistered, []common.Hash{addressTopic(testAlice)}),
			want: contracts.ManufacturerRegistered{ManufacturerAddress: testAlice},
		},
		{
			name: "contract created",
			log:  buildLog(t, b, domain.KindContractCreated, []common.Hash{addressTopic(testBob), addressTopic(testAlice)}),
			want: contracts.ContractCreated{ContractAddress: testBob, Owner: testAlice},
		},
		{
			name: "domain changed",
			log:  buildLog(t, b, domain.KindEIP712DomainChanged, nil),
			want: contracts.EIP712DomainChanged{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := b.Decode(tt.log)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decoded.Event)
			assert.Equal(t, tt.want.Kind(), decoded.Kind())
			assert.Equal(t, domain.LogMeta{
				TxHash:      testTx.Hex(),
				BlockNumber: 1500,
				BlockHash:   common.HexToHash("0x01").Hex(),
				LogIndex:    3,
			}, decoded.Meta)
		})
	}
}

func TestBinding_DecodeOwnership(t *testing.T) {
	b, err := contracts.NewOwnershipBinding(testContract)
	require.NoError(t, err)

	code := [32]byte{0xde, 0xad, 0xbe, 0xef}
	itemHash := [32]byte{0x01, 0x02}

	tests := []struct {
		name string
		log  types.Log
		want contracts.Event
	}{
		{
			name: "user registered",
			log:  buildLog(t, b, domain.KindUserRegistered, []common.Hash{addressTopic(testAlice)}, "alice"),
			want: contracts.UserRegistered{UserAddress: testAlice, Username: "alice"},
		},
		{
			name: "ownership code",
			log:  buildLog(t, b, domain.KindOwnershipCode, []common.Hash{common.Hash(code), addressTopic(testBob)}, "item-1"),
			want: contracts.OwnershipCode{OwnershipCode: code, ItemID: "item-1", TempOwner: testBob},
		},
		{
			name: "item created",
			log:  buildLog(t, b, domain.KindItemCreated, []common.Hash{addressTopic(testAlice)}, "item-1"),
			want: contracts.ItemCreated{ItemID: "item-1", Owner: testAlice},
		},
		{
			name: "ownership claimed",
			log:  buildLog(t, b, domain.KindOwnershipClaimed, []common.Hash{addressTopic(testBob), addressTopic(testAlice)}),
			want: contracts.OwnershipClaimed{NewOwner: testBob, OldOwner: testAlice},
		},
		{
			name: "code revoked",
			log:  buildLog(t, b, domain.KindCodeRevoked, []common.Hash{common.Hash(itemHash)}),
			want: contracts.CodeRevoked{ItemHash: itemHash},
		},
		{
			name: "authenticity set",
			log:  buildLog(t, b, domain.KindAuthenticitySet, []common.Hash{addressTopic(testContract)}),
			want: contracts.AuthenticitySet{AuthenticityAddress: testContract},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := b.Decode(tt.log)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decoded.Event)
		})
	}
}

func TestBinding_DecodeMalformed(t *testing.T) {
	b, err := contracts.NewOwnershipBinding(testContract)
	require.NoError(t, err)

	auth, err := contracts.NewAuthenticityBinding(testContract)
	require.NoError(t, err)

	truncated := buildLog(t, b, domain.KindUserRegistered, []common.Hash{addressTopic(testAlice)}, "alice")
	truncated.Data = truncated.Data[:16]

	missingTopic := buildLog(t, b, domain.KindOwnershipClaimed, []common.Hash{addressTopic(testBob)})

	tests := []struct {
		name string
		log  types.Log
	}{
		{name: "no topics", log: types.Log{TxHash: testTx}},
		{name: "foreign topic", log: buildLog(t, auth, domain.KindManufacturerRegistered, []common.Hash{addressTopic(testAlice)})},
		{name: "truncated data", log: truncated},
		{name: "missing indexed topic", log: missingTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Decode(tt.log)
			assert.ErrorIs(t, err, domain.ErrMalformedEvent)
		})
	}
}
