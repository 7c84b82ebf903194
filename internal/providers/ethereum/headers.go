package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/feral-file/registry-indexer/internal/adapter"
	"github.com/feral-file/registry-indexer/internal/block"
)

// headerFetcher serves block.BlockFetcher from block headers, which is all the
// projections need: the head number and the timestamp of an event's block
type headerFetcher struct {
	client adapter.EthClient
}

// NewHeaderFetcher creates the chain-side fetcher behind the block provider
func NewHeaderFetcher(client adapter.EthClient) block.BlockFetcher {
	return &headerFetcher{client: client}
}

func (f *headerFetcher) FetchLatestBlock(ctx context.Context) (uint64, error) {
	return latestBlock(ctx, f.client)
}

func (f *headerFetcher) FetchBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	header, err := f.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get header of block %d: %w", blockNumber, err)
	}
	if header == nil {
		return time.Time{}, fmt.Errorf("block %d not found", blockNumber)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil //nolint:gosec,G115
}

// latestBlock reads the head number shared by the log sources and the block provider
func latestBlock(ctx context.Context, client adapter.EthClient) (uint64, error) {
	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	if header == nil || header.Number == nil {
		return 0, fmt.Errorf("failed to get latest block: empty header")
	}
	return header.Number.Uint64(), nil
}
