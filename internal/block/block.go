package block

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/registry-indexer/internal/adapter"
	"github.com/feral-file/registry-indexer/internal/logger"
)

// DefaultMaxCachedTimestamps bounds the timestamp cache of a long-running process
const DefaultMaxCachedTimestamps = 4096

// headInfo is the cached chain head
type headInfo struct {
	number    uint64
	fetchedAt time.Time
}

// timestampEntry is a cached block timestamp
type timestampEntry struct {
	timestamp time.Time
	cachedAt  time.Time
}

// BlockProvider gives cached access to the chain head and to block timestamps.
// Projected records take their creation time from the emitting block, so every
// event of a block shares one timestamp lookup.
//
//go:generate mockgen -source=block.go -destination=../mocks/block_provider.go -package=mocks -mock_names=BlockProvider=MockBlockProvider,BlockFetcher=MockBlockFetcher
type BlockProvider interface {
	// GetLatestBlock returns the latest block number, potentially from cache
	GetLatestBlock(ctx context.Context) (uint64, error)

	// GetBlockTimestamp returns the timestamp of blockNumber, potentially from cache
	GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// BlockFetcher fetches block information from the chain
type BlockFetcher interface {
	// FetchLatestBlock fetches the latest block number
	FetchLatestBlock(ctx context.Context) (uint64, error)

	// FetchBlockTimestamp fetches the timestamp of blockNumber
	FetchBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// Config holds configuration for the BlockProvider
type Config struct {
	// TTL is how long the head number is served from cache
	TTL time.Duration

	// StaleWindow is how long cached data may be served when a fetch fails
	StaleWindow time.Duration

	// BlockTimestampTTL is how long timestamps are cached; 0 keeps them until evicted
	BlockTimestampTTL time.Duration

	// MaxCachedTimestamps caps the number of cached timestamps; oldest entries are evicted first
	MaxCachedTimestamps int
}

type blockProvider struct {
	fetcher BlockFetcher
	config  Config
	clock   adapter.Clock

	mu         sync.RWMutex
	head       *headInfo
	timestamps map[uint64]*timestampEntry
	order      []uint64
}

// NewBlockProvider creates a new BlockProvider with caching
func NewBlockProvider(fetcher BlockFetcher, config Config, clock adapter.Clock) BlockProvider {
	if config.MaxCachedTimestamps <= 0 {
		config.MaxCachedTimestamps = DefaultMaxCachedTimestamps
	}

	return &blockProvider{
		fetcher:    fetcher,
		config:     config,
		clock:      clock,
		timestamps: make(map[uint64]*timestampEntry),
	}
}

// GetLatestBlock returns the latest block number, using cache if valid
func (p *blockProvider) GetLatestBlock(ctx context.Context) (uint64, error) {
	p.mu.RLock()
	cached := p.head
	p.mu.RUnlock()

	now := p.clock.Now()
	if cached != nil && now.Sub(cached.fetchedAt) < p.config.TTL {
		return cached.number, nil
	}

	number, err := p.fetcher.FetchLatestBlock(ctx)
	if err != nil {
		if cached != nil && now.Sub(cached.fetchedAt) < p.config.StaleWindow {
			logger.WarnErrCtx(ctx, "Serving stale head block", err, zap.Uint64("block_number", cached.number))
			return cached.number, nil
		}
		return 0, fmt.Errorf("failed to fetch latest block and no valid cache available: %w", err)
	}

	p.mu.Lock()
	p.head = &headInfo{number: number, fetchedAt: now}
	p.mu.Unlock()

	return number, nil
}

// GetBlockTimestamp returns the timestamp of blockNumber, using cache if valid
func (p *blockProvider) GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	p.mu.RLock()
	cached := p.timestamps[blockNumber]
	p.mu.RUnlock()

	now := p.clock.Now()
	if cached != nil && (p.config.BlockTimestampTTL == 0 || now.Sub(cached.cachedAt) < p.config.BlockTimestampTTL) {
		return cached.timestamp, nil
	}

	logger.DebugCtx(ctx, "Fetching block timestamp", zap.Uint64("block_number", blockNumber))
	timestamp, err := p.fetcher.FetchBlockTimestamp(ctx, blockNumber)
	if err != nil {
		if cached != nil && now.Sub(cached.cachedAt) < p.config.StaleWindow {
			return cached.timestamp, nil
		}
		return time.Time{}, fmt.Errorf("failed to fetch timestamp of block %d: %w", blockNumber, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.timestamps[blockNumber]; !ok {
		p.order = append(p.order, blockNumber)
	}
	p.timestamps[blockNumber] = &timestampEntry{timestamp: timestamp, cachedAt: now}

	for len(p.order) > p.config.MaxCachedTimestamps {
		delete(p.timestamps, p.order[0])
		p.order = p.order[1:]
	}

	return timestamp, nil
}
