package ratelimit

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/registry-indexer/internal/adapter"
	"github.com/feral-file/registry-indexer/internal/logger"
)

// Config holds the request budget shared by every caller of the proxied client
type Config struct {
	// RequestsPerSecond is the sustained rate; 0 disables limiting
	RequestsPerSecond float64
	// Burst is the number of requests allowed above the sustained rate
	Burst int
}

// ethClientProxy throttles every RPC round-trip of the wrapped client.
// Both domain supervisors share one proxy, so the budget covers the whole process.
type ethClientProxy struct {
	client  adapter.EthClient
	limiter *rate.Limiter
}

// NewEthClientProxy wraps client with a token bucket limiter.
// The client is returned unchanged when limiting is disabled.
func NewEthClientProxy(client adapter.EthClient, cfg Config) adapter.EthClient {
	if cfg.RequestsPerSecond <= 0 {
		logger.Info("RPC rate limiting disabled")
		return client
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	logger.Info("RPC rate limiting enabled",
		zap.Float64("requests_per_second", cfg.RequestsPerSecond),
		zap.Int("burst", burst))

	return &ethClientProxy{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

func (p *ethClientProxy) wait(ctx context.Context, method string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter rejected %s: %w", method, err)
	}
	return nil
}

// SubscribeFilterLogs is limited once; pushed notifications are not RPC calls
func (p *ethClientProxy) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if err := p.wait(ctx, "eth_subscribe"); err != nil {
		return nil, err
	}
	return p.client.SubscribeFilterLogs(ctx, query, ch)
}

func (p *ethClientProxy) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if err := p.wait(ctx, "eth_getLogs"); err != nil {
		return nil, err
	}
	return p.client.FilterLogs(ctx, query)
}

func (p *ethClientProxy) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if err := p.wait(ctx, "eth_getBlockByNumber"); err != nil {
		return nil, err
	}
	return p.client.HeaderByNumber(ctx, number)
}

func (p *ethClientProxy) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := p.wait(ctx, "eth_call"); err != nil {
		return nil, err
	}
	return p.client.CallContract(ctx, msg, blockNumber)
}

func (p *ethClientProxy) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	if err := p.wait(ctx, "eth_getCode"); err != nil {
		return nil, err
	}
	return p.client.CodeAt(ctx, account, blockNumber)
}

// Close closes the wrapped client
func (p *ethClientProxy) Close() {
	p.client.Close()
}
