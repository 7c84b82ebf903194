package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/registry-indexer/internal/adapter"
	"github.com/feral-file/registry-indexer/internal/contracts"
	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/logger"
	"github.com/feral-file/registry-indexer/internal/messaging"
)

const (
	// DefaultMaxBlockRange bounds one eth_getLogs request during catch-up and polling
	DefaultMaxBlockRange uint64 = 2000
	// DefaultPollInterval is used when the endpoint cannot push log notifications
	DefaultPollInterval = time.Second
)

// Config holds the configuration of a contract log source
type Config struct {
	ChainID       domain.Chain
	MaxBlockRange uint64
	PollInterval  time.Duration
}

// logSource reads the logs of one registry contract over JSON-RPC
type logSource struct {
	config  Config
	binding *contracts.Binding
	client  adapter.EthClient
	clock   adapter.Clock
	log     *zap.Logger
}

// NewLogSource creates a log source for the contract described by binding
func NewLogSource(cfg Config, binding *contracts.Binding, client adapter.EthClient, clock adapter.Clock) messaging.LogSource {
	if cfg.MaxBlockRange == 0 {
		cfg.MaxBlockRange = DefaultMaxBlockRange
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return &logSource{
		config:  cfg,
		binding: binding,
		client:  client,
		clock:   clock,
		log:     logger.ForDomain(binding.Domain(), zap.String("contract", binding.Address().Hex())),
	}
}

// Domain returns the registry this source reads
func (s *logSource) Domain() domain.Domain {
	return s.binding.Domain()
}

// BackfillKinds returns the kinds queried per backfill chunk, in order
func (s *logSource) BackfillKinds() []domain.EventKind {
	return s.binding.BackfillKinds()
}

// Verify checks that the configured address holds contract code
func (s *logSource) Verify(ctx context.Context) error {
	code, err := s.client.CodeAt(ctx, s.binding.Address(), nil)
	if err != nil {
		return fmt.Errorf("failed to get code at %s: %w", s.binding.Address().Hex(), err)
	}
	if len(code) == 0 {
		return fmt.Errorf("%w: %w: no code at %s on %s",
			domain.ErrNonRetryable, domain.ErrContractNotDeployed, s.binding.Address().Hex(), s.config.ChainID)
	}
	return nil
}

// LatestBlock returns the current head block number
func (s *logSource) LatestBlock(ctx context.Context) (uint64, error) {
	return latestBlock(ctx, s.client)
}

// QueryRange returns the logs of kind emitted in the inclusive range [from, to]
func (s *logSource) QueryRange(ctx context.Context, kind domain.EventKind, from, to uint64) ([]contracts.DecodedLog, error) {
	topic, err := s.binding.Topic(kind)
	if err != nil {
		return nil, err
	}

	query := s.filterQuery([]common.Hash{topic})
	raw, err := s.getLogsWithRetry(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s logs for range %d-%d: %w", kind, from, to, err)
	}

	decoded := make([]contracts.DecodedLog, 0, len(raw))
	for _, vLog := range raw {
		if vLog.Removed {
			continue
		}
		l, err := s.binding.Decode(vLog)
		if err != nil {
			s.log.Warn("Skipping undecodable log", zap.Error(err),
				logger.TxHash(vLog.TxHash.Hex()), logger.Block(vLog.BlockNumber))
			continue
		}
		decoded = append(decoded, l)
	}

	return decoded, nil
}

// filterQuery matches any of topics emitted by the bound contract
func (s *logSource) filterQuery(topics []common.Hash) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: []common.Address{s.binding.Address()},
		Topics:    [][]common.Hash{topics},
	}
}

// getLogsWithRetry fetches [from, to] with query, halving the request range
// whenever the provider refuses a result set as too large
func (s *logSource) getLogsWithRetry(ctx context.Context, query ethereum.FilterQuery, from, to uint64) ([]types.Log, error) {
	stepSize := to - from + 1

	var allLogs []types.Log
	currentFrom := from

	for currentFrom <= to {
		currentTo := to
		if to-currentFrom >= stepSize {
			currentTo = currentFrom + stepSize - 1
		}

		queryCopy := query
		queryCopy.FromBlock = new(big.Int).SetUint64(currentFrom)
		queryCopy.ToBlock = new(big.Int).SetUint64(currentTo)

		logs, err := s.client.FilterLogs(ctx, queryCopy)
		if err == nil {
			allLogs = append(allLogs, logs...)
			if currentTo == to {
				break
			}
			currentFrom = currentTo + 1
			continue
		}

		if !isTooManyResultsError(err) || stepSize == 1 {
			return nil, err
		}

		stepSize /= 2
		s.log.Warn("Too many results, reducing step size",
			zap.Uint64("newStepSize", stepSize),
			zap.Uint64("fromBlock", currentFrom),
			zap.Uint64("toBlock", currentTo))
	}

	return allLogs, nil
}

// isTooManyResultsError checks if the error is related to too many results
func isTooManyResultsError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "query returned more than 10000 results") ||
		strings.Contains(errStr, "query timeout exceeded") ||
		strings.Contains(errStr, "too many results") ||
		strings.Contains(errStr, "exceeded maximum") ||
		strings.Contains(errStr, "block range is too large")
}
