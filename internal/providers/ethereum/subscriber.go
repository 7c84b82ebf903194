package ethereum

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/logger"
	"github.com/feral-file/registry-indexer/internal/messaging"
)

// logBufferSize is the capacity of the subscription channel; notifications
// that arrive during catch-up wait here
const logBufferSize = 256

// Subscribe streams every declared log of the contract from fromBlock onwards.
//
// With a push-capable endpoint the subscription is opened first, then the
// range [fromBlock, head] is caught up with eth_getLogs, then pushed logs
// above head are delivered. HTTP endpoints are polled instead.
// It returns only on context cancellation, handler error or stream failure.
func (s *logSource) Subscribe(ctx context.Context, fromBlock uint64, handler messaging.LogHandler) error {
	query := s.filterQuery(s.binding.Topics())

	logs := make(chan types.Log, logBufferSize)
	sub, err := s.client.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		if isNotificationsUnsupported(err) {
			s.log.Info("Endpoint does not push logs, polling instead",
				zap.Duration("interval", s.config.PollInterval))
			return s.poll(ctx, fromBlock, handler)
		}
		return fmt.Errorf("%w: failed to subscribe to filter logs: %v", domain.ErrStreamFailed, err)
	}
	defer func() {
		s.log.Info("Unsubscribing from registry logs")
		sub.Unsubscribe()
	}()

	head, err := s.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStreamFailed, err)
	}

	next := fromBlock
	if head >= fromBlock {
		if err := s.deliverRange(ctx, fromBlock, head, handler); err != nil {
			return err
		}
		next = head + 1
	}

	s.log.Info("Streaming registry logs", zap.Uint64("from_block", next))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-sub.Err():
			if !ok || err == nil {
				return domain.ErrStreamEnded
			}
			return fmt.Errorf("%w: subscription error: %v", domain.ErrStreamFailed, err)
		case vLog := <-logs:
			// already delivered by the catch-up query
			if vLog.BlockNumber < next {
				continue
			}
			if err := s.deliver(ctx, vLog, handler); err != nil {
				return err
			}
		}
	}
}

// poll repeatedly queries [next, head] every PollInterval
func (s *logSource) poll(ctx context.Context, fromBlock uint64, handler messaging.LogHandler) error {
	next := fromBlock
	for {
		head, err := s.LatestBlock(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", domain.ErrStreamFailed, err)
		}

		if head >= next {
			if err := s.deliverRange(ctx, next, head, handler); err != nil {
				return err
			}
			next = head + 1
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.config.PollInterval):
		}
	}
}

// deliverRange hands every log in [from, to] to handler in chain order
func (s *logSource) deliverRange(ctx context.Context, from, to uint64, handler messaging.LogHandler) error {
	query := s.filterQuery(s.binding.Topics())

	for _, r := range domain.SplitBlockRange(from, to, s.config.MaxBlockRange) {
		logs, err := s.getLogsWithRetry(ctx, query, r.From, r.To)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: failed to get logs for range %d-%d: %v", domain.ErrStreamFailed, r.From, r.To, err)
		}

		for _, vLog := range logs {
			if err := s.deliver(ctx, vLog, handler); err != nil {
				return err
			}
		}
	}

	return nil
}

// deliver decodes vLog and passes it to handler; undecodable logs are skipped
func (s *logSource) deliver(ctx context.Context, vLog types.Log, handler messaging.LogHandler) error {
	if vLog.Removed {
		s.log.Debug("Ignoring removed log", logger.TxHash(vLog.TxHash.Hex()))
		return nil
	}

	decoded, err := s.binding.Decode(vLog)
	if err != nil {
		s.log.Warn("Skipping undecodable log", zap.Error(err),
			logger.TxHash(vLog.TxHash.Hex()), logger.Block(vLog.BlockNumber))
		return nil
	}

	return handler(ctx, decoded)
}

// isNotificationsUnsupported reports whether the endpoint cannot push subscriptions
func isNotificationsUnsupported(err error) bool {
	if errors.Is(err, rpc.ErrNotificationsUnsupported) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "notifications not supported") ||
		strings.Contains(msg, "eth_subscribe does not exist")
}
