package projector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/registry-indexer/internal/contracts"
	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/logger"
	"github.com/feral-file/registry-indexer/internal/metrics"
)

// Handler projects one decoded event into the read model
type Handler func(ctx context.Context, log contracts.DecodedLog) error

// Routes is the dispatch table of one contract.
// Every declared kind needs exactly one entry in Handlers or Discard.
type Routes struct {
	Handlers map[domain.EventKind]Handler
	Discard  []domain.EventKind
}

// EventRouter dispatches decoded logs of one contract to their handler
//
//go:generate mockgen -source=router.go -destination=../mocks/event_router.go -package=mocks -mock_names=EventRouter=MockEventRouter
type EventRouter interface {
	// Domain returns the registry the router serves
	Domain() domain.Domain

	// Route projects log; malformed logs are skipped without error
	Route(ctx context.Context, log contracts.DecodedLog) error
}

type router struct {
	domain   domain.Domain
	handlers map[domain.EventKind]Handler
	discard  map[domain.EventKind]struct{}
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewRouter builds the router of d and checks the dispatch table against the
// declared kinds of the contract
func NewRouter(d domain.Domain, declared []domain.EventKind, routes Routes, m *metrics.Metrics) (EventRouter, error) {
	r := &router{
		domain:   d,
		handlers: make(map[domain.EventKind]Handler, len(routes.Handlers)),
		discard:  make(map[domain.EventKind]struct{}, len(routes.Discard)),
		metrics:  m,
		log:      logger.ForDomain(d),
	}

	isDeclared := make(map[domain.EventKind]bool, len(declared))
	for _, kind := range declared {
		isDeclared[kind] = true
	}

	for kind, handler := range routes.Handlers {
		if !isDeclared[kind] {
			return nil, fmt.Errorf("%s router: handler for undeclared kind %s", d, kind)
		}
		if handler == nil {
			return nil, fmt.Errorf("%s router: nil handler for %s", d, kind)
		}
		r.handlers[kind] = handler
	}

	for _, kind := range routes.Discard {
		if !isDeclared[kind] {
			return nil, fmt.Errorf("%s router: discard of undeclared kind %s", d, kind)
		}
		if _, ok := r.handlers[kind]; ok {
			return nil, fmt.Errorf("%s router: kind %s is both handled and discarded", d, kind)
		}
		if _, ok := r.discard[kind]; ok {
			return nil, fmt.Errorf("%s router: kind %s discarded twice", d, kind)
		}
		r.discard[kind] = struct{}{}
	}

	for _, kind := range declared {
		_, handled := r.handlers[kind]
		_, discarded := r.discard[kind]
		if !handled && !discarded {
			return nil, fmt.Errorf("%s router: no route for declared kind %s", d, kind)
		}
	}

	return r, nil
}

func (r *router) Domain() domain.Domain {
	return r.domain
}

// Route checks the log carries a transaction hash, then dispatches it by kind
func (r *router) Route(ctx context.Context, log contracts.DecodedLog) error {
	if log.Event == nil {
		return fmt.Errorf("%w: empty event", domain.ErrUnknownEventKind)
	}
	kind := log.Kind()

	if !log.Meta.HasTxHash() {
		r.log.Warn("Skipping event without transaction hash",
			zap.Error(domain.ErrMalformedEvent),
			logger.Kind(kind),
			logger.Block(log.Meta.BlockNumber),
			zap.Uint("log_index", log.Meta.LogIndex))
		r.metrics.EventMalformed(r.domain, "missing_tx_hash")
		return nil
	}

	if _, ok := r.discard[kind]; ok {
		r.log.Debug("Discarding event",
			logger.Kind(kind),
			logger.TxHash(log.Meta.TxHash))
		r.metrics.EventDiscarded(r.domain, kind)
		return nil
	}

	handler, ok := r.handlers[kind]
	if !ok {
		return fmt.Errorf("%w: %s on %s", domain.ErrUnknownEventKind, kind, r.domain)
	}

	r.metrics.EventRouted(r.domain, kind)
	if err := handler(ctx, log); err != nil {
		return fmt.Errorf("failed to project %s in tx %s: %w", kind, log.Meta.TxHash, err)
	}

	return nil
}
