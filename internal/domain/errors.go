package domain

import "errors"

var (
	// ErrStreamEnded is returned when a live log stream finishes without an error
	ErrStreamEnded = errors.New("log stream ended")

	// ErrStreamFailed is returned when a live log stream fails with a transport error
	ErrStreamFailed = errors.New("log stream failed")

	// ErrStore wraps every failure reported by the relational store
	ErrStore = errors.New("store error")

	// ErrMalformedEvent is returned for logs that cannot be projected (missing tx hash, undecodable payload)
	ErrMalformedEvent = errors.New("malformed event")

	// ErrUnknownEventKind is returned when a router receives a kind it does not declare
	ErrUnknownEventKind = errors.New("unknown event kind")

	// ErrNonRetryable marks errors the supervisor must not retry
	ErrNonRetryable = errors.New("non-retryable error")

	// ErrContractNotDeployed is returned when the configured address holds no code
	ErrContractNotDeployed = errors.New("contract not deployed")

	// ErrInvalidConfig is returned when configuration values are unusable
	ErrInvalidConfig = errors.New("invalid configuration")
)
