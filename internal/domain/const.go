package domain

import "time"

const (
	// DefaultBackfillWindow is how many blocks behind the head a pass starts scanning when no cursor is used
	DefaultBackfillWindow uint64 = 1000
	// DefaultChunkSize is the largest inclusive block range requested per ranged log query
	DefaultChunkSize uint64 = 499
	// DefaultRetryDelay is the fixed pause between supervisor passes after a failure
	DefaultRetryDelay = 5 * time.Second
)
