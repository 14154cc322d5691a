package domain

import (
	"context"
	"errors"
	"time"
)

// TradeStore persists executed trade outcomes.
type TradeStore interface {
	Create(ctx context.Context, rec TradeRecord) error
	GetByID(ctx context.Context, id string) (TradeRecord, error)
	ListRecent(ctx context.Context, limit int) ([]TradeRecord, error)
}

// DecisionStore persists the per-cycle decision audit trail.
type DecisionStore interface {
	Create(ctx context.Context, d Decision) error
	ListRecent(ctx context.Context, limit int) ([]Decision, error)
}

// RateLimiter throttles venue API calls. Implementations are expected to be
// safe for concurrent use.
type RateLimiter interface {
	// Allow reports whether a call for key is permitted under a sliding
	// window of limit calls per window, counting the call when allowed.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// Wait blocks until a call for key is allowed under the same sliding
	// window, or ctx is cancelled.
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")
