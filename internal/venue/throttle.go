// Package venue holds cross-venue client plumbing shared by the concrete
// venue implementations in its subpackages.
package venue

import (
	"context"
	"time"

	"github.com/akifumi-dev/crossarb/internal/domain"
)

// Throttled wraps a venue client so every API call first passes the shared
// rate limiter. Venue rate limits apply per API key across processes, which
// is why the limiter state lives in Redis rather than in-process.
type Throttled struct {
	inner   domain.VenueClient
	limiter domain.RateLimiter
	limit   int
	window  time.Duration
}

// Throttle wraps inner so each call consumes one slot of limit calls per
// window. A nil limiter returns inner unchanged.
func Throttle(inner domain.VenueClient, limiter domain.RateLimiter, limit int, window time.Duration) domain.VenueClient {
	if limiter == nil {
		return inner
	}
	return &Throttled{inner: inner, limiter: limiter, limit: limit, window: window}
}

// Venue returns the wrapped client's venue identifier.
func (t *Throttled) Venue() domain.Venue { return t.inner.Venue() }

// FetchTicker waits for a rate-limit slot, then delegates.
func (t *Throttled) FetchTicker(ctx context.Context, asset domain.Asset) (domain.TickerSnapshot, error) {
	if err := t.wait(ctx); err != nil {
		return domain.TickerSnapshot{}, err
	}
	return t.inner.FetchTicker(ctx, asset)
}

// FetchBalance waits for a rate-limit slot, then delegates.
func (t *Throttled) FetchBalance(ctx context.Context) (domain.BalanceSnapshot, error) {
	if err := t.wait(ctx); err != nil {
		return domain.BalanceSnapshot{}, err
	}
	return t.inner.FetchBalance(ctx)
}

// PlaceMarketOrder waits for a rate-limit slot, then delegates.
func (t *Throttled) PlaceMarketOrder(ctx context.Context, asset domain.Asset, side domain.OrderSide, volume float64) error {
	if err := t.wait(ctx); err != nil {
		return err
	}
	return t.inner.PlaceMarketOrder(ctx, asset, side, volume)
}

func (t *Throttled) wait(ctx context.Context) error {
	key := "venue:" + string(t.inner.Venue())
	err := t.limiter.Wait(ctx, key, t.limit, t.window)
	if err != nil && ctx.Err() == nil {
		// Fail open on limiter backend errors.
		return nil
	}
	return err
}
