package venue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akifumi-dev/crossarb/internal/domain"
)

type fakeClient struct {
	calls int
}

func (f *fakeClient) Venue() domain.Venue { return domain.VenueGMO }

func (f *fakeClient) FetchTicker(ctx context.Context, asset domain.Asset) (domain.TickerSnapshot, error) {
	f.calls++
	return domain.TickerSnapshot{Venue: domain.VenueGMO, Asset: asset}, nil
}

func (f *fakeClient) FetchBalance(ctx context.Context) (domain.BalanceSnapshot, error) {
	f.calls++
	return domain.BalanceSnapshot{Venue: domain.VenueGMO}, nil
}

func (f *fakeClient) PlaceMarketOrder(ctx context.Context, asset domain.Asset, side domain.OrderSide, volume float64) error {
	f.calls++
	return nil
}

// fakePollInterval matches the redis limiter's Wait polling cadence.
const fakePollInterval = 50 * time.Millisecond

type fakeLimiter struct {
	mu      sync.Mutex
	allowed []bool
	err     error
	keys    []string
	limits  []int
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	l.limits = append(l.limits, limit)
	if l.err != nil {
		return false, l.err
	}
	if len(l.allowed) == 0 {
		return true, nil
	}
	a := l.allowed[0]
	l.allowed = l.allowed[1:]
	return a, nil
}

func (l *fakeLimiter) Wait(ctx context.Context, key string, limit int, window time.Duration) error {
	for {
		allowed, err := l.Allow(ctx, key, limit, window)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
		timer := time.NewTimer(fakePollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func TestThrottleNilLimiterReturnsInner(t *testing.T) {
	inner := &fakeClient{}
	assert.Same(t, domain.VenueClient(inner), Throttle(inner, nil, 1, time.Second))
}

func TestThrottleDelegatesWhenAllowed(t *testing.T) {
	inner := &fakeClient{}
	limiter := &fakeLimiter{}
	c := Throttle(inner, limiter, 6, time.Second)

	_, err := c.FetchTicker(context.Background(), domain.AssetBTC)
	require.NoError(t, err)
	_, err = c.FetchBalance(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.PlaceMarketOrder(context.Background(), domain.AssetBTC, domain.OrderSideBuy, 0.01))

	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []string{"venue:gmo", "venue:gmo", "venue:gmo"}, limiter.keys)
	// The per-venue limit is forwarded to the limiter, not a default.
	assert.Equal(t, []int{6, 6, 6}, limiter.limits)
}

func TestThrottlePollsUntilSlotFrees(t *testing.T) {
	inner := &fakeClient{}
	limiter := &fakeLimiter{allowed: []bool{false, false, true}}
	c := Throttle(inner, limiter, 1, time.Second)

	start := time.Now()
	_, err := c.FetchTicker(context.Background(), domain.AssetBTC)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.GreaterOrEqual(t, time.Since(start), 2*fakePollInterval)
}

func TestThrottleFailsOpenOnLimiterError(t *testing.T) {
	inner := &fakeClient{}
	limiter := &fakeLimiter{err: errors.New("redis down")}
	c := Throttle(inner, limiter, 1, time.Second)

	_, err := c.FetchTicker(context.Background(), domain.AssetBTC)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestThrottleRespectsContext(t *testing.T) {
	inner := &fakeClient{}
	limiter := &fakeLimiter{allowed: []bool{false, false, false, false, false, false, false, false}}
	c := Throttle(inner, limiter, 1, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	_, err := c.FetchTicker(ctx, domain.AssetBTC)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, inner.calls)
}
