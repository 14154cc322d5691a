package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) *RateLimiter {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := New(context.Background(), ClientConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewRateLimiter(client)
}

func TestAllowUnderLimit(t *testing.T) {
	rl := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		allowed, err := rl.Allow(ctx, "venue:gmo", 6, time.Second)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d should be allowed", i)
	}
}

func TestAllowDeniesOverLimit(t *testing.T) {
	rl := newTestLimiter(t)
	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "venue:coincheck", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = rl.Allow(ctx, "venue:coincheck", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAllowKeysAreIndependent(t *testing.T) {
	rl := newTestLimiter(t)
	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "venue:gmo", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	// Exhausting one venue's budget leaves the other untouched.
	allowed, err = rl.Allow(ctx, "venue:gmo", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = rl.Allow(ctx, "venue:coincheck", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllowWindowSlides(t *testing.T) {
	rl := newTestLimiter(t)
	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "venue:gmo", 1, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = rl.Allow(ctx, "venue:gmo", 1, 50*time.Millisecond)
	require.NoError(t, err)
	require.False(t, allowed)

	// Old entries fall out of the window once enough wall time passes. The
	// script prunes by the caller-supplied timestamp, so no miniredis clock
	// manipulation is needed.
	time.Sleep(60 * time.Millisecond)

	allowed, err = rl.Allow(ctx, "venue:gmo", 1, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestWaitBlocksUntilAllowed(t *testing.T) {
	rl := newTestLimiter(t)
	ctx := context.Background()

	// First call passes immediately.
	require.NoError(t, rl.Wait(ctx, "venue:coincheck", 1, time.Second))

	// Second call must wait for the one-second window to free up.
	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- rl.Wait(ctx, "venue:coincheck", 1, time.Second) }()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
	case <-time.After(3 * time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestWaitHonoursContextCancellation(t *testing.T) {
	rl := newTestLimiter(t)

	allowed, err := rl.Allow(context.Background(), "venue:gmo", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = rl.Wait(ctx, "venue:gmo", 1, time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
