// Package snapshot holds the market snapshot cache: the latest ticker and
// balance per venue. It is the only shared mutable state in the bot. Ticker
// entries are replaced wholesale on every successful fetch; balance entries
// are invalidated the instant an order is placed against their venue, because
// a post-fill balance is immediately stale.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/akifumi-dev/crossarb/internal/domain"
)

// Cache caches venue state and performs blocking remote fetches on miss.
// Fetch failures are surfaced to the caller, never retried silently; the
// polling loop decides whether to skip the cycle.
type Cache struct {
	clients map[domain.Venue]domain.VenueClient
	logger  *slog.Logger

	mu       sync.Mutex
	tickers  map[tickerKey]domain.TickerSnapshot
	balances map[domain.Venue]domain.BalanceSnapshot
}

type tickerKey struct {
	venue domain.Venue
	asset domain.Asset
}

// NewCache creates a cache over the given venue clients.
func NewCache(clients []domain.VenueClient, logger *slog.Logger) *Cache {
	byVenue := make(map[domain.Venue]domain.VenueClient, len(clients))
	for _, c := range clients {
		byVenue[c.Venue()] = c
	}
	return &Cache{
		clients:  byVenue,
		logger:   logger.With(slog.String("component", "snapshot_cache")),
		tickers:  make(map[tickerKey]domain.TickerSnapshot),
		balances: make(map[domain.Venue]domain.BalanceSnapshot),
	}
}

// GetTicker returns the most recent successfully fetched ticker for the venue
// and asset, fetching from the venue if none is cached.
func (c *Cache) GetTicker(ctx context.Context, venue domain.Venue, asset domain.Asset) (domain.TickerSnapshot, error) {
	c.mu.Lock()
	t, ok := c.tickers[tickerKey{venue, asset}]
	c.mu.Unlock()
	if ok {
		return t, nil
	}
	return c.refreshTicker(ctx, venue, asset)
}

// GetBalance returns the cached balance for the venue, fetching from the
// venue if the cache is empty or the entry was invalidated.
func (c *Cache) GetBalance(ctx context.Context, venue domain.Venue) (domain.BalanceSnapshot, error) {
	c.mu.Lock()
	b, ok := c.balances[venue]
	c.mu.Unlock()
	if ok {
		return b, nil
	}

	client, err := c.client(venue)
	if err != nil {
		return domain.BalanceSnapshot{}, err
	}
	fetched, err := client.FetchBalance(ctx)
	if err != nil {
		return domain.BalanceSnapshot{}, fmt.Errorf("snapshot: fetch balance %s: %w", venue, err)
	}

	c.mu.Lock()
	c.balances[venue] = fetched
	c.mu.Unlock()
	return fetched, nil
}

// InvalidateBalance discards the cached balance for the venue so the next
// GetBalance call re-fetches it.
func (c *Cache) InvalidateBalance(venue domain.Venue) {
	c.mu.Lock()
	delete(c.balances, venue)
	c.mu.Unlock()
	c.logger.Debug("balance invalidated", slog.String("venue", string(venue)))
}

// RefreshPair force-fetches both venues' tickers concurrently and joins them
// with cache-backed balances into one same-cycle pair. Any fetch failure
// fails the whole pair: no snapshot pair is returned, so a fresh ticker from
// one venue is never paired with a stale one from the other. The succeeding
// venue's fetch still lands in the cache for later reads.
func (c *Cache) RefreshPair(ctx context.Context, venueA, venueB domain.Venue, asset domain.Asset) (domain.SnapshotPair, error) {
	var pair domain.SnapshotPair

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := c.refreshTicker(gctx, venueA, asset)
		if err != nil {
			return err
		}
		pair.A = t
		return nil
	})
	g.Go(func() error {
		t, err := c.refreshTicker(gctx, venueB, asset)
		if err != nil {
			return err
		}
		pair.B = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.SnapshotPair{}, err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := c.GetBalance(gctx, venueA)
		if err != nil {
			return err
		}
		pair.BalanceA = b
		return nil
	})
	g.Go(func() error {
		b, err := c.GetBalance(gctx, venueB)
		if err != nil {
			return err
		}
		pair.BalanceB = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.SnapshotPair{}, err
	}

	return pair, nil
}

// refreshTicker performs a blocking remote fetch and overwrites the cache on
// success.
func (c *Cache) refreshTicker(ctx context.Context, venue domain.Venue, asset domain.Asset) (domain.TickerSnapshot, error) {
	client, err := c.client(venue)
	if err != nil {
		return domain.TickerSnapshot{}, err
	}
	t, err := client.FetchTicker(ctx, asset)
	if err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("snapshot: fetch ticker %s/%s: %w", venue, asset, err)
	}

	c.mu.Lock()
	c.tickers[tickerKey{venue, asset}] = t
	c.mu.Unlock()
	return t, nil
}

func (c *Cache) client(venue domain.Venue) (domain.VenueClient, error) {
	client, ok := c.clients[venue]
	if !ok {
		return nil, fmt.Errorf("snapshot: no client registered for venue %q", venue)
	}
	return client, nil
}
