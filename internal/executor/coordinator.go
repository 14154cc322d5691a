// Package executor carries out two-leg arbitrage trades. The buy leg always
// runs first; the sell leg is only issued once the buy leg's result is known.
// A sell-leg failure is NOT reversed or retried: the resulting unhedged
// position is reported as PartiallyFilled and left for the operator. This is
// an intentional property of the system, not an oversight.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/akifumi-dev/crossarb/internal/domain"
	"github.com/akifumi-dev/crossarb/internal/snapshot"
)

// Coordinator executes trade proposals against the venue clients, using the
// snapshot cache for the best-effort pre-trade balance check.
type Coordinator struct {
	clients  map[domain.Venue]domain.VenueClient
	cache    *snapshot.Cache
	legDelay time.Duration
	logger   *slog.Logger
}

// NewCoordinator creates a Coordinator. legDelay is the pause inserted
// between the buy and sell legs to respect the sell venue's call-rate limit.
func NewCoordinator(clients []domain.VenueClient, cache *snapshot.Cache, legDelay time.Duration, logger *slog.Logger) *Coordinator {
	byVenue := make(map[domain.Venue]domain.VenueClient, len(clients))
	for _, c := range clients {
		byVenue[c.Venue()] = c
	}
	return &Coordinator{
		clients:  byVenue,
		cache:    cache,
		legDelay: legDelay,
		logger:   logger.With(slog.String("component", "executor")),
	}
}

// Execute runs the proposal's two legs in order and reports the outcome.
// Cancellation of ctx never interrupts a trade in flight: the whole trade
// runs detached, because aborting leg 1 mid-request could report Aborted for
// an order the venue still filled.
func (c *Coordinator) Execute(ctx context.Context, p domain.TradeProposal) domain.TradeOutcome {
	ctx = context.WithoutCancel(ctx)
	started := time.Now().UTC()
	outcome := func(status domain.TradeStatus, reason string) domain.TradeOutcome {
		return domain.TradeOutcome{
			Status:      status,
			Reason:      reason,
			StartedAt:   started,
			CompletedAt: time.Now().UTC(),
		}
	}

	log := c.logger.With(
		slog.String("proposal_id", p.ID),
		slog.String("buy_venue", string(p.BuyVenue)),
		slog.String("sell_venue", string(p.SellVenue)),
		slog.Float64("volume", p.Volume),
	)

	buyClient, sellClient, err := c.legClients(p)
	if err != nil {
		return outcome(domain.TradeAborted, err.Error())
	}

	// Best-effort pre-trade check against cache-backed balances. A fill by
	// another actor between this check and the order is an accepted risk.
	if err := c.checkBalances(ctx, p); err != nil {
		log.Warn("pre-trade check failed", slog.String("error", err.Error()))
		return outcome(domain.TradeAborted, err.Error())
	}

	// Leg 1: market buy. Nothing has filled if this fails, so aborting here
	// creates no exposure.
	if err := buyClient.PlaceMarketOrder(ctx, p.Asset, domain.OrderSideBuy, p.Volume); err != nil {
		log.Warn("buy leg failed, aborting", slog.String("error", err.Error()))
		if !errors.Is(err, domain.ErrOrderRejected) {
			// A connection failure may still have placed the order
			// server-side; force a balance refetch either way.
			c.cache.InvalidateBalance(p.BuyVenue)
		}
		return outcome(domain.TradeAborted, fmt.Sprintf("buy leg: %v", err))
	}
	c.cache.InvalidateBalance(p.BuyVenue)
	log.Info("buy leg placed",
		slog.Float64("price", p.BuyPrice),
		slog.Float64("fiat_cost", p.ExpectedFiatCost),
	)

	// The sell venue enforces a stricter call rate; pause before leg 2.
	// Plain sleep: external cancellation never interrupts a trade in flight.
	time.Sleep(c.legDelay)

	// Leg 2: market sell.
	if err := sellClient.PlaceMarketOrder(ctx, p.Asset, domain.OrderSideSell, p.Volume); err != nil {
		if !errors.Is(err, domain.ErrOrderRejected) {
			c.cache.InvalidateBalance(p.SellVenue)
		}
		// The bought position is now unhedged. Surface it loudly; do not
		// issue a compensating order.
		log.Error("sell leg failed, position is unhedged",
			slog.String("error", err.Error()),
		)
		return outcome(domain.TradePartiallyFilled, fmt.Sprintf("sell leg: %v", err))
	}
	c.cache.InvalidateBalance(p.SellVenue)

	log.Info("trade completed",
		slog.Float64("spread", p.Spread),
		slog.Float64("expected_profit", p.Spread*p.Volume),
	)
	return outcome(domain.TradeCompleted, "")
}

// checkBalances fails fast when the buy venue cannot cover the fiat cost or
// the sell venue lacks the base volume.
func (c *Coordinator) checkBalances(ctx context.Context, p domain.TradeProposal) error {
	buyBal, err := c.cache.GetBalance(ctx, p.BuyVenue)
	if err != nil {
		return fmt.Errorf("executor: balance check %s: %w", p.BuyVenue, err)
	}
	sellBal, err := c.cache.GetBalance(ctx, p.SellVenue)
	if err != nil {
		return fmt.Errorf("executor: balance check %s: %w", p.SellVenue, err)
	}

	if buyBal.FiatAmount < p.ExpectedFiatCost {
		return fmt.Errorf("executor: %s fiat %.0f below required %.0f: %w",
			p.BuyVenue, buyBal.FiatAmount, p.ExpectedFiatCost, domain.ErrInsufficientFunds)
	}
	if sellBal.BaseAmount < p.Volume {
		return fmt.Errorf("executor: %s base %.6f below required %.6f: %w",
			p.SellVenue, sellBal.BaseAmount, p.Volume, domain.ErrInsufficientFunds)
	}
	return nil
}

func (c *Coordinator) legClients(p domain.TradeProposal) (buy, sell domain.VenueClient, err error) {
	if !p.BuyVenue.Valid() || !p.SellVenue.Valid() || p.BuyVenue == p.SellVenue {
		return nil, nil, fmt.Errorf("executor: proposal venues invalid: buy=%q sell=%q", p.BuyVenue, p.SellVenue)
	}
	if p.Volume <= 0 {
		return nil, nil, fmt.Errorf("executor: proposal volume must be positive, got %f", p.Volume)
	}
	buy, ok := c.clients[p.BuyVenue]
	if !ok {
		return nil, nil, fmt.Errorf("executor: no client for buy venue %q", p.BuyVenue)
	}
	sell, ok = c.clients[p.SellVenue]
	if !ok {
		return nil, nil, fmt.Errorf("executor: no client for sell venue %q", p.SellVenue)
	}
	return buy, sell, nil
}
