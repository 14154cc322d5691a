package executor

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akifumi-dev/crossarb/internal/domain"
	"github.com/akifumi-dev/crossarb/internal/snapshot"
)

type placedOrder struct {
	side   domain.OrderSide
	volume float64
}

type fakeClient struct {
	venue   domain.Venue
	balance domain.BalanceSnapshot

	orderErr     error
	orders       []placedOrder
	onOrder      func()
	balanceCalls int
}

func (f *fakeClient) Venue() domain.Venue { return f.venue }

func (f *fakeClient) FetchTicker(ctx context.Context, asset domain.Asset) (domain.TickerSnapshot, error) {
	return domain.TickerSnapshot{Venue: f.venue, Asset: asset}, nil
}

func (f *fakeClient) FetchBalance(ctx context.Context) (domain.BalanceSnapshot, error) {
	f.balanceCalls++
	return f.balance, nil
}

func (f *fakeClient) PlaceMarketOrder(ctx context.Context, asset domain.Asset, side domain.OrderSide, volume float64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err)
	}
	if f.orderErr != nil {
		return f.orderErr
	}
	f.orders = append(f.orders, placedOrder{side: side, volume: volume})
	if f.onOrder != nil {
		f.onOrder()
	}
	return nil
}

func testProposal() domain.TradeProposal {
	return domain.TradeProposal{
		ID:               "test-proposal",
		Asset:            domain.AssetBTC,
		BuyVenue:         domain.VenueGMO,
		SellVenue:        domain.VenueCoincheck,
		Volume:           0.01,
		BuyPrice:         100000,
		SellPrice:        101000,
		ExpectedFiatCost: 1000,
		Spread:           1000,
	}
}

func testSetup(buyErr, sellErr error) (*fakeClient, *fakeClient, *Coordinator) {
	logger := slog.New(slog.DiscardHandler)
	buy := &fakeClient{
		venue:    domain.VenueGMO,
		balance:  domain.BalanceSnapshot{Venue: domain.VenueGMO, FiatAmount: 150000, BaseAmount: 0.05},
		orderErr: buyErr,
	}
	sell := &fakeClient{
		venue:    domain.VenueCoincheck,
		balance:  domain.BalanceSnapshot{Venue: domain.VenueCoincheck, FiatAmount: 80000, BaseAmount: 0.02},
		orderErr: sellErr,
	}
	clients := []domain.VenueClient{buy, sell}
	cache := snapshot.NewCache(clients, logger)
	return buy, sell, NewCoordinator(clients, cache, 0, logger)
}

func TestExecuteCompletesBothLegs(t *testing.T) {
	buy, sell, coord := testSetup(nil, nil)

	out := coord.Execute(context.Background(), testProposal())

	assert.Equal(t, domain.TradeCompleted, out.Status)
	assert.False(t, out.Unhedged())
	require.Len(t, buy.orders, 1)
	assert.Equal(t, domain.OrderSideBuy, buy.orders[0].side)
	assert.Equal(t, 0.01, buy.orders[0].volume)
	require.Len(t, sell.orders, 1)
	assert.Equal(t, domain.OrderSideSell, sell.orders[0].side)
	assert.Equal(t, 0.01, sell.orders[0].volume)
}

func TestExecuteBuyFailureAbortsWithoutSelling(t *testing.T) {
	buy, sell, coord := testSetup(fmt.Errorf("%w: dial tcp", domain.ErrConnectionFailed), nil)

	out := coord.Execute(context.Background(), testProposal())

	assert.Equal(t, domain.TradeAborted, out.Status)
	assert.Contains(t, out.Reason, "buy leg")
	assert.Empty(t, buy.orders)
	assert.Empty(t, sell.orders)
}

func TestExecuteSellFailureLeavesPositionUnhedged(t *testing.T) {
	buy, sell, coord := testSetup(nil, fmt.Errorf("%w: maintenance", domain.ErrVenueError))

	out := coord.Execute(context.Background(), testProposal())

	assert.Equal(t, domain.TradePartiallyFilled, out.Status)
	assert.True(t, out.Unhedged())
	assert.Contains(t, out.Reason, "sell leg")
	require.Len(t, buy.orders, 1)
	// No compensating order on the buy venue.
	assert.Equal(t, domain.OrderSideBuy, buy.orders[0].side)
	assert.Empty(t, sell.orders)
}

func TestExecuteSellLegSurvivesCancellationMidTrade(t *testing.T) {
	buy, sell, coord := testSetup(nil, nil)

	// Cancellation arrives right after the buy fill. The sell leg must still
	// run, or the position would be left unhedged by a routine shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	buy.onOrder = cancel

	out := coord.Execute(ctx, testProposal())

	assert.Equal(t, domain.TradeCompleted, out.Status)
	require.Len(t, buy.orders, 1)
	require.Len(t, sell.orders, 1)
}

func TestExecuteRunsDetachedFromCallerContext(t *testing.T) {
	buy, sell, coord := testSetup(nil, nil)

	// A shutdown signal can land while a proposal is already on its way to
	// Execute. The buy leg must still go out on a cancelled context, or the
	// venue could fill an order the outcome reports as never placed.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := coord.Execute(ctx, testProposal())

	assert.Equal(t, domain.TradeCompleted, out.Status)
	require.Len(t, buy.orders, 1)
	require.Len(t, sell.orders, 1)
}

func TestExecuteInsufficientFiatAborts(t *testing.T) {
	buy, sell, coord := testSetup(nil, nil)
	buy.balance.FiatAmount = 500

	out := coord.Execute(context.Background(), testProposal())

	assert.Equal(t, domain.TradeAborted, out.Status)
	assert.Contains(t, out.Reason, "fiat")
	assert.Empty(t, buy.orders)
	assert.Empty(t, sell.orders)
}

func TestExecuteInsufficientBaseAborts(t *testing.T) {
	buy, sell, coord := testSetup(nil, nil)
	sell.balance.BaseAmount = 0.001

	out := coord.Execute(context.Background(), testProposal())

	assert.Equal(t, domain.TradeAborted, out.Status)
	assert.Contains(t, out.Reason, "base")
	assert.Empty(t, buy.orders)
	assert.Empty(t, sell.orders)
}

func TestExecuteInvalidProposals(t *testing.T) {
	_, _, coord := testSetup(nil, nil)

	tests := []struct {
		name   string
		mutate func(*domain.TradeProposal)
	}{
		{"same venue both legs", func(p *domain.TradeProposal) { p.SellVenue = p.BuyVenue }},
		{"zero volume", func(p *domain.TradeProposal) { p.Volume = 0 }},
		{"unknown venue", func(p *domain.TradeProposal) { p.BuyVenue = "kraken" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProposal()
			tt.mutate(&p)
			out := coord.Execute(context.Background(), p)
			assert.Equal(t, domain.TradeAborted, out.Status)
		})
	}
}

func TestExecuteInvalidatesBalancesAfterFill(t *testing.T) {
	buy, sell, coord := testSetup(nil, nil)
	ctx := context.Background()

	out := coord.Execute(ctx, testProposal())
	require.Equal(t, domain.TradeCompleted, out.Status)
	assert.Equal(t, 1, buy.balanceCalls)
	assert.Equal(t, 1, sell.balanceCalls)

	// Both balances were invalidated by the fills, so the next read refetches.
	_, err := coord.cache.GetBalance(ctx, domain.VenueGMO)
	require.NoError(t, err)
	_, err = coord.cache.GetBalance(ctx, domain.VenueCoincheck)
	require.NoError(t, err)
	assert.Equal(t, 2, buy.balanceCalls)
	assert.Equal(t, 2, sell.balanceCalls)
}
