package app

import (
	"context"

	"github.com/akifumi-dev/crossarb/internal/arbitrage"
	"github.com/akifumi-dev/crossarb/internal/bot"
	"github.com/akifumi-dev/crossarb/internal/domain"
	"github.com/akifumi-dev/crossarb/internal/executor"
	"github.com/akifumi-dev/crossarb/internal/risk"
)

// TradeMode runs the full loop with order placement enabled.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")
	return a.runEngine(ctx, deps, true)
}

// MonitorMode runs the same loop read-only: every cycle is evaluated and
// recorded but no orders are ever placed.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	return a.runEngine(ctx, deps, false)
}

func (a *App) runEngine(ctx context.Context, deps *Dependencies, tradeEnabled bool) error {
	detector := arbitrage.NewDetector(
		arbitrage.Config{
			PerTradeCap: a.cfg.Trading.PerTradeCap,
			MinLotSize:  a.cfg.Trading.MinLotSize,
		},
		arbitrage.NewSkewPolicy(arbitrage.SkewParams{
			BaseThreshold: a.cfg.Skew.BaseThreshold,
			SkewPremium:   a.cfg.Skew.SkewPremium,
			SkewDiscount:  a.cfg.Skew.SkewDiscount,
			HighWatermark: a.cfg.Skew.HighWatermark,
		}),
	)

	coordinator := executor.NewCoordinator(deps.Clients, deps.Cache, a.cfg.Trading.LegDelay.Duration, a.logger)
	guard := risk.NewSolvencyGuard(a.cfg.Risk.SolvencyFloor, a.logger)

	engine := bot.NewEngine(
		bot.Config{
			VenueA:       domain.Venue(a.cfg.Trading.VenueA),
			VenueB:       domain.Venue(a.cfg.Trading.VenueB),
			Asset:        domain.Asset(a.cfg.Trading.Asset),
			CycleDelay:   a.cfg.Trading.CycleDelay.Duration,
			TradeEnabled: tradeEnabled,
		},
		deps.Cache,
		detector,
		coordinator,
		guard,
		deps.TradeStore,
		deps.DecisionStore,
		deps.Notifier,
		a.logger,
	)

	return engine.Run(ctx)
}
