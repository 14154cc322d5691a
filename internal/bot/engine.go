// Package bot contains the polling engine that drives one cycle after
// another: refresh both venues' snapshots, check solvency, evaluate the
// spread, and hand any proposal to the executor.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/akifumi-dev/crossarb/internal/arbitrage"
	"github.com/akifumi-dev/crossarb/internal/domain"
	"github.com/akifumi-dev/crossarb/internal/executor"
	"github.com/akifumi-dev/crossarb/internal/notify"
	"github.com/akifumi-dev/crossarb/internal/risk"
	"github.com/akifumi-dev/crossarb/internal/snapshot"
)

// Config holds the engine's loop parameters.
type Config struct {
	VenueA     domain.Venue
	VenueB     domain.Venue
	Asset      domain.Asset
	CycleDelay time.Duration
	// TradeEnabled gates order placement. When false the engine still
	// evaluates and records every cycle but never executes.
	TradeEnabled bool
}

// Engine runs the trading loop. Trade and decision stores are optional; when
// nil the audit trail only goes to the log.
type Engine struct {
	cfg         Config
	cache       *snapshot.Cache
	detector    *arbitrage.Detector
	coordinator *executor.Coordinator
	guard       *risk.SolvencyGuard
	trades      domain.TradeStore
	decisions   domain.DecisionStore
	notifier    *notify.Notifier
	logger      *slog.Logger
}

// NewEngine wires the engine from its collaborators.
func NewEngine(
	cfg Config,
	cache *snapshot.Cache,
	detector *arbitrage.Detector,
	coordinator *executor.Coordinator,
	guard *risk.SolvencyGuard,
	trades domain.TradeStore,
	decisions domain.DecisionStore,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		cfg:         cfg,
		cache:       cache,
		detector:    detector,
		coordinator: coordinator,
		guard:       guard,
		trades:      trades,
		decisions:   decisions,
		notifier:    notifier,
		logger:      logger.With(slog.String("component", "engine")),
	}
}

// Run executes cycles until ctx is cancelled or the solvency guard trips.
// A tripped guard is terminal: Run returns domain.ErrHalted and the engine
// must not be restarted against the same books without operator action.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting",
		slog.String("venue_a", string(e.cfg.VenueA)),
		slog.String("venue_b", string(e.cfg.VenueB)),
		slog.String("asset", string(e.cfg.Asset)),
		slog.Duration("cycle_delay", e.cfg.CycleDelay),
		slog.Bool("trade_enabled", e.cfg.TradeEnabled),
	)

	for {
		if err := e.cycle(ctx); err != nil {
			if errors.Is(err, domain.ErrHalted) {
				e.logger.Error("engine halted")
				return err
			}
			// Fetch failures abort the cycle, not the loop.
			e.logger.Warn("cycle aborted", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return ctx.Err()
		case <-time.After(e.cfg.CycleDelay):
		}
	}
}

// cycle runs one full iteration: snapshot refresh, solvency check, detection,
// and (in trade mode) execution.
func (e *Engine) cycle(ctx context.Context) error {
	pair, err := e.cache.RefreshPair(ctx, e.cfg.VenueA, e.cfg.VenueB, e.cfg.Asset)
	if err != nil {
		return err
	}

	valuation, guardErr := e.guard.Check(pair)
	e.reportValuation(valuation)
	if guardErr != nil {
		e.notifyHalt(ctx, valuation)
		return guardErr
	}

	inv := domain.InventoryState{BaseHoldings: map[domain.Venue]float64{
		pair.BalanceA.Venue: pair.BalanceA.BaseAmount,
		pair.BalanceB.Venue: pair.BalanceB.BaseAmount,
	}}

	ev := e.detector.Evaluate(pair, inv)
	e.recordDecision(ctx, ev, valuation)

	if ev.Proposal == nil {
		e.logger.Debug("no trade this cycle",
			slog.Float64("spread_a_buy", ev.SpreadABuy),
			slog.Float64("spread_b_buy", ev.SpreadBBuy),
			slog.String("reason", ev.Reason),
		)
		return nil
	}

	p := *ev.Proposal
	e.logger.Info("opportunity detected",
		slog.String("proposal_id", p.ID),
		slog.String("buy_venue", string(p.BuyVenue)),
		slog.String("sell_venue", string(p.SellVenue)),
		slog.Float64("spread", p.Spread),
		slog.Float64("volume", p.Volume),
	)
	e.notify(ctx, notify.EventOpportunity, "Opportunity detected",
		fmt.Sprintf("buy %s @ %.0f, sell %s @ %.0f, volume %.6f, spread %.0f",
			p.BuyVenue, p.BuyPrice, p.SellVenue, p.SellPrice, p.Volume, p.Spread))

	if !e.cfg.TradeEnabled {
		return nil
	}

	outcome := e.coordinator.Execute(ctx, p)
	e.recordTrade(ctx, p, outcome)
	e.notifyOutcome(ctx, p, outcome)
	return nil
}

// reportValuation logs the holdings report every cycle so the audit trail
// exists even when no decision store is configured.
func (e *Engine) reportValuation(v risk.Valuation) {
	e.logger.Info("valuation",
		slog.Float64("total", v.Total),
		slog.Float64("fiat", v.Fiat),
		slog.Float64(fmt.Sprintf("venue_%s", e.cfg.VenueA), v.PerVenue[e.cfg.VenueA]),
		slog.Float64(fmt.Sprintf("venue_%s", e.cfg.VenueB), v.PerVenue[e.cfg.VenueB]),
	)
}

func (e *Engine) recordDecision(ctx context.Context, ev arbitrage.Evaluation, v risk.Valuation) {
	if e.decisions == nil {
		return
	}
	d := domain.Decision{
		ID:          uuid.New().String(),
		Asset:       e.cfg.Asset,
		SpreadABuy:  ev.SpreadABuy,
		SpreadBBuy:  ev.SpreadBBuy,
		ThresholdAB: ev.ThresholdAB,
		ThresholdBA: ev.ThresholdBA,
		Proposed:    ev.Proposal != nil,
		Reason:      ev.Reason,
		Valuation:   v.Total,
		DecidedAt:   time.Now().UTC(),
	}
	if err := e.decisions.Create(ctx, d); err != nil {
		e.logger.Warn("decision audit write failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) recordTrade(ctx context.Context, p domain.TradeProposal, o domain.TradeOutcome) {
	if e.trades == nil {
		return
	}
	rec := domain.TradeRecord{
		ID:               p.ID,
		Asset:            p.Asset,
		BuyVenue:         p.BuyVenue,
		SellVenue:        p.SellVenue,
		Volume:           p.Volume,
		BuyPrice:         p.BuyPrice,
		SellPrice:        p.SellPrice,
		ExpectedFiatCost: p.ExpectedFiatCost,
		Spread:           p.Spread,
		Status:           o.Status,
		Reason:           o.Reason,
		StartedAt:        o.StartedAt,
		CompletedAt:      o.CompletedAt,
	}
	if err := e.trades.Create(ctx, rec); err != nil {
		e.logger.Warn("trade record write failed",
			slog.String("proposal_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) notifyOutcome(ctx context.Context, p domain.TradeProposal, o domain.TradeOutcome) {
	switch o.Status {
	case domain.TradeCompleted:
		e.notify(ctx, notify.EventTradeCompleted, "Trade completed",
			fmt.Sprintf("bought %.6f %s on %s, sold on %s, expected profit %.0f",
				p.Volume, p.Asset, p.BuyVenue, p.SellVenue, p.Spread*p.Volume))
	case domain.TradePartiallyFilled:
		e.notify(ctx, notify.EventPartialFill, "UNHEDGED POSITION",
			fmt.Sprintf("bought %.6f %s on %s but the sell on %s failed: %s. Manual intervention required.",
				p.Volume, p.Asset, p.BuyVenue, p.SellVenue, o.Reason))
	case domain.TradeAborted:
		e.logger.Info("trade aborted",
			slog.String("proposal_id", p.ID),
			slog.String("reason", o.Reason),
		)
	}
}

func (e *Engine) notifyHalt(ctx context.Context, v risk.Valuation) {
	e.notify(ctx, notify.EventHalted, "TRADING HALTED",
		fmt.Sprintf("total valuation %.0f fell below the solvency floor; the engine has stopped", v.Total))
}

func (e *Engine) notify(ctx context.Context, event, title, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, event, title, message); err != nil {
		e.logger.Warn("notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
