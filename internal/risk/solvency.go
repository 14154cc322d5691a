// Package risk implements the solvency guard: the bot's only kill switch.
package risk

import (
	"log/slog"
	"sync"

	"github.com/akifumi-dev/crossarb/internal/domain"
)

// Valuation is the bot's total holdings revalued in the settlement currency.
// Base currency is marked at each venue's own best bid.
type Valuation struct {
	Total    float64
	Fiat     float64
	PerVenue map[domain.Venue]float64
}

// Value revalues the pair's balances. Pure function of its input.
func Value(pair domain.SnapshotPair) Valuation {
	v := Valuation{PerVenue: make(map[domain.Venue]float64, 2)}
	for _, side := range []struct {
		bal    domain.BalanceSnapshot
		ticker domain.TickerSnapshot
	}{
		{pair.BalanceA, pair.A},
		{pair.BalanceB, pair.B},
	} {
		total := side.bal.FiatAmount + side.bal.BaseAmount*side.ticker.BestBidPrice
		v.PerVenue[side.bal.Venue] = total
		v.Total += total
		v.Fiat += side.bal.FiatAmount
	}
	return v
}

// SolvencyGuard halts the engine permanently when total valuation drops below
// the configured floor. The transition is one-way: once halted, the guard
// reports halted forever and the process is expected to stop.
type SolvencyGuard struct {
	floor  float64
	logger *slog.Logger

	mu     sync.Mutex
	halted bool
}

// NewSolvencyGuard creates a guard with the given valuation floor in the
// settlement currency.
func NewSolvencyGuard(floor float64, logger *slog.Logger) *SolvencyGuard {
	return &SolvencyGuard{
		floor:  floor,
		logger: logger.With(slog.String("component", "solvency_guard")),
	}
}

// Check evaluates the pair's valuation against the floor. It returns the
// valuation and ErrHalted when the guard is (or becomes) tripped.
func (g *SolvencyGuard) Check(pair domain.SnapshotPair) (Valuation, error) {
	v := Value(pair)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.halted {
		return v, domain.ErrHalted
	}
	if v.Total < g.floor {
		g.halted = true
		g.logger.Error("total valuation fell below solvency floor, halting",
			slog.Float64("total", v.Total),
			slog.Float64("floor", g.floor),
		)
		return v, domain.ErrHalted
	}
	return v, nil
}

// Halted reports whether the guard has tripped.
func (g *SolvencyGuard) Halted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.halted
}
