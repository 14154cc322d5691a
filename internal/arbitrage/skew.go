package arbitrage

import "github.com/akifumi-dev/crossarb/internal/domain"

// SkewParams are the named breakpoints of the inventory skew policy. They are
// configuration, not architecture; every value can be overridden.
type SkewParams struct {
	// BaseThreshold is the spread (JPY) a direction must clear when
	// inventory is balanced. Must be > 0.
	BaseThreshold float64
	// SkewPremium is added to a direction's threshold when the buy venue
	// already holds HighWatermark or more of the base currency,
	// discouraging further accumulation there.
	SkewPremium float64
	// SkewDiscount is subtracted from a direction's threshold when the
	// sell venue holds HighWatermark or more, encouraging the excess to be
	// unwound. Must stay below BaseThreshold so thresholds remain positive.
	SkewDiscount float64
	// HighWatermark is the base-currency holding at or above which a venue
	// counts as overstocked.
	HighWatermark float64
}

// SkewPolicy biases the per-direction spread thresholds by current inventory:
// buying into an overstocked venue gets harder, selling out of it gets easier.
type SkewPolicy struct {
	params SkewParams
}

// NewSkewPolicy creates a policy from the given parameters. Parameters are
// assumed to have passed config validation (BaseThreshold > 0, 0 <=
// SkewDiscount < BaseThreshold, SkewPremium >= 0), which guarantees every
// threshold returned by Threshold is strictly positive.
func NewSkewPolicy(params SkewParams) *SkewPolicy {
	return &SkewPolicy{params: params}
}

// Threshold returns the spread threshold for the direction that buys on
// buyVenue and sells on sellVenue, given current inventory.
func (p *SkewPolicy) Threshold(inv domain.InventoryState, buyVenue, sellVenue domain.Venue) float64 {
	t := p.params.BaseThreshold
	if inv.Holding(buyVenue) >= p.params.HighWatermark {
		t += p.params.SkewPremium
	}
	if inv.Holding(sellVenue) >= p.params.HighWatermark {
		t -= p.params.SkewDiscount
	}
	return t
}
