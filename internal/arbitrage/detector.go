// Package arbitrage implements the opportunity detector and the inventory
// skew policy. Evaluate is a pure function of the snapshot pair and inventory
// state passed to it; it never touches the network or shared state.
package arbitrage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akifumi-dev/crossarb/internal/domain"
)

// Config holds the detector's sizing limits.
type Config struct {
	// PerTradeCap is the maximum volume of one proposal, in base units.
	PerTradeCap float64
	// MinLotSize is the smallest volume the venue pair can trade. Proposals
	// that would fall below it are rejected, never rounded up.
	MinLotSize float64
}

// Evaluation is the full result of one detector run: both directional
// spreads, the thresholds in force, and either a proposal or the reason no
// trade was taken. The engine logs it verbatim as the per-cycle audit record.
type Evaluation struct {
	SpreadABuy  float64 // B best bid minus A best ask: profit buying on A
	SpreadBBuy  float64 // A best bid minus B best ask: profit buying on B
	ThresholdAB float64 // threshold for the buy-on-A/sell-on-B direction
	ThresholdBA float64
	Proposal    *domain.TradeProposal // nil when no trade
	Reason      string                // populated when Proposal is nil
}

// Detector compares two venues' top-of-book snapshots and proposes a sized
// two-leg trade when one direction's spread clears its skewed threshold.
type Detector struct {
	cfg  Config
	skew *SkewPolicy
}

// NewDetector creates a detector with the given sizing limits and skew policy.
func NewDetector(cfg Config, skew *SkewPolicy) *Detector {
	return &Detector{cfg: cfg, skew: skew}
}

// Evaluate computes both directional spreads for the pair and returns a
// proposal for the first direction whose spread meets its threshold, or the
// reason no trade was proposed. Only one direction can pass: the two spreads
// sum to the negative of both venues' bid-ask spreads, so with positive
// thresholds they are never simultaneously above threshold.
func (d *Detector) Evaluate(pair domain.SnapshotPair, inv domain.InventoryState) Evaluation {
	a, b := pair.A, pair.B

	ev := Evaluation{
		SpreadABuy:  b.BestBidPrice - a.BestAskPrice,
		SpreadBBuy:  a.BestBidPrice - b.BestAskPrice,
		ThresholdAB: d.skew.Threshold(inv, a.Venue, b.Venue),
		ThresholdBA: d.skew.Threshold(inv, b.Venue, a.Venue),
	}

	if !a.Venue.Valid() || !b.Venue.Valid() || a.Venue == b.Venue {
		ev.Reason = "snapshot pair does not name two distinct venues"
		return ev
	}
	if a.Asset != b.Asset {
		ev.Reason = fmt.Sprintf("snapshot assets differ: %s vs %s", a.Asset, b.Asset)
		return ev
	}
	if !bookComplete(a) || !bookComplete(b) {
		ev.Reason = "incomplete top-of-book snapshot"
		return ev
	}

	switch {
	case ev.SpreadABuy >= ev.ThresholdAB:
		ev.Proposal, ev.Reason = d.size(a, b, ev.SpreadABuy)
	case ev.SpreadBBuy >= ev.ThresholdBA:
		ev.Proposal, ev.Reason = d.size(b, a, ev.SpreadBBuy)
	default:
		ev.Reason = "no direction clears its threshold"
	}
	return ev
}

// size builds the proposal for buying on buy and selling on sell. Volume is
// the smallest of the buy-side ask volume, the sell-side bid volume, and the
// per-trade cap; a volume below the minimum lot size rejects the trade.
func (d *Detector) size(buy, sell domain.TickerSnapshot, spread float64) (*domain.TradeProposal, string) {
	volume := buy.BestAskVolume
	if sell.BestBidVolume < volume {
		volume = sell.BestBidVolume
	}
	if d.cfg.PerTradeCap < volume {
		volume = d.cfg.PerTradeCap
	}
	if volume < d.cfg.MinLotSize {
		return nil, fmt.Sprintf("sized volume %.6f below minimum lot %.6f: %v",
			volume, d.cfg.MinLotSize, domain.ErrLotSizeTooSmall)
	}

	return &domain.TradeProposal{
		ID:               uuid.New().String(),
		Asset:            buy.Asset,
		BuyVenue:         buy.Venue,
		SellVenue:        sell.Venue,
		Volume:           volume,
		BuyPrice:         buy.BestAskPrice,
		SellPrice:        sell.BestBidPrice,
		ExpectedFiatCost: volume * buy.BestAskPrice,
		Spread:           spread,
		DetectedAt:       time.Now().UTC(),
	}, ""
}

func bookComplete(t domain.TickerSnapshot) bool {
	return t.BestAskPrice > 0 && t.BestBidPrice > 0 &&
		t.BestAskVolume > 0 && t.BestBidVolume > 0
}
