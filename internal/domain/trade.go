package domain

import "time"

// TradeProposal is a sized two-leg trade produced by the opportunity detector
// and consumed exactly once by the execution coordinator. It is never
// persisted; only its outcome is.
type TradeProposal struct {
	ID               string
	Asset            Asset
	BuyVenue         Venue
	SellVenue        Venue
	Volume           float64 // base-currency units, always > 0 and <= per-trade cap
	BuyPrice         float64 // best ask on the buy venue at detection time
	SellPrice        float64 // best bid on the sell venue at detection time
	ExpectedFiatCost float64 // Volume * BuyPrice
	Spread           float64 // SellPrice - BuyPrice at detection time
	DetectedAt       time.Time
}

// TradeStatus is the outcome of one execution attempt.
type TradeStatus string

const (
	// TradeCompleted means both legs were placed successfully.
	TradeCompleted TradeStatus = "completed"
	// TradePartiallyFilled means the buy leg filled but the sell leg failed.
	// The position is unhedged; no compensating order is issued.
	TradePartiallyFilled TradeStatus = "partially_filled"
	// TradeAborted means no order was placed, or only the buy leg was
	// attempted and it failed. No exposure was created.
	TradeAborted TradeStatus = "aborted"
)

// TradeOutcome reports what Execute did with a proposal.
type TradeOutcome struct {
	Status      TradeStatus
	Reason      string // populated for Aborted and PartiallyFilled
	StartedAt   time.Time
	CompletedAt time.Time
}

// Unhedged reports whether the outcome left the bot holding an unhedged
// position on the bought asset.
func (o TradeOutcome) Unhedged() bool {
	return o.Status == TradePartiallyFilled
}

// TradeRecord is the persisted form of an executed (or attempted) proposal.
type TradeRecord struct {
	ID               string
	Asset            Asset
	BuyVenue         Venue
	SellVenue        Venue
	Volume           float64
	BuyPrice         float64
	SellPrice        float64
	ExpectedFiatCost float64
	Spread           float64
	Status           TradeStatus
	Reason           string
	StartedAt        time.Time
	CompletedAt      time.Time
}

// Decision is the per-cycle audit entry: the computed directional spreads,
// the thresholds in force, and what the detector chose to do.
type Decision struct {
	ID          string
	Asset       Asset
	SpreadABuy  float64 // sell-venue bid minus buy-venue ask, A-buy direction
	SpreadBBuy  float64
	ThresholdAB float64
	ThresholdBA float64
	Proposed    bool
	Reason      string // why no trade was proposed, when Proposed is false
	Valuation   float64
	DecidedAt   time.Time
}
