package domain

import "time"

// TickerSnapshot is the top-of-book state of one asset on one venue at a
// single point in time. It is replaced wholesale on every successful fetch.
type TickerSnapshot struct {
	Venue         Venue
	Asset         Asset
	BestAskPrice  float64 // lowest price anyone is selling at, in JPY
	BestAskVolume float64 // volume available at the best ask
	BestBidPrice  float64 // highest price anyone is buying at, in JPY
	BestBidVolume float64 // volume available at the best bid
	FetchedAt     time.Time
}

// BalanceSnapshot is the available balance on one venue. It becomes stale the
// instant an order is placed against the venue and must then be refetched.
type BalanceSnapshot struct {
	Venue      Venue
	FiatAmount float64 // available JPY
	BaseAmount float64 // available base currency (e.g. BTC)
	FetchedAt  time.Time
}

// SnapshotPair joins the two venues' tickers and balances fetched within one
// polling cycle. A decision is only ever made on a pair from the same cycle.
type SnapshotPair struct {
	A, B               TickerSnapshot
	BalanceA, BalanceB BalanceSnapshot
}

// InventoryState is the base-currency holding per venue, derived each cycle
// from the balance snapshots. It drives the threshold asymmetry of the
// inventory skew policy.
type InventoryState struct {
	BaseHoldings map[Venue]float64
}

// Holding returns the base-currency amount held on v, zero if unknown.
func (s InventoryState) Holding(v Venue) float64 {
	return s.BaseHoldings[v]
}
