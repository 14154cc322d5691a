// Package domain defines the core types, interfaces, and error taxonomy shared
// across the arbitrage bot. It has no dependencies on other internal packages.
package domain

import "context"

// Venue identifies a trading venue. VenueInvalid is a sentinel meaning
// "no venue" and is never a valid order target.
type Venue string

const (
	VenueInvalid   Venue = ""
	VenueGMO       Venue = "gmo"
	VenueCoincheck Venue = "coincheck"
)

// KnownVenues lists every venue the bot can trade on.
var KnownVenues = []Venue{VenueGMO, VenueCoincheck}

// Valid reports whether v names a real venue.
func (v Venue) Valid() bool {
	for _, k := range KnownVenues {
		if v == k {
			return true
		}
	}
	return false
}

// Asset identifies a tradable cryptocurrency. Settlement is always in JPY.
type Asset string

const (
	AssetBTC Asset = "BTC"
	AssetETH Asset = "ETH"
)

// OrderSide indicates whether an order buys or sells the base asset.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// VenueClient is the uniform capability interface each venue implements.
// All methods are blocking network calls bounded by per-venue timeouts.
type VenueClient interface {
	// Venue returns the identifier of the venue this client talks to.
	Venue() Venue
	// FetchTicker returns the current top-of-book for the asset.
	FetchTicker(ctx context.Context, asset Asset) (TickerSnapshot, error)
	// FetchBalance returns the available JPY and base-currency balances.
	FetchBalance(ctx context.Context) (BalanceSnapshot, error)
	// PlaceMarketOrder submits a market order for volume units of the asset.
	PlaceMarketOrder(ctx context.Context, asset Asset, side OrderSide, volume float64) error
}
