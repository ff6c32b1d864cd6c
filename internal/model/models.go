package model

import "time"

// PriceQuote represents a single price observation from a venue.
type PriceQuote struct {
	Venue string
	Price float64
	Ts    time.Time
}

// VenueBalance holds the simulated funds parked at one venue. Both fields
// stay non-negative; only the ledger mutates them.
type VenueBalance struct {
	USD float64
	XRP float64
}

// Trade represents a completed round-trip arbitrage to be logged.
type Trade struct {
	ID        int64     `db:"id"`
	Ts        time.Time `db:"ts"`
	BuyVenue  string    `db:"buy_venue"`
	SellVenue string    `db:"sell_venue"`
	BuyPrice  float64   `db:"buy_price"`
	SellPrice float64   `db:"sell_price"`
	USDSpent  float64   `db:"usd_spent"`
	XRPBought float64   `db:"xrp_bought"`
	// FeeUSDEst is computed from the trade size before any buy-leg clamp,
	// so it can diverge slightly from the fees actually charged.
	FeeUSDEst float64 `db:"fee_usd_est"`
	PnLUSD    float64 `db:"pnl_usd"`
}

// EdgeDecision is the outcome of one poll cycle. It only drives display
// and logging; nothing persists it.
type EdgeDecision struct {
	BuyQuote   PriceQuote
	SellQuote  PriceQuote
	Edge       float64
	Traded     bool
	Trade      *Trade
	Skipped    bool
	SkipReason string
}
