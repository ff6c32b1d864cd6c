package ledger

import (
	"math"

	"arbsim/internal/model"
)

// Ledger tracks the simulated USD and XRP balances of each venue. The venue
// set is fixed at construction; Buy, Sell and CreditAsset are the only
// mutators, and balances never go negative.
type Ledger struct {
	balances map[string]model.VenueBalance
}

// New splits the starting capital evenly across the given venues, all XRP
// balances starting at zero.
func New(venues []string, startingCapital float64) *Ledger {
	share := startingCapital / float64(len(venues))
	balances := make(map[string]model.VenueBalance, len(venues))
	for _, v := range venues {
		balances[v] = model.VenueBalance{USD: share}
	}
	return &Ledger{balances: balances}
}

// Balance returns the current balance of a venue.
func (l *Ledger) Balance(venue string) model.VenueBalance {
	return l.balances[venue]
}

// Balances returns a copy of all venue balances.
func (l *Ledger) Balances() map[string]model.VenueBalance {
	out := make(map[string]model.VenueBalance, len(l.balances))
	for k, v := range l.balances {
		out[k] = v
	}
	return out
}

// Buy spends USD plus a proportional fee to acquire XRP at the given price.
// When spend plus fee would exceed the venue's USD, the spend is clamped so
// that spend plus fee consumes the balance exactly. Returns the XRP acquired.
// A non-positive spend is a no-op.
func (l *Ledger) Buy(venue string, usdToSpend, price, feePct float64) float64 {
	if usdToSpend <= 0 {
		return 0
	}

	bal := l.balances[venue]
	fee := usdToSpend * feePct
	total := usdToSpend + fee

	if total > bal.USD {
		usdToSpend = math.Max(0, bal.USD/(1.0+feePct))
		fee = usdToSpend * feePct
		total = usdToSpend + fee
	}

	xrp := usdToSpend / price
	bal.USD -= total
	bal.XRP += xrp
	l.balances[venue] = bal
	return xrp
}

// Sell converts XRP back to USD at the given price, minus a proportional fee
// on the gross proceeds. The quantity is clamped to the venue's holdings; no
// short selling. Returns the net USD received. A non-positive quantity is a
// no-op.
func (l *Ledger) Sell(venue string, xrpToSell, price, feePct float64) float64 {
	if xrpToSell <= 0 {
		return 0
	}

	bal := l.balances[venue]
	if xrpToSell > bal.XRP {
		xrpToSell = bal.XRP
	}

	gross := xrpToSell * price
	fee := gross * feePct
	net := gross - fee
	bal.XRP -= xrpToSell
	bal.USD += net
	l.balances[venue] = bal
	return net
}

// CreditAsset moves bought XRP onto a venue. Cross-venue transfers are
// instantaneous: no settlement delay is modeled.
func (l *Ledger) CreditAsset(venue string, qty float64) {
	if qty <= 0 {
		return
	}
	bal := l.balances[venue]
	bal.XRP += qty
	l.balances[venue] = bal
}
