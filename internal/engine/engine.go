package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"arbsim/internal/config"
	"arbsim/internal/ledger"
	"arbsim/internal/model"
	"arbsim/internal/venue"
)

// liquidityFloorUSD is the buy-side USD balance at or below which a cycle is
// skipped rather than traded.
const liquidityFloorUSD = 1.0

// Engine holds the logic for identifying and executing one arbitrage cycle
// between its two venues.
type Engine struct {
	logger *slog.Logger
	book   *ledger.Ledger
	venues [2]venue.Venue
	cfg    config.SessionConfig
	clock  func() time.Time
	trades []model.Trade
}

// New creates a new Engine over exactly two venues and a ledger covering the
// same venue names.
func New(logger *slog.Logger, book *ledger.Ledger, a, b venue.Venue, cfg config.SessionConfig, clock func() time.Time) *Engine {
	return &Engine{
		logger: logger,
		book:   book,
		venues: [2]venue.Venue{a, b},
		cfg:    cfg,
		clock:  clock,
	}
}

// Step runs one decision cycle: fetch both prices, compute the edge and,
// when it clears the threshold and the buy side has liquidity, execute the
// simulated buy-transfer-sell round trip and record the trade. A feed
// failure aborts the cycle before any balance is touched.
func (e *Engine) Step(ctx context.Context) (model.EdgeDecision, error) {
	ts := e.clock()

	var quotes [2]model.PriceQuote
	g, gctx := errgroup.WithContext(ctx)
	for i := range e.venues {
		g.Go(func() error {
			v := e.venues[i]
			price, err := v.FetchPrice(gctx)
			if err != nil {
				return err
			}
			quotes[i] = model.PriceQuote{Venue: v.Name(), Price: price, Ts: ts}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.EdgeDecision{}, err
	}

	// Cheaper venue is the buy side. On equal prices the edge is zero and
	// no trade happens, so the order does not matter.
	buy, sell := quotes[0], quotes[1]
	if sell.Price < buy.Price {
		buy, sell = sell, buy
	}
	if buy.Price <= 0 {
		return model.EdgeDecision{}, fmt.Errorf("non-positive price %v from %s", buy.Price, buy.Venue)
	}

	edge := (sell.Price - buy.Price) / buy.Price
	dec := model.EdgeDecision{BuyQuote: buy, SellQuote: sell, Edge: edge}

	if edge <= e.cfg.MinEdge {
		return dec, nil
	}
	if e.book.Balance(buy.Venue).USD <= liquidityFloorUSD {
		dec.Skipped = true
		dec.SkipReason = "insufficient USD on buy venue"
		return dec, nil
	}

	usdToUse := math.Min(e.cfg.TradeUSD, e.book.Balance(buy.Venue).USD)

	xrpBought := e.book.Buy(buy.Venue, usdToUse, buy.Price, e.cfg.BuyFeePct)
	e.book.CreditAsset(sell.Venue, xrpBought)
	usdReceived := e.book.Sell(sell.Venue, xrpBought, sell.Price, e.cfg.SellFeePct)

	trade := model.Trade{
		Ts:        ts,
		BuyVenue:  buy.Venue,
		SellVenue: sell.Venue,
		BuyPrice:  buy.Price,
		SellPrice: sell.Price,
		USDSpent:  usdToUse,
		XRPBought: xrpBought,
		FeeUSDEst: usdToUse * (e.cfg.BuyFeePct + e.cfg.SellFeePct),
		PnLUSD:    usdReceived - usdToUse,
	}
	e.trades = append(e.trades, trade)

	e.logger.Info("trade executed",
		"buyVenue", trade.BuyVenue,
		"sellVenue", trade.SellVenue,
		"buyPrice", trade.BuyPrice,
		"sellPrice", trade.SellPrice,
		"usdSpent", trade.USDSpent,
		"pnl", trade.PnLUSD,
	)

	dec.Traded = true
	dec.Trade = &e.trades[len(e.trades)-1]
	return dec, nil
}

// Trades returns all executed trades in execution order.
func (e *Engine) Trades() []model.Trade {
	return e.trades
}

// TotalPnL sums the realized profit and loss over all executed trades.
func (e *Engine) TotalPnL() float64 {
	var total float64
	for _, t := range e.trades {
		total += t.PnLUSD
	}
	return total
}
