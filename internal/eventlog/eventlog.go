// Package eventlog persists the session's append-only event stream: one
// JSON record per line, one record per cycle outcome.
package eventlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"

	"arbsim/internal/config"
	"arbsim/internal/model"
)

// Log writes structured session events as JSON lines.
type Log struct {
	logger *slog.Logger
	closer io.Closer
}

// Open appends to the logfile at path, creating it if needed.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	l := NewWriter(f)
	l.closer = f
	return l, nil
}

// NewWriter builds a Log over an arbitrary writer.
func NewWriter(w io.Writer) *Log {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{ReplaceAttr: renameKeys})
	return &Log{logger: slog.New(h)}
}

// renameKeys maps slog's built-in keys onto the log line schema: time
// becomes ts, msg becomes event, and the level key is dropped.
func renameKeys(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.MessageKey:
		a.Key = "event"
	case slog.LevelKey:
		return slog.Attr{}
	}
	return a
}

// Start records session start with its parameters and initial balances.
func (l *Log) Start(cfg *config.Config, balances map[string]model.VenueBalance) {
	l.emit("START",
		slog.String("mode", cfg.Session.Mode),
		slog.Group("params",
			slog.Float64("capital", cfg.Session.StartingCapital),
			slog.Float64("poll_interval_seconds", cfg.Session.PollSeconds),
			slog.Float64("trade_size_usd", cfg.Session.TradeUSD),
			slog.Float64("min_edge_threshold", cfg.Session.MinEdge),
			slog.Float64("buy_fee_pct", cfg.Session.BuyFeePct),
			slog.Float64("sell_fee_pct", cfg.Session.SellFeePct),
			slog.String("window_start", cfg.Window.Start),
			slog.String("window_end", cfg.Window.End),
			slog.String("timezone", cfg.Window.Timezone),
		),
		balancesAttr("initial_balances", balances),
	)
}

// Trade records one executed trade together with the resulting balances.
func (l *Log) Trade(mode string, t model.Trade, balances map[string]model.VenueBalance) {
	l.emit("TRADE",
		slog.String("mode", mode),
		slog.Time("trade_ts", t.Ts),
		slog.String("buy_venue", t.BuyVenue),
		slog.String("sell_venue", t.SellVenue),
		slog.Float64("buy_price", t.BuyPrice),
		slog.Float64("sell_price", t.SellPrice),
		slog.Float64("usd_spent", t.USDSpent),
		slog.Float64("xrp_bought", t.XRPBought),
		slog.Float64("fee_usd_est", t.FeeUSDEst),
		slog.Float64("pnl_usd", t.PnLUSD),
		balancesAttr("balances", balances),
	)
}

// Skip records a cycle that saw an edge but did not trade.
func (l *Log) Skip(reason, buyVenue, sellVenue string) {
	l.emit("SKIP",
		slog.String("reason", reason),
		slog.String("buy_venue", buyVenue),
		slog.String("sell_venue", sellVenue),
	)
}

// PriceError records a failed price fetch.
func (l *Log) PriceError(err error) {
	l.emit("PRICE_ERROR", slog.String("error", err.Error()))
}

// End records session end with aggregate results and final balances.
func (l *Log) End(mode string, tradeCount int, totalPnL float64, balances map[string]model.VenueBalance) {
	l.emit("END",
		slog.String("mode", mode),
		slog.Int("trade_count", tradeCount),
		slog.Float64("total_pnl_usd", totalPnL),
		balancesAttr("final_balances", balances),
	)
}

// Close closes the underlying logfile, if any.
func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Log) emit(event string, attrs ...slog.Attr) {
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, event, attrs...)
}

func balancesAttr(key string, balances map[string]model.VenueBalance) slog.Attr {
	venues := make([]string, 0, len(balances))
	for v := range balances {
		venues = append(venues, v)
	}
	sort.Strings(venues)

	groups := make([]any, 0, len(venues))
	for _, v := range venues {
		bal := balances[v]
		groups = append(groups, slog.Group(v,
			slog.Float64("usd", bal.USD),
			slog.Float64("xrp", bal.XRP),
		))
	}
	return slog.Group(key, groups...)
}
