// Package report renders the session's persisted trade export and terminal
// summaries.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"arbsim/internal/model"
)

var csvHeader = []string{
	"ts", "buy_venue", "sell_venue",
	"buy_price", "sell_price",
	"usd_spent", "xrp_bought",
	"fee_usd_est", "pnl_usd",
}

// WriteTradesCSV writes one row per executed trade, in execution order.
func WriteTradesCSV(w io.Writer, trades []model.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			t.Ts.Format(time.RFC3339),
			t.BuyVenue,
			t.SellVenue,
			formatFloat(t.BuyPrice),
			formatFloat(t.SellPrice),
			formatFloat(t.USDSpent),
			formatFloat(t.XRPBought),
			formatFloat(t.FeeUSDEst),
			formatFloat(t.PnLUSD),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// PrintSummary prints the session totals and final balances.
func PrintSummary(w io.Writer, mode string, trades []model.Trade, totalPnL float64, balances map[string]model.VenueBalance) {
	fmt.Fprintf(w, "\n=== SESSION SUMMARY ===\n")
	fmt.Fprintf(w, "Mode: %s\n", mode)
	fmt.Fprintf(w, "Trades executed: %d\n", len(trades))
	fmt.Fprintf(w, "Total P/L (USD): %.4f\n", totalPnL)
	fmt.Fprintln(w, "Final balances:")

	venues := make([]string, 0, len(balances))
	for v := range balances {
		venues = append(venues, v)
	}
	sort.Strings(venues)
	for _, v := range venues {
		bal := balances[v]
		fmt.Fprintf(w, "  %s: USD=%.4f, XRP=%.6f\n", v, bal.USD, bal.XRP)
	}
}

// PrintEndOfDayTable prints one line per executed trade plus totals.
func PrintEndOfDayTable(w io.Writer, trades []model.Trade) {
	if len(trades) == 0 {
		fmt.Fprintln(w, "\nNo trades executed today.")
		return
	}

	fmt.Fprintln(w, "\n=== END-OF-DAY TRADE REPORT ===")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Time\tBuy\tSell\tBuyPx\tSellPx\tUSD\tXRP\tFee\tPnL")
	for _, t := range trades {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.6f\t%.6f\t%.2f\t%.6f\t%.4f\t%.4f\n",
			t.Ts.Format("15:04:05"),
			t.BuyVenue,
			t.SellVenue,
			t.BuyPrice,
			t.SellPrice,
			t.USDSpent,
			t.XRPBought,
			t.FeeUSDEst,
			t.PnLUSD,
		)
	}
	tw.Flush()

	var total float64
	for _, t := range trades {
		total += t.PnLUSD
	}
	fmt.Fprintf(w, "Trades: %d\n", len(trades))
	fmt.Fprintf(w, "Total P/L (USD): %.4f\n", total)
	fmt.Fprintf(w, "Avg P/L per trade (USD): %.4f\n", total/float64(len(trades)))
}
