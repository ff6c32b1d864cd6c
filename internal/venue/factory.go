package venue

import (
	"fmt"
	"log/slog"
	"net/http"
)

// NewLiveVenue creates a live price source by name. Stream-backed venues
// also implement Streamer and must be run by the caller.
func NewLiveVenue(name string, logger *slog.Logger, client *http.Client) (Venue, error) {
	switch name {
	case "coinbase":
		return NewCoinbaseVenue(client), nil
	case "bitstamp":
		return NewBitstampVenue(client), nil
	case "binance":
		return NewBinanceStreamVenue(logger), nil
	default:
		return nil, fmt.Errorf("unknown venue: %s", name)
	}
}
