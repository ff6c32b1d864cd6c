package venue

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

const (
	coinbaseSpotURL = "https://api.coinbase.com/v2/prices/XRP-USD/spot"
	bitstampTickURL = "https://www.bitstamp.net/api/v2/ticker/xrpusd/"

	userAgent = "arbsim/1.0"
)

// DefaultHTTPClient is the client the live spot venues use unless the caller
// supplies one.
var DefaultHTTPClient = &http.Client{Timeout: 8 * time.Second}

// CoinbaseVenue fetches the XRP-USD spot price from the Coinbase API.
type CoinbaseVenue struct {
	client *http.Client
	url    string
}

// NewCoinbaseVenue creates a CoinbaseVenue. A nil client uses DefaultHTTPClient.
func NewCoinbaseVenue(client *http.Client) *CoinbaseVenue {
	if client == nil {
		client = DefaultHTTPClient
	}
	return &CoinbaseVenue{client: client, url: coinbaseSpotURL}
}

func (v *CoinbaseVenue) Name() string { return "COINBASE" }

func (v *CoinbaseVenue) FetchPrice(ctx context.Context) (float64, error) {
	var body struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := getJSON(ctx, v.client, v.Name(), v.url, &body); err != nil {
		return 0, err
	}
	return parsePrice(v.Name(), body.Data.Amount)
}

// BitstampVenue fetches the last XRP-USD trade price from the Bitstamp ticker.
type BitstampVenue struct {
	client *http.Client
	url    string
}

// NewBitstampVenue creates a BitstampVenue. A nil client uses DefaultHTTPClient.
func NewBitstampVenue(client *http.Client) *BitstampVenue {
	if client == nil {
		client = DefaultHTTPClient
	}
	return &BitstampVenue{client: client, url: bitstampTickURL}
}

func (v *BitstampVenue) Name() string { return "BITSTAMP" }

func (v *BitstampVenue) FetchPrice(ctx context.Context) (float64, error) {
	var body struct {
		Last string `json:"last"`
	}
	if err := getJSON(ctx, v.client, v.Name(), v.url, &body); err != nil {
		return 0, err
	}
	return parsePrice(v.Name(), body.Last)
}

func getJSON(ctx context.Context, client *http.Client, venue, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &FeedError{Venue: venue, Cause: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return &FeedError{Venue: venue, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return feedErrorf(venue, "unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FeedError{Venue: venue, Cause: err}
	}
	return nil
}

func parsePrice(venue, s string) (float64, error) {
	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, feedErrorf(venue, "parse price %q: %v", s, err)
	}
	if err := validPrice(venue, p); err != nil {
		return 0, err
	}
	return p, nil
}
