package venue

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamVenue serves the most recent price seen on an exchange websocket
// ticker stream. Run maintains the stream in the background; FetchPrice
// reads the cache and fails while no fresh tick is available.
type StreamVenue struct {
	name   string
	wsURL  string
	logger *slog.Logger
	maxAge time.Duration

	mu     sync.RWMutex
	last   float64
	lastAt time.Time
}

// NewBinanceStreamVenue creates a venue backed by the Binance XRP-USDT
// ticker stream.
func NewBinanceStreamVenue(logger *slog.Logger) *StreamVenue {
	return &StreamVenue{
		name:   "BINANCE",
		wsURL:  "wss://stream.binance.com:9443/ws/xrpusdt@ticker",
		logger: logger,
		maxAge: 30 * time.Second,
	}
}

func (v *StreamVenue) Name() string { return v.name }

// FetchPrice returns the latest streamed price. It fails with a *FeedError
// until the first tick arrives or when the cached tick has gone stale.
func (v *StreamVenue) FetchPrice(_ context.Context) (float64, error) {
	v.mu.RLock()
	last, lastAt := v.last, v.lastAt
	v.mu.RUnlock()

	if lastAt.IsZero() {
		return 0, feedErrorf(v.name, "no tick received yet")
	}
	if age := time.Since(lastAt); age > v.maxAge {
		return 0, feedErrorf(v.name, "last tick is stale (%s old)", age.Round(time.Second))
	}
	if err := validPrice(v.name, last); err != nil {
		return 0, err
	}
	return last, nil
}

// Run connects to the websocket and keeps the price cache current until
// ctx is cancelled, reconnecting with capped exponential backoff.
func (v *StreamVenue) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			v.logger.Info("stream venue: context cancelled, shutting down", "venue", v.name)
			return nil
		default:
			v.logger.Info("stream venue: connecting", "venue", v.name, "url", v.wsURL, "backoff", backoff)
			c, _, err := websocket.DefaultDialer.Dial(v.wsURL, nil)
			if err != nil {
				v.logger.Error("stream venue: connection failed", "venue", v.name, "error", err)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoff):
					backoff *= 2
					if backoff > 16*time.Second {
						backoff = 16 * time.Second
					}
				}
				continue
			}

			// Reset backoff on successful connection
			backoff = time.Second
			v.logger.Info("stream venue: connected", "venue", v.name)

			v.readLoop(ctx, c)
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

// readLoop consumes ticker messages until the connection breaks or ctx is
// cancelled.
func (v *StreamVenue) readLoop(ctx context.Context, c *websocket.Conn) {
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			v.logger.Info("stream venue: context cancelled, closing connection", "venue", v.name)
			return
		default:
			_, message, err := c.ReadMessage()
			if err != nil {
				v.logger.Error("stream venue: failed to read message", "venue", v.name, "error", err)
				return
			}

			var ticker struct {
				Bid string `json:"b"`
				Ask string `json:"a"`
			}
			if err := json.Unmarshal(message, &ticker); err != nil {
				v.logger.Warn("stream venue: failed to parse message", "venue", v.name, "error", err)
				continue
			}
			if ticker.Bid == "" || ticker.Ask == "" {
				continue
			}

			bid, err := strconv.ParseFloat(ticker.Bid, 64)
			if err != nil {
				v.logger.Warn("stream venue: failed to parse bid price", "venue", v.name, "error", err)
				continue
			}
			ask, err := strconv.ParseFloat(ticker.Ask, 64)
			if err != nil {
				v.logger.Warn("stream venue: failed to parse ask price", "venue", v.name, "error", err)
				continue
			}

			mid := (bid + ask) / 2
			if validPrice(v.name, mid) != nil {
				continue
			}

			v.mu.Lock()
			v.last = mid
			v.lastAt = time.Now()
			v.mu.Unlock()
		}
	}
}
