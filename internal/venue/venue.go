package venue

import (
	"context"
	"fmt"
	"math"
)

// Venue is the single capability every price source provides: yield the
// current XRP-USD price or fail with a *FeedError.
type Venue interface {
	Name() string
	FetchPrice(ctx context.Context) (float64, error)
}

// Streamer is implemented by venues that maintain a background feed. The
// caller runs it for the lifetime of the session.
type Streamer interface {
	Run(ctx context.Context) error
}

// FeedError reports a venue price that could not be fetched or parsed.
type FeedError struct {
	Venue string
	Cause error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("%s price fetch failed: %v", e.Venue, e.Cause)
}

func (e *FeedError) Unwrap() error { return e.Cause }

func feedErrorf(venue, format string, args ...any) *FeedError {
	return &FeedError{Venue: venue, Cause: fmt.Errorf(format, args...)}
}

// validPrice rejects the values a venue must never return on success.
func validPrice(venue string, p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return feedErrorf(venue, "invalid price %v", p)
	}
	return nil
}
