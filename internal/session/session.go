// Package session drives the paper-trading loop: repeated engine cycles
// gated by cancellation and, in live mode, the trading window.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"arbsim/internal/config"
	"arbsim/internal/database"
	"arbsim/internal/engine"
	"arbsim/internal/eventlog"
	"arbsim/internal/ledger"
	"arbsim/internal/model"
	"arbsim/internal/report"
)

// State is the session lifecycle phase.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateStopping
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateEnded:
		return "ENDED"
	}
	return "UNKNOWN"
}

// Session owns one run of the bot from start record to final report.
type Session struct {
	logger *slog.Logger
	events *eventlog.Log
	eng    *engine.Engine
	book   *ledger.Ledger
	cfg    *config.Config
	repo   database.Repository
	out    io.Writer
	clock  func() time.Time

	loc        *time.Location
	start, end TimeOfDay
	state      State
}

// New validates the window settings and assembles a session. The repository
// is optional; a nil clock means wall-clock time.
func New(logger *slog.Logger, events *eventlog.Log, eng *engine.Engine, book *ledger.Ledger, cfg *config.Config, repo database.Repository, out io.Writer, clock func() time.Time) (*Session, error) {
	start, err := ParseTimeOfDay(cfg.Window.Start)
	if err != nil {
		return nil, fmt.Errorf("window start: %w", err)
	}
	end, err := ParseTimeOfDay(cfg.Window.End)
	if err != nil {
		return nil, fmt.Errorf("window end: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &Session{
		logger: logger,
		events: events,
		eng:    eng,
		book:   book,
		cfg:    cfg,
		repo:   repo,
		out:    out,
		clock:  clock,
		loc:    loc,
		start:  start,
		end:    end,
	}, nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State { return s.state }

// Run executes the session until ctx is cancelled or, in live mode, the
// trading window closes. The end record, CSV export and summary are always
// produced, even for a zero-trade session.
func (s *Session) Run(ctx context.Context) error {
	s.state = StateStarting
	s.events.Start(s.cfg, s.book.Balances())

	live := s.cfg.Session.Mode == config.ModeLive
	if live && !s.inWindow() {
		fmt.Fprintf(s.out, "[%s] Outside trading window (%s -> %s). Live mode will not trade.\n",
			s.now().Format("15:04:05"), s.cfg.Window.Start, s.cfg.Window.End)
	} else {
		s.state = StateRunning
		s.loop(ctx, live)
		s.state = StateStopping
	}

	s.state = StateEnded
	s.finish()
	return nil
}

func (s *Session) now() time.Time {
	return s.clock().In(s.loc)
}

func (s *Session) inWindow() bool {
	return InWindow(s.start, s.end, s.now())
}

func (s *Session) loop(ctx context.Context, live bool) {
	for ctx.Err() == nil && (!live || s.inWindow()) {
		dec, err := s.eng.Step(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				// Cancelled mid-fetch, not a feed failure.
				return
			}
			s.events.PriceError(err)
			s.logger.Error("price fetch failed", "error", err)
		case dec.Skipped:
			s.events.Skip(dec.SkipReason, dec.BuyQuote.Venue, dec.SellQuote.Venue)
			s.printStatus(dec)
		case dec.Traded:
			s.events.Trade(s.cfg.Session.Mode, *dec.Trade, s.book.Balances())
			if s.repo != nil {
				if err := s.repo.LogTrade(ctx, *dec.Trade); err != nil {
					s.logger.Error("failed to persist trade", "error", err)
				}
			}
			s.printStatus(dec)
		default:
			s.printStatus(dec)
		}

		if !s.sleep(ctx) {
			return
		}
	}
}

// sleep waits one poll interval; a cancellation cuts it short.
func (s *Session) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.cfg.Session.PollInterval()):
		return true
	}
}

func (s *Session) printStatus(dec model.EdgeDecision) {
	fmt.Fprintf(s.out, "[%s] %s=%.6f | %s=%.6f | Buy %s @ %.6f -> Sell %s @ %.6f | edge=%.3f%%   \r",
		s.now().Format("15:04:05"),
		dec.BuyQuote.Venue, dec.BuyQuote.Price,
		dec.SellQuote.Venue, dec.SellQuote.Price,
		dec.BuyQuote.Venue, dec.BuyQuote.Price,
		dec.SellQuote.Venue, dec.SellQuote.Price,
		dec.Edge*100,
	)
}

func (s *Session) finish() {
	trades := s.eng.Trades()
	totalPnL := s.eng.TotalPnL()

	s.events.End(s.cfg.Session.Mode, len(trades), totalPnL, s.book.Balances())

	if err := s.writeCSV(trades); err != nil {
		s.logger.Error("failed to write trades CSV", "error", err)
	}

	report.PrintSummary(s.out, s.cfg.Session.Mode, trades, totalPnL, s.book.Balances())
	report.PrintEndOfDayTable(s.out, trades)

	fmt.Fprintf(s.out, "\nLogfile written to: %s\n", s.cfg.Output.LogFile)
	fmt.Fprintf(s.out, "CSV written to:     %s\n", s.cfg.Output.CSVFile)
}

func (s *Session) writeCSV(trades []model.Trade) error {
	f, err := os.Create(s.cfg.Output.CSVFile)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.WriteTradesCSV(f, trades)
}
