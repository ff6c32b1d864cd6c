package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"arbsim/internal/config"
	"arbsim/internal/database"
	"arbsim/internal/engine"
	"arbsim/internal/eventlog"
	"arbsim/internal/ledger"
	"arbsim/internal/session"
	"arbsim/internal/venue"
)

func main() {
	fs := pflag.CommandLine
	fs.String("mode", "", `"sim" or "live" (prompted when omitted)`)
	fs.Float64("capital", 1000.0, "starting capital in USD, split across both venues")
	fs.Float64("poll", 3.0, "poll interval in seconds")
	fs.Float64("trade-usd", 100.0, "trade size in USD")
	fs.Float64("min-edge", 0.003, "minimum edge ratio to trade")
	fs.Float64("buy-fee", 0.0015, "buy-side fee as a fraction of spend")
	fs.Float64("sell-fee", 0.0015, "sell-side fee as a fraction of gross proceeds")
	fs.String("start", "09:00", "trading window start (HH:MM, local)")
	fs.String("end", "16:50", "trading window end (HH:MM, local)")
	fs.String("logfile", "trades.log", "append-only JSON event log")
	fs.String("csvfile", "trades.csv", "trade export CSV")
	configPath := fs.String("config", ".", "directory containing config.yaml")
	pflag.Parse()

	cfg, err := config.LoadConfig(*configPath, fs)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if cfg.Session.Mode == "" {
		cfg.Session.Mode = chooseMode(os.Stdin, os.Stdout)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, _ := cfg.Location()
	clock := func() time.Time { return time.Now().In(loc) }

	venues, err := buildVenues(ctx, &cfg, logger)
	if err != nil {
		log.Fatalf("cannot build venues: %v", err)
	}

	book := ledger.New([]string{venues[0].Name(), venues[1].Name()}, cfg.Session.StartingCapital)
	eng := engine.New(logger, book, venues[0], venues[1], cfg.Session, clock)

	events, err := eventlog.Open(cfg.Output.LogFile)
	if err != nil {
		log.Fatalf("cannot open logfile: %v", err)
	}
	defer events.Close()

	var repo database.Repository
	if cfg.Database.Enabled {
		pg, err := database.NewPostgresRepository(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("cannot connect to database: %v", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			log.Fatalf("cannot migrate database: %v", err)
		}
		defer pg.Close()
		repo = pg
	}

	sess, err := session.New(logger, events, eng, book, &cfg, repo, os.Stdout, clock)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	fmt.Println("=== XRP-USD Arbitrage Bot (Paper Trading) ===")
	fmt.Printf("Mode: %s\n", cfg.Session.Mode)
	fmt.Printf("Trading window (%s): %s -> %s\n", cfg.Window.Timezone, cfg.Window.Start, cfg.Window.End)
	fmt.Println("Press Ctrl+C to stop.")

	if err := sess.Run(ctx); err != nil {
		log.Fatalf("session failed: %v", err)
	}
}

// buildVenues creates the mode's two price sources. Stream-backed live
// venues are started here and stop with ctx.
func buildVenues(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([2]venue.Venue, error) {
	var venues [2]venue.Venue

	if cfg.Session.Mode == config.ModeLive {
		for i, name := range cfg.Venues.Live {
			v, err := venue.NewLiveVenue(name, logger, nil)
			if err != nil {
				return venues, err
			}
			if streamer, ok := v.(venue.Streamer); ok {
				go func() {
					if err := streamer.Run(ctx); err != nil {
						logger.Error("stream venue stopped", "venue", v.Name(), "error", err)
					}
				}()
			}
			venues[i] = v
		}
		return venues, nil
	}

	for i, sv := range cfg.Venues.Sim {
		venues[i] = venue.NewSimulatedVenue(sv.Name, sv.StartPrice, sv.Volatility, sv.VenueBias, sv.Seed)
	}
	return venues, nil
}

// chooseMode reproduces the interactive menu used when --mode is omitted.
func chooseMode(in io.Reader, out io.Writer) string {
	fmt.Fprintln(out, "Choose mode:")
	fmt.Fprintln(out, "  1) Simulated venues (random-walk prices)")
	fmt.Fprintln(out, "  2) Real-time venues via API (only trades inside window)")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Enter 1 or 2: ")
		if !scanner.Scan() {
			return config.ModeSim
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			return config.ModeSim
		case "2":
			return config.ModeLive
		default:
			fmt.Fprintln(out, "Invalid choice. Please enter 1 or 2.")
		}
	}
}
