package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Modes the session can run in.
const (
	ModeSim  = "sim"
	ModeLive = "live"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file, environment variables
// and command-line flags.
type Config struct {
	Session  SessionConfig
	Window   WindowConfig
	Venues   VenuesConfig
	Output   OutputConfig
	Database DatabaseConfig
}

// SessionConfig defines the trading-session settings.
type SessionConfig struct {
	Mode            string  `mapstructure:"mode"`
	StartingCapital float64 `mapstructure:"starting_capital"`
	PollSeconds     float64 `mapstructure:"poll_interval_seconds"`
	TradeUSD        float64 `mapstructure:"trade_size_usd"`
	MinEdge         float64 `mapstructure:"min_edge_threshold"`
	BuyFeePct       float64 `mapstructure:"buy_fee_pct"`
	SellFeePct      float64 `mapstructure:"sell_fee_pct"`
}

// PollInterval returns the poll delay as a duration.
func (c SessionConfig) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds * float64(time.Second))
}

// WindowConfig defines the live-mode trading window.
type WindowConfig struct {
	Start    string `mapstructure:"start"`
	End      string `mapstructure:"end"`
	Timezone string `mapstructure:"timezone"`
}

// VenuesConfig selects the price sources for each mode.
type VenuesConfig struct {
	Live []string         `mapstructure:"live"`
	Sim  []SimVenueConfig `mapstructure:"sim"`
}

// SimVenueConfig parameterizes one simulated random-walk venue.
type SimVenueConfig struct {
	Name       string  `mapstructure:"name"`
	StartPrice float64 `mapstructure:"start_price"`
	Volatility float64 `mapstructure:"volatility"`
	VenueBias  float64 `mapstructure:"venue_bias"`
	Seed       uint64  `mapstructure:"seed"`
}

// OutputConfig defines the session's persisted artifacts.
type OutputConfig struct {
	LogFile string `mapstructure:"logfile"`
	CSVFile string `mapstructure:"csvfile"`
}

// DatabaseConfig defines the optional trade-repository connection settings.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session.starting_capital", 1000.0)
	v.SetDefault("session.poll_interval_seconds", 3.0)
	v.SetDefault("session.trade_size_usd", 100.0)
	v.SetDefault("session.min_edge_threshold", 0.003)
	v.SetDefault("session.buy_fee_pct", 0.0015)
	v.SetDefault("session.sell_fee_pct", 0.0015)
	v.SetDefault("window.start", "09:00")
	v.SetDefault("window.end", "16:50")
	v.SetDefault("window.timezone", "Africa/Johannesburg")
	v.SetDefault("venues.live", []string{"coinbase", "bitstamp"})
	v.SetDefault("venues.sim", []map[string]any{
		{"name": "SIM_A", "start_price": 1.30, "volatility": 0.003, "venue_bias": -0.0005, "seed": 1},
		{"name": "SIM_B", "start_price": 1.30, "volatility": 0.003, "venue_bias": 0.0005, "seed": 2},
	})
	v.SetDefault("output.logfile", "trades.log")
	v.SetDefault("output.csvfile", "trades.csv")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.port", 5432)
}

// LoadConfig reads configuration from file, environment variables and the
// given command-line flags. A missing config file is not an error; defaults
// and flags cover every setting.
func LoadConfig(path string, flags *pflag.FlagSet) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		if err = bindFlags(v, flags); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

// bindFlags maps the CLI flag surface onto config keys. Only flags the user
// actually set override file and default values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	byKey := map[string]string{
		"session.mode":                  "mode",
		"session.starting_capital":      "capital",
		"session.poll_interval_seconds": "poll",
		"session.trade_size_usd":        "trade-usd",
		"session.min_edge_threshold":    "min-edge",
		"session.buy_fee_pct":           "buy-fee",
		"session.sell_fee_pct":          "sell-fee",
		"window.start":                  "start",
		"window.end":                    "end",
		"output.logfile":                "logfile",
		"output.csvfile":                "csvfile",
	}
	for key, name := range byKey {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// Location resolves the trading-window timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Window.Timezone)
}

// Validate reports the first fatal configuration error, before the session
// enters its running state.
func (c *Config) Validate() error {
	switch c.Session.Mode {
	case ModeSim, ModeLive:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeSim, ModeLive, c.Session.Mode)
	}
	if c.Session.StartingCapital <= 0 {
		return fmt.Errorf("starting capital must be positive, got %v", c.Session.StartingCapital)
	}
	if c.Session.PollSeconds <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.Session.PollSeconds)
	}
	if c.Session.TradeUSD <= 0 {
		return fmt.Errorf("trade size must be positive, got %v", c.Session.TradeUSD)
	}
	if c.Session.MinEdge < 0 {
		return fmt.Errorf("min edge threshold must not be negative, got %v", c.Session.MinEdge)
	}
	if c.Session.BuyFeePct < 0 || c.Session.SellFeePct < 0 {
		return fmt.Errorf("fees must not be negative, got buy %v sell %v", c.Session.BuyFeePct, c.Session.SellFeePct)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Window.Timezone, err)
	}

	switch c.Session.Mode {
	case ModeLive:
		if len(c.Venues.Live) != 2 {
			return fmt.Errorf("live mode needs exactly 2 venues, got %d", len(c.Venues.Live))
		}
		if c.Venues.Live[0] == c.Venues.Live[1] {
			return fmt.Errorf("live venues must be distinct, got %q twice", c.Venues.Live[0])
		}
	case ModeSim:
		if len(c.Venues.Sim) != 2 {
			return fmt.Errorf("sim mode needs exactly 2 venues, got %d", len(c.Venues.Sim))
		}
		if c.Venues.Sim[0].Name == c.Venues.Sim[1].Name {
			return fmt.Errorf("sim venues must be distinct, got %q twice", c.Venues.Sim[0].Name)
		}
		for _, sv := range c.Venues.Sim {
			if sv.StartPrice <= 0 {
				return fmt.Errorf("sim venue %q start price must be positive, got %v", sv.Name, sv.StartPrice)
			}
		}
	}
	return nil
}
