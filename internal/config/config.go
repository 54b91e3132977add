package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"macdtrader/internal/domain"
	"macdtrader/internal/indicator"
	"macdtrader/internal/strategy"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for macdtrader.
type Config struct {
	Storage   Storage   `yaml:"storage"`
	Logging   Logging   `yaml:"logging"`
	Source    Source    `yaml:"source"`
	Indicator Indicator `yaml:"indicator"`
	Backtest  Backtest  `yaml:"backtest"`
	Alpaca    Alpaca    `yaml:"alpaca"`
	Server    Server    `yaml:"server"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Source selects where the price series of a run comes from.
type Source struct {
	Kind        string `yaml:"kind"` // csv, parquet or sqlite
	Path        string `yaml:"path"`
	Symbol      string `yaml:"symbol"`
	Market      string `yaml:"market"`
	DateColumn  int    `yaml:"date_column"`
	PriceColumn int    `yaml:"price_column"`
	PriceField  string `yaml:"price_field"`
	Start       string `yaml:"start"`
	End         string `yaml:"end"`
}

// Indicator holds the MACD periods.
type Indicator struct {
	FastPeriod   int `yaml:"fast_period"`
	SlowPeriod   int `yaml:"slow_period"`
	SignalPeriod int `yaml:"signal_period"`
}

// Backtest holds the simulation settings of a run.
type Backtest struct {
	Strategy          string  `yaml:"strategy"`
	StartingBudget    float64 `yaml:"starting_budget"`
	StartingQuantity  float64 `yaml:"starting_quantity"`
	BuyingMultiplier  float64 `yaml:"buying_multiplier"`
	SellingMultiplier float64 `yaml:"selling_multiplier"`
	Divisible         bool    `yaml:"divisible"`
	Currency          string  `yaml:"currency"`
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`

	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

// Server holds network listener configuration.
type Server struct {
	Host        string `yaml:"host"`
	GRPCPort    int    `yaml:"grpc_port"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// Default returns the configuration used when no file is given.
func Default() *Config {
	p := indicator.DefaultParams()
	s := strategy.DefaultSettings()
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/macdtrader.db",
		},
		Logging: Logging{Level: "info", Format: "json"},
		Source: Source{
			Kind:        "csv",
			Market:      string(domain.MarketUS),
			DateColumn:  0,
			PriceColumn: 1,
			PriceField:  string(domain.PriceFieldClose),
			Start:       "2000-01-01",
		},
		Indicator: Indicator{
			FastPeriod:   p.Fast,
			SlowPeriod:   p.Slow,
			SignalPeriod: p.Signal,
		},
		Backtest: Backtest{
			Strategy:          "macd-cross",
			StartingBudget:    s.StartingBudget,
			StartingQuantity:  s.StartingQuantity,
			BuyingMultiplier:  s.BuyingMultiplier,
			SellingMultiplier: s.SellingMultiplier,
			Divisible:         s.Divisible,
			Currency:          s.Currency,
		},
		Alpaca: Alpaca{
			DataURL:         "https://data.alpaca.markets",
			Feed:            "sip",
			RateLimitPerMin: 200,
		},
		Server: Server{
			Host:        "127.0.0.1",
			GRPCPort:    50051,
			MetricsAddr: ":9464",
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path over the defaults
// and then applies environment variable overrides. An empty path yields the
// defaults with overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("MACD_CURRENCY"); v != "" {
		cfg.Backtest.Currency = v
	}

	// Standard Alpaca env vars take priority, as the SDK reads them too.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// Params returns the indicator periods as indicator.Params.
func (i Indicator) Params() indicator.Params {
	return indicator.Params{Fast: i.FastPeriod, Slow: i.SlowPeriod, Signal: i.SignalPeriod}
}

// Settings returns the simulation settings.
func (b Backtest) Settings() strategy.Settings {
	return strategy.Settings{
		StartingBudget:    b.StartingBudget,
		StartingQuantity:  b.StartingQuantity,
		BuyingMultiplier:  b.BuyingMultiplier,
		SellingMultiplier: b.SellingMultiplier,
		Divisible:         b.Divisible,
		Currency:          b.Currency,
	}
}

// Field returns the bar price field, defaulting to close.
func (s Source) Field() (domain.PriceField, error) {
	switch strings.ToLower(s.PriceField) {
	case "", string(domain.PriceFieldClose):
		return domain.PriceFieldClose, nil
	case string(domain.PriceFieldOpen):
		return domain.PriceFieldOpen, nil
	default:
		return "", fmt.Errorf("price_field %q: %w", s.PriceField, domain.ErrInvalidConfig)
	}
}

// Window parses the start and end dates. A missing end means now.
func (s Source) Window(now time.Time) (start, end time.Time, err error) {
	start = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	if s.Start != "" {
		if start, err = time.Parse("2006-01-02", s.Start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start %q: %w", s.Start, domain.ErrInvalidConfig)
		}
	}
	end = now.UTC()
	if s.End != "" {
		if end, err = time.Parse("2006-01-02", s.End); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end %q: %w", s.End, domain.ErrInvalidConfig)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("window %s..%s: %w", s.Start, s.End, domain.ErrInvalidConfig)
	}
	return start, end, nil
}
