package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"macdtrader/internal/domain"
	"macdtrader/internal/indicator"
	"macdtrader/internal/strategy"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "macdtrader-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}
	return tmpFile.Name()
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "SQLITE_PATH", "LOG_LEVEL", "ALPACA_API_KEY", "ALPACA_API_SECRET",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "ALPACA_DATA_URL", "MACD_CURRENCY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
storage:
  data_dir: "/tmp/macd/data"
  sqlite_path: "/tmp/macd/bars.db"
logging:
  level: "debug"
  format: "text"
source:
  kind: "parquet"
  symbol: "AAPL"
  price_field: "open"
  start: "2020-01-01"
  end: "2023-12-31"
indicator:
  fast_period: 8
  slow_period: 21
  signal_period: 5
backtest:
  starting_budget: 5000
  starting_quantity: 2.5
  buying_multiplier: 0.5
  selling_multiplier: 0.25
  divisible: true
  currency: "EUR"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
server:
  grpc_port: 6000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/macd/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/macd/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/macd/bars.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/macd/bars.db")
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want debug/text", cfg.Logging)
	}

	// -- Source --
	if cfg.Source.Kind != "parquet" || cfg.Source.Symbol != "AAPL" {
		t.Errorf("Source = %+v", cfg.Source)
	}
	// Unset keys keep their defaults.
	if cfg.Source.Market != "us" || cfg.Source.PriceColumn != 1 {
		t.Errorf("Source defaults lost: %+v", cfg.Source)
	}

	// -- Indicator --
	want := indicator.Params{Fast: 8, Slow: 21, Signal: 5}
	if got := cfg.Indicator.Params(); got != want {
		t.Errorf("Indicator.Params() = %+v, want %+v", got, want)
	}

	// -- Backtest --
	s := cfg.Backtest.Settings()
	if s.StartingBudget != 5000 || s.StartingQuantity != 2.5 || s.BuyingMultiplier != 0.5 ||
		s.SellingMultiplier != 0.25 || !s.Divisible || s.Currency != "EUR" {
		t.Errorf("Backtest.Settings() = %+v", s)
	}
	if cfg.Backtest.Strategy != "macd-cross" {
		t.Errorf("Backtest.Strategy = %q, want default macd-cross", cfg.Backtest.Strategy)
	}

	// -- Alpaca / Server --
	if cfg.Alpaca.APIKey != "test-key" || cfg.Alpaca.Feed != "sip" {
		t.Errorf("Alpaca = %+v", cfg.Alpaca)
	}
	if cfg.Server.GRPCPort != 6000 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server = %+v", cfg.Server)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if got := cfg.Indicator.Params(); got != indicator.DefaultParams() {
		t.Errorf("Indicator.Params() = %+v, want defaults", got)
	}
	if got := cfg.Backtest.Settings(); got != strategy.DefaultSettings() {
		t.Errorf("Backtest.Settings() = %+v, want defaults", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/macdtrader.yaml"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) err = %v, want ErrNotExist", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
backtest:
  currency: "USD"
`)

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("MACD_CURRENCY", "PLN")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Backtest.Currency != "PLN" {
		t.Errorf("Backtest.Currency = %q, want %q (env override)", cfg.Backtest.Currency, "PLN")
	}

	// APCA_* wins over ALPACA_*.
	t.Setenv("APCA_API_KEY_ID", "apca-key")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Alpaca.APIKey != "apca-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "apca-key")
	}
}

func TestSourceField(t *testing.T) {
	tests := []struct {
		in   string
		want domain.PriceField
		err  bool
	}{
		{"", domain.PriceFieldClose, false},
		{"close", domain.PriceFieldClose, false},
		{"Open", domain.PriceFieldOpen, false},
		{"vwap", "", true},
	}
	for _, tt := range tests {
		got, err := Source{PriceField: tt.in}.Field()
		if (err != nil) != tt.err {
			t.Errorf("Field(%q) err = %v, want err=%v", tt.in, err, tt.err)
		}
		if got != tt.want {
			t.Errorf("Field(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSourceWindow(t *testing.T) {
	now := time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC)

	start, end, err := Source{Start: "2021-03-01"}.Window(now)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if !start.Equal(time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(now) {
		t.Errorf("Window = %v..%v", start, end)
	}

	for _, s := range []Source{
		{Start: "03/01/2021"},
		{Start: "2021-01-01", End: "soon"},
		{Start: "2022-01-01", End: "2021-01-01"},
	} {
		if _, _, err := s.Window(now); !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("Window(%+v) err = %v, want ErrInvalidConfig", s, err)
		}
	}
}

func TestLoadShippedConfig(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("../../config/macdtrader.yaml")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if got := cfg.Indicator.Params(); got != indicator.DefaultParams() {
		t.Errorf("Indicator.Params() = %+v, want defaults", got)
	}
	if err := cfg.Indicator.Params().Validate(); err != nil {
		t.Errorf("shipped indicator params invalid: %v", err)
	}
	if err := cfg.Backtest.Settings().Validate(); err != nil {
		t.Errorf("shipped backtest settings invalid: %v", err)
	}
	if cfg.Alpaca.RateLimitPerMin != 200 || cfg.Server.GRPCPort != 50051 {
		t.Errorf("Alpaca/Server = %+v / %+v", cfg.Alpaca, cfg.Server)
	}
}
