package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"macdtrader/internal/config"
	"macdtrader/internal/store"
	"macdtrader/internal/strategy"
	"macdtrader/internal/strategy/builtins"
	"macdtrader/internal/util"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries state shared by all subcommands once the root has run.
type app struct {
	cfgPath  string
	logLevel string
	envFile  string

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "macdtrader",
		Short: "MACD crossover backtester",
		Long: `Backtest the MACD/SIGNAL crossover strategy on daily price series.

Prices come from a CSV file or from the local Parquet/SQLite bar stores,
which can be filled from Alpaca (fetch) or from CSV files (import).

Examples:
  # Backtest a CSV of dates and closing prices
  macdtrader run --csv prices.csv --price-col 4 --budget 10000

  # Download daily bars and backtest them from the Parquet store
  macdtrader fetch AAPL MSFT --start 2020-01-01
  macdtrader run --source parquet --symbol AAPL`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	defaultCfg := os.Getenv("MACDTRADER_CONFIG")
	root.PersistentFlags().StringVar(&a.cfgPath, "config", defaultCfg, "path to YAML config (env MACDTRADER_CONFIG)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		newRunCmd(a),
		newFetchCmd(a),
		newImportCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if a.envFile != "" {
		// Variables already in the environment win over the file.
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", a.envFile, err)
		}
	}

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	a.log = util.NewLogger(cfg.Logging.Level, cfg.Logging.Format).With("cmd", cmd.Name())
	util.SetDefault(a.log)
	return nil
}

// openStore opens the bar store of the given kind. csv falls back to parquet
// since CSV files are read-only sources.
func (a *app) openStore(kind string) (store.BarStore, func() error, error) {
	switch kind {
	case "sqlite":
		s, err := store.NewSQLiteStore(a.cfg.Storage.SQLitePath, a.cfg.Source.Market)
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", a.cfg.Storage.SQLitePath, err)
		}
		return s, s.Close, nil
	case "parquet", "csv", "":
		return store.NewParquetStore(a.cfg.Storage.DataDir, a.cfg.Source.Market), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", kind)
	}
}

// newBacktester registers the built-in strategies with the configured
// indicator periods.
func (a *app) newBacktester(bs store.BarStore) (*strategy.Backtester, error) {
	reg := strategy.NewRegistry()
	if err := builtins.Register(reg, a.cfg.Indicator.Params()); err != nil {
		return nil, err
	}
	return strategy.NewBacktester(bs, reg, a.log), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "macdtrader", version)
		},
	}
}
