package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"macdtrader/internal/domain"
	"macdtrader/internal/report"
	"macdtrader/internal/store"
	"macdtrader/internal/strategy"
)

type runOptions struct {
	budget, quantity float64
	buy, sell        float64
	divisible        bool
	currency         string

	source   string
	csvPath  string
	symbol   string
	dateCol  int
	priceCol int

	export  string
	trades  bool
	buyGrid []float64
	workers int
}

func newRunCmd(a *app) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Backtest the MACD crossover on one price series",
		Long: `Backtest the MACD crossover on one price series.

Flags override the backtest and source sections of the config.

Examples:
  # All-in/all-out with whole units
  macdtrader run --csv data.csv --price-col 1

  # Half of the cash on every buy, fractional units
  macdtrader run --csv data.csv --buy 0.5 --divisible --export series.csv

  # Compare several buying multipliers
  macdtrader run --csv data.csv --buy-grid 0.25,0.5,1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.apply(cmd, a)
			return o.run(cmd.Context(), cmd.OutOrStdout(), a)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&o.budget, "budget", 0, "starting budget")
	f.Float64Var(&o.quantity, "quantity", 0, "starting quantity of the asset")
	f.Float64Var(&o.buy, "buy", 0, "fraction of cash spent on each buy, in (0,1]")
	f.Float64Var(&o.sell, "sell", 0, "fraction of the holding sold on each sell, in (0,1]")
	f.BoolVar(&o.divisible, "divisible", false, "allow fractional quantities")
	f.StringVar(&o.currency, "currency", "", "currency label of the report")
	f.StringVar(&o.source, "source", "", "price source: csv, parquet or sqlite")
	f.StringVar(&o.csvPath, "csv", "", "CSV price file (implies --source csv)")
	f.StringVar(&o.symbol, "symbol", "", "symbol of the series")
	f.IntVar(&o.dateCol, "date-col", 0, "zero-based date column of the CSV")
	f.IntVar(&o.priceCol, "price-col", 0, "zero-based price column of the CSV")
	f.StringVar(&o.export, "export", "", "write date,price,macd,signal,side CSV to this file")
	f.BoolVar(&o.trades, "trades", true, "print the trade table")
	f.Float64SliceVar(&o.buyGrid, "buy-grid", nil, "run once per buying multiplier and print a comparison")
	f.IntVar(&o.workers, "workers", 4, "concurrent runs for --buy-grid")
	return cmd
}

// apply copies explicitly set flags over the loaded config.
func (o *runOptions) apply(cmd *cobra.Command, a *app) {
	f := cmd.Flags()
	bt, src := &a.cfg.Backtest, &a.cfg.Source
	if f.Changed("budget") {
		bt.StartingBudget = o.budget
	}
	if f.Changed("quantity") {
		bt.StartingQuantity = o.quantity
	}
	if f.Changed("buy") {
		bt.BuyingMultiplier = o.buy
	}
	if f.Changed("sell") {
		bt.SellingMultiplier = o.sell
	}
	if f.Changed("divisible") {
		bt.Divisible = o.divisible
	}
	if f.Changed("currency") {
		bt.Currency = o.currency
	}
	if f.Changed("source") {
		src.Kind = o.source
	}
	if f.Changed("csv") {
		src.Kind = "csv"
		src.Path = o.csvPath
	}
	if f.Changed("symbol") {
		src.Symbol = o.symbol
	}
	if f.Changed("date-col") {
		src.DateColumn = o.dateCol
	}
	if f.Changed("price-col") {
		src.PriceColumn = o.priceCol
	}
}

func (o *runOptions) run(ctx context.Context, out io.Writer, a *app) error {
	series, closeStore, err := loadSeries(ctx, a)
	defer closeStore()
	if err != nil {
		return err
	}

	bt, err := a.newBacktester(nil)
	if err != nil {
		return err
	}
	settings := a.cfg.Backtest.Settings()

	if len(o.buyGrid) > 0 {
		return o.sweep(ctx, out, a, bt, series, settings)
	}

	res, err := bt.RunSeries(ctx, a.cfg.Backtest.Strategy, series, settings)
	if err != nil {
		return err
	}
	if o.trades {
		if err := report.Trades(out, res); err != nil {
			return err
		}
	}
	if err := report.Summary(out, res); err != nil {
		return err
	}

	if o.export != "" {
		f, err := os.Create(o.export)
		if err != nil {
			return err
		}
		if err := report.WriteSeriesCSV(f, res); err != nil {
			f.Close()
			return fmt.Errorf("exporting %s: %w", o.export, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		a.log.Info("series exported", "path", o.export, "bars", res.Series.Len())
	}
	return nil
}

func (o *runOptions) sweep(ctx context.Context, out io.Writer, a *app, bt *strategy.Backtester, series domain.PriceSeries, base strategy.Settings) error {
	grid := make([]strategy.Settings, len(o.buyGrid))
	for i, m := range o.buyGrid {
		grid[i] = base
		grid[i].BuyingMultiplier = m
	}

	results, err := bt.Sweep(ctx, a.cfg.Backtest.Strategy, series, grid, o.workers)
	for i, res := range results {
		if res == nil {
			fmt.Fprintf(out, "buy %s: failed\n", report.FormatQuantity(o.buyGrid[i]))
			continue
		}
		fmt.Fprintf(out, "buy %s: ", report.FormatQuantity(o.buyGrid[i]))
		if err := report.Summary(out, res); err != nil {
			return err
		}
	}
	return err
}

// loadSeries reads the configured source. The returned func closes any store
// that was opened.
func loadSeries(ctx context.Context, a *app) (domain.PriceSeries, func() error, error) {
	src := a.cfg.Source
	noop := func() error { return nil }

	if src.Kind == "csv" {
		if src.Path == "" {
			return domain.PriceSeries{}, noop, fmt.Errorf("csv source needs a path: %w", domain.ErrInvalidConfig)
		}
		symbol := src.Symbol
		if symbol == "" {
			symbol = "CSV"
		}
		series, err := store.NewCSVFile(src.Path, symbol, src.DateColumn, src.PriceColumn).ReadSeries(ctx)
		return series, noop, err
	}

	if src.Symbol == "" {
		return domain.PriceSeries{}, noop, fmt.Errorf("%s source needs a symbol: %w", src.Kind, domain.ErrInvalidConfig)
	}
	field, err := src.Field()
	if err != nil {
		return domain.PriceSeries{}, noop, err
	}
	start, end, err := src.Window(time.Now())
	if err != nil {
		return domain.PriceSeries{}, noop, err
	}
	bs, closeStore, err := a.openStore(src.Kind)
	if err != nil {
		return domain.PriceSeries{}, noop, err
	}
	series, err := (&store.BarSource{
		Store:  bs,
		Symbol: src.Symbol,
		Market: src.Market,
		Start:  start,
		End:    end,
		Field:  field,
	}).ReadSeries(ctx)
	return series, closeStore, err
}
