package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"macdtrader/internal/domain"
	"macdtrader/internal/store"
)

// Request selects the bars and account for a store-backed backtest.
type Request struct {
	Strategy   string
	Symbol     string
	Market     string
	Start, End time.Time
	PriceField domain.PriceField
	Settings   Settings
}

// Backtester replays historical bar data through a strategy and simulates
// the resulting trades.
type Backtester struct {
	store    store.BarStore
	registry *Registry
	log      *slog.Logger
}

// NewBacktester creates a Backtester that reads bars from the given store and
// looks up strategies in the provided registry. barStore may be nil when only
// RunSeries is used.
func NewBacktester(barStore store.BarStore, registry *Registry, log *slog.Logger) *Backtester {
	if log == nil {
		log = slog.Default()
	}
	return &Backtester{
		store:    barStore,
		registry: registry,
		log:      log.With("component", "backtest"),
	}
}

// Run reads the requested bars from the store and backtests them.
func (bt *Backtester) Run(ctx context.Context, req Request) (*Result, error) {
	if bt.store == nil {
		return nil, fmt.Errorf("backtest %s: no bar store configured", req.Symbol)
	}
	bars, err := bt.store.ReadBars(ctx, req.Symbol, req.Market, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("reading bars for %s: %w", req.Symbol, err)
	}
	series := domain.SeriesFromBars(req.Symbol, bars, req.PriceField)
	return bt.RunSeries(ctx, req.Strategy, series, req.Settings)
}

// RunSeries backtests an already loaded price series with the named strategy.
func (bt *Backtester) RunSeries(ctx context.Context, strategyName string, series domain.PriceSeries, s Settings) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	strat, ok := bt.registry.Get(strategyName)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (have %v): %w", strategyName, bt.registry.List(), domain.ErrInvalidConfig)
	}
	if series.Len() == 0 {
		bt.log.Warn("empty price series", "symbol", series.Symbol)
		return nil, fmt.Errorf("backtest %s: %w", series.Symbol, domain.ErrNoData)
	}

	lines, err := strat.Lines(ctx, series.Prices())
	if err != nil {
		return nil, fmt.Errorf("%s lines for %s: %w", strat.Name(), series.Symbol, err)
	}

	start := time.Now()
	res, err := Simulate(series, lines, s)
	if err != nil {
		return nil, err
	}

	if !res.WarmedUp {
		bt.log.Warn("series shorter than warm-up, no trades evaluated",
			"symbol", series.Symbol, "bars", series.Len(), "warmUp", lines.WarmUp)
	}
	for _, tr := range res.Trades {
		bt.log.Debug("trade",
			"symbol", series.Symbol,
			"side", tr.Side,
			"index", tr.Index,
			"date", tr.Timestamp.Format("2006-01-02"),
			"price", tr.Price,
			"qty", tr.Quantity,
		)
	}
	bt.log.Info("backtest complete",
		"strategy", strat.Name(),
		"symbol", series.Symbol,
		"bars", series.Len(),
		"trades", len(res.Trades),
		"finalCash", res.FinalCash,
		"profit", res.Profit,
		"profitPct", res.ProfitPercent,
		"elapsed", time.Since(start),
	)
	return res, nil
}
