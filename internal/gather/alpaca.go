package gather

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"macdtrader/internal/domain"
	"macdtrader/internal/store"
	"macdtrader/internal/util"
)

var _ Gatherer = (*DailyBarGatherer)(nil)

// barsClient is the part of the Alpaca market data client the gatherer uses.
type barsClient interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// DailyOptions configures a DailyBarGatherer.
type DailyOptions struct {
	Symbols   []string
	Range     DateRange
	Feed      string
	BatchSize int
	// Attempts is the number of tries per batch; retries back off from
	// RetryDelay.
	Attempts   int
	RetryDelay time.Duration
	// RateLimitPerMin caps API requests per minute; zero means unlimited.
	RateLimitPerMin int
}

// DailyBarGatherer downloads split- and dividend-adjusted daily bars for a
// fixed symbol list from the Alpaca market-data API into a BarStore.
type DailyBarGatherer struct {
	client  barsClient
	store   store.BarStore
	opts    DailyOptions
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewDailyBarGatherer creates a DailyBarGatherer using the given Alpaca
// credentials. An empty dataURL uses the SDK default.
func NewDailyBarGatherer(apiKey, apiSecret, dataURL string, s store.BarStore, opts DailyOptions, log *slog.Logger) *DailyBarGatherer {
	co := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		co.BaseURL = dataURL
	}
	return newDailyBarGatherer(marketdata.NewClient(co), s, opts, log)
}

func newDailyBarGatherer(c barsClient, s store.BarStore, opts DailyOptions, log *slog.Logger) *DailyBarGatherer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Feed == "" {
		opts.Feed = "sip"
	}
	if log == nil {
		log = slog.Default()
	}
	return &DailyBarGatherer{
		client:  c,
		store:   s,
		opts:    opts,
		limiter: util.NewRateLimiter(opts.RateLimitPerMin, 1),
		log:     log.With("gatherer", "alpaca-daily"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "alpaca-daily" }

// Run fetches bars in batches of symbols and writes each batch to the store.
// A batch that still fails after its retries aborts the run.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
	if len(g.opts.Symbols) == 0 {
		return fmt.Errorf("no symbols to fetch: %w", domain.ErrInvalidConfig)
	}
	if g.opts.Range.End.Before(g.opts.Range.Start) {
		return fmt.Errorf("range %s..%s: %w",
			g.opts.Range.Start.Format(time.DateOnly), g.opts.Range.End.Format(time.DateOnly), domain.ErrInvalidConfig)
	}

	symbols := make([]string, len(g.opts.Symbols))
	for i, s := range g.opts.Symbols {
		symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	g.log.Info("starting fetch",
		"symbols", len(symbols),
		"start", g.opts.Range.Start.Format(time.DateOnly),
		"end", g.opts.Range.End.Format(time.DateOnly),
	)

	var total int
	for i := 0; i < len(symbols); i += g.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := symbols[i:min(i+g.opts.BatchSize, len(symbols))]

		var bars []domain.Bar
		err := util.Retry(ctx, g.opts.Attempts, g.opts.RetryDelay, func(attempt int) error {
			var ferr error
			bars, ferr = g.fetchMultiBars(ctx, batch)
			if ferr != nil {
				g.log.Warn("batch fetch failed", "symbols", batch, "attempt", attempt, "error", ferr)
			}
			return ferr
		})
		if err != nil {
			return fmt.Errorf("fetching %v: %w", batch, err)
		}

		if err := g.store.WriteBars(ctx, bars); err != nil {
			return fmt.Errorf("writing bars: %w", err)
		}
		total += len(bars)
		g.log.Info("batch stored", "symbols", len(batch), "bars", len(bars))
	}

	g.log.Info("fetch complete", "bars", total)
	return nil
}

func (g *DailyBarGatherer) fetchMultiBars(ctx context.Context, symbols []string) ([]domain.Bar, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, util.Permanent(err)
	}

	multiBars, err := g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: "all",
		Start:      g.opts.Range.Start,
		End:        g.opts.Range.End,
		Feed:       marketdata.Feed(g.opts.Feed),
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		bars = append(bars, convertBars(symbol, alpacaBars)...)
	}
	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Symbol != bars[j].Symbol {
			return bars[i].Symbol < bars[j].Symbol
		}
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars, nil
}

func convertBars(symbol string, alpacaBars []marketdata.Bar) []domain.Bar {
	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol:     strings.ToUpper(symbol),
			Timestamp:  ab.Timestamp.UTC(),
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	return bars
}
