package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"macdtrader/internal/domain"
	"macdtrader/internal/store"
	"macdtrader/internal/strategy"
	"macdtrader/pkg/macdtrader"
)

var _ macdtrader.BacktestServer = (*BacktestService)(nil)

// BacktestService implements the Backtest gRPC service on top of a
// strategy.Backtester.
type BacktestService struct {
	bt       *strategy.Backtester
	defaults strategy.Settings
	strategy string
	metrics  *Metrics
	log      *slog.Logger
}

// NewBacktestService creates the service. defaultStrategy is used when a
// request names none; defaults fill unset multipliers and currency.
func NewBacktestService(bt *strategy.Backtester, defaultStrategy string, defaults strategy.Settings, m *Metrics, log *slog.Logger) *BacktestService {
	if log == nil {
		log = slog.Default()
	}
	return &BacktestService{
		bt:       bt,
		defaults: defaults,
		strategy: defaultStrategy,
		metrics:  m,
		log:      log.With("component", "grpc"),
	}
}

// Run decodes a RunRequest, executes the backtest and encodes a RunResponse.
func (s *BacktestService) Run(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()

	var req macdtrader.RunRequest
	if err := macdtrader.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	name := req.Strategy
	if name == "" {
		name = s.strategy
	}

	res, err := s.run(ctx, name, &req)
	if s.metrics != nil {
		s.metrics.observe(name, res, err, time.Since(start))
	}
	if err != nil {
		s.log.Warn("run failed", "symbol", req.Symbol, "strategy", name, "error", err)
		return nil, toStatus(err)
	}
	return macdtrader.Encode(responseFromResult(res))
}

func (s *BacktestService) run(ctx context.Context, name string, req *macdtrader.RunRequest) (*strategy.Result, error) {
	settings := strategy.Settings{
		StartingBudget:    req.StartingBudget,
		StartingQuantity:  req.StartingQuantity,
		BuyingMultiplier:  req.BuyingMultiplier,
		SellingMultiplier: req.SellingMultiplier,
		Divisible:         req.Divisible,
		Currency:          req.Currency,
	}
	if settings.BuyingMultiplier == 0 {
		settings.BuyingMultiplier = s.defaults.BuyingMultiplier
	}
	if settings.SellingMultiplier == 0 {
		settings.SellingMultiplier = s.defaults.SellingMultiplier
	}
	if settings.Currency == "" {
		settings.Currency = s.defaults.Currency
	}

	if len(req.Prices) > 0 {
		series, err := seriesFromRequest(req)
		if err != nil {
			return nil, err
		}
		return s.bt.RunSeries(ctx, name, series, settings)
	}

	if req.Symbol == "" {
		return nil, fmt.Errorf("request has neither prices nor symbol: %w", domain.ErrInvalidConfig)
	}
	field := domain.PriceField(strings.ToLower(req.PriceField))
	if field == "" {
		field = domain.PriceFieldClose
	}
	startDate, endDate, err := window(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	market := req.Market
	if market == "" {
		market = string(domain.MarketUS)
	}
	return s.bt.Run(ctx, strategy.Request{
		Strategy:   name,
		Symbol:     strings.ToUpper(req.Symbol),
		Market:     market,
		Start:      startDate,
		End:        endDate,
		PriceField: field,
		Settings:   settings,
	})
}

func seriesFromRequest(req *macdtrader.RunRequest) (domain.PriceSeries, error) {
	if len(req.Dates) != len(req.Prices) {
		return domain.PriceSeries{}, fmt.Errorf("%d dates, %d prices: %w",
			len(req.Dates), len(req.Prices), domain.ErrLengthMismatch)
	}
	series := domain.PriceSeries{Symbol: req.Symbol, Points: make([]domain.PricePoint, len(req.Prices))}
	for i, p := range req.Prices {
		ts, err := time.Parse(store.DateLayout, req.Dates[i])
		if err != nil {
			return domain.PriceSeries{}, fmt.Errorf("date %d %q: %w", i, req.Dates[i], domain.ErrInvalidSeries)
		}
		series.Points[i] = domain.PricePoint{Timestamp: ts, Price: p}
	}
	return series, nil
}

func window(start, end string) (time.Time, time.Time, error) {
	from := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Now().UTC()
	var err error
	if start != "" {
		if from, err = time.Parse(store.DateLayout, start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start %q: %w", start, domain.ErrInvalidConfig)
		}
	}
	if end != "" {
		if to, err = time.Parse(store.DateLayout, end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end %q: %w", end, domain.ErrInvalidConfig)
		}
	}
	return from, to, nil
}

func responseFromResult(r *strategy.Result) *macdtrader.RunResponse {
	resp := &macdtrader.RunResponse{
		Symbol:        r.Series.Symbol,
		Bars:          r.Series.Len(),
		WarmedUp:      r.WarmedUp,
		Trades:        make([]macdtrader.Trade, 0, len(r.Trades)),
		Cash:          r.Cash,
		Holding:       r.Holding,
		InitialValue:  r.InitialValue,
		FinalCash:     r.FinalCash,
		Profit:        r.Profit,
		ProfitPercent: r.ProfitPercent,
		Currency:      r.Settings.Currency,
	}
	for _, t := range r.Trades {
		resp.Trades = append(resp.Trades, macdtrader.Trade{
			Index:     t.Index,
			Date:      t.Timestamp.Format(store.DateLayout),
			Side:      string(t.Side),
			Price:     t.Price,
			Quantity:  t.Quantity,
			CashDelta: t.CashDelta,
		})
	}
	return resp
}

// toStatus maps domain errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, domain.ErrInvalidConfig),
		errors.Is(err, domain.ErrInvalidPeriod),
		errors.Is(err, domain.ErrLengthMismatch),
		errors.Is(err, domain.ErrInvalidSeries),
		errors.Is(err, domain.ErrIndexOutOfRange):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNoData),
		errors.Is(err, domain.ErrDivisionByZero):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
