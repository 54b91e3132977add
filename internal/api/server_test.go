package api

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"macdtrader/internal/config"
	"macdtrader/internal/domain"
	"macdtrader/internal/indicator"
	"macdtrader/internal/store"
	"macdtrader/internal/strategy"
	"macdtrader/internal/strategy/builtins"
	"macdtrader/pkg/macdtrader"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	client  *macdtrader.Client
	metrics *Metrics
	store   *store.ParquetStore
}

func startServer(t *testing.T) *testEnv {
	t.Helper()

	reg := strategy.NewRegistry()
	if err := builtins.Register(reg, indicator.DefaultParams()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ps := store.NewParquetStore(t.TempDir(), "us")
	bt := strategy.NewBacktester(ps, reg, quietLogger())
	m := NewMetrics()
	svc := NewBacktestService(bt, "macd-cross", strategy.DefaultSettings(), m, quietLogger())

	cfg := config.Default()
	cfg.Server.MetricsAddr = ""
	srv := NewServer(cfg, svc, m, quietLogger())

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return &testEnv{client: macdtrader.NewClient(conn), metrics: m, store: ps}
}

func inlineRequest(prices []float64) *macdtrader.RunRequest {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	req := &macdtrader.RunRequest{Symbol: "SYN", StartingBudget: 10000}
	for i, p := range prices {
		req.Dates = append(req.Dates, start.AddDate(0, 0, i).Format(store.DateLayout))
		req.Prices = append(req.Prices, p)
	}
	return req
}

func sine(n int) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + 10*math.Sin(float64(i)/6)
	}
	return prices
}

func TestRunInlineFlatSeries(t *testing.T) {
	env := startServer(t)

	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 16
	}
	resp, err := env.client.Run(context.Background(), inlineRequest(flat))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !resp.WarmedUp || resp.Bars != 60 || len(resp.Trades) != 0 {
		t.Errorf("resp = %+v, want warmed up with 60 bars and no trades", resp)
	}
	if resp.FinalCash != 10000 || resp.Profit != 0 || resp.Currency != "USD" {
		t.Errorf("resp money = %v/%v %s", resp.FinalCash, resp.Profit, resp.Currency)
	}
}

func TestRunInlineAlternates(t *testing.T) {
	env := startServer(t)

	resp, err := env.client.Run(context.Background(), inlineRequest(sine(200)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(resp.Trades) < 2 {
		t.Fatalf("got %d trades, want at least 2", len(resp.Trades))
	}
	for i := 1; i < len(resp.Trades); i++ {
		if resp.Trades[i].Side == resp.Trades[i-1].Side {
			t.Errorf("trades %d and %d are both %s", i-1, i, resp.Trades[i].Side)
		}
		if resp.Trades[i].Index < 35 {
			t.Errorf("trade %d at index %d, before warm-up", i, resp.Trades[i].Index)
		}
	}
	for _, tr := range resp.Trades {
		if tr.Quantity != math.Trunc(tr.Quantity) {
			t.Errorf("fractional quantity %v in indivisible mode", tr.Quantity)
		}
	}
}

func TestRunFromStore(t *testing.T) {
	env := startServer(t)

	prices := sine(120)
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(prices))
	for i, p := range prices {
		bars[i] = domain.Bar{Symbol: "SINE", Timestamp: start.AddDate(0, 0, i), Open: p, Close: p}
	}
	if err := env.store.WriteBars(context.Background(), bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	resp, err := env.client.Run(context.Background(), &macdtrader.RunRequest{
		Symbol:         "sine",
		Start:          "2023-01-01",
		End:            "2023-12-31",
		StartingBudget: 5000,
		Divisible:      true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Symbol != "SINE" || resp.Bars != 120 || !resp.WarmedUp {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRunErrorCodes(t *testing.T) {
	env := startServer(t)

	mismatched := inlineRequest(sine(40))
	mismatched.Dates = mismatched.Dates[:39]

	noValue := inlineRequest(sine(40))
	noValue.StartingBudget = 0

	unknown := inlineRequest(sine(40))
	unknown.Strategy = "rsi"

	badMultiplier := inlineRequest(sine(40))
	badMultiplier.BuyingMultiplier = 1.5

	tests := []struct {
		name string
		req  *macdtrader.RunRequest
		code codes.Code
	}{
		{"length mismatch", mismatched, codes.InvalidArgument},
		{"zero initial value", noValue, codes.FailedPrecondition},
		{"unknown strategy", unknown, codes.InvalidArgument},
		{"bad multiplier", badMultiplier, codes.InvalidArgument},
		{"missing symbol", &macdtrader.RunRequest{StartingBudget: 1}, codes.InvalidArgument},
		{"no stored bars", &macdtrader.RunRequest{Symbol: "NONE", StartingBudget: 1}, codes.FailedPrecondition},
		{"bad window", &macdtrader.RunRequest{Symbol: "X", Start: "yesterday", StartingBudget: 1}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.Run(context.Background(), tt.req)
			if got := status.Code(err); got != tt.code {
				t.Errorf("code = %v (%v), want %v", got, err, tt.code)
			}
		})
	}
}

func TestMetricsExposition(t *testing.T) {
	env := startServer(t)

	if _, err := env.client.Run(context.Background(), inlineRequest(sine(200))); err != nil {
		t.Fatalf("Run: %v", err)
	}
	bad := inlineRequest(sine(10))
	bad.StartingBudget = 0
	_, _ = env.client.Run(context.Background(), bad)

	rec := httptest.NewRecorder()
	env.metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`macdtrader_runs_total{code="OK",strategy="macd-cross"} 1`,
		`macdtrader_runs_total{code="FailedPrecondition",strategy="macd-cross"} 1`,
		`macdtrader_trades_total{side="buy",strategy="macd-cross"}`,
		`macdtrader_last_profit_percent{strategy="macd-cross",symbol="SYN"}`,
		`macdtrader_run_duration_seconds_count 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNewServerAddresses(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.GRPCPort = 7000
	s := NewServer(cfg, NewBacktestService(nil, "macd-cross", strategy.DefaultSettings(), nil, nil), NewMetrics(), quietLogger())
	if s.grpcAddr != "0.0.0.0:7000" {
		t.Errorf("grpcAddr = %q", s.grpcAddr)
	}
	if s.http == nil || s.http.Addr != cfg.Server.MetricsAddr {
		t.Errorf("metrics server not configured for %q", cfg.Server.MetricsAddr)
	}
}
