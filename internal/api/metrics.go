package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/status"

	"macdtrader/internal/strategy"
)

// Metrics holds the Prometheus metrics of the backtest server. Each instance
// owns its registry.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal   *prometheus.CounterVec // labels: strategy, code
	TradesTotal *prometheus.CounterVec // labels: strategy, side
	RunDuration prometheus.Histogram
	LastProfit  *prometheus.GaugeVec // labels: strategy, symbol
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "macdtrader_runs_total",
			Help: "Backtest runs by strategy and gRPC status code",
		}, []string{"strategy", "code"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "macdtrader_trades_total",
			Help: "Simulated trades by strategy and side",
		}, []string{"strategy", "side"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "macdtrader_run_duration_seconds",
			Help:    "Backtest latency including series loading",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		LastProfit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "macdtrader_last_profit_percent",
			Help: "Profit percent of the latest successful run per symbol",
		}, []string{"strategy", "symbol"}),
	}
	m.Registry.MustRegister(
		m.RunsTotal, m.TradesTotal, m.RunDuration, m.LastProfit,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) observe(name string, res *strategy.Result, err error, elapsed time.Duration) {
	m.RunDuration.Observe(elapsed.Seconds())

	code := "OK"
	if err != nil {
		code = status.Code(toStatus(err)).String()
	}
	m.RunsTotal.WithLabelValues(name, code).Inc()
	if res == nil {
		return
	}
	for _, t := range res.Trades {
		m.TradesTotal.WithLabelValues(name, string(t.Side)).Inc()
	}
	m.LastProfit.WithLabelValues(name, res.Series.Symbol).Set(res.ProfitPercent)
}
