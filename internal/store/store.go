// Package store defines where price history comes from: bar stores backed by
// Parquet files or SQLite, and single-price CSV files.
package store

import (
	"context"
	"time"

	"macdtrader/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within
	// [start, end], sorted by timestamp.
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// SeriesSource yields a complete price series in one read.
type SeriesSource interface {
	ReadSeries(ctx context.Context) (domain.PriceSeries, error)
}
