// Package domain defines the core value types shared across macdtrader:
// bars, price series, trade events and the sentinel errors used to report
// malformed input.
package domain

import (
	"fmt"
	"time"
)

// Market identifies the venue a symbol trades on.
type Market string

const (
	MarketUS     Market = "us"
	MarketCN     Market = "cn"
	MarketCrypto Market = "crypto"
)

// Bar is a single OHLCV bar.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// PriceField selects which bar price feeds a PriceSeries.
type PriceField string

const (
	PriceFieldClose PriceField = "close"
	PriceFieldOpen  PriceField = "open"
)

// PricePoint is one observation of a PriceSeries.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// PriceSeries is an ordered sequence of prices for one symbol. Timestamps are
// strictly increasing and prices positive; see Validate.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// Len returns the number of points in the series.
func (s PriceSeries) Len() int { return len(s.Points) }

// Prices returns the price column as a fresh slice.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Validate reports whether the series satisfies the ordering and positivity
// rules.
func (s PriceSeries) Validate() error {
	for i, p := range s.Points {
		if !(p.Price > 0) {
			return fmt.Errorf("point %d (%s): price %v is not positive: %w",
				i, p.Timestamp.Format("2006-01-02"), p.Price, ErrInvalidSeries)
		}
		if i > 0 && !p.Timestamp.After(s.Points[i-1].Timestamp) {
			return fmt.Errorf("point %d (%s): timestamp not after previous: %w",
				i, p.Timestamp.Format("2006-01-02"), ErrInvalidSeries)
		}
	}
	return nil
}

// SeriesFromBars builds a PriceSeries from bars already sorted by time.
func SeriesFromBars(symbol string, bars []Bar, field PriceField) PriceSeries {
	points := make([]PricePoint, len(bars))
	for i, b := range bars {
		price := b.Close
		if field == PriceFieldOpen {
			price = b.Open
		}
		points[i] = PricePoint{Timestamp: b.Timestamp, Price: price}
	}
	return PriceSeries{Symbol: symbol, Points: points}
}

// BarsFromSeries converts a series into bars whose OHLC fields all carry the
// series price. Used when importing single-price files into bar stores.
func BarsFromSeries(s PriceSeries) []Bar {
	bars := make([]Bar, len(s.Points))
	for i, p := range s.Points {
		bars[i] = Bar{
			Symbol:    s.Symbol,
			Timestamp: p.Timestamp,
			Open:      p.Price,
			High:      p.Price,
			Low:       p.Price,
			Close:     p.Price,
		}
	}
	return bars
}

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradeEvent records one executed simulated trade.
type TradeEvent struct {
	Index     int
	Timestamp time.Time
	Price     float64
	Side      Side
	Quantity  float64
	// CashDelta is the signed change applied to cash (negative for buys).
	CashDelta float64
}
