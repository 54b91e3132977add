package indicator

import (
	"fmt"

	"macdtrader/internal/domain"
)

// Params holds the three MACD periods.
type Params struct {
	Fast   int
	Slow   int
	Signal int
}

// DefaultParams returns the classic 12/26/9 configuration.
func DefaultParams() Params {
	return Params{Fast: 12, Slow: 26, Signal: 9}
}

// Validate checks that all periods are positive and Fast < Slow.
func (p Params) Validate() error {
	if p.Fast <= 0 || p.Slow <= 0 || p.Signal <= 0 {
		return fmt.Errorf("periods %d/%d/%d must be positive: %w",
			p.Fast, p.Slow, p.Signal, domain.ErrInvalidPeriod)
	}
	if p.Fast >= p.Slow {
		return fmt.Errorf("fast period %d must be below slow period %d: %w",
			p.Fast, p.Slow, domain.ErrInvalidPeriod)
	}
	return nil
}

// MACDWarmUp is the first index with a non-sentinel MACD value.
func (p Params) MACDWarmUp() int { return p.Slow }

// SignalWarmUp is the first index with a non-sentinel SIGNAL value. SIGNAL
// only averages MACD values that are past their own warm-up.
func (p Params) SignalWarmUp() int { return p.Slow + p.Signal }

// Builder derives MACD and SIGNAL series. A Builder holds only immutable
// weight tables and may be shared between goroutines.
type Builder struct {
	params Params
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// NewBuilder validates p and precomputes the three EMA weight tables.
func NewBuilder(p Params) (*Builder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	// Periods are validated above; NewEMA cannot fail here.
	fast, _ := NewEMA(p.Fast)
	slow, _ := NewEMA(p.Slow)
	signal, _ := NewEMA(p.Signal)
	return &Builder{params: p, fast: fast, slow: slow, signal: signal}, nil
}

// Params returns the builder's periods.
func (b *Builder) Params() Params { return b.params }

// MACD returns EMA(fast) - EMA(slow) of prices for every index at or past the
// slow period, and 0 before it.
func (b *Builder) MACD(prices []float64, rows int) ([]float64, error) {
	if rows != len(prices) {
		return nil, fmt.Errorf("macd: rows %d, prices %d: %w", rows, len(prices), domain.ErrLengthMismatch)
	}

	out := make([]float64, rows)
	for i := b.params.MACDWarmUp(); i < rows; i++ {
		fast, err := b.fast.At(prices, i)
		if err != nil {
			return nil, fmt.Errorf("macd fast ema: %w", err)
		}
		slow, err := b.slow.At(prices, i)
		if err != nil {
			return nil, fmt.Errorf("macd slow ema: %w", err)
		}
		out[i] = fast - slow
	}
	return out, nil
}

// Signal returns EMA(signal) of the MACD series from SignalWarmUp onward, and
// 0 before it.
func (b *Builder) Signal(macd []float64, rows int) ([]float64, error) {
	if rows != len(macd) {
		return nil, fmt.Errorf("signal: rows %d, macd %d: %w", rows, len(macd), domain.ErrLengthMismatch)
	}

	out := make([]float64, rows)
	for i := b.params.SignalWarmUp(); i < rows; i++ {
		v, err := b.signal.At(macd, i)
		if err != nil {
			return nil, fmt.Errorf("signal ema: %w", err)
		}
		out[i] = v
	}
	return out, nil
}

// Build runs both builders over prices.
func (b *Builder) Build(prices []float64) (macd, signal []float64, err error) {
	macd, err = b.MACD(prices, len(prices))
	if err != nil {
		return nil, nil, err
	}
	signal, err = b.Signal(macd, len(macd))
	if err != nil {
		return nil, nil, err
	}
	return macd, signal, nil
}

var defaultBuilder, _ = NewBuilder(DefaultParams())

// BuildMACD computes the 12/26 MACD series of length rows.
func BuildMACD(prices []float64, rows int) ([]float64, error) {
	return defaultBuilder.MACD(prices, rows)
}

// BuildSignal computes the 9-period SIGNAL series of length rows.
func BuildSignal(macd []float64, rows int) ([]float64, error) {
	return defaultBuilder.Signal(macd, rows)
}
