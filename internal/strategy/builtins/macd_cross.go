// Package builtins provides built-in strategy implementations that ship with
// macdtrader.
package builtins

import (
	"context"

	"macdtrader/internal/indicator"
	"macdtrader/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MACDCross)(nil)

// MACDCross trades MACD crossovers of its SIGNAL line: buy when MACD rises
// above SIGNAL, sell when it falls below.
type MACDCross struct {
	builder *indicator.Builder
}

// NewMACDCross creates a MACDCross strategy with the given periods.
func NewMACDCross(p indicator.Params) (*MACDCross, error) {
	b, err := indicator.NewBuilder(p)
	if err != nil {
		return nil, err
	}
	return &MACDCross{builder: b}, nil
}

// Name returns "macd-cross".
func (s *MACDCross) Name() string {
	return "macd-cross"
}

// Lines returns MACD as the indicator line and SIGNAL as the signal line.
// Crossovers are evaluated once SIGNAL has left its warm-up.
func (s *MACDCross) Lines(_ context.Context, prices []float64) (strategy.Lines, error) {
	macd, signal, err := s.builder.Build(prices)
	if err != nil {
		return strategy.Lines{}, err
	}
	return strategy.Lines{
		Indicator: macd,
		Signal:    signal,
		WarmUp:    s.builder.Params().SignalWarmUp(),
	}, nil
}

// Register adds every built-in strategy to r.
func Register(r *strategy.Registry, p indicator.Params) error {
	macd, err := NewMACDCross(p)
	if err != nil {
		return err
	}
	r.Register(macd)
	return nil
}
