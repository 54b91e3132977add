package indicator

import (
	"fmt"
	"math"
	"sync"

	"macdtrader/internal/domain"
)

// EMA evaluates a truncated, re-normalized exponential moving average over a
// fixed window of period+1 samples ending at an offset:
//
//	EMA = Σ (1-α)^i * s[offset-i] / Σ (1-α)^i,  i = 0..period,  α = 2/(period+1)
//
// The weight table is computed once per period; At is O(period).
type EMA struct {
	period  int
	alpha   float64
	weights []float64
	norm    float64
}

// NewEMA creates an EMA for the given period. A period of zero is a valid
// single-sample window.
func NewEMA(period int) (*EMA, error) {
	if period < 0 {
		return nil, fmt.Errorf("ema period %d: %w", period, domain.ErrInvalidPeriod)
	}

	alpha := 2.0 / float64(period+1)
	decay := 1 - alpha
	weights := make([]float64, period+1)
	var norm float64
	for i := range weights {
		weights[i] = math.Pow(decay, float64(i))
		norm += weights[i]
	}

	return &EMA{
		period:  period,
		alpha:   alpha,
		weights: weights,
		norm:    norm,
	}, nil
}

// Period returns the EMA period.
func (e *EMA) Period() int { return e.period }

// Alpha returns the smoothing factor 2/(period+1).
func (e *EMA) Alpha() float64 { return e.alpha }

// At returns the EMA of samples over [offset-period, offset]. The window must
// lie inside samples.
func (e *EMA) At(samples []float64, offset int) (float64, error) {
	if offset < e.period || offset >= len(samples) {
		return 0, fmt.Errorf("ema(%d) at offset %d over %d samples: %w",
			e.period, offset, len(samples), domain.ErrIndexOutOfRange)
	}

	var num float64
	for i, w := range e.weights {
		num += w * samples[offset-i]
	}
	return num / e.norm, nil
}

var emaCache sync.Map // period -> *EMA

// ComputeEMA is the functional form of EMA.At. Weight tables are cached per
// period across calls.
func ComputeEMA(samples []float64, period, offset int) (float64, error) {
	e, err := cachedEMA(period)
	if err != nil {
		return 0, err
	}
	return e.At(samples, offset)
}

func cachedEMA(period int) (*EMA, error) {
	if v, ok := emaCache.Load(period); ok {
		return v.(*EMA), nil
	}
	e, err := NewEMA(period)
	if err != nil {
		return nil, err
	}
	v, _ := emaCache.LoadOrStore(period, e)
	return v.(*EMA), nil
}
