package strategy

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// roundCents rounds a cash amount to two decimal places, ties to even.
// The float is formatted from its exact binary value first, so 2.675
// (stored as 2.67499...) rounds down like any other amount below the half.
func roundCents(v float64) float64 {
	d, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', 2, 64))
	if err != nil {
		// NaN and the infinities have no decimal form.
		return v
	}
	f, _ := d.Float64()
	return f
}

// roundUnits rounds an asset quantity to a whole unit, ties to even.
func roundUnits(v float64) float64 {
	return math.RoundToEven(v)
}
