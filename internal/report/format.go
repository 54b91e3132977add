package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) > 3 {
		var b strings.Builder
		start := len(s) % 3
		if start > 0 {
			b.WriteString(s[:start])
		}
		for i := start; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatMoney formats an amount with exactly two decimals, rounding half to
// even on the decimal representation.
func FormatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixedBank(2)
}

// FormatPercent formats a percentage with two decimals and an explicit sign.
func FormatPercent(p float64) string {
	s := FormatMoney(p)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s + "%"
}

// FormatPrice formats a price value, or "-" for zero.
func FormatPrice(p float64) string {
	if p == 0 {
		return "-"
	}
	return decimal.NewFromFloat(p).StringFixed(2)
}

// FormatQuantity prints whole-unit quantities without decimals and fractional
// ones with up to six.
func FormatQuantity(q float64) string {
	d := decimal.NewFromFloat(q)
	if d.IsInteger() {
		return d.String()
	}
	return d.Round(6).String()
}
