package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds a price to cents, half away from zero. NaN and infinities
// pass through unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
