package calculator

import (
	"errors"
	"math"

	"StopHunter/internal/model"
)

// CalculateRange scans the most recent lookback bars and returns the highest
// high and lowest low. A lookback <= 0 scans the whole window.
func CalculateRange(bars []model.OHLCV, lookback int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, ErrNoBars
	}
	n := len(bars)
	start := 0
	if lookback > 0 && n > lookback {
		start = n - lookback
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	if math.IsNaN(high) || math.IsNaN(low) || math.IsInf(high, 0) || math.IsInf(low, 0) {
		return 0, 0, ErrInvalidPrice
	}
	return high, low, nil
}

// RangePosition returns where price sits within [low, high] (0.0~1.0).
func RangePosition(price, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (price - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
