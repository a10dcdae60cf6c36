package calculator

import (
	"fmt"
	"math"

	"StopHunter/internal/model"
)

// LogReturns computes ln(C_t) - ln(C_t-1) for every consecutive pair of
// closes. It needs at least two bars and strictly positive closes.
func LogReturns(bars []model.OHLCV) ([]float64, error) {
	if len(bars) < 2 {
		return nil, fmt.Errorf("log returns need 2 bars, got %d: %w", len(bars), ErrInsufficientData)
	}
	closes := extractCloses(bars)
	for i, c := range closes {
		if !(c > 0) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("close[%d]=%v: %w", i, c, ErrInvalidPrice)
		}
	}
	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns[i-1] = math.Log(closes[i]) - math.Log(closes[i-1])
	}
	return returns, nil
}

// PercentileRank returns the percentile (0~100) of score within values using
// the average-rank convention: the mean of the strict (<) and weak (<=)
// percentages, so ties contribute half a rank each.
func PercentileRank(values []float64, score float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrInsufficientData
	}
	var below, atOrBelow int
	for _, v := range values {
		if v < score {
			below++
		}
		if v <= score {
			atOrBelow++
		}
	}
	n := float64(len(values))
	return (float64(below) + float64(atOrBelow)) / 2 / n * 100, nil
}
