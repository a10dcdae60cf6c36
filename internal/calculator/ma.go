package calculator

import (
	"errors"

	"StopHunter/internal/model"
)

// CalculateSMA computes the simple moving average of the given values over the specified period.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// MeanVolume returns the arithmetic mean volume over every bar in the window.
func MeanVolume(bars []model.OHLCV) (float64, error) {
	if len(bars) == 0 {
		return 0, ErrNoBars
	}
	return CalculateSMA(extractVolumes(bars), len(bars))
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func extractVolumes(bars []model.OHLCV) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	return vols
}
