package calculator

import (
	"math"

	"StopHunter/internal/model"
)

// CalculateVWAP returns the volume weighted average of the typical price
// (H+L+C)/3 over the window. A window with no volume yields NaN together with
// ErrZeroVolume.
func CalculateVWAP(bars []model.OHLCV) (float64, error) {
	if len(bars) == 0 {
		return 0, ErrNoBars
	}
	var tpv, vol float64
	for _, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3.0
		tpv += typical * b.Volume
		vol += b.Volume
	}
	if vol == 0 {
		return math.NaN(), ErrZeroVolume
	}
	return tpv / vol, nil
}
