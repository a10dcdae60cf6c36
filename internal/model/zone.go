package model

import (
	"math"
	"time"
)

// LiquidityZone holds the price levels where resting orders are presumed to
// cluster for a symbol.
type LiquidityZone struct {
	Symbol     string
	RecentLow  float64
	RecentHigh float64
	// VolumeClusters holds at most three levels, ordered by ascending bin
	// volume. The last entry is the heaviest concentration.
	VolumeClusters []float64
	VWAP           float64 // NaN when the window traded no volume
	ComputedAt     time.Time
}

// HasVWAP reports whether the zone carries a usable VWAP.
func (z LiquidityZone) HasVWAP() bool {
	return !math.IsNaN(z.VWAP) && !math.IsInf(z.VWAP, 0)
}

// DominantCluster returns the heaviest volume level, if any.
func (z LiquidityZone) DominantCluster() (float64, bool) {
	if len(z.VolumeClusters) == 0 {
		return 0, false
	}
	return z.VolumeClusters[len(z.VolumeClusters)-1], true
}
