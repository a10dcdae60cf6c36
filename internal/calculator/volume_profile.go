package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"StopHunter/internal/model"
)

// DefaultVolumeBins is the number of equal-width price bins used when
// building a volume profile.
const DefaultVolumeBins = 20

// MaxVolumeClusters is how many of the heaviest bins are reported.
const MaxVolumeClusters = 3

// VolumeBin is one slice of a volume profile.
type VolumeBin struct {
	Lower  float64
	Upper  float64
	Volume float64
}

// VolumeProfile splits [low, high] into `bins` equal-width bins and sums the
// volume of every bar whose close falls in each. Bins are half-open except the
// last, which also takes closes equal to high.
func VolumeProfile(bars []model.OHLCV, low, high float64, bins int) ([]VolumeBin, error) {
	if len(bars) == 0 {
		return nil, ErrNoBars
	}
	if bins <= 0 {
		return nil, errors.New("bin count must be positive")
	}
	if math.IsNaN(low) || math.IsNaN(high) || math.IsInf(low, 0) || math.IsInf(high, 0) {
		return nil, ErrInvalidPrice
	}
	if high < low {
		return nil, errors.New("high must be >= low")
	}
	if high == low {
		return nil, ErrDegenerateRange
	}

	width := (high - low) / float64(bins)
	profile := make([]VolumeBin, bins)
	for i := range profile {
		profile[i].Lower = low + float64(i)*width
		profile[i].Upper = low + float64(i+1)*width
	}
	profile[bins-1].Upper = high

	for _, b := range bars {
		if math.IsNaN(b.Close) {
			return nil, fmt.Errorf("close at %s: %w", b.Time.Format("2006-01-02 15:04"), ErrInvalidPrice)
		}
		if b.Close < low || b.Close > high {
			continue
		}
		idx := int((b.Close - low) / width)
		if idx >= bins {
			idx = bins - 1
		}
		// the division can land one bin off the stored edges
		for idx > 0 && b.Close < profile[idx].Lower {
			idx--
		}
		for idx < bins-1 && b.Close >= profile[idx].Upper {
			idx++
		}
		profile[idx].Volume += b.Volume
	}
	return profile, nil
}

// FindVolumeClusters returns the upper edges of the MaxVolumeClusters
// heaviest bins, rounded to cents and clamped into [low, high]. Levels are
// ordered by ascending bin volume; equal volumes keep the lower bin first.
func FindVolumeClusters(bars []model.OHLCV, low, high float64, bins int) ([]float64, error) {
	profile, err := VolumeProfile(bars, low, high, bins)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(profile))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return profile[order[a]].Volume < profile[order[b]].Volume
	})

	n := MaxVolumeClusters
	if n > len(order) {
		n = len(order)
	}
	top := order[len(order)-n:]

	levels := make([]float64, 0, n)
	for _, idx := range top {
		level := Round2(profile[idx].Upper)
		level = math.Min(math.Max(level, low), high)
		levels = append(levels, level)
	}
	return levels, nil
}
