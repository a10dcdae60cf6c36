package strategy

import (
	"fmt"

	"StopHunter/internal/calculator"
	"StopHunter/internal/model"
)

// ErrInsufficientData is returned when a series has fewer than two bars.
var ErrInsufficientData = calculator.ErrInsufficientData

// Scorer rates how extreme the latest log return is within the series.
type Scorer struct{}

// Score returns a value in [0,1]. For DirectionDown it is the percentile
// rank of the latest return; for DirectionUp it is the complement. Ties use
// the average-rank convention of calculator.PercentileRank.
func (Scorer) Score(bars []model.OHLCV, dir model.Direction) (float64, error) {
	returns, err := calculator.LogReturns(bars)
	if err != nil {
		return 0, fmt.Errorf("score: %w", err)
	}
	pct, err := calculator.PercentileRank(returns, returns[len(returns)-1])
	if err != nil {
		return 0, fmt.Errorf("score: %w", err)
	}
	switch dir {
	case model.DirectionDown:
		return pct / 100, nil
	case model.DirectionUp:
		return 1 - pct/100, nil
	default:
		return 0, fmt.Errorf("score: unknown direction %q", dir)
	}
}
