package calculator

import (
	"time"

	"StopHunter/internal/model"
)

func makeBars(lows, highs, closes, volumes []float64) []model.OHLCV {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(closes))
	for i := range closes {
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   closes[i],
			High:   highs[i],
			Low:    lows[i],
			Close:  closes[i],
			Volume: volumes[i],
		}
	}
	return bars
}
