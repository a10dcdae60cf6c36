package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// BarSeries is a chronologically ordered run of bars for one symbol and
// interval. The last element is the most recent bar.
type BarSeries struct {
	Symbol    string
	Period    string
	Interval  string
	Bars      []OHLCV
	FetchedAt time.Time
}

// Len returns the number of bars in the series.
func (s *BarSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Latest returns the most recent bar. ok is false for an empty series.
func (s *BarSeries) Latest() (bar OHLCV, ok bool) {
	if s.Len() == 0 {
		return OHLCV{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}
