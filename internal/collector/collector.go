package collector

import (
	"context"
	"fmt"
	"time"

	"StopHunter/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Series is keyed by "SYMBOL/interval"; symbols listed in Errors fail.
// Without a configured series it generates bars around Price.
type MockFetcher struct {
	Price  float64
	Series map[string][]model.OHLCV
	Errors map[string]error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Fetch(_ context.Context, symbol, period, interval string) (*model.BarSeries, error) {
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	series := &model.BarSeries{Symbol: symbol, Period: period, Interval: interval, FetchedAt: time.Now()}
	if m.Series != nil {
		bars, ok := m.Series[MockKey(symbol, interval)]
		if !ok || len(bars) == 0 {
			return nil, fmt.Errorf("mock %s/%s: %w", symbol, interval, ErrDataUnavailable)
		}
		series.Bars = bars
		return series, nil
	}
	if m.Price <= 0 {
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrDataUnavailable)
	}
	step, err := parseInterval(interval)
	if err != nil {
		return nil, err
	}
	series.Bars = generateMockBars(m.Price, 60, step)
	return series, nil
}

// MockKey builds the Series key for a symbol and interval.
func MockKey(symbol, interval string) string { return symbol + "/" + interval }

func generateMockBars(basePrice float64, count int, step time.Duration) []model.OHLCV {
	now := time.Now().Truncate(step)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   now.Add(-time.Duration(count-i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

func parseInterval(interval string) (time.Duration, error) {
	switch interval {
	case "1wk":
		return 7 * 24 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	case "1h", "60m":
		return time.Hour, nil
	}
	d, err := time.ParseDuration(interval)
	if err != nil {
		return 0, fmt.Errorf("unsupported interval %q", interval)
	}
	return d, nil
}

// Windows names the two bar windows a stop-hunt check needs.
type Windows struct {
	ZonePeriod       string
	ZoneInterval     string
	IntradayPeriod   string
	IntradayInterval string
}

// DefaultWindows is 20 daily bars for zones and one session of 5-minute bars.
var DefaultWindows = Windows{
	ZonePeriod:       "20d",
	ZoneInterval:     "1d",
	IntradayPeriod:   "1d",
	IntradayInterval: "5m",
}

// Snapshot is the raw data for one symbol's stop-hunt check.
type Snapshot struct {
	Symbol   string
	Intraday *model.BarSeries
	Zone     *model.BarSeries
}

// Collector orchestrates data fetching for a symbol.
type Collector struct {
	Fetcher Fetcher
	Windows Windows
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, windows Windows) *Collector {
	return &Collector{Fetcher: fetcher, Windows: windows}
}

// Collect fetches the intraday series first, then the zone window.
func (c *Collector) Collect(ctx context.Context, symbol string) (*Snapshot, error) {
	intraday, err := c.FetchIntraday(ctx, symbol)
	if err != nil {
		return nil, err
	}
	zone, err := c.FetchZoneWindow(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Symbol: symbol, Intraday: intraday, Zone: zone}, nil
}

// FetchIntraday returns the intraday series whose last bar is checked for traps.
func (c *Collector) FetchIntraday(ctx context.Context, symbol string) (*model.BarSeries, error) {
	s, err := c.fetch(ctx, symbol, c.Windows.IntradayPeriod, c.Windows.IntradayInterval)
	if err != nil {
		return nil, fmt.Errorf("fetch intraday bars: %w", err)
	}
	return s, nil
}

// FetchZoneWindow returns the history liquidity zones are derived from.
func (c *Collector) FetchZoneWindow(ctx context.Context, symbol string) (*model.BarSeries, error) {
	s, err := c.fetch(ctx, symbol, c.Windows.ZonePeriod, c.Windows.ZoneInterval)
	if err != nil {
		return nil, fmt.Errorf("fetch zone bars: %w", err)
	}
	return s, nil
}

func (c *Collector) fetch(ctx context.Context, symbol, period, interval string) (*model.BarSeries, error) {
	s, err := c.Fetcher.Fetch(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("%s %s/%s: %w", symbol, period, interval, ErrDataUnavailable)
	}
	return s, nil
}
