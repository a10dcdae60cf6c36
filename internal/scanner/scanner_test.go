package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StopHunter/internal/collector"
	"StopHunter/internal/liquidity"
	"StopHunter/internal/metrics"
	"StopHunter/internal/model"
	"StopHunter/internal/strategy"
)

var t0 = time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)

func bar(i int, low, high, close, volume float64) model.OHLCV {
	return model.OHLCV{Time: t0.Add(time.Duration(i) * 5 * time.Minute), Open: close, High: high, Low: low, Close: close, Volume: volume}
}

func zoneWindow() []model.OHLCV {
	return []model.OHLCV{
		bar(0, 100, 105, 104, 1000),
		bar(1, 98, 107, 99, 5000),
		bar(2, 99, 106, 105, 2000),
	}
}

func bearTrapIntraday() []model.OHLCV {
	return []model.OHLCV{
		bar(0, 99.8, 100.4, 100, 4000),
		bar(1, 99.2, 100.1, 99.5, 5000),
		bar(2, 98.3, 99.6, 99.0, 15000),
	}
}

func newScanner(m *collector.MockFetcher, mt *metrics.Metrics) *Scanner {
	return New(
		collector.NewCollector(m, collector.DefaultWindows),
		liquidity.NewAnalyzer(nil, 0),
		strategy.NewDetector(strategy.DefaultParams()),
		mt,
	)
}

func TestScan_OnlySymbolsWithSignals(t *testing.T) {
	m := &collector.MockFetcher{Series: map[string][]model.OHLCV{
		collector.MockKey("A", "1d"): zoneWindow(),
		collector.MockKey("A", "5m"): zoneWindow(),
		collector.MockKey("B", "1d"): zoneWindow(),
		collector.MockKey("B", "5m"): bearTrapIntraday(),
	}}
	s := newScanner(m, nil)

	results := s.Scan(context.Background(), []string{"A", "B"})
	require.Len(t, results, 1)
	require.Contains(t, results, "B")
	require.Len(t, results["B"], 1)
	assert.Equal(t, model.BearTrap, results["B"][0].Type)
	assert.Equal(t, 97.51, results["B"][0].Stop)

	_, ok := s.Analyzer.Zone("A")
	assert.True(t, ok, "zone for a quiet symbol is still cached")
}

func TestScan_FailuresAreIsolated(t *testing.T) {
	m := &collector.MockFetcher{
		Series: map[string][]model.OHLCV{
			collector.MockKey("B", "1d"): zoneWindow(),
			collector.MockKey("B", "5m"): bearTrapIntraday(),
			collector.MockKey("Z", "5m"): bearTrapIntraday(),
		},
		Errors: map[string]error{"X": errors.New("socket hang up")},
	}
	mt := metrics.New()
	s := newScanner(m, mt)

	report := s.ScanReport(context.Background(), []string{"X", "MISSING", "Z", "B"})
	require.Len(t, report.Results, 4)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{"X", "MISSING", "Z", "B"}, []string{
		report.Results[0].Symbol, report.Results[1].Symbol, report.Results[2].Symbol, report.Results[3].Symbol,
	})

	failures := report.Failures()
	require.Len(t, failures, 3)
	assert.ErrorIs(t, failures[1].Err, collector.ErrDataUnavailable)
	assert.ErrorIs(t, failures[2].Err, collector.ErrDataUnavailable, "zone window missing")

	signals := report.Signals()
	assert.Len(t, signals, 1)
	assert.Contains(t, signals, "B")
	assert.Equal(t, 1, report.SignalCount())

	assert.Equal(t, 1.0, testutil.ToFloat64(mt.Scans))
	assert.Equal(t, 4.0, testutil.ToFloat64(mt.SymbolsScanned))
	assert.Equal(t, 2.0, testutil.ToFloat64(mt.SymbolFailures.WithLabelValues("data_unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.SymbolFailures.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.Signals.WithLabelValues(string(model.BearTrap))))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.CachedZones))
}

func TestScan_Empty(t *testing.T) {
	s := newScanner(&collector.MockFetcher{Series: map[string][]model.OHLCV{}}, nil)
	assert.Empty(t, s.Scan(context.Background(), nil))
}

func TestScan_StopsOnCancelledContext(t *testing.T) {
	m := &collector.MockFetcher{Series: map[string][]model.OHLCV{
		collector.MockKey("B", "1d"): zoneWindow(),
		collector.MockKey("B", "5m"): bearTrapIntraday(),
	}}
	s := newScanner(m, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := s.ScanReport(ctx, []string{"B", "B"})
	assert.Empty(t, report.Results)
}

func TestDetect(t *testing.T) {
	m := &collector.MockFetcher{Series: map[string][]model.OHLCV{
		collector.MockKey("B", "1d"): zoneWindow(),
		collector.MockKey("B", "5m"): bearTrapIntraday(),
	}}
	s := newScanner(m, nil)

	signals, zone, err := s.Detect(context.Background(), "B")
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, 98.0, zone.RecentLow)
	assert.Equal(t, 107.0, zone.RecentHigh)
	assert.Len(t, zone.VolumeClusters, 3)

	_, _, err = s.Detect(context.Background(), "NOPE")
	assert.ErrorIs(t, err, collector.ErrDataUnavailable)
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "data_unavailable", failureReason(collector.ErrDataUnavailable))
	assert.Equal(t, "insufficient_data", failureReason(strategy.ErrInsufficientData))
	assert.Equal(t, "timeout", failureReason(context.DeadlineExceeded))
	assert.Equal(t, "error", failureReason(errors.New("boom")))
}

func TestZone_ReturnsWindowAndCaches(t *testing.T) {
	m := &collector.MockFetcher{Series: map[string][]model.OHLCV{
		collector.MockKey("A", "1d"): zoneWindow(),
	}}
	s := newScanner(m, nil)

	zone, window, err := s.Zone(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 98.0, zone.RecentLow)
	assert.Equal(t, 107.0, zone.RecentHigh)
	assert.Equal(t, 3, window.Len())

	cached, ok := s.Analyzer.Zone("A")
	require.True(t, ok)
	assert.Equal(t, zone.RecentHigh, cached.RecentHigh)

	_, _, err = s.Zone(context.Background(), "MISSING")
	assert.ErrorIs(t, err, collector.ErrDataUnavailable)
}
