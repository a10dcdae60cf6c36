package liquidity

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StopHunter/internal/model"
)

var fixedNow = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

func newTestAnalyzer() *Analyzer {
	a := NewAnalyzer(nil, 0)
	a.now = func() time.Time { return fixedNow }
	return a
}

func series(symbol string, lows, highs, closes, volumes []float64) *model.BarSeries {
	bars := make([]model.OHLCV, len(closes))
	for i := range closes {
		bars[i] = model.OHLCV{
			Time:   fixedNow.AddDate(0, 0, i-len(closes)),
			Open:   closes[i],
			High:   highs[i],
			Low:    lows[i],
			Close:  closes[i],
			Volume: volumes[i],
		}
	}
	return &model.BarSeries{Symbol: symbol, Period: "20d", Interval: "1d", Bars: bars}
}

func TestIdentify_Basic(t *testing.T) {
	a := newTestAnalyzer()
	s := series("A",
		[]float64{100, 98, 99},
		[]float64{105, 107, 106},
		[]float64{104, 99, 105},
		[]float64{1000, 5000, 2000},
	)

	zone, err := a.Identify("A", s)
	require.NoError(t, err)
	assert.Equal(t, "A", zone.Symbol)
	assert.Equal(t, 98.0, zone.RecentLow)
	assert.Equal(t, 107.0, zone.RecentHigh)
	assert.True(t, zone.HasVWAP())
	assert.InDelta(t, (1000*309.0/3+5000*304.0/3+2000*310.0/3)/8000, zone.VWAP, 1e-9)

	require.Len(t, zone.VolumeClusters, 3)
	for _, level := range zone.VolumeClusters {
		assert.GreaterOrEqual(t, level, zone.RecentLow)
		assert.LessOrEqual(t, level, zone.RecentHigh)
	}
	dominant, ok := zone.DominantCluster()
	require.True(t, ok)
	assert.Equal(t, 99.35, dominant, "heaviest bin holds the 5000-volume close at 99")

	for _, b := range s.Bars {
		assert.GreaterOrEqual(t, b.Close, zone.RecentLow)
		assert.LessOrEqual(t, b.Close, zone.RecentHigh)
	}
}

func TestIdentify_Idempotent(t *testing.T) {
	a := newTestAnalyzer()
	s := series("A",
		[]float64{10, 11, 9, 12},
		[]float64{12, 13, 11, 14},
		[]float64{11, 12, 10, 13},
		[]float64{300, 100, 900, 400},
	)
	first, err := a.Identify("A", s)
	require.NoError(t, err)
	second, err := a.Identify("A", s)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIdentify_CachesAndOverwrites(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.Identify("A", series("A", []float64{1}, []float64{2}, []float64{1.5}, []float64{1}))
	require.NoError(t, err)

	cached, ok := a.Zone("A")
	require.True(t, ok)
	assert.Equal(t, 2.0, cached.RecentHigh)

	_, err = a.Identify("A", series("A", []float64{5}, []float64{9}, []float64{7}, []float64{1}))
	require.NoError(t, err)
	cached, ok = a.Zone("A")
	require.True(t, ok)
	assert.Equal(t, 9.0, cached.RecentHigh)
	assert.Equal(t, 5.0, cached.RecentLow)
	assert.Equal(t, 1, a.Cache().Len())
}

func TestIdentify_DegenerateRange(t *testing.T) {
	a := newTestAnalyzer()
	s := series("FLAT",
		[]float64{50, 50, 50},
		[]float64{50, 50, 50},
		[]float64{50, 50, 50},
		[]float64{10, 20, 30},
	)
	zone, err := a.Identify("FLAT", s)
	require.NoError(t, err)
	assert.NotNil(t, zone.VolumeClusters)
	assert.Empty(t, zone.VolumeClusters)
	assert.Equal(t, 50.0, zone.RecentLow)
	assert.Equal(t, 50.0, zone.RecentHigh)
	assert.InDelta(t, 50.0, zone.VWAP, 1e-9)
}

func TestIdentify_ZeroVolume(t *testing.T) {
	a := newTestAnalyzer()
	zone, err := a.Identify("Z", series("Z", []float64{1, 2}, []float64{3, 4}, []float64{2, 3}, []float64{0, 0}))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(zone.VWAP))
	assert.False(t, zone.HasVWAP())
}

func TestIdentify_Empty(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.Identify("A", &model.BarSeries{Symbol: "A"})
	assert.ErrorIs(t, err, ErrDataUnavailable)
	_, err = a.Identify("A", nil)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	_, ok := a.Zone("A")
	assert.False(t, ok)
}

func TestIdentify_NaNPriceIsDefect(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.Identify("BAD", series("BAD", []float64{1, 1}, []float64{2, 2}, []float64{1.5, math.NaN()}, []float64{1, 1}))
	require.Error(t, err)
	_, ok := a.Zone("BAD")
	assert.False(t, ok)
}

func TestZoneCache_ReturnsCopies(t *testing.T) {
	c := NewZoneCache()
	c.Put(model.LiquidityZone{Symbol: "A", VolumeClusters: []float64{1, 2, 3}})
	z, ok := c.Get("A")
	require.True(t, ok)
	z.VolumeClusters[0] = 99

	again, _ := c.Get("A")
	assert.Equal(t, []float64{1, 2, 3}, again.VolumeClusters)

	c.Put(model.LiquidityZone{Symbol: "B"})
	assert.Equal(t, []string{"A", "B"}, c.Symbols())
}
