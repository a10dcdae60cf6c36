// Package liquidity derives support, resistance, VWAP and volume-cluster
// levels from a window of bars.
package liquidity

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"StopHunter/internal/calculator"
	"StopHunter/internal/collector"
	"StopHunter/internal/model"
)

// ErrDataUnavailable is returned by Identify for an empty window.
var ErrDataUnavailable = collector.ErrDataUnavailable

// Analyzer computes liquidity zones and owns the per-symbol zone cache.
type Analyzer struct {
	cache  *ZoneCache
	bins   int
	now    func() time.Time
	logger zerolog.Logger
}

// NewAnalyzer creates an Analyzer. A nil cache gets a fresh one; bins <= 0
// falls back to calculator.DefaultVolumeBins.
func NewAnalyzer(cache *ZoneCache, bins int) *Analyzer {
	if cache == nil {
		cache = NewZoneCache()
	}
	if bins <= 0 {
		bins = calculator.DefaultVolumeBins
	}
	return &Analyzer{
		cache:  cache,
		bins:   bins,
		now:    time.Now,
		logger: log.With().Str("component", "liquidity").Logger(),
	}
}

// Cache returns the analyzer's zone cache.
func (a *Analyzer) Cache() *ZoneCache { return a.cache }

// Zone returns the last zone computed for symbol.
func (a *Analyzer) Zone(symbol string) (model.LiquidityZone, bool) {
	return a.cache.Get(symbol)
}

// Identify recomputes the liquidity zone for symbol from series and replaces
// the cached entry. A degenerate price range yields an empty cluster list; a
// window without volume yields a NaN VWAP.
func (a *Analyzer) Identify(symbol string, series *model.BarSeries) (model.LiquidityZone, error) {
	if series.Len() == 0 {
		return model.LiquidityZone{}, fmt.Errorf("identify %s: %w", symbol, ErrDataUnavailable)
	}
	bars := series.Bars

	high, low, err := calculator.CalculateRange(bars, 0)
	if err != nil {
		return model.LiquidityZone{}, fmt.Errorf("identify %s range: %w", symbol, err)
	}

	vwap, err := calculator.CalculateVWAP(bars)
	if err != nil {
		if !errors.Is(err, calculator.ErrZeroVolume) {
			return model.LiquidityZone{}, fmt.Errorf("identify %s vwap: %w", symbol, err)
		}
		a.logger.Warn().Str("symbol", symbol).Msg("window has no volume, vwap undefined")
		vwap = math.NaN()
	}

	clusters, err := calculator.FindVolumeClusters(bars, low, high, a.bins)
	if err != nil {
		if !errors.Is(err, calculator.ErrDegenerateRange) {
			return model.LiquidityZone{}, fmt.Errorf("identify %s volume clusters: %w", symbol, err)
		}
		a.logger.Debug().Str("symbol", symbol).Float64("price", low).Msg("degenerate range, no volume clusters")
		clusters = []float64{}
	}

	zone := model.LiquidityZone{
		Symbol:         symbol,
		RecentLow:      low,
		RecentHigh:     high,
		VolumeClusters: clusters,
		VWAP:           vwap,
		ComputedAt:     a.now(),
	}
	a.cache.Put(zone)
	return zone, nil
}
