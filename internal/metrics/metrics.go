package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"

	"StopHunter/internal/model"
)

// Metrics holds the scanner's Prometheus collectors on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	Scans          prometheus.Counter
	ScanDuration   prometheus.Histogram
	SymbolsScanned prometheus.Counter
	SymbolFailures *prometheus.CounterVec
	Signals        *prometheus.CounterVec
	CachedZones    prometheus.Gauge
	BreakerState   *prometheus.GaugeVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Scans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stophunter_scans_total",
			Help: "Total number of watchlist scans",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stophunter_scan_duration_seconds",
			Help:    "Duration of a full watchlist scan in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		SymbolsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stophunter_symbols_scanned_total",
			Help: "Total number of per-symbol checks",
		}),
		SymbolFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stophunter_symbol_failures_total",
			Help: "Per-symbol checks skipped because of an error, by reason",
		}, []string{"reason"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stophunter_signals_total",
			Help: "Trap signals emitted, by type",
		}, []string{"type"}),
		CachedZones: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stophunter_cached_zones",
			Help: "Number of symbols held in the zone cache",
		}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stophunter_source_breaker_state",
			Help: "Data source circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"source"}),
	}
	m.Registry.MustRegister(
		m.Scans, m.ScanDuration, m.SymbolsScanned, m.SymbolFailures, m.Signals, m.CachedZones, m.BreakerState,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveScan(d time.Duration) {
	if m == nil {
		return
	}
	m.Scans.Inc()
	m.ScanDuration.Observe(d.Seconds())
}

func (m *Metrics) SymbolChecked() {
	if m == nil {
		return
	}
	m.SymbolsScanned.Inc()
}

func (m *Metrics) SymbolFailed(reason string) {
	if m == nil {
		return
	}
	m.SymbolFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) SignalEmitted(t model.SignalType) {
	if m == nil {
		return
	}
	m.Signals.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) SetCachedZones(n int) {
	if m == nil {
		return
	}
	m.CachedZones.Set(float64(n))
}

// SetBreakerState matches collector.GuardedFetcher.Observe.
func (m *Metrics) SetBreakerState(source string, state gobreaker.State) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(source).Set(float64(state))
}
