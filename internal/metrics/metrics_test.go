package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StopHunter/internal/model"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObserveScan(150 * time.Millisecond)
	m.SymbolChecked()
	m.SymbolChecked()
	m.SymbolFailed("data_unavailable")
	m.SignalEmitted(model.BearTrap)
	m.SignalEmitted(model.BearTrap)
	m.SetCachedZones(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Scans))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SymbolsScanned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SymbolFailures.WithLabelValues("data_unavailable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Signals.WithLabelValues(string(model.BearTrap))))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Signals.WithLabelValues(string(model.BullTrap))))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CachedZones))

	m.SetBreakerState("yahoo", gobreaker.StateOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("yahoo")))
	m.SetBreakerState("yahoo", gobreaker.StateClosed)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("yahoo")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveScan(time.Second)
		m.SymbolChecked()
		m.SymbolFailed("error")
		m.SignalEmitted(model.BullTrap)
		m.SetCachedZones(1)
		m.SetBreakerState("rest", gobreaker.StateHalfOpen)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveScan(time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "stophunter_scans_total 1"))
}
