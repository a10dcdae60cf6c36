// Package scanner runs the stop-hunt check across a watchlist.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"StopHunter/internal/calculator"
	"StopHunter/internal/collector"
	"StopHunter/internal/liquidity"
	"StopHunter/internal/metrics"
	"StopHunter/internal/model"
	"StopHunter/internal/strategy"
)

// SymbolResult is the outcome of checking one symbol.
type SymbolResult struct {
	Symbol  string
	Zone    *model.LiquidityZone
	Signals []model.Signal
	Err     error
}

// Report is the full outcome of a scan, in watchlist order.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []SymbolResult
}

// Signals returns the symbols that produced at least one signal.
func (r *Report) Signals() map[string][]model.Signal {
	out := make(map[string][]model.Signal)
	for _, res := range r.Results {
		if res.Err == nil && len(res.Signals) > 0 {
			out[res.Symbol] = res.Signals
		}
	}
	return out
}

// Failures returns the results that ended in an error.
func (r *Report) Failures() []SymbolResult {
	var out []SymbolResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// SignalCount returns the total number of signals across all symbols.
func (r *Report) SignalCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Signals)
	}
	return n
}

// Scanner fetches data, identifies zones and evaluates traps per symbol.
type Scanner struct {
	Collector *collector.Collector
	Analyzer  *liquidity.Analyzer
	Detector  *strategy.Detector
	Metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// New creates a Scanner. m may be nil.
func New(col *collector.Collector, an *liquidity.Analyzer, det *strategy.Detector, m *metrics.Metrics) *Scanner {
	return &Scanner{
		Collector: col,
		Analyzer:  an,
		Detector:  det,
		Metrics:   m,
		logger:    log.With().Str("component", "scanner").Logger(),
	}
}

// Scan checks every symbol in order and returns the non-empty signal lists.
// A failing symbol is logged and skipped.
func (s *Scanner) Scan(ctx context.Context, symbols []string) map[string][]model.Signal {
	return s.ScanReport(ctx, symbols).Signals()
}

// ScanReport is Scan with per-symbol zones and failures kept.
func (s *Scanner) ScanReport(ctx context.Context, symbols []string) *Report {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Results:   make([]SymbolResult, 0, len(symbols)),
	}
	logger := s.logger.With().Str("run_id", report.RunID).Logger()

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Int("remaining", len(symbols)-len(report.Results)).Msg("scan interrupted")
			break
		}
		res := s.check(ctx, symbol)
		s.Metrics.SymbolChecked()
		if res.Err != nil {
			reason := failureReason(res.Err)
			s.Metrics.SymbolFailed(reason)
			logger.Warn().Str("symbol", symbol).Str("reason", reason).Err(res.Err).Msg("symbol skipped")
		}
		for _, sig := range res.Signals {
			s.Metrics.SignalEmitted(sig.Type)
			logger.Info().
				Str("symbol", symbol).
				Str("type", string(sig.Type)).
				Float64("entry", sig.Entry).
				Float64("stop", sig.Stop).
				Float64("target", sig.Target).
				Float64("confidence", sig.Confidence).
				Msg("stop hunt detected")
		}
		report.Results = append(report.Results, res)
	}

	report.FinishedAt = time.Now()
	s.Metrics.ObserveScan(report.FinishedAt.Sub(report.StartedAt))
	s.Metrics.SetCachedZones(s.Analyzer.Cache().Len())
	logger.Info().
		Int("symbols", len(report.Results)).
		Int("signals", report.SignalCount()).
		Int("failures", len(report.Failures())).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("scan finished")
	return report
}

// Detect runs the full check for one symbol.
func (s *Scanner) Detect(ctx context.Context, symbol string) ([]model.Signal, model.LiquidityZone, error) {
	res := s.check(ctx, symbol)
	var zone model.LiquidityZone
	if res.Zone != nil {
		zone = *res.Zone
	}
	return res.Signals, zone, res.Err
}

// Zone rebuilds the liquidity zone for symbol from a fresh zone window and
// returns it with the window it was computed from.
func (s *Scanner) Zone(ctx context.Context, symbol string) (model.LiquidityZone, *model.BarSeries, error) {
	window, err := s.Collector.FetchZoneWindow(ctx, symbol)
	if err != nil {
		return model.LiquidityZone{}, nil, err
	}
	zone, err := s.Analyzer.Identify(symbol, window)
	if err != nil {
		return model.LiquidityZone{}, window, err
	}
	s.Metrics.SetCachedZones(s.Analyzer.Cache().Len())
	return zone, window, nil
}

func (s *Scanner) check(ctx context.Context, symbol string) SymbolResult {
	res := SymbolResult{Symbol: symbol}

	snap, err := s.Collector.Collect(ctx, symbol)
	if err != nil {
		res.Err = err
		return res
	}
	intraday := snap.Intraday

	zone, err := s.Analyzer.Identify(symbol, snap.Zone)
	if err != nil {
		res.Err = err
		return res
	}
	res.Zone = &zone

	latest, ok := intraday.Latest()
	if !ok {
		res.Err = fmt.Errorf("%s intraday: %w", symbol, collector.ErrDataUnavailable)
		return res
	}

	signals, err := s.Detector.Evaluate(symbol, latest, intraday.Bars, zone)
	if err != nil {
		res.Err = err
		return res
	}
	res.Signals = signals
	return res
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, collector.ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, calculator.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, calculator.ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
