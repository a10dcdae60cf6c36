package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"StopHunter/internal/notifier"
	"StopHunter/internal/recorder"
	"StopHunter/internal/scanner"
)

// Sender pushes a formatted message to the operator.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the watchlist scan on a cron cadence and answers chat
// commands.
type Scheduler struct {
	Cron        *cron.Cron
	Scanner     *scanner.Scanner
	Notifier    Sender // nil disables pushes
	Recorder    recorder.Recorder
	Console     *notifier.Console
	Watchlist   []string
	ScanTimeout time.Duration
	Ctx         context.Context

	mu     sync.Mutex
	last   *scanner.Report
	logger zerolog.Logger
}

// NewScheduler creates a Scheduler. Overlapping cron runs are skipped.
func NewScheduler(ctx context.Context, sc *scanner.Scanner, tn Sender, rec recorder.Recorder, console *notifier.Console, watchlist []string, timeout time.Duration) *Scheduler {
	logger := log.With().Str("component", "scheduler").Logger()
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
		),
		Scanner:     sc,
		Notifier:    tn,
		Recorder:    rec,
		Console:     console,
		Watchlist:   watchlist,
		ScanTimeout: timeout,
		Ctx:         ctx,
		logger:      logger,
	}
}

// Register adds the scan task.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("symbols", len(s.Watchlist)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running scan.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunScanNow executes the scheduled task immediately.
func (s *Scheduler) RunScanNow() *scanner.Report {
	return s.runScan(true)
}

// LastReport returns the most recent scan report, or nil.
func (s *Scheduler) LastReport() *scanner.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) scanTask() { s.runScan(true) }

func (s *Scheduler) runScan(push bool) *scanner.Report {
	ctx := s.Ctx
	if s.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ScanTimeout)
		defer cancel()
	}

	report := s.Scanner.ScanReport(ctx, s.Watchlist)

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if s.Console != nil {
		if err := s.Console.PrintScan(report); err != nil {
			s.logger.Error().Err(err).Msg("print scan")
		}
	}
	if err := s.Recorder.RecordScan(toScanRecord(report)); err != nil {
		s.logger.Error().Err(err).Str("run_id", report.RunID).Msg("record scan")
	}
	if push && s.Notifier != nil && report.SignalCount() > 0 {
		if err := s.Notifier.SendWithRetry(s.Ctx, notifier.FormatScanReport(report, notifier.HTML), 3); err != nil {
			s.logger.Error().Err(err).Msg("send scan report")
		}
	}
	return report
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string, args []string) string {
	switch command {
	case "/scan":
		return notifier.FormatScanReport(s.runScan(false), notifier.HTML)
	case "/zones":
		if len(args) == 0 {
			return "Usage: /zones SYMBOL"
		}
		symbol := strings.ToUpper(args[0])
		zone, window, err := s.Scanner.Zone(ctx, symbol)
		if err != nil {
			s.logger.Warn().Str("symbol", symbol).Err(err).Msg("zone report failed")
			return fmt.Sprintf("❌ %s: %s", html.EscapeString(symbol), html.EscapeString(err.Error()))
		}
		return notifier.FormatZoneReport(zone, window, notifier.HTML)
	case "/watchlist":
		return s.formatWatchlist()
	case "/signals":
		symbol := ""
		if len(args) > 0 {
			symbol = strings.ToUpper(args[0])
		}
		rows, err := s.Recorder.RecentSignals(symbol, 10)
		if err != nil {
			s.logger.Error().Err(err).Msg("query recent signals")
			return "❌ signal journal unavailable"
		}
		return formatSignalRows(rows)
	default:
		return "Commands:\n• /scan\n• /zones SYMBOL\n• /watchlist\n• /signals [SYMBOL]"
	}
}

func (s *Scheduler) formatWatchlist() string {
	var b strings.Builder
	b.WriteString("📋 <b>Watchlist</b>\n")
	cache := s.Scanner.Analyzer.Cache()
	for _, symbol := range s.Watchlist {
		zone, ok := cache.Get(symbol)
		if !ok {
			b.WriteString(fmt.Sprintf("• %s: no zone yet\n", html.EscapeString(symbol)))
			continue
		}
		b.WriteString(fmt.Sprintf("• %s: %.2f - %.2f\n", html.EscapeString(symbol), zone.RecentLow, zone.RecentHigh))
	}

	listed := make(map[string]bool, len(s.Watchlist))
	for _, symbol := range s.Watchlist {
		listed[symbol] = true
	}
	var extra []string
	for _, symbol := range cache.Symbols() {
		if !listed[symbol] {
			extra = append(extra, symbol)
		}
	}
	if len(extra) > 0 {
		b.WriteString(fmt.Sprintf("Also cached: %s\n", html.EscapeString(strings.Join(extra, ", "))))
	}
	if last := s.LastReport(); last != nil {
		b.WriteString(fmt.Sprintf("Last scan: %s, %d signals\n", last.FinishedAt.Format("15:04:05"), last.SignalCount()))
	}
	return b.String()
}

func formatSignalRows(rows []recorder.SignalRow) string {
	if len(rows) == 0 {
		return "No signals recorded"
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent signals</b>\n")
	for _, row := range rows {
		sig := row.Signal
		b.WriteString(fmt.Sprintf("• %s %s %s entry %.2f stop %.2f target %.2f (%.1f%%)\n",
			row.RecordedAt.Format("01-02 15:04"), html.EscapeString(sig.Symbol), sig.Type,
			sig.Entry, sig.Stop, sig.Target, sig.Confidence))
	}
	return b.String()
}

func toScanRecord(report *scanner.Report) *recorder.ScanRecord {
	rec := &recorder.ScanRecord{
		RunID:      report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Symbols:    make([]recorder.SymbolRecord, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		sr := recorder.SymbolRecord{Symbol: res.Symbol, Zone: res.Zone, Signals: res.Signals}
		if res.Err != nil {
			sr.Error = res.Err.Error()
		}
		rec.Symbols = append(rec.Symbols, sr)
	}
	return rec
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
