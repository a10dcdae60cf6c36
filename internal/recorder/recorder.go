package recorder

import (
	"time"

	"StopHunter/internal/model"
)

// ScanRecord is one scan run with its outcome per symbol.
type ScanRecord struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Symbols    []SymbolRecord
}

// SymbolRecord holds what a scan saw for one symbol.
type SymbolRecord struct {
	Symbol  string
	Zone    *model.LiquidityZone // nil when the zone could not be built
	Signals []model.Signal
	Error   string
}

// SignalRow is a stored signal read back from the journal.
type SignalRow struct {
	RunID      string
	RecordedAt time.Time
	Signal     model.Signal
}

// Recorder persists an audit journal of scans.
type Recorder interface {
	RecordScan(rec *ScanRecord) error
	RecentSignals(symbol string, limit int) ([]SignalRow, error)
	Close() error
}
