package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"StopHunter/internal/model"
)

// SQLiteRecorder persists the scan journal to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while scans write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			run_id      TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			symbols     INTEGER,
			signals     INTEGER,
			failures    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON scan_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS symbol_checks (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			recent_low  REAL,
			recent_high REAL,
			vwap        REAL,
			clusters    TEXT,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checks_run ON symbol_checks(run_id)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			recorded_at INTEGER NOT NULL,
			bar_time    INTEGER,
			symbol      TEXT NOT NULL,
			type        TEXT NOT NULL,
			entry       REAL,
			stop        REAL,
			target      REAL,
			confidence  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol, recorded_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordScan writes the run, its per-symbol checks and its signals in one
// transaction.
func (r *SQLiteRecorder) RecordScan(rec *ScanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var signals, failures int
	for _, s := range rec.Symbols {
		signals += len(s.Signals)
		if s.Error != "" {
			failures++
		}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO scan_runs
		(run_id, started_at, finished_at, symbols, signals, failures)
		VALUES (?,?,?,?,?,?)`,
		rec.RunID, rec.StartedAt.Unix(), rec.FinishedAt.Unix(), len(rec.Symbols), signals, failures,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	now := time.Now().Unix()
	for _, s := range rec.Symbols {
		var low, high, vwap sql.NullFloat64
		var clusters sql.NullString
		if z := s.Zone; z != nil {
			low = sql.NullFloat64{Float64: z.RecentLow, Valid: true}
			high = sql.NullFloat64{Float64: z.RecentHigh, Valid: true}
			vwap = sql.NullFloat64{Float64: z.VWAP, Valid: !math.IsNaN(z.VWAP)}
			clusters = sql.NullString{String: joinLevels(z.VolumeClusters), Valid: true}
		}
		if _, err := tx.Exec(`INSERT INTO symbol_checks
			(run_id, symbol, recent_low, recent_high, vwap, clusters, error)
			VALUES (?,?,?,?,?,?,?)`,
			rec.RunID, s.Symbol, low, high, vwap, clusters, s.Error,
		); err != nil {
			return fmt.Errorf("insert check %s: %w", s.Symbol, err)
		}

		for _, sig := range s.Signals {
			if _, err := tx.Exec(`INSERT INTO signals
				(run_id, recorded_at, bar_time, symbol, type, entry, stop, target, confidence)
				VALUES (?,?,?,?,?,?,?,?,?)`,
				rec.RunID, now, sig.BarTime.Unix(), sig.Symbol, string(sig.Type),
				sig.Entry, sig.Stop, sig.Target, sig.Confidence,
			); err != nil {
				return fmt.Errorf("insert signal %s: %w", s.Symbol, err)
			}
		}
	}
	return tx.Commit()
}

// RecentSignals returns the newest signals for symbol, newest first. An
// empty symbol matches every symbol.
func (r *SQLiteRecorder) RecentSignals(symbol string, limit int) ([]SignalRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT run_id, recorded_at, bar_time, symbol, type, entry, stop, target, confidence
		FROM signals WHERE (? = '' OR symbol = ?) ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRow
	for rows.Next() {
		var row SignalRow
		var recorded, barTime int64
		var typ string
		if err := rows.Scan(&row.RunID, &recorded, &barTime, &row.Signal.Symbol, &typ,
			&row.Signal.Entry, &row.Signal.Stop, &row.Signal.Target, &row.Signal.Confidence); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		row.RecordedAt = time.Unix(recorded, 0)
		row.Signal.BarTime = time.Unix(barTime, 0)
		row.Signal.Type = model.SignalType(typ)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func joinLevels(levels []float64) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = strconv.FormatFloat(l, 'f', 2, 64)
	}
	return strings.Join(parts, ",")
}
