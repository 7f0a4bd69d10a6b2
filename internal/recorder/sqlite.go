package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"MarketPulse/internal/model"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	sq  squirrel.StatementBuilderType
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		log: log.Named("recorder"),
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			as_of       TEXT,
			symbols     INTEGER,
			failed      INTEGER,
			alert_count INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL REFERENCES runs(id),
			symbol        TEXT NOT NULL,
			kind          TEXT NOT NULL,
			severity      TEXT NOT NULL,
			message       TEXT,
			trigger_value REAL,
			as_of         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol, as_of)`,

		`CREATE TABLE IF NOT EXISTS rankings (
			run_id       TEXT NOT NULL REFERENCES runs(id),
			rank         INTEGER NOT NULL,
			symbol       TEXT NOT NULL,
			close        REAL,
			daily_return REAL,
			PRIMARY KEY (run_id, rank)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// RecordRun stores the run, its alerts and its ranking in one transaction.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = r.sq.Insert("runs").
		Columns("id", "started_at", "finished_at", "as_of", "symbols", "failed", "alert_count").
		Values(run.ID, run.StartedAt.Unix(), run.FinishedAt.Unix(), formatDate(run.AsOf),
			run.Symbols, run.Failed, len(run.Alerts)).
		RunWith(tx).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(run.Alerts) > 0 {
		ins := r.sq.Insert("alerts").
			Columns("run_id", "symbol", "kind", "severity", "message", "trigger_value", "as_of")
		for _, a := range run.Alerts {
			ins = ins.Values(run.ID, a.Symbol, string(a.Kind), string(a.Severity), a.Message, a.TriggerValue, formatDate(a.AsOf))
		}
		if _, err := ins.RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("insert alerts: %w", err)
		}
	}

	if len(run.Rankings) > 0 {
		ins := r.sq.Insert("rankings").
			Columns("run_id", "rank", "symbol", "close", "daily_return")
		for _, rk := range run.Rankings {
			ins = ins.Values(run.ID, rk.Rank, rk.Symbol, rk.Close, rk.DailyReturn)
		}
		if _, err := ins.RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("insert rankings: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Debug("run recorded", zap.String("run_id", run.ID), zap.Int("alerts", len(run.Alerts)))
	return nil
}

func (r *SQLiteRecorder) RecentAlerts(ctx context.Context, symbol string, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.sq.
		Select("symbol", "kind", "severity", "message", "trigger_value", "as_of").
		From("alerts").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("as_of DESC", "id DESC").
		Limit(uint64(limit)).
		RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []model.Alert
	for rows.Next() {
		var (
			a              model.Alert
			kind, severity string
			asOf           string
		)
		if err := rows.Scan(&a.Symbol, &kind, &severity, &a.Message, &a.TriggerValue, &asOf); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Kind = model.AlertKind(kind)
		a.Severity = model.Severity(severity)
		a.AsOf = parseDate(asOf)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) LastRun(ctx context.Context) (*RunSummary, error) {
	var (
		s                 RunSummary
		started, finished int64
		asOf              string
	)
	err := r.sq.
		Select("id", "started_at", "finished_at", "as_of", "symbols", "failed", "alert_count").
		From("runs").
		OrderBy("started_at DESC").
		Limit(1).
		RunWith(r.db).QueryRowContext(ctx).
		Scan(&s.ID, &started, &finished, &asOf, &s.Symbols, &s.Failed, &s.AlertCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	s.StartedAt = time.Unix(started, 0)
	s.FinishedAt = time.Unix(finished, 0)
	s.AsOf = parseDate(asOf)
	return &s, nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
