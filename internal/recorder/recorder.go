package recorder

import (
	"context"
	"errors"
	"time"

	"MarketPulse/internal/model"
)

// ErrNoRuns is returned by LastRun before any run was recorded.
var ErrNoRuns = errors.New("no runs recorded")

// Ranking is one row of a run's gainers ranking.
type Ranking struct {
	Rank        int
	Symbol      string
	Close       float64
	DailyReturn float64
}

// RunRecord is everything persisted about one batch run. Indicator series
// are never stored.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	AsOf       time.Time
	Symbols    int
	Failed     int
	Alerts     []model.Alert
	Rankings   []Ranking
}

// RunSummary is a recorded run without its alerts and rankings.
type RunSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	AsOf       time.Time
	Symbols    int
	Failed     int
	AlertCount int
}

// NewRunRecord builds a record from a finished run's snapshot and alert feed.
func NewRunRecord(id string, started, finished time.Time, snap *model.MarketSnapshot, alerts []model.Alert) *RunRecord {
	rec := &RunRecord{
		ID:         id,
		StartedAt:  started,
		FinishedAt: finished,
		AsOf:       snap.AsOf,
		Symbols:    len(snap.Statuses),
		Failed:     len(snap.Failed),
		Alerts:     alerts,
		Rankings:   make([]Ranking, len(snap.Gainers)),
	}
	for i, m := range snap.Gainers {
		rec.Rankings[i] = Ranking{Rank: i + 1, Symbol: m.Symbol, Close: m.Close, DailyReturn: m.DailyReturn}
	}
	return rec
}

// Recorder persists run history for later inspection.
type Recorder interface {
	RecordRun(ctx context.Context, run *RunRecord) error
	// RecentAlerts returns up to limit alerts for symbol, newest first.
	RecentAlerts(ctx context.Context, symbol string, limit int) ([]model.Alert, error)
	LastRun(ctx context.Context) (*RunSummary, error)
	Close() error
}
