package recorder

import (
	"context"

	"MarketPulse/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ context.Context, _ *RunRecord) error { return nil }

func (n *NoopRecorder) RecentAlerts(_ context.Context, _ string, _ int) ([]model.Alert, error) {
	return nil, nil
}

func (n *NoopRecorder) LastRun(_ context.Context) (*RunSummary, error) { return nil, ErrNoRuns }

func (n *NoopRecorder) Close() error { return nil }
