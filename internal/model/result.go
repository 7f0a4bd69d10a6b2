package model

import "time"

// SymbolResult is the outcome of one symbol's pipeline task.
type SymbolResult struct {
	Symbol     string
	Series     *EnrichedSeries // nil when the symbol failed
	Issues     []DataQualityError
	Alerts     []Alert
	OutputPath string
	Duration   time.Duration
	Err        error
}

// Failed reports whether the task produced no enriched series.
func (r *SymbolResult) Failed() bool { return r.Err != nil || r.Series == nil }
