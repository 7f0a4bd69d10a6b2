package model

import (
	"strings"
	"time"

	"github.com/moznion/go-optional"
)

// Required input columns, in schema order.
const (
	ColDate   = "Date"
	ColOpen   = "Open"
	ColHigh   = "High"
	ColLow    = "Low"
	ColClose  = "Close"
	ColVolume = "Volume"
)

// RequiredColumns lists every column a raw series must carry.
var RequiredColumns = []string{ColDate, ColOpen, ColHigh, ColLow, ColClose, ColVolume}

// Bar represents one trading day for one symbol.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Series is a validated, date-ordered sequence of bars for a single symbol.
type Series struct {
	Symbol string
	Bars   []Bar
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.Bars) }

// Closes returns the close prices in bar order.
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// RawBar is one unvalidated input row. Any field may be missing.
type RawBar struct {
	Row    int // 1-based data row in the source, for diagnostics
	Date   optional.Option[time.Time]
	Open   optional.Option[float64]
	High   optional.Option[float64]
	Low    optional.Option[float64]
	Close  optional.Option[float64]
	Volume optional.Option[int64]
}

// Complete reports whether every required field is present.
func (r RawBar) Complete() bool {
	return r.Date.IsSome() && r.Open.IsSome() && r.High.IsSome() &&
		r.Low.IsSome() && r.Close.IsSome() && r.Volume.IsSome()
}

// RawSeries is the loader's output before validation.
type RawSeries struct {
	Symbol  string
	Source  string   // file path or provider name
	Columns []string // header columns present in the source
	Rows    []RawBar
}

// HasColumn reports whether the source carried the named column (case-insensitive).
func (r *RawSeries) HasColumn(name string) bool {
	for _, c := range r.Columns {
		if strings.EqualFold(strings.TrimSpace(c), name) {
			return true
		}
	}
	return false
}

// DateOnly truncates t to its calendar date at 00:00 UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
