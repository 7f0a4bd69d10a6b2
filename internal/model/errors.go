package model

import (
	"fmt"
	"time"
)

// Data quality issue codes raised by the series validator.
const (
	IssueMissingField      = "missing_field"
	IssueIncompleteRow     = "incomplete_row"
	IssueDuplicateDate     = "duplicate_date"
	IssueNonPositiveClose  = "non_positive_close"
	IssueNegativeVolume    = "negative_volume"
	IssueDateGap           = "date_gap"
	IssueInconsistentRange = "inconsistent_range"
)

// DataQualityError describes a defect found in a raw series. Issues with
// severity warn or info are attached to the result and processing continues;
// severity error rejects the series.
type DataQualityError struct {
	Symbol   string
	Code     string
	Severity Severity
	Date     time.Time // zero when the defect is not tied to a bar
	Row      int       // source row, 0 when unknown
	Message  string
}

func (e *DataQualityError) Error() string {
	var where string
	switch {
	case !e.Date.IsZero():
		where = " on " + e.Date.Format("2006-01-02")
	case e.Row > 0:
		where = fmt.Sprintf(" at row %d", e.Row)
	}
	return fmt.Sprintf("%s: data quality %s [%s]%s: %s", e.Symbol, e.Severity, e.Code, where, e.Message)
}

// Fatal reports whether the issue rejects the whole series.
func (e *DataQualityError) Fatal() bool { return e.Severity == SeverityError }

// EmptySeriesError means no bars survived validation.
type EmptySeriesError struct {
	Symbol  string
	RawRows int
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("%s: empty series after cleaning (%d raw rows)", e.Symbol, e.RawRows)
}

// ComputationError is an unexpected numeric failure while enriching a series.
type ComputationError struct {
	Symbol    string
	Indicator string
	Index     int
	Date      time.Time
	Err       error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: compute %s at bar %d (%s): %v",
		e.Symbol, e.Indicator, e.Index, e.Date.Format("2006-01-02"), e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }
