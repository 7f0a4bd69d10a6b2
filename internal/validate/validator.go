package validate

import (
	"fmt"
	"sort"
	"strings"

	"MarketPulse/internal/model"
)

// DefaultGapDays is the calendar-day gap above which consecutive bars are flagged.
const DefaultGapDays = 7

// Validator normalizes a raw series into a clean, date-ordered Series.
// It flags suspicious data but never repairs it.
type Validator struct {
	GapDays int
}

// New creates a Validator. A non-positive gapDays falls back to DefaultGapDays.
func New(gapDays int) *Validator {
	if gapDays <= 0 {
		gapDays = DefaultGapDays
	}
	return &Validator{GapDays: gapDays}
}

// Validate returns the cleaned series together with every non-fatal issue it
// found. A missing required column is returned as a fatal *DataQualityError;
// a series with no usable rows returns *EmptySeriesError.
func (v *Validator) Validate(raw model.RawSeries) (model.Series, []model.DataQualityError, error) {
	var issues []model.DataQualityError

	if missing := missingColumns(&raw); len(missing) > 0 {
		issue := model.DataQualityError{
			Symbol:   raw.Symbol,
			Code:     model.IssueMissingField,
			Severity: model.SeverityError,
			Message:  "missing required columns: " + strings.Join(missing, ", "),
		}
		issues = append(issues, issue)
		return model.Series{Symbol: raw.Symbol}, issues, &issue
	}

	bars := make([]model.Bar, 0, len(raw.Rows))
	for _, r := range raw.Rows {
		if !r.Complete() {
			issues = append(issues, model.DataQualityError{
				Symbol:   raw.Symbol,
				Code:     model.IssueIncompleteRow,
				Severity: model.SeverityWarn,
				Row:      r.Row,
				Message:  "row dropped, missing " + strings.Join(missingFields(r), ", "),
			})
			continue
		}
		bars = append(bars, model.Bar{
			Date:   model.DateOnly(r.Date.Unwrap()),
			Open:   r.Open.Unwrap(),
			High:   r.High.Unwrap(),
			Low:    r.Low.Unwrap(),
			Close:  r.Close.Unwrap(),
			Volume: r.Volume.Unwrap(),
		})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	// Equal dates are adjacent and in input order, so the last one of each
	// run is the one to keep.
	clean := bars[:0]
	for _, b := range bars {
		if n := len(clean); n > 0 && clean[n-1].Date.Equal(b.Date) {
			issues = append(issues, model.DataQualityError{
				Symbol:   raw.Symbol,
				Code:     model.IssueDuplicateDate,
				Severity: model.SeverityWarn,
				Date:     b.Date,
				Message:  "duplicate date, keeping the last occurrence",
			})
			clean[n-1] = b
			continue
		}
		clean = append(clean, b)
	}

	if len(clean) == 0 {
		return model.Series{Symbol: raw.Symbol}, issues, &model.EmptySeriesError{Symbol: raw.Symbol, RawRows: len(raw.Rows)}
	}

	for i, b := range clean {
		issues = append(issues, v.checkBar(raw.Symbol, b)...)
		if i == 0 {
			continue
		}
		gap := int(b.Date.Sub(clean[i-1].Date).Hours() / 24)
		if gap > v.GapDays {
			issues = append(issues, model.DataQualityError{
				Symbol:   raw.Symbol,
				Code:     model.IssueDateGap,
				Severity: model.SeverityWarn,
				Date:     b.Date,
				Message:  fmt.Sprintf("%d calendar days since %s", gap, clean[i-1].Date.Format("2006-01-02")),
			})
		}
	}

	return model.Series{Symbol: raw.Symbol, Bars: clean}, issues, nil
}

func (v *Validator) checkBar(symbol string, b model.Bar) []model.DataQualityError {
	var out []model.DataQualityError
	add := func(code string, sev model.Severity, format string, args ...any) {
		out = append(out, model.DataQualityError{
			Symbol:   symbol,
			Code:     code,
			Severity: sev,
			Date:     b.Date,
			Message:  fmt.Sprintf(format, args...),
		})
	}
	if b.Close <= 0 {
		add(model.IssueNonPositiveClose, model.SeverityWarn, "close %.4f is not positive", b.Close)
	}
	if b.Volume < 0 {
		add(model.IssueNegativeVolume, model.SeverityWarn, "volume %d is negative", b.Volume)
	}
	if b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
		add(model.IssueInconsistentRange, model.SeverityInfo,
			"open %.4f / close %.4f outside low %.4f .. high %.4f", b.Open, b.Close, b.Low, b.High)
	}
	return out
}

func missingColumns(raw *model.RawSeries) []string {
	var missing []string
	for _, c := range model.RequiredColumns {
		if !raw.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func missingFields(r model.RawBar) []string {
	var out []string
	if r.Date.IsNone() {
		out = append(out, model.ColDate)
	}
	if r.Open.IsNone() {
		out = append(out, model.ColOpen)
	}
	if r.High.IsNone() {
		out = append(out, model.ColHigh)
	}
	if r.Low.IsNone() {
		out = append(out, model.ColLow)
	}
	if r.Close.IsNone() {
		out = append(out, model.ColClose)
	}
	if r.Volume.IsNone() {
		out = append(out, model.ColVolume)
	}
	return out
}
