package collector

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"MarketPulse/internal/model"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseCSV reads an OHLCV CSV with a header row. Header names match
// case-insensitively and extra columns are ignored. Cells that are empty or
// do not parse become absent fields; the validator decides what to do.
func ParseCSV(r io.Reader, symbol, source string) (*model.RawSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w: empty file", symbol, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", symbol, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	raw := &model.RawSeries{Symbol: symbol, Source: source, Columns: header}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	cell := func(rec []string, col string) string {
		i, ok := idx[strings.ToLower(col)]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for n := 1; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: read row %d: %w", symbol, n, err)
		}
		raw.Rows = append(raw.Rows, model.RawBar{
			Row:    n,
			Date:   parseDate(cell(rec, model.ColDate)),
			Open:   parseFloat(cell(rec, model.ColOpen)),
			High:   parseFloat(cell(rec, model.ColHigh)),
			Low:    parseFloat(cell(rec, model.ColLow)),
			Close:  parseFloat(cell(rec, model.ColClose)),
			Volume: parseVolume(cell(rec, model.ColVolume)),
		})
	}
	return raw, nil
}

func parseDate(s string) optional.Option[time.Time] {
	if s == "" {
		return optional.None[time.Time]()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return optional.Some(t)
		}
	}
	return optional.None[time.Time]()
}

func parseFloat(s string) optional.Option[float64] {
	if s == "" {
		return optional.None[float64]()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return optional.None[float64]()
	}
	return optional.Some(d.InexactFloat64())
}

func parseVolume(s string) optional.Option[int64] {
	if s == "" {
		return optional.None[int64]()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return optional.None[int64]()
	}
	return optional.Some(d.Round(0).IntPart())
}
