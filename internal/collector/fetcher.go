package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"MarketPulse/internal/model"

	"github.com/moznion/go-optional"
)

// ErrNoData means a source has nothing for the requested symbol.
var ErrNoData = errors.New("no data")

// Source loads raw OHLCV series per symbol.
type Source interface {
	Name() string
	// Symbols lists the symbols the source can serve.
	Symbols(ctx context.Context) ([]string, error)
	Load(ctx context.Context, symbol string) (*model.RawSeries, error)
}

// MemorySource serves fixed in-memory series for development and testing.
type MemorySource struct {
	Series map[string]*model.RawSeries
}

// NewMemorySource indexes the given series by symbol.
func NewMemorySource(series ...*model.RawSeries) *MemorySource {
	m := &MemorySource{Series: make(map[string]*model.RawSeries, len(series))}
	for _, s := range series {
		m.Series[s.Symbol] = s
	}
	return m
}

func (m *MemorySource) Name() string { return "memory" }

func (m *MemorySource) Symbols(_ context.Context) ([]string, error) {
	out := make([]string, 0, len(m.Series))
	for sym := range m.Series {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemorySource) Load(ctx context.Context, symbol string) (*model.RawSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, ok := m.Series[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	return s, nil
}

// RawFromCloses builds a complete raw series with one bar per day starting at
// start. Open equals the previous close, and high/low sit 0.5% around the bar.
func RawFromCloses(symbol string, start time.Time, closes []float64, volume int64) *model.RawSeries {
	rows := make([]model.RawBar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		rows[i] = model.RawBar{
			Row:    i + 1,
			Date:   optional.Some(start.AddDate(0, 0, i)),
			Open:   optional.Some(open),
			High:   optional.Some(max(open, c) * 1.005),
			Low:    optional.Some(min(open, c) * 0.995),
			Close:  optional.Some(c),
			Volume: optional.Some(volume),
		}
	}
	return &model.RawSeries{
		Symbol:  symbol,
		Source:  "memory",
		Columns: model.RequiredColumns,
		Rows:    rows,
	}
}
