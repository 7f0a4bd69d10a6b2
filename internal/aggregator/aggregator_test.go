package aggregator

import (
	"errors"
	"testing"
	"time"

	"MarketPulse/internal/calculator"
	"MarketPulse/internal/model"
	"MarketPulse/internal/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// result runs the real calculator and detector over 30 flat bars whose last
// close and volume are overridden.
func result(t *testing.T, symbol string, last float64, lastVolume int64, days int) model.SymbolResult {
	t.Helper()
	bars := make([]model.Bar, days)
	for i := range bars {
		c, v := 100.0, int64(1000)
		if i == days-1 {
			c, v = last, lastVolume
		}
		bars[i] = model.Bar{Date: day0.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: v}
	}
	es, err := calculator.Enrich(model.Series{Symbol: symbol, Bars: bars}, model.DefaultWindows())
	require.NoError(t, err)
	return model.SymbolResult{
		Symbol: symbol,
		Series: es,
		Alerts: signal.NewDetector(signal.DefaultThresholds()).Detect(es, nil),
	}
}

func symbols(movers []model.Mover) []string {
	out := make([]string, len(movers))
	for i, m := range movers {
		out[i] = m.Symbol
	}
	return out
}

func TestBuild_GainersAndLosers(t *testing.T) {
	snap := Build([]model.SymbolResult{
		result(t, "BBB", 94, 1000, 30),
		result(t, "AAA", 108, 1000, 30),
		result(t, "CCC", 101, 1000, 30),
	}, 2.0)

	assert.Equal(t, []string{"AAA", "CCC", "BBB"}, symbols(snap.Gainers))
	assert.Equal(t, []string{"BBB", "CCC", "AAA"}, symbols(snap.Losers))
	assert.Equal(t, day0.AddDate(0, 0, 29), snap.AsOf)

	require.Len(t, snap.Significant, 2)
	assert.Equal(t, "AAA", snap.Significant[0].Symbol)
	assert.Equal(t, model.AlertPriceMove, snap.Significant[0].Alerts[0].Kind)
	assert.Equal(t, 108.0, snap.Significant[0].Highlights.Close)
	assert.Equal(t, "BBB", snap.Significant[1].Symbol)

	assert.Equal(t, []model.SymbolStatus{
		{Symbol: "AAA", State: model.StateAlerted},
		{Symbol: "BBB", State: model.StateAlerted},
		{Symbol: "CCC", State: model.StateQuiet},
	}, snap.Statuses)
	assert.Empty(t, snap.Failed)
	assert.Empty(t, snap.Incomplete)
}

func TestBuild_TiesBreakBySymbol(t *testing.T) {
	snap := Build([]model.SymbolResult{
		result(t, "ZZZ", 103, 1000, 30),
		result(t, "MMM", 103, 1000, 30),
		result(t, "AAA", 103, 1000, 30),
	}, 2.0)
	assert.Equal(t, []string{"AAA", "MMM", "ZZZ"}, symbols(snap.Gainers))
	assert.Equal(t, []string{"AAA", "MMM", "ZZZ"}, symbols(snap.Losers))
}

func TestBuild_HighVolume(t *testing.T) {
	snap := Build([]model.SymbolResult{
		result(t, "LOW", 100.5, 1000, 30),
		result(t, "MID", 100.5, 3000, 30),
		result(t, "TOP", 100.5, 9000, 30),
	}, 2.0)
	assert.Equal(t, []string{"TOP", "MID"}, symbols(snap.HighVolume))
	assert.Equal(t, model.AlertVolumeSpike, snap.Significant[0].Alerts[0].Kind)
}

func TestBuild_IncompleteAndFailed(t *testing.T) {
	snap := Build([]model.SymbolResult{
		result(t, "OK", 101, 1000, 30),
		result(t, "NEW", 100, 1000, 1),
		{Symbol: "BAD", Err: errors.New("BAD: empty series after cleaning (0 raw rows)")},
	}, 2.0)

	assert.Equal(t, []string{"OK"}, symbols(snap.Gainers))
	assert.Equal(t, []string{"NEW"}, snap.Incomplete)
	require.Len(t, snap.Failed, 1)
	assert.Equal(t, "BAD", snap.Failed[0].Symbol)
	assert.Contains(t, snap.Failed[0].Reason, "empty series")

	states := map[string]model.SymbolState{}
	for _, s := range snap.Statuses {
		states[s.Symbol] = s.State
	}
	assert.Equal(t, map[string]model.SymbolState{
		"BAD": model.StateFailed,
		"NEW": model.StateIncomplete,
		"OK":  model.StateQuiet,
	}, states)
}

func TestBuild_Empty(t *testing.T) {
	snap := Build(nil, 2.0)
	assert.True(t, snap.AsOf.IsZero())
	assert.NotNil(t, snap.Gainers)
	assert.Empty(t, snap.Statuses)
}

func TestTopAndCounts(t *testing.T) {
	results := []model.SymbolResult{
		result(t, "AAA", 108, 1000, 30),
		result(t, "BBB", 100, 1000, 31),
	}
	snap := Build(results, 2.0)
	assert.Len(t, Top(snap.Gainers, 1), 1)
	assert.Len(t, Top(snap.Gainers, 5), 2)
	assert.Equal(t, 1, AlertCount(results))
	assert.Equal(t, day0.AddDate(0, 0, 30), LatestDate(results))
}
