package calculator

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"MarketPulse/internal/model"

	"github.com/markcheno/go-talib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func seriesFromCloses(symbol string, closes []float64, volume int64) model.Series {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Date:   day0.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: volume,
		}
	}
	return model.Series{Symbol: symbol, Bars: bars}
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func randomWalk(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	p := 100.0
	for i := range out {
		p *= 1 + (rng.Float64()-0.5)*0.04
		out[i] = p
	}
	return out
}

func enrich(t *testing.T, s model.Series) *model.EnrichedSeries {
	t.Helper()
	es, err := Enrich(s, model.DefaultWindows())
	require.NoError(t, err)
	require.Len(t, es.Indicators, len(s.Bars))
	return es
}

func TestEnrich_ConstantPrice(t *testing.T) {
	es := enrich(t, seriesFromCloses("FLAT", constant(30, 100), 1000))

	for i, set := range es.Indicators {
		if i < 19 {
			assert.True(t, set.SMAShort.IsNone(), "sma at %d", i)
			assert.True(t, set.EMA.IsNone(), "ema at %d", i)
			assert.True(t, set.BBMid.IsNone(), "bb at %d", i)
			continue
		}
		assert.InDelta(t, 100.0, set.SMAShort.Unwrap(), 1e-9, "sma at %d", i)
		assert.InDelta(t, 100.0, set.EMA.Unwrap(), 1e-9, "ema at %d", i)
		assert.Equal(t, set.BBMid.Unwrap(), set.BBUpper.Unwrap(), "upper at %d", i)
		assert.Equal(t, set.BBMid.Unwrap(), set.BBLower.Unwrap(), "lower at %d", i)
		if i >= 20 {
			require.True(t, set.Volatility.IsSome(), "volatility at %d", i)
			assert.Equal(t, 0.0, set.Volatility.Unwrap())
		} else {
			assert.True(t, set.Volatility.IsNone(), "volatility at %d", i)
		}
	}
	last := es.Indicators[29]
	assert.Equal(t, 50.0, last.RSI.Unwrap(), "flat price RSI")
	assert.Equal(t, int64(0), last.OBV.Unwrap())
}

func TestEnrich_RisingPrice(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 50 + float64(i)
	}
	es := enrich(t, seriesFromCloses("UP", closes, 500))

	for i, set := range es.Indicators {
		if i < 14 {
			assert.True(t, set.RSI.IsNone(), "rsi at %d", i)
		} else {
			assert.Equal(t, 100.0, set.RSI.Unwrap(), "rsi at %d", i)
		}
		if i > 0 {
			assert.Greater(t, set.OBV.Unwrap(), es.Indicators[i-1].OBV.Unwrap(), "obv at %d", i)
		}
	}
	assert.Equal(t, int64(0), es.Indicators[0].OBV.Unwrap())
	assert.Equal(t, int64(19*500), es.Indicators[19].OBV.Unwrap())
}

func TestEnrich_MACDHistogramIdentity(t *testing.T) {
	es := enrich(t, seriesFromCloses("MACD", randomWalk(80, 7), 1000))

	var defined int
	for i, set := range es.Indicators {
		switch {
		case i < 25:
			assert.True(t, set.MACD.IsNone(), "macd at %d", i)
		case i < 33:
			assert.True(t, set.MACD.IsSome(), "macd at %d", i)
			assert.True(t, set.MACDSignal.IsNone(), "signal at %d", i)
			assert.True(t, set.MACDHist.IsNone(), "hist at %d", i)
		default:
			require.True(t, set.MACDSignal.IsSome(), "signal at %d", i)
			assert.Equal(t, set.MACD.Unwrap()-set.MACDSignal.Unwrap(), set.MACDHist.Unwrap(), "hist at %d", i)
			defined++
		}
	}
	assert.Equal(t, 80-33, defined)
}

func TestEnrich_Idempotent(t *testing.T) {
	s := seriesFromCloses("IDEM", randomWalk(120, 3), 2500)
	first := enrich(t, s)
	second := enrich(t, s)
	assert.Equal(t, first, second)
}

func TestEnrich_DoesNotAliasInput(t *testing.T) {
	s := seriesFromCloses("COPY", constant(5, 10), 1)
	es := enrich(t, s)
	es.Bars[0].Close = 999
	assert.Equal(t, 10.0, s.Bars[0].Close)
}

func TestEnrich_ShortSeriesLeavesWindowedIndicatorsAbsent(t *testing.T) {
	es := enrich(t, seriesFromCloses("SHORT", randomWalk(10, 11), 100))

	for i, set := range es.Indicators {
		assert.True(t, set.SMAShort.IsNone(), "sma20 at %d", i)
		assert.True(t, set.SMALong.IsNone(), "sma50 at %d", i)
		assert.True(t, set.EMA.IsNone(), "ema at %d", i)
		assert.True(t, set.RSI.IsNone(), "rsi at %d", i)
		assert.True(t, set.MACD.IsNone(), "macd at %d", i)
		assert.True(t, set.BBUpper.IsNone(), "bb at %d", i)
		assert.True(t, set.VolumeRatio.IsNone(), "volume ratio at %d", i)
		assert.True(t, set.Volatility.IsNone(), "volatility at %d", i)
		assert.True(t, set.Support.IsNone(), "support at %d", i)
		assert.True(t, set.Resistance.IsNone(), "resistance at %d", i)
		assert.True(t, set.OBV.IsSome(), "obv at %d", i)
		assert.Equal(t, i > 0, set.DailyReturn.IsSome(), "daily return at %d", i)
	}
}

func TestEnrich_AAPLScenario(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 150.0 * math.Pow(1.01, float64(i))
	}
	es := enrich(t, seriesFromCloses("AAPL", closes, 1_000_000))

	for i, set := range es.Indicators {
		if i == 0 {
			assert.True(t, set.DailyReturn.IsNone())
		} else {
			assert.InDelta(t, 0.01, set.DailyReturn.Unwrap(), 1e-12, "return at %d", i)
		}
		if i < 19 {
			assert.True(t, set.SMAShort.IsNone(), "sma at %d", i)
			continue
		}
		want, err := CalculateSMA(closes[:i+1], 20)
		require.NoError(t, err)
		assert.InDelta(t, want, set.SMAShort.Unwrap(), 1e-9, "sma at %d", i)
	}
}

func TestEnrich_GapIsTreatedAsConsecutive(t *testing.T) {
	s := seriesFromCloses("GAP", randomWalk(30, 5), 100)
	for i := 15; i < len(s.Bars); i++ {
		s.Bars[i].Date = s.Bars[i].Date.AddDate(0, 0, 10)
	}
	es := enrich(t, s)

	want, err := CalculateSMA(s.Closes()[:25], 20)
	require.NoError(t, err)
	assert.InDelta(t, want, es.Indicators[24].SMAShort.Unwrap(), 1e-9)
}

func TestEnrich_ZeroVolumeAverage(t *testing.T) {
	es := enrich(t, seriesFromCloses("NOVOL", randomWalk(25, 9), 0))
	last := es.Indicators[24]
	require.True(t, last.VolumeSMA.IsSome())
	assert.Equal(t, 0.0, last.VolumeSMA.Unwrap())
	assert.True(t, last.VolumeRatio.IsNone())
}

func TestEnrich_NonPositivePreviousClose(t *testing.T) {
	closes := randomWalk(30, 13)
	closes[5] = 0
	es := enrich(t, seriesFromCloses("ZERO", closes, 100))

	assert.True(t, es.Indicators[6].DailyReturn.IsNone())
	assert.True(t, es.Indicators[5].PriceChangePct.IsNone(), "open is zero too")
	// the volatility window restarts after the missing return
	assert.True(t, es.Indicators[25].Volatility.IsNone())
	assert.True(t, es.Indicators[26].Volatility.IsSome())
}

func TestEnrich_RejectsBadWindows(t *testing.T) {
	w := model.DefaultWindows()
	w.RSI = 0
	_, err := Enrich(seriesFromCloses("BAD", constant(5, 1), 1), w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rsi period must be positive")
}

func TestEnrich_SupportResistance(t *testing.T) {
	es := enrich(t, seriesFromCloses("SR", randomWalk(40, 21), 100))
	for i := 19; i < 40; i++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, b := range es.Bars[i-19 : i+1] {
			lo = math.Min(lo, b.Low)
			hi = math.Max(hi, b.High)
		}
		assert.Equal(t, lo, es.Indicators[i].Support.Unwrap(), "support at %d", i)
		assert.Equal(t, hi, es.Indicators[i].Resistance.Unwrap(), "resistance at %d", i)
	}
	assert.True(t, es.Indicators[18].Support.IsNone())
}

func TestEnrich_MatchesTALib(t *testing.T) {
	closes := randomWalk(150, 42)
	es := enrich(t, seriesFromCloses("TALIB", closes, 1000))

	sma20 := talib.Sma(closes, 20)
	sma50 := talib.Sma(closes, 50)
	ema20 := talib.Ema(closes, 20)
	rsi14 := talib.Rsi(closes, 14)
	upper, middle, lower := talib.BBands(closes, 20, 2.0, 2.0, talib.SMA)

	for i, set := range es.Indicators {
		if i >= 19 {
			assert.InDelta(t, sma20[i], set.SMAShort.Unwrap(), 1e-6, "sma20 at %d", i)
			assert.InDelta(t, ema20[i], set.EMA.Unwrap(), 1e-6, "ema20 at %d", i)
			assert.InDelta(t, middle[i], set.BBMid.Unwrap(), 1e-6, "bb mid at %d", i)
			assert.InDelta(t, upper[i], set.BBUpper.Unwrap(), 1e-6, "bb upper at %d", i)
			assert.InDelta(t, lower[i], set.BBLower.Unwrap(), 1e-6, "bb lower at %d", i)
		}
		if i >= 49 {
			assert.InDelta(t, sma50[i], set.SMALong.Unwrap(), 1e-6, "sma50 at %d", i)
		}
		if i >= 14 {
			assert.InDelta(t, rsi14[i], set.RSI.Unwrap(), 1e-6, "rsi at %d", i)
		}
	}
}
