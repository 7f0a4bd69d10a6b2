package calculator

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"MarketPulse/internal/model"

	"github.com/moznion/go-optional"
)

// Enrich computes every indicator for every bar of s in one left-to-right
// pass. The input series is not modified; the result owns a copy of the bars.
func Enrich(s model.Series, w model.Windows) (*model.EnrichedSeries, error) {
	if err := CheckWindows(w); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Symbol, err)
	}

	smaShort := NewSMA(w.SMAShort)
	smaLong := NewSMA(w.SMALong)
	ema := NewEMA(w.EMA)
	rsi := NewRSI(w.RSI)
	macd := NewMACD(w.MACDFast, w.MACDSlow, w.MACDSignal)
	bands := NewBollinger(w.BollingerPeriod, w.BollingerK)
	obv := &OBV{}
	volume := NewVolumeRatio(w.VolumeWindow)
	volatility := NewStdDev(w.VolatilityWindow)
	levels := NewRange(w.RangeWindow)

	out := &model.EnrichedSeries{
		Series:     model.Series{Symbol: s.Symbol, Bars: slices.Clone(s.Bars)},
		Windows:    w,
		Indicators: make([]model.IndicatorSet, len(s.Bars)),
	}

	for i, b := range out.Bars {
		ret := optional.None[float64]()
		if i > 0 {
			ret = ratioChange(b.Close, out.Bars[i-1].Close)
		}

		smaShort.Update(b.Close)
		smaLong.Update(b.Close)
		ema.Update(b.Close)
		rsi.Update(b.Close)
		macd.Update(b.Close)
		bands.Update(b.Close)
		obv.Update(b.Close, b.Volume)
		volume.Update(b.Volume)
		volatility.Update(ret)
		levels.Update(b.Low, b.High)

		line, signal, hist := macd.Values()
		mid, upper, lower := bands.Bands()

		set := model.IndicatorSet{
			SMAShort:       smaShort.Value(),
			SMALong:        smaLong.Value(),
			EMA:            ema.Value(),
			RSI:            rsi.Value(),
			MACD:           line,
			MACDSignal:     signal,
			MACDHist:       hist,
			BBMid:          mid,
			BBUpper:        upper,
			BBLower:        lower,
			OBV:            obv.Value(),
			VolumeSMA:      volume.Average(),
			VolumeRatio:    volume.Value(),
			Volatility:     volatility.Value(),
			Support:        levels.Support(),
			Resistance:     levels.Resistance(),
			DailyReturn:    ret,
			PriceChange:    optional.Some(b.Close - b.Open),
			PriceChangePct: percentOf(b.Close-b.Open, b.Open),
			HLSpread:       optional.Some(b.High - b.Low),
			HLSpreadPct:    percentOf(b.High-b.Low, b.Close),
		}
		if name, ok := firstNonFinite(&set); !ok {
			return nil, &model.ComputationError{
				Symbol:    s.Symbol,
				Indicator: name,
				Index:     i,
				Date:      b.Date,
				Err:       errors.New("non-finite value"),
			}
		}
		out.Indicators[i] = set
	}
	return out, nil
}

// CheckWindows rejects non-positive window lengths.
func CheckWindows(w model.Windows) error {
	periods := []struct {
		name string
		n    int
	}{
		{"sma_short", w.SMAShort},
		{"sma_long", w.SMALong},
		{"ema", w.EMA},
		{"rsi", w.RSI},
		{"macd_fast", w.MACDFast},
		{"macd_slow", w.MACDSlow},
		{"macd_signal", w.MACDSignal},
		{"bollinger_period", w.BollingerPeriod},
		{"volume_window", w.VolumeWindow},
		{"volatility_window", w.VolatilityWindow},
		{"range_window", w.RangeWindow},
	}
	for _, p := range periods {
		if p.n <= 0 {
			return fmt.Errorf("%s period must be positive, got %d", p.name, p.n)
		}
	}
	if w.BollingerK <= 0 {
		return fmt.Errorf("bollinger_stddev must be positive, got %g", w.BollingerK)
	}
	return nil
}

// ratioChange is (cur-prev)/prev, absent when prev is not a positive price.
func ratioChange(cur, prev float64) optional.Option[float64] {
	if prev <= 0 {
		return optional.None[float64]()
	}
	return optional.Some((cur - prev) / prev)
}

func percentOf(delta, base float64) optional.Option[float64] {
	if base == 0 {
		return optional.None[float64]()
	}
	return optional.Some(delta / base * 100)
}

func firstNonFinite(set *model.IndicatorSet) (string, bool) {
	fields := []struct {
		name string
		v    optional.Option[float64]
	}{
		{"sma_short", set.SMAShort},
		{"sma_long", set.SMALong},
		{"ema", set.EMA},
		{"rsi", set.RSI},
		{"macd", set.MACD},
		{"macd_signal", set.MACDSignal},
		{"macd_hist", set.MACDHist},
		{"bb_mid", set.BBMid},
		{"bb_upper", set.BBUpper},
		{"bb_lower", set.BBLower},
		{"volume_sma", set.VolumeSMA},
		{"volume_ratio", set.VolumeRatio},
		{"volatility", set.Volatility},
		{"support", set.Support},
		{"resistance", set.Resistance},
		{"daily_return", set.DailyReturn},
		{"price_change", set.PriceChange},
		{"price_change_pct", set.PriceChangePct},
		{"hl_spread", set.HLSpread},
		{"hl_spread_pct", set.HLSpreadPct},
	}
	for _, f := range fields {
		if f.v.IsSome() {
			v := f.v.Unwrap()
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return f.name, false
			}
		}
	}
	return "", true
}
