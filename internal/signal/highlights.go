package signal

import (
	"MarketPulse/internal/calculator"
	"MarketPulse/internal/model"

	"github.com/moznion/go-optional"
)

// Highlights summarizes the latest bar of es for reports and digests.
func Highlights(es *model.EnrichedSeries) model.Highlights {
	h := model.Highlights{
		Trend:        model.TrendInsufficient,
		BandPosition: model.NotAvailable,
		MACDBias:     model.NotAvailable,
		MACDCross:    model.MACDNoCross,
	}
	bar, set, ok := es.Latest()
	if !ok {
		return h
	}
	last := len(es.Bars) - 1

	h.Close = bar.Close
	h.DailyReturn = set.DailyReturn
	h.VolumeRatio = set.VolumeRatio
	h.RSI = set.RSI
	h.SMAShort = set.SMAShort
	h.SMALong = set.SMALong
	h.Volatility = set.Volatility
	h.Support = set.Support
	h.Resistance = set.Resistance
	if set.Support.IsSome() && set.Resistance.IsSome() {
		h.RangePosition = optional.Some(calculator.Position(bar.Close, set.Resistance.Unwrap(), set.Support.Unwrap()))
	}
	if last > 0 {
		if prev := es.Bars[last-1].Volume; prev > 0 {
			h.VolumeChangePct = optional.Some(float64(bar.Volume-prev) / float64(prev) * 100)
		}
	}
	h.AvgReturn7 = meanReturn(es, 7)
	h.AvgReturn30 = meanReturn(es, 30)
	h.Trend = trend(bar.Close, set.SMAShort, set.SMALong)
	h.BandPosition = bandPosition(bar.Close, set.BBUpper, set.BBLower)

	if set.MACD.IsSome() && set.MACDSignal.IsSome() {
		h.MACDBias = model.MACDBearish
		if set.MACD.Unwrap() > set.MACDSignal.Unwrap() {
			h.MACDBias = model.MACDBullish
		}
	}
	if last > 0 {
		h.MACDCross = crossover(es.Indicators[last-1].MACDHist, set.MACDHist)
	}
	return h
}

// meanReturn averages the defined daily returns among the last n bars.
func meanReturn(es *model.EnrichedSeries, n int) optional.Option[float64] {
	start := max(len(es.Indicators)-n, 0)
	sum, count := 0.0, 0
	for _, set := range es.Indicators[start:] {
		if set.DailyReturn.IsSome() {
			sum += set.DailyReturn.Unwrap()
			count++
		}
	}
	if count == 0 {
		return optional.None[float64]()
	}
	return optional.Some(sum / float64(count))
}

func trend(close float64, short, long optional.Option[float64]) string {
	if short.IsNone() || long.IsNone() {
		return model.TrendInsufficient
	}
	s, l := short.Unwrap(), long.Unwrap()
	switch {
	case close > s && s > l:
		return model.TrendStrongUp
	case close > s && s < l:
		return model.TrendWeakUp
	case close < s && s < l:
		return model.TrendStrongDown
	default:
		return model.TrendWeakDown
	}
}

func bandPosition(close float64, upper, lower optional.Option[float64]) string {
	if upper.IsNone() || lower.IsNone() {
		return model.NotAvailable
	}
	switch {
	case close > upper.Unwrap():
		return model.BandAboveUpper
	case close < lower.Unwrap():
		return model.BandBelowLower
	default:
		return model.BandWithin
	}
}

// crossover reports a MACD/signal cross on the latest bar via the histogram sign.
func crossover(prev, cur optional.Option[float64]) string {
	if prev.IsNone() || cur.IsNone() {
		return model.MACDNoCross
	}
	p, c := prev.Unwrap(), cur.Unwrap()
	switch {
	case p <= 0 && c > 0:
		return model.MACDBullishCross
	case p >= 0 && c < 0:
		return model.MACDBearishCross
	default:
		return model.MACDNoCross
	}
}
