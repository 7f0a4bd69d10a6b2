package model

import (
	"time"

	"github.com/moznion/go-optional"
)

// Windows holds the lookback lengths used by the indicator calculator.
type Windows struct {
	SMAShort         int
	SMALong          int
	EMA              int
	RSI              int
	MACDFast         int
	MACDSlow         int
	MACDSignal       int
	BollingerPeriod  int
	BollingerK       float64
	VolumeWindow     int
	VolatilityWindow int
	RangeWindow      int // support/resistance lookback
}

// DefaultWindows returns SMA 20/50, EMA 20, RSI 14, MACD 12/26/9, Bollinger 20/2
// and 20-bar volume, volatility and support/resistance windows.
func DefaultWindows() Windows {
	return Windows{
		SMAShort:         20,
		SMALong:          50,
		EMA:              20,
		RSI:              14,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		BollingerPeriod:  20,
		BollingerK:       2.0,
		VolumeWindow:     20,
		VolatilityWindow: 20,
		RangeWindow:      20,
	}
}

// IndicatorSet holds every indicator for one bar. A None field means the
// indicator is not yet defined at this bar; it is never a stand-in for zero.
type IndicatorSet struct {
	SMAShort optional.Option[float64]
	SMALong  optional.Option[float64]
	EMA      optional.Option[float64]
	RSI      optional.Option[float64]

	MACD       optional.Option[float64]
	MACDSignal optional.Option[float64]
	MACDHist   optional.Option[float64]

	BBMid   optional.Option[float64]
	BBUpper optional.Option[float64]
	BBLower optional.Option[float64]

	OBV         optional.Option[int64]
	VolumeSMA   optional.Option[float64]
	VolumeRatio optional.Option[float64]

	Volatility optional.Option[float64]
	Support    optional.Option[float64]
	Resistance optional.Option[float64]

	DailyReturn    optional.Option[float64]
	PriceChange    optional.Option[float64]
	PriceChangePct optional.Option[float64]
	HLSpread       optional.Option[float64]
	HLSpreadPct    optional.Option[float64]
}

// EnrichedSeries is a Series plus one IndicatorSet per bar.
type EnrichedSeries struct {
	Series
	Windows    Windows
	Indicators []IndicatorSet
}

// Latest returns the last bar and its indicators.
func (e *EnrichedSeries) Latest() (Bar, IndicatorSet, bool) {
	n := len(e.Bars)
	if n == 0 || len(e.Indicators) != n {
		return Bar{}, IndicatorSet{}, false
	}
	return e.Bars[n-1], e.Indicators[n-1], true
}

// AsOf returns the date of the last bar, or the zero time for an empty series.
func (e *EnrichedSeries) AsOf() time.Time {
	if len(e.Bars) == 0 {
		return time.Time{}
	}
	return e.Bars[len(e.Bars)-1].Date
}
