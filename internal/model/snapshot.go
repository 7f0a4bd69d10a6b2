package model

import (
	"time"

	"github.com/moznion/go-optional"
)

// Mover is one ranked entry of the market snapshot.
type Mover struct {
	Symbol      string                   `json:"symbol"`
	Close       float64                  `json:"close"`
	DailyReturn float64                  `json:"daily_return"`
	Volume      int64                    `json:"volume"`
	VolumeRatio optional.Option[float64] `json:"volume_ratio"`
}

// Trend labels derived from price versus the short and long SMA.
const (
	TrendStrongUp     = "strong_uptrend"
	TrendWeakUp       = "weak_uptrend"
	TrendStrongDown   = "strong_downtrend"
	TrendWeakDown     = "weak_downtrend"
	TrendInsufficient = "insufficient_data"
)

// Bollinger band positions and MACD states.
const (
	BandAboveUpper   = "above_upper"
	BandBelowLower   = "below_lower"
	BandWithin       = "within_bands"
	NotAvailable     = "n/a"
	MACDBullish      = "bullish"
	MACDBearish      = "bearish"
	MACDBullishCross = "bullish_cross"
	MACDBearishCross = "bearish_cross"
	MACDNoCross      = "none"
)

// Highlights summarizes the latest bar of one symbol for reporting.
type Highlights struct {
	Close           float64                  `json:"close"`
	DailyReturn     optional.Option[float64] `json:"daily_return"`
	VolumeRatio     optional.Option[float64] `json:"volume_ratio"`
	VolumeChangePct optional.Option[float64] `json:"volume_change_pct"`
	RSI             optional.Option[float64] `json:"rsi"`
	SMAShort        optional.Option[float64] `json:"sma_short"`
	SMALong         optional.Option[float64] `json:"sma_long"`
	Volatility      optional.Option[float64] `json:"volatility"`
	Support         optional.Option[float64] `json:"support"`
	Resistance      optional.Option[float64] `json:"resistance"`
	RangePosition   optional.Option[float64] `json:"range_position"`
	AvgReturn7      optional.Option[float64] `json:"avg_return_7d"`
	AvgReturn30     optional.Option[float64] `json:"avg_return_30d"`
	Trend           string                   `json:"trend"`
	BandPosition    string                   `json:"band_position"`
	MACDBias        string                   `json:"macd_bias"`
	MACDCross       string                   `json:"macd_cross"`
}

// SignificantMover is a symbol that raised at least one alert.
type SignificantMover struct {
	Symbol     string     `json:"symbol"`
	Alerts     []Alert    `json:"alerts"`
	Highlights Highlights `json:"highlights"`
}

// SymbolState tells "no alert" apart from "computation failed".
type SymbolState string

const (
	StateAlerted    SymbolState = "alerted"
	StateQuiet      SymbolState = "quiet"
	StateIncomplete SymbolState = "incomplete"
	StateFailed     SymbolState = "failed"
)

// SymbolStatus is the per-symbol outcome of a run.
type SymbolStatus struct {
	Symbol string      `json:"symbol"`
	State  SymbolState `json:"state"`
	Reason string      `json:"reason,omitempty"`
}

// SymbolFailure records why a symbol produced no enriched series.
type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// MarketSnapshot is the cross-sectional view of one run.
type MarketSnapshot struct {
	AsOf        time.Time          `json:"as_of"`
	Gainers     []Mover            `json:"gainers"`
	Losers      []Mover            `json:"losers"`
	HighVolume  []Mover            `json:"high_volume"`
	Significant []SignificantMover `json:"significant"`
	Incomplete  []string           `json:"incomplete"`
	Failed      []SymbolFailure    `json:"failed"`
	Statuses    []SymbolStatus     `json:"statuses"`
}
