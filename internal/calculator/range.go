package calculator

import "github.com/moznion/go-optional"

// Range tracks support (lowest low) and resistance (highest high) over a
// trailing lookback.
type Range struct {
	lows  *window
	highs *window
}

// NewRange creates a support/resistance tracker over lookback bars.
func NewRange(lookback int) *Range {
	return &Range{lows: newWindow(lookback), highs: newWindow(lookback)}
}

func (r *Range) Update(low, high float64) {
	r.lows.Push(low)
	r.highs.Push(high)
}

func (r *Range) Support() optional.Option[float64] {
	if !r.lows.Full() {
		return optional.None[float64]()
	}
	return optional.Some(r.lows.Min())
}

func (r *Range) Resistance() optional.Option[float64] {
	if !r.highs.Full() {
		return optional.None[float64]()
	}
	return optional.Some(r.highs.Max())
}

// Position returns where current sits within [low, high], clamped to 0..1.
// A zero-width range yields 0.5.
func Position(current, high, low float64) float64 {
	if high <= low {
		return 0.5
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos
}
