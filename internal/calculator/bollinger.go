package calculator

import "github.com/moznion/go-optional"

// Bollinger computes SMA(period) ± k standard deviations using the population
// standard deviation of the window.
type Bollinger struct {
	win *window
	k   float64
}

// NewBollinger creates Bollinger bands over period closes with width k.
func NewBollinger(period int, k float64) *Bollinger {
	return &Bollinger{win: newWindow(period), k: k}
}

func (b *Bollinger) Update(price float64) { b.win.Push(price) }

// Bands returns mid, upper and lower. On a flat window both bands equal mid.
func (b *Bollinger) Bands() (mid, upper, lower optional.Option[float64]) {
	if !b.win.Full() {
		none := optional.None[float64]()
		return none, none, none
	}
	m := b.win.Mean()
	sd := b.win.StdDev(m)
	if sd == 0 {
		return optional.Some(m), optional.Some(m), optional.Some(m)
	}
	return optional.Some(m), optional.Some(m + b.k*sd), optional.Some(m - b.k*sd)
}

// StdDev is a rolling population standard deviation. A missing input clears
// the window, so the value stays absent until period consecutive inputs exist.
type StdDev struct {
	win *window
}

// NewStdDev creates a rolling standard deviation over period values.
func NewStdDev(period int) *StdDev {
	return &StdDev{win: newWindow(period)}
}

func (s *StdDev) Update(v optional.Option[float64]) {
	if v.IsNone() {
		s.win.Reset()
		return
	}
	s.win.Push(v.Unwrap())
}

func (s *StdDev) Value() optional.Option[float64] {
	if !s.win.Full() {
		return optional.None[float64]()
	}
	return optional.Some(s.win.StdDev(s.win.Mean()))
}
