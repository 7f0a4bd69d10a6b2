package calculator

import (
	"errors"

	"github.com/moznion/go-optional"
)

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// SMA is a trailing simple moving average fed one value at a time.
type SMA struct {
	win *window
}

// NewSMA creates an SMA over period values.
func NewSMA(period int) *SMA {
	return &SMA{win: newWindow(period)}
}

func (s *SMA) Update(v float64) { s.win.Push(v) }

func (s *SMA) Ready() bool { return s.win.Full() }

// Value is None until period values have been seen.
func (s *SMA) Value() optional.Option[float64] {
	if !s.win.Full() {
		return optional.None[float64]()
	}
	return optional.Some(s.win.Mean())
}

// EMA is an exponential moving average seeded with the SMA of its first
// period values: EMA[i] = v*k + EMA[i-1]*(1-k), k = 2/(period+1).
type EMA struct {
	period  int
	k       float64
	count   int
	seed    []float64
	current float64
}

// NewEMA creates an EMA with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		k:      2.0 / float64(period+1),
	}
}

func (e *EMA) Update(v float64) {
	e.count++
	if e.count <= e.period {
		e.seed = append(e.seed, v)
		if e.count == e.period {
			e.current, _ = CalculateSMA(e.seed, e.period)
			e.seed = nil
		}
		return
	}
	e.current = v*e.k + e.current*(1-e.k)
}

func (e *EMA) Ready() bool { return e.count >= e.period }

// Value is None before the seed bar (index period-1).
func (e *EMA) Value() optional.Option[float64] {
	if !e.Ready() {
		return optional.None[float64]()
	}
	return optional.Some(e.current)
}
