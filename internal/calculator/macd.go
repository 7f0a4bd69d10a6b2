package calculator

import "github.com/moznion/go-optional"

// MACD tracks EMA(fast) - EMA(slow) and its EMA(signal) line. The signal EMA
// only sees bars where the MACD line itself is defined, so it warms up after
// slow+signal-2 bars.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
	line   optional.Option[float64]
}

// NewMACD creates a MACD with the given fast, slow and signal periods.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
		line:   optional.None[float64](),
	}
}

func (m *MACD) Update(price float64) {
	m.fast.Update(price)
	m.slow.Update(price)
	if !m.fast.Ready() || !m.slow.Ready() {
		m.line = optional.None[float64]()
		return
	}
	v := m.fast.current - m.slow.current
	m.line = optional.Some(v)
	m.signal.Update(v)
}

// Values returns the MACD line, signal line and histogram. The histogram is
// exactly line - signal whenever both are defined.
func (m *MACD) Values() (line, signal, hist optional.Option[float64]) {
	line = m.line
	signal = optional.None[float64]()
	hist = optional.None[float64]()
	if line.IsNone() || !m.signal.Ready() {
		return line, signal, hist
	}
	s := m.signal.current
	return line, optional.Some(s), optional.Some(line.Unwrap() - s)
}
