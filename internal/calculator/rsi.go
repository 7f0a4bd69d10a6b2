package calculator

import "github.com/moznion/go-optional"

// RSI is the Wilder-smoothed relative strength index. The first value is
// produced after period price changes, i.e. at bar index period.
type RSI struct {
	period  int
	count   int
	prev    float64
	avgGain float64
	avgLoss float64
}

// NewRSI creates an RSI with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Update(price float64) {
	r.count++
	if r.count == 1 {
		r.prev = price
		return
	}

	change := price - r.prev
	r.prev = price
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	p := float64(r.period)
	if r.count <= r.period+1 {
		// Seed: plain average of the first period changes.
		r.avgGain += gain
		r.avgLoss += loss
		if r.count == r.period+1 {
			r.avgGain /= p
			r.avgLoss /= p
		}
		return
	}

	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
}

func (r *RSI) Ready() bool { return r.count > r.period }

func (r *RSI) Value() optional.Option[float64] {
	if !r.Ready() {
		return optional.None[float64]()
	}
	return optional.Some(rsiFromAverages(r.avgGain, r.avgLoss))
}

// rsiFromAverages maps smoothed averages to 0..100. A run with no losses is
// 100, a perfectly flat run is 50.
func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain > 0 {
			return 100.0
		}
		return 50.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
