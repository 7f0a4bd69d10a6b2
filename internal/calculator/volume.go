package calculator

import "github.com/moznion/go-optional"

// OBV is on-balance volume: OBV[0] = 0, then volume is added on an up close,
// subtracted on a down close, and ignored on an unchanged close.
type OBV struct {
	started bool
	prev    float64
	total   int64
}

func (o *OBV) Update(close float64, volume int64) {
	if !o.started {
		o.started = true
		o.prev = close
		return
	}
	switch {
	case close > o.prev:
		o.total += volume
	case close < o.prev:
		o.total -= volume
	}
	o.prev = close
}

func (o *OBV) Value() optional.Option[int64] {
	if !o.started {
		return optional.None[int64]()
	}
	return optional.Some(o.total)
}

// VolumeRatio compares each bar's volume with the trailing SMA of volume.
type VolumeRatio struct {
	avg     *SMA
	current float64
}

// NewVolumeRatio creates a volume ratio over a period-bar volume average.
func NewVolumeRatio(period int) *VolumeRatio {
	return &VolumeRatio{avg: NewSMA(period)}
}

func (v *VolumeRatio) Update(volume int64) {
	v.current = float64(volume)
	v.avg.Update(v.current)
}

// Average returns the trailing volume SMA.
func (v *VolumeRatio) Average() optional.Option[float64] { return v.avg.Value() }

// Value is None while the average is undefined or zero.
func (v *VolumeRatio) Value() optional.Option[float64] {
	avg := v.avg.Value()
	if avg.IsNone() || avg.Unwrap() == 0 {
		return optional.None[float64]()
	}
	return optional.Some(v.current / avg.Unwrap())
}
