package calculator

import "math"

// window is a fixed-capacity circular buffer holding the most recent values
// pushed into it. Aggregates are only meaningful once the window is full.
type window struct {
	buf   []float64
	idx   int
	count int
}

func newWindow(size int) *window {
	return &window{buf: make([]float64, size)}
}

// Push overwrites the oldest value once the window is full.
func (w *window) Push(v float64) {
	w.buf[w.idx] = v
	w.idx = (w.idx + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

func (w *window) Full() bool { return w.count == len(w.buf) }

func (w *window) Reset() {
	w.idx = 0
	w.count = 0
}

// Mean sums the buffer on every call so no rounding error is carried from
// values that have already left the window.
func (w *window) Mean() float64 {
	sum := 0.0
	for i := 0; i < w.count; i++ {
		sum += w.buf[i]
	}
	return sum / float64(w.count)
}

// StdDev returns the population standard deviation around mean.
func (w *window) StdDev(mean float64) float64 {
	sq := 0.0
	for i := 0; i < w.count; i++ {
		d := w.buf[i] - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(w.count))
}

func (w *window) Min() float64 {
	m := math.Inf(1)
	for i := 0; i < w.count; i++ {
		if w.buf[i] < m {
			m = w.buf[i]
		}
	}
	return m
}

func (w *window) Max() float64 {
	m := math.Inf(-1)
	for i := 0; i < w.count; i++ {
		if w.buf[i] > m {
			m = w.buf[i]
		}
	}
	return m
}
