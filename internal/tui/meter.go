package tui

import (
	"math"
	"sync/atomic"
)

// Meter tracks the output peak. Tap is installed as the engine's sample tap
// and runs on the audio thread; Peak is read by the UI, which resets it.
type Meter struct {
	peak atomic.Uint32
}

func (m *Meter) Tap(samples []float32) {
	var p float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > p {
			p = s
		}
	}
	for {
		old := m.peak.Load()
		if math.Float32frombits(old) >= p {
			return
		}
		if m.peak.CompareAndSwap(old, math.Float32bits(p)) {
			return
		}
	}
}

// Peak returns the highest absolute sample since the last call.
func (m *Meter) Peak() float64 {
	return float64(math.Float32frombits(m.peak.Swap(0)))
}

// DB converts a linear peak to dBFS, floored at -60.
func DB(peak float64) float64 {
	if peak <= 0.001 {
		return -60
	}
	return math.Max(-60, 20*math.Log10(peak))
}
