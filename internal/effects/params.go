package effects

import (
	"math"
	"sync/atomic"
)

// atomicFloat stores a float64 as its bit pattern so the audio thread can
// read parameters without locking.
type atomicFloat struct {
	bits atomic.Uint64
}

func (a *atomicFloat) Load() float64 {
	return math.Float64frombits(a.bits.Load())
}

func (a *atomicFloat) Store(v float64) {
	a.bits.Store(math.Float64bits(v))
}

// smoothTime is the one-pole time constant used when a mix or gain target
// changes. Long enough to avoid zipper noise, short enough to feel immediate.
const smoothTime = 0.005

// smoothed follows an atomically published target with a one-pole lowpass.
// Only the audio thread calls next.
type smoothed struct {
	target  atomicFloat
	current float64
	coef    float64
}

func (s *smoothed) init(sampleRate int, v float64) {
	s.current = v
	s.target.Store(v)
	s.coef = 1
	if sampleRate > 0 {
		s.coef = 1 - math.Exp(-1/(smoothTime*float64(sampleRate)))
	}
}

func (s *smoothed) set(v float64) { s.target.Store(v) }

func (s *smoothed) get() float64 { return s.target.Load() }

func (s *smoothed) next() float64 {
	t := s.target.Load()
	if s.current == t {
		return t
	}
	s.current += (t - s.current) * s.coef
	if math.Abs(t-s.current) < 1e-6 {
		s.current = t
	}
	return s.current
}

// snap jumps straight to the target, used by Reset.
func (s *smoothed) snap() {
	s.current = s.target.Load()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampMix clamps a wet/dry ratio into [0,1]; NaN maps to 0.
func clampMix(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 1)
}
