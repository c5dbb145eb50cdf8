package effects

import "math"

const (
	MinReverbDecay = 0.1
	MaxReverbDecay = 10.0
	maxCombGain    = 0.98
)

// Reverb implements a Schroeder-style reverb with four comb filters and two
// allpass filters. Decay is the time in seconds for the tail to fall by
// 60 dB; each comb's feedback is derived from its own length.
type Reverb struct {
	combs        [4]combFilter
	allpass      [2]allpassFilter
	sampleRate   int
	decay        atomicFloat
	appliedDecay float64
	wet          smoothed
}

type combFilter struct {
	buf []float32
	pos int
	fb  float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

// NewReverb creates a reverb effect.
// roomSize: 0..1 controls delay lengths
// decaySec: RT60 decay time in seconds
// wet: wet/dry mix 0..1
func NewReverb(sampleRate int, roomSize float32, decaySec, wet float64) *Reverb {
	base := int(float32(sampleRate) * roomSize * 0.05)
	if base < 10 {
		base = 10
	}
	r := &Reverb{sampleRate: sampleRate}
	r.wet.init(sampleRate, clampMix(wet))
	// Comb filter delay lengths (prime-ish ratios to avoid resonances)
	combLens := [4]int{base, base * 1117 / 1000, base * 1271 / 1000, base * 1437 / 1000}
	for i := range r.combs {
		r.combs[i] = combFilter{buf: make([]float32, combLens[i])}
	}
	// Allpass filter delay lengths
	apLens := [2]int{base * 347 / 1000, base * 213 / 1000}
	for i := range r.allpass {
		r.allpass[i] = allpassFilter{
			buf: make([]float32, max(apLens[i], 1)),
			fb:  0.5,
		}
	}
	r.SetDecay(decaySec)
	r.applyDecay(r.decay.Load())
	return r
}

// SetDecay sets the RT60 decay in seconds, clamped to
// [MinReverbDecay, MaxReverbDecay]. The comb gains are recomputed on the
// audio thread at the next sample.
func (r *Reverb) SetDecay(sec float64) {
	if math.IsNaN(sec) {
		sec = MinReverbDecay
	}
	r.decay.Store(clamp(sec, MinReverbDecay, MaxReverbDecay))
}

func (r *Reverb) Decay() float64 { return r.decay.Load() }

// SetWet sets the wet/dry mix, clamped to 0..1. Safe from any goroutine.
func (r *Reverb) SetWet(w float64) { r.wet.set(clampMix(w)) }

// Wet returns the wet/dry mix target.
func (r *Reverb) Wet() float64 { return r.wet.get() }

func (r *Reverb) applyDecay(decay float64) {
	for i := range r.combs {
		// g = 10^(-3 * loopTime / RT60)
		loop := float64(len(r.combs[i].buf)) / float64(r.sampleRate)
		g := math.Pow(10, -3*loop/decay)
		r.combs[i].fb = float32(math.Min(g, maxCombGain))
	}
	r.appliedDecay = decay
}

func (r *Reverb) Process(l, r2 float32) (float32, float32) {
	if d := r.decay.Load(); d != r.appliedDecay {
		r.applyDecay(d)
	}
	mono := (l + r2) * 0.5
	var out float32
	for i := range r.combs {
		out += r.combs[i].process(mono)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].process(out)
	}
	w := float32(r.wet.next())
	return l*(1-w) + out*w, r2*(1-w) + out*w
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		for j := range r.combs[i].buf {
			r.combs[i].buf[j] = 0
		}
		r.combs[i].pos = 0
	}
	for i := range r.allpass {
		for j := range r.allpass[i].buf {
			r.allpass[i].buf[j] = 0
		}
		r.allpass[i].pos = 0
	}
	r.wet.snap()
}

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.buf[c.pos] = in + out*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}
