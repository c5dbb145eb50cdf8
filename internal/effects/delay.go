package effects

import "sync/atomic"

// MaxDelayMs is the longest delay time the line can be retuned to without
// reallocating.
const MaxDelayMs = 2000.0

// Delay implements a stereo feedback delay with cross-channel mixing. Delay
// time and wet mix can be changed while running.
type Delay struct {
	bufL, bufR   []float32
	pos          int
	sampleRate   int
	delaySamples atomic.Int64
	feedback     float32
	cross        float32
	wet          smoothed
}

// NewDelay creates a delay effect.
// delayMs: delay time in milliseconds
// feedback: feedback amount 0..1
// cross: cross-channel feedback 0..1
// wet: wet/dry mix 0..1
func NewDelay(sampleRate int, delayMs float64, feedback, cross float32, wet float64) *Delay {
	maxMs := MaxDelayMs
	if delayMs > maxMs {
		maxMs = delayMs
	}
	size := int(maxMs*float64(sampleRate)/1000.0) + 1
	if size < 2 {
		size = 2
	}
	d := &Delay{
		bufL:       make([]float32, size),
		bufR:       make([]float32, size),
		sampleRate: sampleRate,
		feedback:   float32(clamp(float64(feedback), 0, 0.95)),
		cross:      float32(clamp(float64(cross), 0, 1)),
	}
	d.wet.init(sampleRate, clampMix(wet))
	d.SetDelayTime(delayMs)
	return d
}

// SetDelayTime retunes the delay in milliseconds, clamped to the buffer.
func (d *Delay) SetDelayTime(ms float64) {
	samples := int64(ms * float64(d.sampleRate) / 1000.0)
	if samples < 1 {
		samples = 1
	}
	if limit := int64(len(d.bufL) - 1); samples > limit {
		samples = limit
	}
	d.delaySamples.Store(samples)
}

// DelayTime returns the effective delay in milliseconds.
func (d *Delay) DelayTime() float64 {
	return float64(d.delaySamples.Load()) * 1000.0 / float64(d.sampleRate)
}

// Feedback returns the fixed feedback amount.
func (d *Delay) Feedback() float32 { return d.feedback }

// SetWet sets the wet/dry mix, clamped to 0..1. Safe from any goroutine.
func (d *Delay) SetWet(w float64) { d.wet.set(clampMix(w)) }

// Wet returns the wet/dry mix target.
func (d *Delay) Wet() float64 { return d.wet.get() }

func (d *Delay) Process(l, r float32) (float32, float32) {
	rp := d.pos - int(d.delaySamples.Load())
	if rp < 0 {
		rp += len(d.bufL)
	}
	delL := d.bufL[rp]
	delR := d.bufR[rp]
	fbL := delL*d.feedback*(1-d.cross) + delR*d.feedback*d.cross
	fbR := delR*d.feedback*(1-d.cross) + delL*d.feedback*d.cross
	d.bufL[d.pos] = l + fbL
	d.bufR[d.pos] = r + fbR
	d.pos++
	if d.pos >= len(d.bufL) {
		d.pos = 0
	}
	w := float32(d.wet.next())
	return l*(1-w) + delL*w, r*(1-w) + delR*w
}

func (d *Delay) Reset() {
	for i := range d.bufL {
		d.bufL[i] = 0
		d.bufR[i] = 0
	}
	d.pos = 0
	d.wet.snap()
}
