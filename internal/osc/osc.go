// Package osc provides the audio-rate oscillator each voice plays.
package osc

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

const twoPi = math.Pi * 2

// Shape selects the oscillator waveform.
type Shape int32

const (
	Sine Shape = iota
	Square
	Triangle
	Sawtooth
)

var shapeNames = [...]string{"sine", "square", "triangle", "sawtooth"}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return fmt.Sprintf("shape(%d)", int(s))
	}
	return shapeNames[s]
}

func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(b []byte) error {
	v, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Valid reports whether s is one of the four known shapes.
func (s Shape) Valid() bool {
	return s >= Sine && s <= Sawtooth
}

// ParseShape accepts the shape names used by the panels. "saw" is an alias
// for sawtooth.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sine", "sin":
		return Sine, nil
	case "square", "sqr":
		return Square, nil
	case "triangle", "tri":
		return Triangle, nil
	case "sawtooth", "saw":
		return Sawtooth, nil
	}
	return Sine, fmt.Errorf("unknown oscillator type %q", name)
}

// Oscillator is a phase-accumulating waveform generator. The shape can be
// swapped from another goroutine while the oscillator runs; the phase is kept
// so a swap never retriggers the note.
type Oscillator struct {
	freq  float64
	phase float64 // [0, 1)
	shape atomic.Int32
}

// New creates an oscillator at freq Hz.
func New(freq float64, shape Shape) *Oscillator {
	o := &Oscillator{freq: freq}
	o.SetShape(shape)
	return o
}

func (o *Oscillator) SetShape(s Shape) {
	if !s.Valid() {
		s = Sine
	}
	o.shape.Store(int32(s))
}

func (o *Oscillator) Shape() Shape {
	return Shape(o.shape.Load())
}

// Sample returns the current value in [-1, 1] and advances one sample.
func (o *Oscillator) Sample(sampleRate float64) float64 {
	v := Value(o.Shape(), o.phase)
	if sampleRate > 0 {
		o.phase += o.freq / sampleRate
		for o.phase >= 1.0 {
			o.phase -= 1.0
		}
	}
	return v
}

// Value evaluates shape at phase in [0, 1).
func Value(s Shape, phase float64) float64 {
	switch s {
	case Square:
		if phase < 0.5 {
			return 1.0
		}
		return -1.0
	case Triangle:
		// Starts at zero and rises, like the sine.
		switch {
		case phase < 0.25:
			return 4.0 * phase
		case phase < 0.75:
			return 2.0 - 4.0*phase
		default:
			return 4.0*phase - 4.0
		}
	case Sawtooth:
		if phase < 0.5 {
			return 2.0 * phase
		}
		return 2.0*phase - 2.0
	default:
		return math.Sin(twoPi * phase)
	}
}
