// Package envelope implements the linear ADSR amplitude envelope used by
// every voice.
package envelope

import (
	"errors"
	"fmt"
	"math"
)

// Stage is the envelope state. Silent is terminal.
type Stage int

const (
	Idle Stage = iota
	Attacking
	Decaying
	Sustaining
	Releasing
	Silent
)

var stageNames = [...]string{"idle", "attacking", "decaying", "sustaining", "releasing", "silent"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	for i, name := range stageNames {
		if name == string(b) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown envelope stage %q", b)
}

const (
	// MaxTime bounds attack, decay and release.
	MaxTime = 10.0
	// MinAttack is used when attack and decay are both zero.
	MinAttack = 0.001
)

// ErrNotFinite is returned by Settings.Normalize for NaN or infinite fields.
var ErrNotFinite = errors.New("envelope: setting is not a finite number")

// Settings holds attack, decay and release in seconds and sustain as a
// level in [0,1].
type Settings struct {
	Attack  float64 `json:"attack"`
	Decay   float64 `json:"decay"`
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"`
}

// DefaultSettings returns a short plucky envelope with a long release.
func DefaultSettings() Settings {
	return Settings{Attack: 0.005, Decay: 0.1, Sustain: 0.3, Release: 1}
}

// Normalize clamps every field into its legal range. Only non-finite values
// are rejected.
func (s Settings) Normalize() (Settings, error) {
	for _, v := range []float64{s.Attack, s.Decay, s.Sustain, s.Release} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return s, ErrNotFinite
		}
	}
	s.Attack = clamp(s.Attack, 0, MaxTime)
	s.Decay = clamp(s.Decay, 0, MaxTime)
	s.Sustain = clamp(s.Sustain, 0, 1)
	s.Release = clamp(s.Release, 0, MaxTime)
	if s.Attack+s.Decay <= 0 {
		s.Attack = MinAttack
	}
	return s, nil
}

// Envelope is a per-voice ADSR generator. It is not safe for concurrent use;
// it is only advanced from the processing context.
type Envelope struct {
	sampleRate  float64
	settings    Settings
	stage       Stage
	level       float64
	releaseStep float64
}

// New creates an idle envelope. Settings are captured here and never change
// for the lifetime of the envelope.
func New(sampleRate float64, s Settings) *Envelope {
	return &Envelope{sampleRate: sampleRate, settings: s}
}

func (e *Envelope) Settings() Settings { return e.settings }
func (e *Envelope) Stage() Stage       { return e.stage }
func (e *Envelope) Level() float64     { return e.level }

// Done reports whether the envelope has reached Silent.
func (e *Envelope) Done() bool { return e.stage == Silent }

// Trigger starts the attack phase from silence.
func (e *Envelope) Trigger() {
	if e.stage != Idle {
		return
	}
	e.level = 0
	e.stage = Attacking
	if e.frames(e.settings.Attack) < 1 {
		e.level = 1
		e.enterDecay()
	}
}

// Release ramps from the current level to zero over the release time. It is
// a no-op once releasing or silent.
func (e *Envelope) Release() {
	switch e.stage {
	case Releasing, Silent:
		return
	case Idle:
		e.Stop()
		return
	}
	frames := e.frames(e.settings.Release)
	if frames < 1 || e.level <= 0 {
		e.Stop()
		return
	}
	e.releaseStep = e.level / frames
	e.stage = Releasing
}

// Hurry shortens an in-progress release so it ends within seconds. It only
// ever steepens the ramp.
func (e *Envelope) Hurry(seconds float64) {
	if e.stage != Releasing {
		return
	}
	frames := e.frames(seconds)
	if frames < 1 {
		e.Stop()
		return
	}
	if step := e.level / frames; step > e.releaseStep {
		e.releaseStep = step
	}
}

// Stop jumps straight to Silent without a release ramp.
func (e *Envelope) Stop() {
	e.level = 0
	e.releaseStep = 0
	e.stage = Silent
}

// Next advances one sample and returns the new level.
func (e *Envelope) Next() float64 {
	switch e.stage {
	case Attacking:
		e.level += 1.0 / e.frames(e.settings.Attack)
		if e.level >= 1 {
			e.level = 1
			e.enterDecay()
		}
	case Decaying:
		e.level -= (1 - e.settings.Sustain) / e.frames(e.settings.Decay)
		if e.level <= e.settings.Sustain {
			e.level = e.settings.Sustain
			e.stage = Sustaining
		}
	case Sustaining:
		// hold
	case Releasing:
		e.level -= e.releaseStep
		if e.level <= 0 {
			e.Stop()
		}
	default:
		e.level = 0
	}
	return e.level
}

func (e *Envelope) enterDecay() {
	if e.settings.Sustain >= 1 || e.frames(e.settings.Decay) < 1 {
		e.level = e.settings.Sustain
		e.stage = Sustaining
		return
	}
	e.stage = Decaying
}

func (e *Envelope) frames(seconds float64) float64 {
	return seconds * e.sampleRate
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
