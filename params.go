package sonic

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cbegin/sonic-go/internal/effects"
	"github.com/cbegin/sonic-go/internal/envelope"
	"github.com/cbegin/sonic-go/internal/graph"
	"github.com/cbegin/sonic-go/internal/osc"
	"github.com/cbegin/sonic-go/internal/voice"
)

type (
	NoteID           = voice.NoteID
	OscillatorType   = osc.Shape
	EnvelopeSettings = envelope.Settings
	VoiceInfo        = voice.Info
)

const (
	Sine     OscillatorType = osc.Sine
	Square   OscillatorType = osc.Square
	Triangle OscillatorType = osc.Triangle
	Sawtooth OscillatorType = osc.Sawtooth
)

// ParamKind names a global parameter accepted by UpdateGlobalParameter.
type ParamKind string

const (
	ParamOscillatorType   ParamKind = "oscillatorType"
	ParamEnvelopeSettings ParamKind = "envelopeSettings"
	ParamMasterVolume     ParamKind = "masterVolume"
	ParamDelayWet         ParamKind = "delayWet"
	ParamReverbWet        ParamKind = "reverbWet"
	ParamDelayTime        ParamKind = "delayTime"
	ParamReverbDecay      ParamKind = "reverbDecay"
)

// ParamKinds lists every kind in display order.
var ParamKinds = []ParamKind{
	ParamOscillatorType,
	ParamEnvelopeSettings,
	ParamMasterVolume,
	ParamDelayWet,
	ParamReverbWet,
	ParamDelayTime,
	ParamReverbDecay,
}

const (
	MinMasterVolume = effects.MinGainDB
	MaxMasterVolume = effects.MaxGainDB
	MinDelayTime    = 0.001
	MaxDelayTime    = effects.MaxDelayMs / 1000
	MinReverbDecay  = effects.MinReverbDecay
	MaxReverbDecay  = effects.MaxReverbDecay
)

// Params is the set of global parameters. Volume is in dB, times in seconds
// and wet values in [0,1].
type Params struct {
	OscillatorType OscillatorType   `json:"oscillatorType"`
	Envelope       EnvelopeSettings `json:"envelopeSettings"`
	MasterVolume   float64          `json:"masterVolume"`
	DelayTime      float64          `json:"delayTime"`
	DelayWet       float64          `json:"delayWet"`
	ReverbDecay    float64          `json:"reverbDecay"`
	ReverbWet      float64          `json:"reverbWet"`
}

func DefaultParams() Params {
	g := graph.DefaultSettings()
	return Params{
		OscillatorType: Sine,
		Envelope:       envelope.DefaultSettings(),
		MasterVolume:   g.MasterVolumeDB,
		DelayTime:      g.DelayTime,
		DelayWet:       g.DelayWet,
		ReverbDecay:    g.ReverbDecay,
		ReverbWet:      g.ReverbWet,
	}
}

// Normalize clamps every field into range. Non-finite values and unknown
// waveforms are rejected.
func (p Params) Normalize() (Params, error) {
	if !p.OscillatorType.Valid() {
		return p, fmt.Errorf("%w: oscillator type %d", ErrInvalidParameter, int(p.OscillatorType))
	}
	env, err := p.Envelope.Normalize()
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	p.Envelope = env
	for _, f := range []struct {
		kind   ParamKind
		v      *float64
		lo, hi float64
	}{
		{ParamMasterVolume, &p.MasterVolume, MinMasterVolume, MaxMasterVolume},
		{ParamDelayTime, &p.DelayTime, MinDelayTime, MaxDelayTime},
		{ParamDelayWet, &p.DelayWet, 0, 1},
		{ParamReverbDecay, &p.ReverbDecay, MinReverbDecay, MaxReverbDecay},
		{ParamReverbWet, &p.ReverbWet, 0, 1},
	} {
		v, err := clampFinite(f.kind, *f.v, f.lo, f.hi)
		if err != nil {
			return p, err
		}
		*f.v = v
	}
	return p, nil
}

func (p Params) graphSettings() graph.Settings {
	s := graph.DefaultSettings()
	s.MasterVolumeDB = p.MasterVolume
	s.DelayTime = p.DelayTime
	s.DelayWet = p.DelayWet
	s.ReverbDecay = p.ReverbDecay
	s.ReverbWet = p.ReverbWet
	return s
}

func clampFinite(kind ParamKind, v, lo, hi float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s is not a finite number", ErrInvalidParameter, kind)
	}
	return math.Max(lo, math.Min(hi, v)), nil
}

// toFloat accepts Go numbers and their decoded-JSON and text forms.
func toFloat(kind ParamKind, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q", ErrInvalidParameter, kind, v)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q", ErrInvalidParameter, kind, v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s wants a number, got %T", ErrInvalidParameter, kind, value)
}

func toShape(value any) (OscillatorType, error) {
	switch v := value.(type) {
	case OscillatorType:
		if !v.Valid() {
			return Sine, fmt.Errorf("%w: oscillator type %d", ErrInvalidParameter, int(v))
		}
		return v, nil
	case string:
		s, err := osc.ParseShape(v)
		if err != nil {
			return Sine, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		return s, nil
	}
	return Sine, fmt.Errorf("%w: oscillatorType wants a waveform name, got %T", ErrInvalidParameter, value)
}

// toEnvelope overlays value on cur, so decoded JSON objects may carry only
// the fields that changed.
func toEnvelope(cur EnvelopeSettings, value any) (EnvelopeSettings, error) {
	var s EnvelopeSettings
	switch v := value.(type) {
	case EnvelopeSettings:
		s = v
	case *EnvelopeSettings:
		if v == nil {
			return cur, fmt.Errorf("%w: nil envelope settings", ErrInvalidParameter)
		}
		s = *v
	case map[string]any, json.RawMessage:
		raw, ok := v.(json.RawMessage)
		if !ok {
			b, err := json.Marshal(v)
			if err != nil {
				return cur, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
			}
			raw = b
		}
		s = cur
		if err := json.Unmarshal(raw, &s); err != nil {
			return cur, fmt.Errorf("%w: envelopeSettings: %v", ErrInvalidParameter, err)
		}
	default:
		return cur, fmt.Errorf("%w: envelopeSettings wants an object, got %T", ErrInvalidParameter, value)
	}
	n, err := s.Normalize()
	if err != nil {
		return cur, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return n, nil
}
