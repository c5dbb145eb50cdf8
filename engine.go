// Package sonic is a polyphonic synthesizer engine. Note and parameter
// calls are queued from any goroutine and applied by the audio callback:
//
//	voices -> master gain -> delay -> reverb -> output
package sonic

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	intaudio "github.com/cbegin/sonic-go/internal/audio"
	"github.com/cbegin/sonic-go/internal/graph"
	"github.com/cbegin/sonic-go/internal/voice"
)

// renderBlock is the block size Render uses to drive processing.
const renderBlock = 256

type intentKind uint8

const (
	intentNoteOn intentKind = iota
	intentNoteOff
	intentShape
	intentEnvelope
)

// intent is a queued request for the processing context.
type intent struct {
	kind  intentKind
	note  NoteID
	shape OscillatorType
	env   EnvelopeSettings
}

// Snapshot is a read-only view of the engine for display.
type Snapshot struct {
	Initialized bool        `json:"initialized"`
	Params      Params      `json:"params"`
	Notes       []NoteID    `json:"notes"`
	Voices      []VoiceInfo `json:"voices"`
	Live        int         `json:"live"`
	Frames      uint64      `json:"frames"`
	Degraded    bool        `json:"degraded"`
}

type blockState struct {
	notes    []NoteID
	voices   []VoiceInfo
	frames   uint64
	degraded bool
}

// Engine owns the signal graph and the voice manager of one session.
type Engine struct {
	sampleRate  int
	backendName string
	backend     intaudio.Backend
	maxVoices   int
	sampleTap   func([]float32)
	log         *zap.Logger

	// lifeMu serializes Initialize and Teardown.
	lifeMu sync.Mutex

	// renderMu is held by the processing context. Lock order: renderMu, mu.
	renderMu sync.Mutex
	graph    *graph.Graph
	voices   *voice.Manager
	spare    []intent
	frames   uint64
	degraded bool

	mu          sync.Mutex
	initialized bool
	pending     []intent
	params      Params

	snapMu sync.RWMutex
	snap   blockState
}

// NewEngine configures an engine. No audio is opened until Initialize.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if cfg.backend == nil {
		b, err := intaudio.BackendByName(cfg.backendName)
		if err != nil {
			return nil, err
		}
		cfg.backend = b
	}
	params, err := cfg.params.Normalize()
	if err != nil {
		return nil, err
	}
	log := cfg.log
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		sampleRate:  cfg.sampleRate,
		backendName: cfg.backendName,
		backend:     cfg.backend,
		maxVoices:   cfg.maxVoices,
		sampleTap:   cfg.sampleTap,
		log:         log,
		params:      params,
	}, nil
}

// Initialize builds the signal graph and opens the audio output. On failure
// it returns an *AudioContextError and the engine stays uninitialized.
// Calling it again after success is a no-op.
func (e *Engine) Initialize() error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		return nil
	}
	params := e.params
	e.mu.Unlock()

	g := graph.New(e.sampleRate, params.graphSettings(), e.log)
	m := voice.NewManager(voice.Config{
		SampleRate: e.sampleRate,
		MaxVoices:  e.maxVoices,
		Shape:      params.OscillatorType,
		Envelope:   params.Envelope,
	}, g.HeadInput(), e.log)

	e.renderMu.Lock()
	e.mu.Lock()
	e.graph = g
	e.voices = m
	e.mu.Unlock()
	e.frames = 0
	e.degraded = false
	e.renderMu.Unlock()

	if err := g.Open(e.backend, e); err != nil {
		e.renderMu.Lock()
		e.mu.Lock()
		e.graph = nil
		e.voices = nil
		e.mu.Unlock()
		e.renderMu.Unlock()
		_ = g.Dispose()
		e.log.Error("audio context unavailable", zap.String("backend", e.backendName), zap.Error(err))
		return &AudioContextError{Backend: e.backendName, Err: err}
	}

	e.mu.Lock()
	e.initialized = true
	e.pending = e.pending[:0]
	e.mu.Unlock()

	e.renderMu.Lock()
	e.publish()
	e.renderMu.Unlock()

	e.log.Info("engine initialized",
		zap.String("backend", e.backendName),
		zap.Int("sampleRate", e.sampleRate),
		zap.Stringer("oscillatorType", params.OscillatorType),
		zap.Float64("masterVolume", params.MasterVolume))
	return nil
}

// Initialized reports whether note events are currently accepted.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

func (e *Engine) SampleRate() int { return e.sampleRate }

// NoteOn queues a note-on. A duplicate for a note that is already held is
// dropped when applied.
func (e *Engine) NoteOn(id NoteID) error {
	return e.submitNote(intentNoteOn, id)
}

// NoteOff queues a note-off. It is a no-op when applied to a note that is
// not held.
func (e *Engine) NoteOff(id NoteID) error {
	return e.submitNote(intentNoteOff, id)
}

func (e *Engine) submitNote(kind intentKind, id NoteID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrEngineNotInitialized
	}
	id, err := id.Canonical()
	if err != nil {
		return err
	}
	e.pending = append(e.pending, intent{kind: kind, note: id})
	return nil
}

// UpdateGlobalParameter validates and applies one global parameter. Values
// may be typed (OscillatorType, EnvelopeSettings, float64) or decoded JSON
// (string, number, object). Out-of-range numbers are clamped; NaN, Inf and
// undecodable values return ErrInvalidParameter.
//
// Effect and volume changes reach the graph nodes immediately. Waveform and
// envelope changes are queued behind pending notes: the waveform is pushed to
// every live voice, the envelope only to voices created afterwards.
func (e *Engine) UpdateGlobalParameter(kind ParamKind, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrEngineNotInitialized
	}
	var logged zap.Field
	switch kind {
	case ParamOscillatorType:
		s, err := toShape(value)
		if err != nil {
			return err
		}
		e.params.OscillatorType = s
		e.pending = append(e.pending, intent{kind: intentShape, shape: s})
		logged = zap.Stringer("value", s)
	case ParamEnvelopeSettings:
		s, err := toEnvelope(e.params.Envelope, value)
		if err != nil {
			return err
		}
		e.params.Envelope = s
		e.pending = append(e.pending, intent{kind: intentEnvelope, env: s})
		logged = zap.Any("value", s)
	case ParamMasterVolume, ParamDelayWet, ParamReverbWet, ParamDelayTime, ParamReverbDecay:
		v, err := e.applyNumeric(kind, value)
		if err != nil {
			return err
		}
		logged = zap.Float64("value", v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParameter, kind)
	}
	e.log.Info("parameter updated", zap.String("kind", string(kind)), logged)
	return nil
}

// applyNumeric clamps v and writes it straight into the graph. Node setters
// are atomic, so the processing context is not interrupted. e.mu is held.
func (e *Engine) applyNumeric(kind ParamKind, value any) (float64, error) {
	f, err := toFloat(kind, value)
	if err != nil {
		return 0, err
	}
	switch kind {
	case ParamMasterVolume:
		if f, err = clampFinite(kind, f, MinMasterVolume, MaxMasterVolume); err != nil {
			return 0, err
		}
		e.params.MasterVolume = e.graph.SetMasterVolume(f)
		return e.params.MasterVolume, nil
	case ParamDelayWet:
		if f, err = clampFinite(kind, f, 0, 1); err != nil {
			return 0, err
		}
		e.graph.SetDelayWet(f)
		e.params.DelayWet = f
	case ParamReverbWet:
		if f, err = clampFinite(kind, f, 0, 1); err != nil {
			return 0, err
		}
		e.graph.SetReverbWet(f)
		e.params.ReverbWet = f
	case ParamDelayTime:
		if f, err = clampFinite(kind, f, MinDelayTime, MaxDelayTime); err != nil {
			return 0, err
		}
		e.graph.SetDelayTime(f)
		e.params.DelayTime = f
	case ParamReverbDecay:
		if f, err = clampFinite(kind, f, MinReverbDecay, MaxReverbDecay); err != nil {
			return 0, err
		}
		e.graph.SetReverbDecay(f)
		e.params.ReverbDecay = f
	}
	return f, nil
}

func (e *Engine) SetOscillatorType(s OscillatorType) error {
	return e.UpdateGlobalParameter(ParamOscillatorType, s)
}

func (e *Engine) SetEnvelope(s EnvelopeSettings) error {
	return e.UpdateGlobalParameter(ParamEnvelopeSettings, s)
}

func (e *Engine) SetMasterVolume(db float64) error {
	return e.UpdateGlobalParameter(ParamMasterVolume, db)
}

func (e *Engine) SetDelayWet(w float64) error {
	return e.UpdateGlobalParameter(ParamDelayWet, w)
}

func (e *Engine) SetReverbWet(w float64) error {
	return e.UpdateGlobalParameter(ParamReverbWet, w)
}

func (e *Engine) SetDelayTime(sec float64) error {
	return e.UpdateGlobalParameter(ParamDelayTime, sec)
}

func (e *Engine) SetReverbDecay(sec float64) error {
	return e.UpdateGlobalParameter(ParamReverbDecay, sec)
}

// Params returns the current global parameters.
func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// Snapshot returns the parameters plus the voice state published after the
// most recent processing block.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	s := Snapshot{Initialized: e.initialized, Params: e.params}
	e.mu.Unlock()

	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	s.Notes = slices.Clone(e.snap.notes)
	s.Voices = slices.Clone(e.snap.voices)
	s.Live = len(e.snap.voices)
	s.Frames = e.snap.frames
	s.Degraded = e.snap.degraded
	return s
}

// Process renders one block of interleaved stereo frames. It is the sink's
// pull callback: queued intents are applied in order, the graph is rendered
// and finished voices are reclaimed.
func (e *Engine) Process(dst []float32) {
	e.renderMu.Lock()
	defer e.renderMu.Unlock()
	if e.graph == nil || e.graph.Disposed() {
		clear(dst)
		return
	}
	e.drain()
	e.graph.Process(dst)
	e.voices.Sweep()
	e.frames += uint64(len(dst) / 2)
	if e.sampleTap != nil {
		e.sampleTap(dst)
	}
	e.publish()
}

// Render drives processing for frames frames and returns the output. It is
// meant for the manual backend and offline use; with a device backend it
// competes with the device for the same stream.
func (e *Engine) Render(frames int) ([]float32, error) {
	if !e.Initialized() {
		return nil, ErrEngineNotInitialized
	}
	if frames < 0 {
		return nil, fmt.Errorf("render: negative frame count %d", frames)
	}
	out := make([]float32, frames*2)
	for off := 0; off < frames; off += renderBlock {
		end := min(off+renderBlock, frames)
		e.Process(out[off*2 : end*2])
	}
	return out, nil
}

// drain applies queued intents in FIFO order. renderMu is held.
func (e *Engine) drain() {
	e.mu.Lock()
	batch := e.pending
	e.pending = e.spare[:0]
	e.mu.Unlock()

	for _, in := range batch {
		switch in.kind {
		case intentNoteOn:
			if _, _, err := e.voices.NoteOn(in.note); err != nil {
				e.log.Warn("note on dropped", zap.String("note", string(in.note)), zap.Error(err))
			}
		case intentNoteOff:
			e.voices.NoteOff(in.note)
		case intentShape:
			e.voices.SetShape(in.shape)
		case intentEnvelope:
			e.voices.SetEnvelope(in.env)
		}
	}
	clear(batch)
	e.spare = batch[:0]
}

// publish copies the voice state for Snapshot. renderMu is held.
func (e *Engine) publish() {
	var st blockState
	if e.voices != nil {
		st.notes = e.voices.HeldNotes()
		slices.Sort(st.notes)
		st.voices = e.voices.Voices()
		st.degraded = e.degraded || e.voices.Degraded()
	}
	st.frames = e.frames
	e.snapMu.Lock()
	e.snap = st
	e.snapMu.Unlock()
}

// Teardown stops the output, force-stops and disposes every voice, and
// disposes the graph. Disposal failures are logged and returned but leave
// the engine torn down. A second call is a no-op. Initialize may start a
// new session afterwards with the last parameters.
func (e *Engine) Teardown() error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return nil
	}
	e.initialized = false
	clear(e.pending)
	e.pending = e.pending[:0]
	g := e.graph
	e.mu.Unlock()

	// The sink may wait for an in-flight callback, so it is closed before
	// the processing lock is taken.
	errs := g.CloseOutput()

	e.renderMu.Lock()
	errs = multierr.Append(errs, e.voices.Teardown())
	errs = multierr.Append(errs, g.Dispose())
	if errs != nil {
		e.degraded = true
	}
	e.publish()
	frames := e.frames
	e.renderMu.Unlock()

	if errs != nil {
		e.log.Warn("teardown incomplete", zap.Bool("degraded", true), zap.Error(errs))
		return errs
	}
	e.log.Info("engine torn down", zap.Uint64("frames", frames))
	return nil
}
