// Package graph holds the session's fixed effect topology:
//
//	voices -> head Bus -> master Gain -> Delay -> Reverb -> output sink
package graph

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/cbegin/sonic-go/internal/audio"
	"github.com/cbegin/sonic-go/internal/effects"
)

// ErrDisposed is returned when a disposed graph is used.
var ErrDisposed = errors.New("graph: disposed")

// roomSize is fixed; decay is the user-facing reverb control.
const roomSize = 0.5

// Settings are the effect parameters of the graph. Times are in seconds,
// wet values are dry/wet ratios in [0,1] and volume is in dB.
type Settings struct {
	DelayTime      float64 `json:"delayTime"`
	DelayFeedback  float64 `json:"delayFeedback"`
	DelayWet       float64 `json:"delayWet"`
	ReverbDecay    float64 `json:"reverbDecay"`
	ReverbWet      float64 `json:"reverbWet"`
	MasterVolumeDB float64 `json:"masterVolume"`
}

func DefaultSettings() Settings {
	return Settings{
		DelayTime:      0.5,
		DelayFeedback:  0.25,
		DelayWet:       0,
		ReverbDecay:    2,
		ReverbWet:      0.3,
		MasterVolumeDB: -12,
	}
}

// Graph is the singleton signal graph of a session.
type Graph struct {
	sampleRate int
	head       *Bus
	gain       *effects.Gain
	delay      *effects.Delay
	reverb     *effects.Reverb
	chain      *effects.Chain
	mono       []float32
	log        *zap.Logger

	sinkMu sync.Mutex
	sink   audio.Sink

	disposed bool
}

// New builds the nodes and wires Gain -> Delay -> Reverb. No output is open
// yet; see Open.
func New(sampleRate int, s Settings, log *zap.Logger) *Graph {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Graph{
		sampleRate: sampleRate,
		head:       &Bus{},
		gain:       effects.NewGain(sampleRate, s.MasterVolumeDB),
		delay:      effects.NewDelay(sampleRate, s.DelayTime*1000, float32(s.DelayFeedback), 0.2, s.DelayWet),
		reverb:     effects.NewReverb(sampleRate, roomSize, s.ReverbDecay, s.ReverbWet),
		log:        log,
	}
	g.chain = effects.NewChain(g.gain, g.delay, g.reverb)
	return g
}

// Open connects the graph output to a sink built by backend; pump is the
// source the sink pulls from (normally the engine, which calls Process).
func (g *Graph) Open(backend audio.Backend, pump audio.SampleSource) error {
	g.sinkMu.Lock()
	defer g.sinkMu.Unlock()
	if g.disposed {
		return ErrDisposed
	}
	if g.sink != nil {
		return nil
	}
	sink, err := backend(g.sampleRate, pump)
	if err != nil {
		return err
	}
	g.sink = sink
	sink.Play()
	g.log.Debug("output opened", zap.Int("sampleRate", g.sampleRate))
	return nil
}

// HeadInput is the connection point voices render into.
func (g *Graph) HeadInput() *Bus { return g.head }

func (g *Graph) SampleRate() int { return g.sampleRate }

// SetDelayWet clamps w to [0,1]. Safe from any goroutine.
func (g *Graph) SetDelayWet(w float64) { g.delay.SetWet(w) }

// SetReverbWet clamps w to [0,1]. Safe from any goroutine.
func (g *Graph) SetReverbWet(w float64) { g.reverb.SetWet(w) }

// SetDelayTime sets the delay in seconds.
func (g *Graph) SetDelayTime(sec float64) { g.delay.SetDelayTime(sec * 1000) }

// SetReverbDecay sets the reverb RT60 in seconds.
func (g *Graph) SetReverbDecay(sec float64) { g.reverb.SetDecay(sec) }

// SetMasterVolume sets the shared gain stage and returns the clamped dB.
func (g *Graph) SetMasterVolume(db float64) float64 { return g.gain.SetDB(db) }

// Settings reports the current node parameters.
func (g *Graph) Settings() Settings {
	return Settings{
		DelayTime:      g.delay.DelayTime() / 1000,
		DelayFeedback:  float64(g.delay.Feedback()),
		DelayWet:       g.delay.Wet(),
		ReverbDecay:    g.reverb.Decay(),
		ReverbWet:      g.reverb.Wet(),
		MasterVolumeDB: g.gain.DB(),
	}
}

// Process renders one block of interleaved stereo frames into dst: the head
// bus is summed to mono, then run through the chain. Output is clipped to
// [-1,1]. Only called from the processing context.
func (g *Graph) Process(dst []float32) {
	frames := len(dst) / 2
	if g.disposed {
		clear(dst)
		return
	}
	if cap(g.mono) < frames {
		g.mono = make([]float32, frames)
	}
	mono := g.mono[:frames]
	g.head.Render(mono)
	for i, s := range mono {
		dst[2*i] = s
		dst[2*i+1] = s
	}
	g.chain.ProcessBuffer(dst[:frames*2])
	for i, v := range dst[:frames*2] {
		dst[i] = clip(v)
	}
}

// CloseOutput stops and releases the sink. It is idempotent.
func (g *Graph) CloseOutput() error {
	g.sinkMu.Lock()
	sink := g.sink
	g.sink = nil
	g.sinkMu.Unlock()
	if sink == nil {
		return nil
	}
	return sink.Close()
}

// Dispose closes the output, disconnects the head and releases the effect
// nodes. Further calls are no-ops.
func (g *Graph) Dispose() error {
	if g.disposed {
		return nil
	}
	err := g.CloseOutput()
	g.sinkMu.Lock()
	g.disposed = true
	g.sinkMu.Unlock()
	g.head.disconnectAll()
	g.chain.Reset()
	g.chain.Clear()
	g.mono = nil
	g.log.Debug("graph disposed")
	return err
}

// Disposed reports whether Dispose has run.
func (g *Graph) Disposed() bool { return g.disposed }

// Nodes returns the number of effect nodes still wired after the head.
func (g *Graph) Nodes() int { return g.chain.Len() }

func clip(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
