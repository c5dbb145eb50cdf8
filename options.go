package sonic

import (
	"go.uber.org/zap"

	intaudio "github.com/cbegin/sonic-go/internal/audio"
)

// DefaultSampleRate is used when WithSampleRate is not given.
const DefaultSampleRate = 48000

type EngineOption func(*engineConfig)

type engineConfig struct {
	sampleRate  int
	backendName string
	backend     intaudio.Backend
	log         *zap.Logger
	sampleTap   func([]float32)
	params      Params
	maxVoices   int
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		sampleRate:  DefaultSampleRate,
		backendName: intaudio.BackendEbiten,
		params:      DefaultParams(),
	}
}

func WithSampleRate(rate int) EngineOption {
	return func(cfg *engineConfig) {
		cfg.sampleRate = rate
	}
}

// WithBackend selects the output sink by name: "ebiten" (default), "oto",
// "null" (no device, clocked) or "manual" (the caller drives Render).
func WithBackend(name string) EngineOption {
	return func(cfg *engineConfig) {
		cfg.backendName = name
		cfg.backend = nil
	}
}

func WithLogger(log *zap.Logger) EngineOption {
	return func(cfg *engineConfig) {
		cfg.log = log
	}
}

// WithSampleTap installs a callback invoked with each rendered stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) EngineOption {
	return func(cfg *engineConfig) {
		cfg.sampleTap = tap
	}
}

// WithInitialParams sets the parameters the first session starts with.
// Values are clamped like UpdateGlobalParameter does.
func WithInitialParams(p Params) EngineOption {
	return func(cfg *engineConfig) {
		cfg.params = p
	}
}

// WithMaxVoices bounds the number of live voices. When a new note arrives at
// the bound, the quietest release tail is faded out quickly; held notes are
// never stolen.
func WithMaxVoices(n int) EngineOption {
	return func(cfg *engineConfig) {
		cfg.maxVoices = n
	}
}
