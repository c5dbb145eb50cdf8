package audio

import (
	"sync"
	"time"
)

// NullPlayer pulls from its source on a wall-clock ticker and discards the
// samples. It keeps the processing clock running on machines without an
// audio device.
type NullPlayer struct {
	mu       sync.Mutex
	source   SampleSource
	buf      []float32
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	closed   bool
}

const nullTick = 10 * time.Millisecond

// NewNullPlayer satisfies Backend.
func NewNullPlayer(sampleRate int, source SampleSource) (Sink, error) {
	frames := int(int64(sampleRate) * int64(nullTick) / int64(time.Second))
	if frames < 1 {
		frames = 1
	}
	return &NullPlayer{
		source:   source,
		buf:      make([]float32, frames*2),
		interval: nullTick,
	}, nil
}

func (n *NullPlayer) Play() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed || n.stop != nil {
		return
	}
	n.stop = make(chan struct{})
	n.done = make(chan struct{})
	go n.run(n.stop, n.done)
}

func (n *NullPlayer) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.source.Process(n.buf)
		}
	}
}

func (n *NullPlayer) Pause() {
	n.mu.Lock()
	stop, done := n.stop, n.done
	n.stop, n.done = nil, nil
	n.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
}

func (n *NullPlayer) Close() error {
	n.Pause()
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	return nil
}

// ManualPlayer never pulls on its own; the owner drives processing
// explicitly. Used for offline rendering and tests.
type ManualPlayer struct {
	mu      sync.Mutex
	playing bool
	closed  bool
}

// NewManualPlayer satisfies Backend.
func NewManualPlayer(int, SampleSource) (Sink, error) {
	return &ManualPlayer{}, nil
}

func (m *ManualPlayer) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = !m.closed
}

func (m *ManualPlayer) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

func (m *ManualPlayer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.closed = true
	return nil
}

// Playing reports whether Play was called and the sink is not closed.
func (m *ManualPlayer) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Closed reports whether Close was called.
func (m *ManualPlayer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
