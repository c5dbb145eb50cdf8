package voice

import (
	"errors"

	"github.com/cbegin/sonic-go/internal/envelope"
	"github.com/cbegin/sonic-go/internal/graph"
	"github.com/cbegin/sonic-go/internal/osc"
)

// ErrAlreadyDisposed is returned by Dispose on a voice that was already
// reclaimed.
var ErrAlreadyDisposed = errors.New("voice: already disposed")

// level is the per-voice amplitude before the shared master gain, leaving
// headroom for a handful of overlapping notes.
const level = 0.25

// stealTime is how quickly a stolen release tail is faded out.
const stealTime = 0.005

// Handle names one sounding instance of a note. Gen is unique per manager,
// so a retriggered note never aliases its releasing predecessor.
type Handle struct {
	Note NoteID `json:"note"`
	Gen  uint64 `json:"gen"`
}

// Voice is one oscillator + envelope pair bound to one sounding instance of
// one note. It holds a reference to the graph head it renders into but does
// not own it.
type Voice struct {
	handle     Handle
	sampleRate float64
	osc        *osc.Oscillator
	env        *envelope.Envelope
	head       *graph.Bus
	hurried    bool
	disposed   bool
}

// New builds a voice, wires it into head and starts its attack.
func New(h Handle, freq float64, sampleRate int, shape osc.Shape, env envelope.Settings, head *graph.Bus) *Voice {
	v := &Voice{
		handle:     h,
		sampleRate: float64(sampleRate),
		osc:        osc.New(freq, shape),
		env:        envelope.New(float64(sampleRate), env),
		head:       head,
	}
	v.env.Trigger()
	if head != nil {
		head.Connect(v)
	}
	return v
}

func (v *Voice) Handle() Handle { return v.handle }

// Stage returns the envelope stage; disposed voices report Silent.
func (v *Voice) Stage() envelope.Stage {
	if v.disposed {
		return envelope.Silent
	}
	return v.env.Stage()
}

func (v *Voice) Level() float64 {
	if v.disposed {
		return 0
	}
	return v.env.Level()
}

func (v *Voice) Shape() osc.Shape {
	if v.disposed {
		return osc.Sine
	}
	return v.osc.Shape()
}

// Envelope returns the settings captured when the voice was created.
func (v *Voice) Envelope() envelope.Settings {
	if v.disposed {
		return envelope.Settings{}
	}
	return v.env.Settings()
}

// Done reports whether the voice reached Silent and can be reclaimed.
func (v *Voice) Done() bool { return v.Stage() == envelope.Silent }

// Releasing reports whether the voice is in its release tail.
func (v *Voice) Releasing() bool { return v.Stage() == envelope.Releasing }

// Release starts the release ramp from the current level.
func (v *Voice) Release() {
	if !v.disposed {
		v.env.Release()
	}
}

// hurry shortens the release tail of a voice picked for stealing.
func (v *Voice) hurry() {
	if v.disposed || v.hurried {
		return
	}
	v.hurried = true
	v.env.Hurry(stealTime)
}

// ForceStop silences the voice immediately. Only used on teardown.
func (v *Voice) ForceStop() {
	if !v.disposed {
		v.env.Stop()
	}
}

// SetShape swaps the waveform without retriggering.
func (v *Voice) SetShape(s osc.Shape) {
	if !v.disposed {
		v.osc.SetShape(s)
	}
}

// Render adds one block of this voice's output into dst.
func (v *Voice) Render(dst []float32) {
	if v.disposed {
		return
	}
	for i := range dst {
		if v.env.Done() {
			return
		}
		a := v.env.Next()
		dst[i] += float32(v.osc.Sample(v.sampleRate) * a * level)
	}
}

// Dispose disconnects the voice from the graph head and drops its nodes.
func (v *Voice) Dispose() error {
	if v.disposed {
		return ErrAlreadyDisposed
	}
	if v.head != nil {
		v.head.Disconnect(v)
	}
	v.disposed = true
	v.head = nil
	v.osc = nil
	v.env = nil
	return nil
}

// Disposed reports whether Dispose has run.
func (v *Voice) Disposed() bool { return v.disposed }
