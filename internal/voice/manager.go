package voice

import (
	"errors"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/cbegin/sonic-go/internal/envelope"
	"github.com/cbegin/sonic-go/internal/graph"
	"github.com/cbegin/sonic-go/internal/osc"
)

// DefaultMaxVoices bounds the arena before release tails start being stolen.
const DefaultMaxVoices = 64

// ErrClosed is returned by NoteOn after Teardown.
var ErrClosed = errors.New("voice manager: torn down")

// Config carries the defaults a Manager starts with.
type Config struct {
	SampleRate int
	MaxVoices  int
	Shape      osc.Shape
	Envelope   envelope.Settings
}

// Info is a read-only view of one live voice.
type Info struct {
	Handle   Handle            `json:"handle"`
	Stage    envelope.Stage    `json:"stage"`
	Level    float64           `json:"level"`
	Shape    osc.Shape         `json:"shape"`
	Envelope envelope.Settings `json:"envelope"`
	Tracked  bool              `json:"tracked"`
}

// Manager owns every live voice. The table maps a note to its single
// attacking/decaying/sustaining voice; the arena holds all voices that are
// still connected, including release tails that left the table. A Manager is
// confined to the processing context and is not safe for concurrent use.
type Manager struct {
	sampleRate int
	maxVoices  int
	head       *graph.Bus
	table      map[NoteID]*Voice
	arena      []*Voice
	gen        uint64
	shape      osc.Shape
	env        envelope.Settings
	log        *zap.Logger
	degraded   bool
	closed     bool
}

// NewManager creates a manager rendering into head.
func NewManager(cfg Config, head *graph.Bus, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxVoices <= 0 {
		cfg.MaxVoices = DefaultMaxVoices
	}
	return &Manager{
		sampleRate: cfg.SampleRate,
		maxVoices:  cfg.MaxVoices,
		head:       head,
		table:      make(map[NoteID]*Voice),
		shape:      cfg.Shape,
		env:        cfg.Envelope,
		log:        log,
	}
}

// NoteOn starts a voice for id unless one is already held for its pitch.
// Spellings of one pitch ("c4" and "C4", "Db5" and "C#5") share a table
// entry. The bool is false when the call was a duplicate. A note still in its
// release tail does not count as held: a new, independent voice is created
// next to it.
func (m *Manager) NoteOn(id NoteID) (Handle, bool, error) {
	if m.closed {
		return Handle{}, false, ErrClosed
	}
	id, err := id.Canonical()
	if err != nil {
		return Handle{}, false, err
	}
	if v, ok := m.table[id]; ok {
		if !v.Done() && !v.Releasing() {
			return v.Handle(), false, nil
		}
		delete(m.table, id)
	}
	freq, _ := id.Freq()
	if len(m.arena) >= m.maxVoices {
		m.stealTail()
	}
	m.gen++
	h := Handle{Note: id, Gen: m.gen}
	v := New(h, freq, m.sampleRate, m.shape, m.env, m.head)
	m.table[id] = v
	m.arena = append(m.arena, v)
	m.log.Debug("voice started",
		zap.String("note", string(id)),
		zap.Uint64("gen", h.Gen),
		zap.Stringer("shape", m.shape),
		zap.Int("live", len(m.arena)))
	return h, true, nil
}

// NoteOff releases the held voice for id and drops it from the table. The
// voice keeps rendering its release tail until Sweep reclaims it. Returns
// false when nothing was held.
func (m *Manager) NoteOff(id NoteID) bool {
	id, err := id.Canonical()
	if err != nil {
		return false
	}
	v, ok := m.table[id]
	if !ok {
		return false
	}
	delete(m.table, id)
	v.Release()
	m.log.Debug("voice released",
		zap.String("note", string(id)),
		zap.Uint64("gen", v.Handle().Gen),
		zap.Float64("level", v.Level()))
	return true
}

// SetShape pushes a waveform to every live voice, release tails included,
// and makes it the default for new voices.
func (m *Manager) SetShape(s osc.Shape) {
	m.shape = s
	for _, v := range m.arena {
		v.SetShape(s)
	}
}

// SetEnvelope changes the envelope for voices created from now on. Voices
// already sounding keep the timings they started with.
func (m *Manager) SetEnvelope(s envelope.Settings) {
	m.env = s
}

func (m *Manager) Shape() osc.Shape            { return m.shape }
func (m *Manager) Envelope() envelope.Settings { return m.env }

// Sweep reclaims every voice that reached Silent and returns how many were
// reclaimed. Called once per processing block.
func (m *Manager) Sweep() int {
	n := 0
	kept := m.arena[:0]
	for _, v := range m.arena {
		if !v.Done() {
			kept = append(kept, v)
			continue
		}
		m.reclaim(v)
		n++
	}
	clear(m.arena[len(kept):])
	m.arena = kept
	return n
}

func (m *Manager) reclaim(v *Voice) {
	h := v.Handle()
	if cur, ok := m.table[h.Note]; ok && cur == v {
		delete(m.table, h.Note)
	}
	if err := v.Dispose(); err != nil {
		m.degraded = true
		m.log.Warn("voice dispose failed",
			zap.String("note", string(h.Note)),
			zap.Uint64("gen", h.Gen),
			zap.Error(err))
		return
	}
	m.log.Debug("voice reclaimed", zap.String("note", string(h.Note)), zap.Uint64("gen", h.Gen))
}

// stealTail fades out the quietest release tail quickly so the arena stays
// near its bound. Held notes are never stolen.
func (m *Manager) stealTail() {
	var victim *Voice
	for _, v := range m.arena {
		if !v.Releasing() || v.hurried {
			continue
		}
		if victim == nil || v.Level() < victim.Level() {
			victim = v
		}
	}
	if victim == nil {
		m.log.Warn("voice limit reached with no release tail to steal", zap.Int("live", len(m.arena)))
		return
	}
	victim.hurry()
	m.log.Debug("release tail stolen",
		zap.String("note", string(victim.Handle().Note)),
		zap.Uint64("gen", victim.Handle().Gen))
}

// Teardown force-stops and disposes every voice, tracked or releasing.
// Disposal failures are collected, logged and returned; the manager is
// marked degraded. Further calls are no-ops.
func (m *Manager) Teardown() error {
	if m.closed {
		return nil
	}
	m.closed = true
	var errs error
	for _, v := range m.arena {
		v.ForceStop()
		if err := v.Dispose(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	clear(m.arena)
	m.arena = m.arena[:0]
	clear(m.table)
	if errs != nil {
		m.degraded = true
		m.log.Warn("voice teardown incomplete", zap.Error(errs))
	}
	return errs
}

// Live returns the number of voices not yet reclaimed.
func (m *Manager) Live() int { return len(m.arena) }

// Held returns the number of notes in the table.
func (m *Manager) Held() int { return len(m.table) }

// HeldNotes returns the notes currently in the table.
func (m *Manager) HeldNotes() []NoteID {
	notes := make([]NoteID, 0, len(m.table))
	for id := range m.table {
		notes = append(notes, id)
	}
	return notes
}

// Voice returns the held voice for id, if any.
func (m *Manager) Voice(id NoteID) (*Voice, bool) {
	id, err := id.Canonical()
	if err != nil {
		return nil, false
	}
	v, ok := m.table[id]
	return v, ok
}

// Voices returns a view of every live voice in creation order.
func (m *Manager) Voices() []Info {
	out := make([]Info, 0, len(m.arena))
	for _, v := range m.arena {
		h := v.Handle()
		cur, tracked := m.table[h.Note]
		out = append(out, Info{
			Handle:   h,
			Stage:    v.Stage(),
			Level:    v.Level(),
			Shape:    v.Shape(),
			Envelope: v.Envelope(),
			Tracked:  tracked && cur == v,
		})
	}
	return out
}

// Degraded reports whether a disposal ever failed.
func (m *Manager) Degraded() bool { return m.degraded }

// Closed reports whether Teardown has run.
func (m *Manager) Closed() bool { return m.closed }
