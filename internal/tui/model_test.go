package tui

import (
	"errors"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/sonic-go"
)

type fakeSynth struct {
	ons, offs []sonic.NoteID
	onErr     error
	params    sonic.Params
}

func (f *fakeSynth) NoteOn(id sonic.NoteID) error {
	if f.onErr != nil {
		return f.onErr
	}
	f.ons = append(f.ons, id)
	return nil
}

func (f *fakeSynth) NoteOff(id sonic.NoteID) error {
	f.offs = append(f.offs, id)
	return nil
}

func (f *fakeSynth) UpdateGlobalParameter(sonic.ParamKind, any) error { return nil }

func (f *fakeSynth) Snapshot() sonic.Snapshot {
	return sonic.Snapshot{Initialized: true, Params: f.params}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return mm, cmd
}

func TestHeldKeySuppressesDuplicateNoteOn(t *testing.T) {
	f := &fakeSynth{params: sonic.DefaultParams()}
	m := New(f, nil)

	m, cmd := send(t, m, runes("z"))
	if cmd == nil {
		t.Fatal("press should arm a release timer")
	}
	m, _ = send(t, m, runes("z"))
	m, _ = send(t, m, runes("z"))
	if len(f.ons) != 1 || f.ons[0] != "C4" {
		t.Fatalf("note ons = %v, want [C4]", f.ons)
	}
	if got := m.Held(); len(got) != 1 || got[0] != "C4" {
		t.Fatalf("held = %v", got)
	}

	// Timers armed by earlier repeats are stale.
	m, _ = send(t, m, releaseMsg{note: "C4", gen: 1})
	if len(f.offs) != 0 {
		t.Fatalf("stale timer released the note: %v", f.offs)
	}
	m, _ = send(t, m, releaseMsg{note: "C4", gen: m.gen})
	if len(f.offs) != 1 || f.offs[0] != "C4" {
		t.Fatalf("note offs = %v, want [C4]", f.offs)
	}
	if len(m.Held()) != 0 {
		t.Fatal("note still held after release")
	}

	m, _ = send(t, m, runes("z"))
	if len(f.ons) != 2 {
		t.Fatal("key press after release should start a new note")
	}
}

func TestNoteKeyMap(t *testing.T) {
	f := &fakeSynth{params: sonic.DefaultParams()}
	m := New(f, nil)
	for _, k := range []string{"s", ",", ";", "/"} {
		m, _ = send(t, m, runes(k))
	}
	want := []sonic.NoteID{"C#4", "C5", "D#5", "E5"}
	if len(f.ons) != len(want) {
		t.Fatalf("ons = %v, want %v", f.ons, want)
	}
	for i := range want {
		if f.ons[i] != want[i] {
			t.Fatalf("ons = %v, want %v", f.ons, want)
		}
	}
}

func TestQuitReleasesHeldNotes(t *testing.T) {
	f := &fakeSynth{params: sonic.DefaultParams()}
	m := New(f, nil)
	m, _ = send(t, m, runes("z"))
	m, _ = send(t, m, runes("c"))
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("ctrl+c did not quit")
	}
	if len(f.offs) != 2 || len(m.Held()) != 0 {
		t.Fatalf("offs = %v held = %v", f.offs, m.Held())
	}
}

func TestNoteOnErrorIsShown(t *testing.T) {
	f := &fakeSynth{params: sonic.DefaultParams(), onErr: errors.New("engine asleep")}
	m := New(f, nil)
	m, _ = send(t, m, runes("x"))
	if len(m.Held()) != 0 {
		t.Fatal("failed note is held")
	}
	if !strings.Contains(m.View(), "engine asleep") {
		t.Fatal("error not rendered")
	}
}

func TestParameterKeysDriveEngine(t *testing.T) {
	e, err := sonic.NewEngine(sonic.WithBackend("manual"))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer e.Teardown()

	m := New(e, nil)
	for _, k := range []string{"=", "]", "]", "}", "A", "u", "R", "4"} {
		m, _ = send(t, m, runes(k))
	}
	m, _ = send(t, m, runes("e"))

	p := e.Params()
	def := sonic.DefaultParams()
	checks := []struct {
		name      string
		got, want float64
	}{
		{"volume", p.MasterVolume, def.MasterVolume + volumeStep},
		{"reverb", p.ReverbWet, 0.4},
		{"delay", p.DelayWet, 0.05},
		{"attack", p.Envelope.Attack, 0.055},
		{"decay", p.Envelope.Decay, 0},
		{"sustain", p.Envelope.Sustain, 0.25},
		{"release", p.Envelope.Release, 1.15},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if p.OscillatorType != sonic.Sawtooth {
		t.Errorf("waveform = %v, want sawtooth", p.OscillatorType)
	}
	if !strings.Contains(m.View(), "sawtooth") {
		t.Error("view does not show the waveform")
	}
}

func TestVolumeKeyClampsAtTop(t *testing.T) {
	e, err := sonic.NewEngine(sonic.WithBackend("manual"))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer e.Teardown()
	m := New(e, nil)
	for i := 0; i < 10; i++ {
		m, _ = send(t, m, runes("="))
	}
	if got := e.Params().MasterVolume; got != sonic.MaxMasterVolume {
		t.Fatalf("volume = %v, want %v", got, sonic.MaxMasterVolume)
	}
}

func TestMeter(t *testing.T) {
	var mt Meter
	mt.Tap([]float32{0.1, -0.5, 0.25})
	mt.Tap([]float32{0.2})
	if got := mt.Peak(); got != 0.5 {
		t.Fatalf("peak = %v, want 0.5", got)
	}
	if got := mt.Peak(); got != 0 {
		t.Fatalf("peak after read = %v, want 0", got)
	}
	if DB(1) != 0 || DB(0) != -60 {
		t.Fatalf("DB(1)=%v DB(0)=%v", DB(1), DB(0))
	}
}
