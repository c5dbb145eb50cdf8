// Package tui is a terminal keyboard for the engine. Terminals report key
// presses but not releases, so a note is held while the key auto-repeats and
// released once no repeat arrives within the hold timeout.
package tui

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/sonic-go"
)

// DefaultHoldTimeout is longer than the usual auto-repeat delay, so a key
// held down keeps its note sounding.
const DefaultHoldTimeout = 650 * time.Millisecond

const refreshInterval = 100 * time.Millisecond

// Slider ranges of the parameter panel. Each key press moves 1/20 of a range.
const (
	volumeStep = 3.0
	wetStep    = 0.05
	maxAttack  = 1.0
	maxDecay   = 2.0
	maxRelease = 3.0
	steps      = 20
)

var (
	accent     = lipgloss.Color("#39FF14")
	muted      = lipgloss.Color("#666666")
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Background(lipgloss.Color("#333333")).
			Padding(0, 2).
			MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C0C0C0")).Width(10)
	valueStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	heldStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)
	helpStyle = lipgloss.NewStyle().Foreground(muted).MarginTop(1)
)

// Synth is the part of the engine the keyboard drives.
type Synth interface {
	NoteOn(sonic.NoteID) error
	NoteOff(sonic.NoteID) error
	UpdateGlobalParameter(sonic.ParamKind, any) error
	Snapshot() sonic.Snapshot
}

type releaseMsg struct {
	note sonic.NoteID
	gen  uint64
}

type refreshMsg time.Time

type Model struct {
	synth       Synth
	meter       *Meter
	keys        KeyMap
	help        help.Model
	holdTimeout time.Duration
	held        map[sonic.NoteID]uint64
	gen         uint64
	snap        sonic.Snapshot
	peakDB      float64
	err         error
	width       int
}

// New builds the keyboard model. meter may be nil.
func New(synth Synth, meter *Meter) Model {
	return Model{
		synth:       synth,
		meter:       meter,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		holdTimeout: DefaultHoldTimeout,
		held:        make(map[sonic.NoteID]uint64),
		snap:        synth.Snapshot(),
		peakDB:      -60,
	}
}

// WithHoldTimeout returns a copy of m using d as the release timeout.
func (m Model) WithHoldTimeout(d time.Duration) Model {
	m.holdTimeout = d
	return m
}

func (m Model) Init() tea.Cmd {
	return refresh()
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case refreshMsg:
		m.snap = m.synth.Snapshot()
		if m.meter != nil {
			m.peakDB = DB(m.meter.Peak())
		}
		return m, refresh()

	case releaseMsg:
		if gen, ok := m.held[msg.note]; ok && gen == msg.gen {
			delete(m.held, msg.note)
			m.err = m.synth.NoteOff(msg.note)
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if id, ok := noteKeys[msg.String()]; ok {
		return m.press(id)
	}
	p := m.snap.Params
	env := p.Envelope
	var err error
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.releaseAll()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Waveform):
		shape := sonic.OscillatorType(msg.Runes[0] - '1')
		err = m.synth.UpdateGlobalParameter(sonic.ParamOscillatorType, shape)
	case key.Matches(msg, m.keys.VolumeUp):
		err = m.synth.UpdateGlobalParameter(sonic.ParamMasterVolume, p.MasterVolume+volumeStep)
	case key.Matches(msg, m.keys.VolumeDown):
		err = m.synth.UpdateGlobalParameter(sonic.ParamMasterVolume, p.MasterVolume-volumeStep)
	case key.Matches(msg, m.keys.ReverbUp):
		err = m.synth.UpdateGlobalParameter(sonic.ParamReverbWet, round(p.ReverbWet+wetStep))
	case key.Matches(msg, m.keys.ReverbDown):
		err = m.synth.UpdateGlobalParameter(sonic.ParamReverbWet, round(p.ReverbWet-wetStep))
	case key.Matches(msg, m.keys.DelayUp):
		err = m.synth.UpdateGlobalParameter(sonic.ParamDelayWet, round(p.DelayWet+wetStep))
	case key.Matches(msg, m.keys.DelayDown):
		err = m.synth.UpdateGlobalParameter(sonic.ParamDelayWet, round(p.DelayWet-wetStep))
	case key.Matches(msg, m.keys.AttackUp):
		env.Attack = nudge(env.Attack, maxAttack, 1)
		err = m.synth.UpdateGlobalParameter(sonic.ParamEnvelopeSettings, env)
	case key.Matches(msg, m.keys.AttackDown):
		env.Attack = nudge(env.Attack, maxAttack, -1)
		err = m.synth.UpdateGlobalParameter(sonic.ParamEnvelopeSettings, env)
	case key.Matches(msg, m.keys.DecayUp):
		env.Decay = nudge(env.Decay, maxDecay, 1)
		err = m.synth.UpdateGlobalParameter(sonic.ParamEnvelopeSettings, env)
	case key.Matches(msg, m.keys.DecayDown):
		env.Decay = nudge(env.Decay, maxDecay, -1)
		err = m.synth.UpdateGlobalParameter(sonic.ParamEnvelopeSettings, env)
	case key.Matches(msg, m.keys.SustainUp):
		env.Sustain = nudge(env.Sustain, 1, 1)
		err = m.synth.UpdateGlobalParameter(sonic.ParamEnvelopeSettings, env)
	case key.Matches(msg, m.keys.SustainDown):
		env.Sustain = nudge(env.Sustain, 1, -1)
		err = m.synth.UpdateGlobalParameter(sonic.ParamEnvelopeSettings, env)
	case key.Matches(msg, m.keys.ReleaseUp):
		env.Release = nudge(env.Release, maxRelease, 1)
		err = m.synth.UpdateGlobalParameter(sonic.ParamEnvelopeSettings, env)
	case key.Matches(msg, m.keys.ReleaseDown):
		env.Release = nudge(env.Release, maxRelease, -1)
		err = m.synth.UpdateGlobalParameter(sonic.ParamEnvelopeSettings, env)
	default:
		return m, nil
	}
	m.err = err
	m.snap = m.synth.Snapshot()
	return m, nil
}

// press starts a note, or keeps an already held note alive when the key
// auto-repeats. Every press re-arms the release timer; older timers are
// ignored by generation.
func (m Model) press(id sonic.NoteID) (tea.Model, tea.Cmd) {
	if _, held := m.held[id]; !held {
		if err := m.synth.NoteOn(id); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
	}
	m.gen++
	gen := m.gen
	m.held[id] = gen
	return m, tea.Tick(m.holdTimeout, func(time.Time) tea.Msg {
		return releaseMsg{note: id, gen: gen}
	})
}

func (m Model) releaseAll() {
	for id := range m.held {
		_ = m.synth.NoteOff(id)
		delete(m.held, id)
	}
}

// Held returns the notes the keyboard is holding, sorted.
func (m Model) Held() []sonic.NoteID {
	out := make([]sonic.NoteID, 0, len(m.held))
	for id := range m.held {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func nudge(v, limit float64, dir int) float64 {
	return round(math.Max(0, math.Min(limit, v+float64(dir)*limit/steps)))
}

// round trims float noise from repeated steps.
func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func (m Model) View() string {
	p := m.snap.Params
	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}
	rows := []string{
		row("wave", p.OscillatorType.String()),
		row("volume", fmt.Sprintf("%.0f dB", p.MasterVolume)),
		row("envelope", fmt.Sprintf("A %.3fs  D %.3fs  S %.2f  R %.3fs",
			p.Envelope.Attack, p.Envelope.Decay, p.Envelope.Sustain, p.Envelope.Release)),
		row("delay", fmt.Sprintf("%.2f wet  %.2fs", p.DelayWet, p.DelayTime)),
		row("reverb", fmt.Sprintf("%.2f wet  %.1fs", p.ReverbWet, p.ReverbDecay)),
		row("voices", fmt.Sprintf("%d live", m.snap.Live)),
		row("output", meterBar(m.peakDB)),
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("sonic"))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")

	notes := make([]string, 0, len(m.held))
	for _, id := range m.Held() {
		notes = append(notes, string(id))
	}
	if len(notes) > 0 {
		b.WriteString(heldStyle.Render(strings.Join(notes, " ")))
	} else {
		b.WriteString(lipgloss.NewStyle().Foreground(muted).Render("-"))
	}
	if m.snap.Degraded {
		b.WriteString("\n" + errorStyle.Render("audio resources degraded"))
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()))
	}
	b.WriteString("\n" + helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func meterBar(db float64) string {
	const width = 30
	n := int(math.Round((db + 60) / 60 * width))
	n = max(0, min(width, n))
	return strings.Repeat("█", n) + strings.Repeat("·", width-n) + fmt.Sprintf(" %.0f dB", db)
}

// Run starts the keyboard on the terminal and blocks until the user quits.
func Run(synth Synth, meter *Meter) error {
	p := tea.NewProgram(New(synth, meter), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
