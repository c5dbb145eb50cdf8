package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/cbegin/sonic-go"
)

// noteKeys maps the two bottom rows of a QWERTY keyboard to a piano octave
// and a bit: white keys on zxcv..., black keys on sdg....
var noteKeys = map[string]sonic.NoteID{
	"z": "C4", "x": "D4", "c": "E4", "v": "F4", "b": "G4",
	"n": "A4", "m": "B4", ",": "C5", ".": "D5", "/": "E5",
	"s": "C#4", "d": "D#4", "g": "F#4", "h": "G#4", "j": "A#4",
	"l": "C#5", ";": "D#5",
}

type KeyMap struct {
	Notes       key.Binding
	Waveform    key.Binding
	VolumeUp    key.Binding
	VolumeDown  key.Binding
	ReverbUp    key.Binding
	ReverbDown  key.Binding
	DelayUp     key.Binding
	DelayDown   key.Binding
	AttackUp    key.Binding
	AttackDown  key.Binding
	DecayUp     key.Binding
	DecayDown   key.Binding
	SustainUp   key.Binding
	SustainDown key.Binding
	ReleaseUp   key.Binding
	ReleaseDown key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Notes:       key.NewBinding(key.WithKeys("z", "x", "c", "v", "b", "n", "m", ",", ".", "/", "s", "d", "g", "h", "j", "l", ";"), key.WithHelp("z../ s..;", "play")),
		Waveform:    key.NewBinding(key.WithKeys("1", "2", "3", "4"), key.WithHelp("1-4", "waveform")),
		VolumeUp:    key.NewBinding(key.WithKeys("="), key.WithHelp("=", "volume +")),
		VolumeDown:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume -")),
		ReverbUp:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "reverb +")),
		ReverbDown:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "reverb -")),
		DelayUp:     key.NewBinding(key.WithKeys("}"), key.WithHelp("}", "delay +")),
		DelayDown:   key.NewBinding(key.WithKeys("{"), key.WithHelp("{", "delay -")),
		AttackUp:    key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "attack +")),
		AttackDown:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "attack -")),
		DecayUp:     key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "decay +")),
		DecayDown:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "decay -")),
		SustainUp:   key.NewBinding(key.WithKeys("U"), key.WithHelp("U", "sustain +")),
		SustainDown: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "sustain -")),
		ReleaseUp:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "release +")),
		ReleaseDown: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "release -")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Notes, k.Waveform, k.VolumeDown, k.VolumeUp, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Notes, k.Waveform, k.VolumeDown, k.VolumeUp},
		{k.ReverbDown, k.ReverbUp, k.DelayDown, k.DelayUp},
		{k.AttackDown, k.AttackUp, k.DecayDown, k.DecayUp},
		{k.SustainDown, k.SustainUp, k.ReleaseDown, k.ReleaseUp},
		{k.Help, k.Quit},
	}
}
