package voice

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NoteID identifies a pitch, e.g. "C4" or "C#5". It is the key of the voice
// table.
type NoteID string

// ErrInvalidNote is returned for identifiers that do not name a pitch.
var ErrInvalidNote = errors.New("invalid note identifier")

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

var keyNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Key returns the MIDI key number of id, with C4 = 60. Accepted form is a
// letter A-G, an optional '#' or 'b', and an octave from -1 to 9.
func (id NoteID) Key() (int, error) {
	s := strings.TrimSpace(string(id))
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, id)
	}
	base, ok := semitones[byte(strings.ToUpper(s[:1])[0])]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, id)
	}
	rest := s[1:]
	switch rest[0] {
	case '#':
		base++
		rest = rest[1:]
	case 'b':
		base--
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil || octave < -1 || octave > 9 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, id)
	}
	key := (octave+1)*12 + base
	if key < 0 || key > 127 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, id)
	}
	return key, nil
}

// Canonical returns the spelling of id's pitch used as the voice table key:
// upper-case letter, sharps only, no spaces. "c4", " Db5" and "B#3" become
// "C4", "C#5" and "C4".
func (id NoteID) Canonical() (NoteID, error) {
	key, err := id.Key()
	if err != nil {
		return "", err
	}
	return KeyName(key), nil
}

// KeyName returns the canonical NoteID for a MIDI key number.
func KeyName(key int) NoteID {
	return NoteID(keyNames[key%12] + strconv.Itoa(key/12-1))
}

// Freq returns the equal-tempered frequency of id with A4 = 440 Hz.
func (id NoteID) Freq() (float64, error) {
	key, err := id.Key()
	if err != nil {
		return 0, err
	}
	return KeyToFreq(key), nil
}

// Valid reports whether id names a pitch.
func (id NoteID) Valid() bool {
	_, err := id.Key()
	return err == nil
}

func KeyToFreq(key int) float64 {
	return 440 * math.Pow(2, float64(key-69)/12)
}
