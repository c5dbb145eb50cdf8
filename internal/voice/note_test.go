package voice

import (
	"errors"
	"math"
	"testing"
)

func TestNoteKey(t *testing.T) {
	cases := []struct {
		id   NoteID
		want int
	}{
		{"C4", 60},
		{"C#4", 61},
		{"Db4", 61},
		{"A4", 69},
		{"B4", 71},
		{"C5", 72},
		{"D#5", 75},
		{"c-1", 0},
		{"G9", 127},
	}
	for _, tc := range cases {
		got, err := tc.id.Key()
		if err != nil {
			t.Fatalf("%s: %v", tc.id, err)
		}
		if got != tc.want {
			t.Errorf("%s key = %d, want %d", tc.id, got, tc.want)
		}
	}
}

func TestNoteInvalid(t *testing.T) {
	for _, id := range []NoteID{"", "H4", "C", "C#", "Cx4", "C10", "G#9", "Cb-1"} {
		if _, err := id.Key(); !errors.Is(err, ErrInvalidNote) {
			t.Errorf("%q: err = %v, want ErrInvalidNote", id, err)
		}
		if id.Valid() {
			t.Errorf("%q should be invalid", id)
		}
	}
}

func TestNoteFreq(t *testing.T) {
	f, err := NoteID("A4").Freq()
	if err != nil || f != 440 {
		t.Fatalf("A4 = %f (%v), want 440", f, err)
	}
	f, _ = NoteID("C4").Freq()
	if math.Abs(f-261.6256) > 1e-3 {
		t.Fatalf("C4 = %f, want 261.626", f)
	}
}

func TestNoteCanonical(t *testing.T) {
	cases := []struct {
		id   NoteID
		want NoteID
	}{
		{"C4", "C4"},
		{"c4", "C4"},
		{" C4 ", "C4"},
		{"Db5", "C#5"},
		{"db5", "C#5"},
		{"B#3", "C4"},
		{"Cb4", "B3"},
		{"c-1", "C-1"},
		{"G9", "G9"},
	}
	for _, tc := range cases {
		got, err := tc.id.Canonical()
		if err != nil {
			t.Fatalf("%q: %v", tc.id, err)
		}
		if got != tc.want {
			t.Errorf("%q canonical = %q, want %q", tc.id, got, tc.want)
		}
	}
	if _, err := NoteID("H4").Canonical(); !errors.Is(err, ErrInvalidNote) {
		t.Fatalf("H4: err = %v, want ErrInvalidNote", err)
	}
}
