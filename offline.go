package sonic

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	intaudio "github.com/cbegin/sonic-go/internal/audio"
)

// NoteEvent is one scripted note-on or note-off at a time in seconds.
type NoteEvent struct {
	At   float64 `json:"at"`
	Note NoteID  `json:"note"`
	Off  bool    `json:"off"`
}

// ParseNoteList parses "C4@0+0.5, E4@0.25+0.5" into note-on/note-off pairs.
// Each entry is NOTE@START+DURATION in seconds; "@START" defaults to the end
// of the previous entry and "+DURATION" to 0.5.
func ParseNoteList(s string) ([]NoteEvent, error) {
	var events []NoteEvent
	cursor := 0.0
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dur := 0.5
		if i := strings.IndexByte(field, '+'); i >= 0 {
			v, err := parseSeconds(field[i+1:])
			if err != nil {
				return nil, fmt.Errorf("bad duration in %q", field)
			}
			dur = v
			field = field[:i]
		}
		start := cursor
		if i := strings.IndexByte(field, '@'); i >= 0 {
			v, err := parseSeconds(field[i+1:])
			if err != nil {
				return nil, fmt.Errorf("bad start time in %q", field)
			}
			start = v
			field = field[:i]
		}
		id := NoteID(field)
		if _, err := id.Key(); err != nil {
			return nil, err
		}
		events = append(events,
			NoteEvent{At: start, Note: id},
			NoteEvent{At: start + dur, Note: id, Off: true})
		cursor = start + dur
	}
	return events, nil
}

// parseSeconds accepts finite, non-negative times. ParseFloat alone lets
// "inf" and "nan" through.
func parseSeconds(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if !validSeconds(v) {
		return 0, fmt.Errorf("%v is not a finite, non-negative time", v)
	}
	return v, nil
}

func validSeconds(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// MaxRenderSeconds bounds RenderNotes.
const MaxRenderSeconds = 3600

// RenderNotes plays events through a fresh engine on the manual backend and
// returns seconds of interleaved stereo output. Events land on exact frames.
func RenderNotes(events []NoteEvent, seconds float64, opts ...EngineOption) ([]float32, error) {
	if !validSeconds(seconds) || seconds == 0 || seconds > MaxRenderSeconds {
		return nil, fmt.Errorf("render length %v s out of range (0, %d]", seconds, MaxRenderSeconds)
	}
	for _, ev := range events {
		if !validSeconds(ev.At) {
			return nil, fmt.Errorf("event %s at %v s: not a finite, non-negative time", ev.Note, ev.At)
		}
	}
	e, err := NewEngine(append(slices.Clone(opts), WithBackend(intaudio.BackendManual))...)
	if err != nil {
		return nil, err
	}
	if err := e.Initialize(); err != nil {
		return nil, err
	}
	defer e.Teardown()

	rate := float64(e.SampleRate())
	frameOf := func(ev NoteEvent) int { return int(math.Round(math.Min(ev.At, seconds) * rate)) }
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b NoteEvent) int { return frameOf(a) - frameOf(b) })

	frames := int(rate * seconds)
	out := make([]float32, frames*2)
	next := 0
	for pos := 0; pos < frames; {
		for next < len(sorted) && frameOf(sorted[next]) <= pos {
			ev := sorted[next]
			if ev.Off {
				err = e.NoteOff(ev.Note)
			} else {
				err = e.NoteOn(ev.Note)
			}
			if err != nil {
				return nil, err
			}
			next++
		}
		end := min(pos+renderBlock, frames)
		if next < len(sorted) {
			end = min(end, frameOf(sorted[next]))
		}
		e.Process(out[pos*2 : end*2])
		pos = end
	}
	return out, nil
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
