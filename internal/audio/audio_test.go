package audio

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"testing"
	"time"
)

type rampSource struct {
	calls atomic.Int64
}

func (s *rampSource) Process(dst []float32) {
	s.calls.Add(1)
	for i := range dst {
		dst[i] = float32(i) * 0.25
	}
}

func TestStreamReaderEncodesFloat32LE(t *testing.T) {
	src := &rampSource{}
	r := NewStreamReader(src)
	p := make([]byte, 4*8+3) // 4 frames plus a partial frame
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 32 {
		t.Fatalf("n = %d, want 32", n)
	}
	for i := 0; i < 8; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		if want := float32(i) * 0.25; got != want {
			t.Fatalf("sample %d = %f, want %f", i, got, want)
		}
	}
}

func TestStreamReaderShortBuffer(t *testing.T) {
	r := NewStreamReader(&rampSource{})
	n, err := r.Read(make([]byte, 7))
	if n != 0 || err != nil {
		t.Fatalf("n=%d err=%v, want 0,nil", n, err)
	}
}

func TestNullPlayerDrivesSource(t *testing.T) {
	src := &rampSource{}
	sink, err := NewNullPlayer(48000, src)
	if err != nil {
		t.Fatalf("new null player: %v", err)
	}
	sink.Play()
	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	calls := src.calls.Load()
	if calls < 3 {
		t.Fatalf("source pulled %d times, want >= 3", calls)
	}
	time.Sleep(3 * nullTick)
	if got := src.calls.Load(); got != calls {
		t.Fatalf("source pulled after close: %d -> %d", calls, got)
	}
	sink.Play()
	time.Sleep(3 * nullTick)
	if got := src.calls.Load(); got != calls {
		t.Fatal("closed sink restarted")
	}
}

func TestManualPlayerState(t *testing.T) {
	sink, _ := NewManualPlayer(48000, nil)
	m := sink.(*ManualPlayer)
	m.Play()
	if !m.Playing() {
		t.Fatal("expected playing")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	m.Play()
	if m.Playing() || !m.Closed() {
		t.Fatal("closed manual sink must not play")
	}
}

func TestBackendByName(t *testing.T) {
	for _, name := range []string{"", "ebiten", "oto", "null", "headless", "manual"} {
		if _, err := BackendByName(name); err != nil {
			t.Errorf("BackendByName(%q): %v", name, err)
		}
	}
	if _, err := BackendByName("jack"); err == nil {
		t.Error("expected error for unknown backend")
	}
}
