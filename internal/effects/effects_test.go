package effects

import (
	"math"
	"testing"
)

func TestDelayProducesOutput(t *testing.T) {
	d := NewDelay(44100, 100, 0.5, 0, 0.5)
	// Feed a pulse and check delayed output appears
	d.Process(1.0, 1.0)
	for i := 0; i < 4409; i++ { // ~100ms at 44100Hz
		d.Process(0, 0)
	}
	l, r := d.Process(0, 0)
	if math.Abs(float64(l)) < 0.01 || math.Abs(float64(r)) < 0.01 {
		t.Errorf("expected delayed output, got l=%f r=%f", l, r)
	}
}

func TestDelayRetune(t *testing.T) {
	d := NewDelay(1000, 500, 0, 0, 1)
	if got := d.DelayTime(); got != 500 {
		t.Fatalf("delay time = %f, want 500", got)
	}
	d.SetDelayTime(10)
	d.Process(1, 1)
	var hit int
	for i := 1; i <= 20; i++ {
		if l, _ := d.Process(0, 0); l > 0.5 {
			hit = i
			break
		}
	}
	if hit != 10 {
		t.Fatalf("pulse came back after %d samples, want 10", hit)
	}
	d.SetDelayTime(1e6)
	if got := d.DelayTime(); got > MaxDelayMs {
		t.Fatalf("delay time %f exceeds buffer", got)
	}
}

func TestDelayDryWhenWetZero(t *testing.T) {
	d := NewDelay(48000, 50, 0.5, 0, 0)
	for i := 0; i < 5000; i++ {
		l, r := d.Process(0.25, -0.25)
		if l != 0.25 || r != -0.25 {
			t.Fatalf("sample %d: got %f,%f, want dry passthrough", i, l, r)
		}
	}
}

func TestWetSettersClamp(t *testing.T) {
	d := NewDelay(48000, 100, 0, 0, 0.2)
	d.SetWet(1.7)
	if got := d.Wet(); got != 1 {
		t.Errorf("delay wet = %f, want 1", got)
	}
	r := NewReverb(48000, 0.5, 2, 0.3)
	r.SetWet(-0.3)
	if got := r.Wet(); got != 0 {
		t.Errorf("reverb wet = %f, want 0", got)
	}
	r.SetWet(0.8)
	if got := r.Wet(); got != 0.8 {
		t.Errorf("reverb wet = %v, want exactly 0.8", got)
	}
	r.SetWet(math.NaN())
	if got := r.Wet(); got != 0 {
		t.Errorf("reverb wet for NaN = %f, want 0", got)
	}
}

func TestWetChangeIsSmoothed(t *testing.T) {
	d := NewDelay(48000, 1000, 0, 0, 0)
	for i := 0; i < 100; i++ {
		d.Process(1, 1)
	}
	d.SetWet(1)
	// Delay line is still empty, so output is the dry part only; it must
	// fall gradually rather than jumping to zero.
	l, _ := d.Process(1, 1)
	if l < 0.9 {
		t.Fatalf("first sample after wet change = %f, want a gradual ramp", l)
	}
	for i := 0; i < 4800; i++ {
		l, _ = d.Process(1, 1)
	}
	if l > 0.01 {
		t.Fatalf("ramp did not settle, l=%f", l)
	}
}

func TestReverbProducesOutput(t *testing.T) {
	r := NewReverb(44100, 0.5, 2, 0.5)
	// Feed impulse
	r.Process(1.0, 1.0)
	// After some samples, reverb tail should be present
	var maxOut float32
	for i := 0; i < 10000; i++ {
		l, _ := r.Process(0, 0)
		if l > maxOut {
			maxOut = l
		}
	}
	if maxOut < 0.001 {
		t.Error("expected reverb tail")
	}
}

func TestReverbLongerDecayRingsLonger(t *testing.T) {
	energy := func(decay float64) float64 {
		r := NewReverb(44100, 0.5, decay, 1)
		r.Process(1, 1)
		for i := 0; i < 22050; i++ {
			r.Process(0, 0)
		}
		var e float64
		for i := 0; i < 4410; i++ {
			l, _ := r.Process(0, 0)
			e += float64(l) * float64(l)
		}
		return e
	}
	short, long := energy(0.3), energy(4)
	if long <= short {
		t.Fatalf("decay 4s tail energy %g should exceed decay 0.3s tail %g", long, short)
	}
}

func TestReverbDecayClamps(t *testing.T) {
	r := NewReverb(48000, 0.5, 100, 0.3)
	if got := r.Decay(); got != MaxReverbDecay {
		t.Errorf("decay = %f, want %f", got, MaxReverbDecay)
	}
	r.SetDecay(0)
	if got := r.Decay(); got != MinReverbDecay {
		t.Errorf("decay = %f, want %f", got, MinReverbDecay)
	}
}

func TestGainClampsAndScales(t *testing.T) {
	g := NewGain(48000, -100)
	if got := g.DB(); got != MinGainDB {
		t.Fatalf("gain = %f dB, want %f", got, MinGainDB)
	}
	if got := g.SetDB(12); got != MaxGainDB {
		t.Fatalf("SetDB(12) = %f, want %f", got, MaxGainDB)
	}
	g.Reset()
	l, r := g.Process(0.5, -0.5)
	if l != 0.5 || r != -0.5 {
		t.Fatalf("0 dB gain changed signal: %f,%f", l, r)
	}

	g = NewGain(48000, -6)
	l, _ = g.Process(1, 1)
	want := DBToLinear(-6)
	if math.Abs(float64(l)-want) > 1e-6 {
		t.Fatalf("-6 dB gain = %f, want %f", l, want)
	}
}

func TestGainAppliesUniformlyToBothChannels(t *testing.T) {
	g := NewGain(48000, -12)
	g.SetDB(-3)
	for i := 0; i < 1000; i++ {
		l, r := g.Process(0.8, 0.2)
		if math.Abs(float64(l/r)-4) > 1e-4 {
			t.Fatalf("sample %d: ratio %f changed during ramp", i, l/r)
		}
	}
}

func TestChainAppliesEffectsInOrder(t *testing.T) {
	c := NewChain(
		NewGain(44100, -6),
		NewDelay(44100, 10, 0, 0, 0.5),
	)
	l, r := c.Process(0.5, 0.5)
	if l == 0 || r == 0 {
		t.Error("chain should produce output")
	}
	if c.Len() != 2 {
		t.Fatalf("chain len = %d, want 2", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("chain len after clear = %d, want 0", c.Len())
	}
	l, _ = c.Process(0.5, 0.5)
	if l != 0.5 {
		t.Fatalf("empty chain should pass through, got %f", l)
	}
}

func TestChainProcessBuffer(t *testing.T) {
	c := NewChain(NewGain(48000, 0))
	buf := []float32{0.1, 0.2, 0.3, 0.4}
	c.ProcessBuffer(buf)
	if buf[2] != 0.3 || buf[3] != 0.4 {
		t.Fatalf("unity chain altered buffer: %v", buf)
	}
}
