package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderCommandWritesWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{
		"render",
		"--notes", "A4@0+0.1, C5@0.1+0.1",
		"--seconds", "0.25",
		"--sample-rate", "8000",
		"--log-level", "error",
		"-o", path,
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("render: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(44 + 2000*2*4); info.Size() != want {
		t.Fatalf("size = %d, want %d", info.Size(), want)
	}
	if !strings.Contains(stdout.String(), "wrote") {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestInitialParamsRejectsUnknownWaveform(t *testing.T) {
	old := waveform
	defer func() { waveform = old }()
	waveform = "noise"
	if _, err := initialParams(); err == nil {
		t.Fatal("expected error")
	}
	waveform = "saw"
	p, err := initialParams()
	if err != nil {
		t.Fatal(err)
	}
	if p.OscillatorType.String() != "sawtooth" {
		t.Fatalf("waveform = %v", p.OscillatorType)
	}
}
