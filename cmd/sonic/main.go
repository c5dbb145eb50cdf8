// Command sonic plays the synthesizer from the terminal, serves it over HTTP
// or renders a note list to a WAV file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/sonic-go"
	"github.com/cbegin/sonic-go/internal/api"
	"github.com/cbegin/sonic-go/internal/logging"
	"github.com/cbegin/sonic-go/internal/osc"
	"github.com/cbegin/sonic-go/internal/tui"
)

var version = "dev"

var (
	sampleRate  int
	backendName string
	logLevel    string
	logDev      bool
	logFile     string
	waveform    string
	volume      float64
	reverbWet   float64
	delayWet    float64
	maxVoices   int

	serveAddr    string
	statusPeriod time.Duration

	renderNotes   string
	renderSeconds float64
	renderOut     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sonic",
	Short: "Polyphonic synthesizer with delay and reverb",
	Long: `sonic is a small polyphonic synthesizer: one oscillator and ADSR envelope
per note, a shared master gain, delay and reverb.

Examples:
  sonic play
  sonic play --waveform saw --reverb 0.5
  sonic serve --addr :8080 --backend null
  sonic render --notes "C4@0+0.5,E4@0.5+0.5,G4@1+1" -o chord.wav`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play from the computer keyboard",
	RunE:  runPlay,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP parameter panel",
	RunE:  runServe,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a note list to a 32-bit float WAV file",
	RunE:  runRender,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&sampleRate, "sample-rate", sonic.DefaultSampleRate, "output sample rate")
	pf.StringVar(&backendName, "backend", "ebiten", "audio backend: ebiten|oto|null")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.BoolVar(&logDev, "log-dev", false, "human-readable console logs")
	pf.StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	pf.StringVar(&waveform, "waveform", "sine", "initial waveform: sine|square|triangle|sawtooth")
	pf.Float64Var(&volume, "volume", -12, "initial master volume in dB (-60..0)")
	pf.Float64Var(&reverbWet, "reverb", 0.3, "initial reverb wet mix (0..1)")
	pf.Float64Var(&delayWet, "delay", 0, "initial delay wet mix (0..1)")
	pf.IntVar(&maxVoices, "max-voices", 0, "voice limit before release tails are stolen (0 = default)")

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().DurationVar(&statusPeriod, "status-every", 10*time.Second, "log engine status at this interval (0 = off)")

	renderCmd.Flags().StringVar(&renderNotes, "notes", "C4@0+0.5,E4@0.5+0.5,G4@1+1", "notes as NOTE@START+DURATION, comma separated")
	renderCmd.Flags().Float64Var(&renderSeconds, "seconds", 0, "length of the render (0 = last note off plus release)")
	renderCmd.Flags().StringVarP(&renderOut, "output", "o", "sonic.wav", "output WAV path")

	rootCmd.AddCommand(playCmd, serveCmd, renderCmd)
}

func newLogger(quietByDefault bool) (*zap.Logger, error) {
	if logFile != "" {
		return logging.New(logLevel, logDev, logFile)
	}
	if quietByDefault {
		return zap.NewNop(), nil
	}
	return logging.New(logLevel, logDev)
}

func initialParams() (sonic.Params, error) {
	shape, err := osc.ParseShape(waveform)
	if err != nil {
		return sonic.Params{}, err
	}
	p := sonic.DefaultParams()
	p.OscillatorType = shape
	p.MasterVolume = volume
	p.ReverbWet = reverbWet
	p.DelayWet = delayWet
	return p, nil
}

func engineOptions(log *zap.Logger, extra ...sonic.EngineOption) ([]sonic.EngineOption, error) {
	p, err := initialParams()
	if err != nil {
		return nil, err
	}
	opts := []sonic.EngineOption{
		sonic.WithSampleRate(sampleRate),
		sonic.WithBackend(backendName),
		sonic.WithLogger(log),
		sonic.WithInitialParams(p),
		sonic.WithMaxVoices(maxVoices),
	}
	return append(opts, extra...), nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the UI; logs only go to --log-file.
	log, err := newLogger(true)
	if err != nil {
		return err
	}
	defer log.Sync()

	meter := &tui.Meter{}
	opts, err := engineOptions(log, sonic.WithSampleTap(meter.Tap))
	if err != nil {
		return err
	}
	engine, err := sonic.NewEngine(opts...)
	if err != nil {
		return err
	}
	if err := engine.Initialize(); err != nil {
		return err
	}
	uiErr := tui.Run(engine, meter)
	if err := engine.Teardown(); err != nil {
		log.Warn("teardown", zap.Error(err))
	}
	return uiErr
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := newLogger(false)
	if err != nil {
		return err
	}
	defer log.Sync()

	opts, err := engineOptions(log)
	if err != nil {
		return err
	}
	engine, err := sonic.NewEngine(opts...)
	if err != nil {
		return err
	}
	if err := engine.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := engine.Teardown(); err != nil {
			log.Warn("teardown", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(ctx, serveAddr, api.NewRouter(engine, log), log)
	})
	if statusPeriod > 0 {
		g.Go(func() error {
			return logStatus(ctx, engine, log, statusPeriod)
		})
	}
	return g.Wait()
}

func logStatus(ctx context.Context, engine *sonic.Engine, log *zap.Logger, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s := engine.Snapshot()
			log.Info("engine status",
				zap.Int("live", s.Live),
				zap.Int("held", len(s.Notes)),
				zap.Uint64("frames", s.Frames),
				zap.Bool("degraded", s.Degraded))
		}
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	log, err := newLogger(false)
	if err != nil {
		return err
	}
	defer log.Sync()

	events, err := sonic.ParseNoteList(renderNotes)
	if err != nil {
		return err
	}
	p, err := initialParams()
	if err != nil {
		return err
	}
	seconds := renderSeconds
	if seconds <= 0 {
		for _, ev := range events {
			seconds = max(seconds, ev.At)
		}
		seconds += p.Envelope.Release + 0.5
	}
	opts, err := engineOptions(log)
	if err != nil {
		return err
	}
	samples, err := sonic.RenderNotes(events, seconds, opts...)
	if err != nil {
		return err
	}
	wav := sonic.EncodeWAVFloat32LE(samples, sampleRate, 2)
	if err := os.WriteFile(renderOut, wav, 0o644); err != nil {
		return err
	}
	log.Info("rendered",
		zap.String("path", renderOut),
		zap.Int("events", len(events)),
		zap.Float64("seconds", seconds))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%.2fs)\n", renderOut, seconds)
	return nil
}
