package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gen2brain/pcmout"
	"github.com/gen2brain/pcmout/cmd/internal/setup"
)

func main() {
	var (
		formatStr    string
		channels     uint
		rate         uint
		waveformStr  string
		frequency    float64
		melodyMode bool
	)

	opts := setup.Register(flag.CommandLine)
	flag.StringVar(&formatStr, "format", "s16", "The sample format (s16, f32, u8)")
	flag.UintVar(&channels, "channels", 1, "The amount of channels per frame")
	flag.UintVar(&rate, "rate", 44100, "The amount of frames per second")
	flag.StringVar(&waveformStr, "waveform", "sine", "The waveform (sine, square, triangle, sawtooth)")
	flag.Float64Var(&frequency, "freq", 440, "The note frequency in Hz")
	flag.BoolVar(&melodyMode, "melody", false, "Play a short melody and exit instead of starting the interactive player")

	flag.Parse()

	if err := setup.Logging(opts.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	format, err := pcmout.ParseFormat(formatStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error determining format: %v\n", err)
		os.Exit(1)
	}

	waveform, err := pcmout.ParseWaveform(waveformStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(opts, pcmout.Properties{Format: format, Channels: uint32(channels), SampleRate: uint32(rate)},
		pcmout.NewNote(waveform, frequency), melodyMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts *setup.Options, props pcmout.Properties, note *pcmout.Note, melodyOnly bool) error {
	backend, err := pcmout.Begin(opts.BackendList())
	if err != nil {
		return err
	}
	defer backend.End()

	d, err := backend.OpenDevice(&props, pcmout.PlayNote, note)
	if err != nil {
		return err
	}
	defer d.Close()

	if melodyOnly {
		fmt.Printf("Playing melody: %v via %s\n", props, backend.Name())

		return playMelody(d, note)
	}

	if _, err := tea.NewProgram(newModel(d, note, backend.Name()), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	return d.Err()
}
