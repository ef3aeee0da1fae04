package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gen2brain/pcmout"
	"github.com/gen2brain/pcmout/cmd/internal/setup"
)

func main() {
	var (
		formatStr string
		loop      bool
	)

	opts := setup.Register(flag.CommandLine)
	flag.StringVar(&formatStr, "format", "s16", "The sample format (s16, f32, u8)")
	flag.BoolVar(&loop, "loop", false, "Play the file in a loop until interrupted")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <wav-or-mp3-file>\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nSIGUSR1 pauses and resumes, SIGUSR2 rewinds.")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := setup.Logging(opts.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	format, err := pcmout.ParseFormat(formatStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error determining format: %v\n", err)
		os.Exit(1)
	}

	c, err := decodeFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	c.loop = loop

	if err := play(opts, c, format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func play(opts *setup.Options, c *clip, format pcmout.Format) error {
	backend, err := pcmout.Begin(opts.BackendList())
	if err != nil {
		return err
	}
	defer backend.End()

	props := &pcmout.Properties{
		Format:     format,
		Channels:   c.channels,
		SampleRate: c.rate,
	}

	d, err := backend.OpenDevice(props, c.callback, nil)
	if err != nil {
		return err
	}
	defer d.Close()

	fmt.Printf("Playing %s: %v via %s\n", flag.Arg(0), *props, backend.Name())
	fmt.Printf("Duration: %v\n", c.Duration().Round(time.Millisecond))

	if props.SampleRate != c.rate {
		fmt.Fprintf(os.Stderr, "Warning: device runs at %d Hz, the file at %d Hz; playback speed is off\n", props.SampleRate, c.rate)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, append([]os.Signal{os.Interrupt, syscall.SIGTERM}, controlSignals...)...)
	defer signal.Stop(sig)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	d.Play()

	for {
		select {
		case s := <-sig:
			switch {
			case pauseSignal != nil && s == pauseSignal:
				if d.IsPlaying() {
					d.Pause()
				} else {
					d.Play()
				}
			case rewindSignal != nil && s == rewindSignal:
				d.Reset()
			default:
				fmt.Println("\nPlayback interrupted by user.")

				return nil
			}
		case <-d.Done():
			return fmt.Errorf("playback stopped: %w", d.Err())
		case <-ticker.C:
			fmt.Printf("\r%v / %v ", c.Position().Round(time.Second), c.Duration().Round(time.Second))

			if c.ended.Load() {
				fmt.Println("\nPlayback finished.")

				return nil
			}
		}
	}
}
