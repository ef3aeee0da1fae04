package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gen2brain/pcmout"
)

// tone is one note of a melody.
type tone struct {
	frequency float64
	duration  time.Duration
}

// melody is C D E F G F E D C.
var melody = []tone{
	{261.63, 300 * time.Millisecond}, {293.66, 300 * time.Millisecond}, {329.63, 300 * time.Millisecond},
	{349.23, 300 * time.Millisecond}, {392.00, 300 * time.Millisecond}, {349.23, 300 * time.Millisecond},
	{329.63, 300 * time.Millisecond}, {293.66, 300 * time.Millisecond}, {261.63, 600 * time.Millisecond},
}

// noteGap is the silence between two notes.
const noteGap = 50 * time.Millisecond

var errInterrupted = errors.New("interrupted")

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// sequence plays tones on d, stopping the device between notes so every
// note starts at phase zero.
func sequence(ctx context.Context, d *pcmout.Device, note *pcmout.Note, tones []tone) error {
	defer d.Stop()

	for _, t := range tones {
		note.SetFrequency(t.frequency)
		d.Play()

		if err := sleep(ctx, t.duration); err != nil {
			return err
		}

		d.Stop()

		if err := sleep(ctx, noteGap); err != nil {
			return err
		}

		if d.Faulted() {
			return fmt.Errorf("device failed: %w", d.Err())
		}
	}

	return nil
}

// playMelody plays the melody once. An interrupt signal ends it early.
func playMelody(d *pcmout.Device, note *pcmout.Note) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()

		return sequence(ctx, d, note, melody)
	})

	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case <-ctx.Done():
			return nil
		case s := <-sig:
			return fmt.Errorf("%w by %v", errInterrupted, s)
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
