// Package otoaudio plays audio through github.com/ebitengine/oto, which talks
// to CoreAudio on macOS, WASAPI on Windows and WebAudio in the browser.
//
// oto owns the audio thread and pulls samples from an io.Reader, so devices of
// this backend are filled from inside that reader. oto allows a single context
// per process: the first device opened fixes the stream shape, and later
// devices must use the same one.
//
// On Linux oto needs cgo and the ALSA headers, so it is only built with
// -tags oto there; the alsa, asound and pulseaudio backends cover Linux without it.
package otoaudio

import (
	"io"
	"time"

	"github.com/gen2brain/pcmout"
)

// Name is the backend name used in logs and for selection.
const Name = "oto"

const defaultPeriodFrames = 512

// drainTimeout bounds how long CloseDevice waits for buffered audio to play out.
const drainTimeout = 2 * time.Second

// Config configures the oto backend.
type Config struct {
	// BufferSize is the buffer length of the shared context. Zero lets oto choose.
	BufferSize time.Duration

	// PeriodFrames is the amount of audio a player reads ahead, in frames.
	// Defaults to 512.
	PeriodFrames int
}

func (c *Config) applyDefaults() {
	if c.PeriodFrames <= 0 {
		c.PeriodFrames = defaultPeriodFrames
	}
}

// Info returns the factory entry of the backend for pcmout.Begin.
func Info(cfg Config) pcmout.BackendInfo {
	return pcmout.BackendInfo{
		Name: Name,
		Create: func() (pcmout.Backend, error) {
			b, err := New(cfg)
			if err != nil {
				return nil, err
			}

			return b, nil
		},
	}
}

// shape is the stream layout of the process-wide context.
type shape struct {
	format   pcmout.Format
	channels uint32
	rate     uint32
}

func shapeOf(p pcmout.Properties) shape {
	return shape{format: p.Format, channels: p.Channels, rate: p.SampleRate}
}

// source is the io.Reader handed to an oto player.
type source struct {
	device    *pcmout.Device
	producer  *pcmout.Producer
	frameSize int
}

// Read fills p with whole frames from the producer. oto reads in multiples
// of the frame size; a shorter read gets silence so the player never stalls.
// Once close has been requested Read returns io.EOF, and the player plays
// out what it has buffered.
func (s *source) Read(p []byte) (int, error) {
	if s.device.Closing() {
		return 0, io.EOF
	}

	if n := s.producer.Fill(p) * s.frameSize; n > 0 {
		return n, nil
	}

	return len(p), nil
}

// waitDrained polls buffered until it reports no bytes or timeout elapses.
// It reports whether the buffer emptied.
func waitDrained(buffered func() int, timeout, poll time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for buffered() > 0 {
		if !time.Now().Before(deadline) {
			return false
		}

		time.Sleep(poll)
	}

	return true
}
