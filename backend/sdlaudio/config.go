// Package sdlaudio plays audio through SDL2 audio queues, using
// github.com/veandco/go-sdl2.
//
// The backend owns the production goroutine and pushes periods with
// SDL_QueueAudio, waiting while more than Periods periods are queued.
// It needs cgo and is only built with -tags sdl.
package sdlaudio

import (
	"github.com/gen2brain/pcmout"
)

// Name is the backend name used in logs and for selection.
const Name = "sdl"

const (
	defaultPeriodFrames = 512
	defaultPeriods      = 3
)

// Config configures the SDL backend.
type Config struct {
	// Device is an SDL output device name. Empty opens the default device.
	Device string

	// PeriodFrames is the requested period size in frames. SDL may pick another one.
	PeriodFrames uint16

	// Periods is the number of periods kept queued.
	Periods uint32

	// AllowChanges lets SDL open the device with another sample rate or
	// channel count; the values used are written back into the properties.
	AllowChanges bool
}

func (c *Config) applyDefaults() {
	if c.PeriodFrames == 0 {
		c.PeriodFrames = defaultPeriodFrames
	}

	if c.Periods == 0 {
		c.Periods = defaultPeriods
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
