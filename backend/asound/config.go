// Package asound plays audio through libasound, the ALSA user-space library.
// The library is loaded at runtime, so the package builds without cgo and the
// backend fails at New on systems without ALSA.
//
// Unlike the alsa backend it can open plugin devices such as "default" or
// "dmix", and libasound converts the sample rate when the hardware needs it.
package asound

import (
	"github.com/gen2brain/pcmout"
)

// Name is the backend name used in logs and for selection.
const Name = "asound"

const (
	defaultDevice       = "default"
	defaultPeriodFrames = 512
	defaultPeriods      = 4
)

// libNames are tried in order when loading libasound.
var libNames = []string{"libasound.so.2", "libasound.so"}

// Config configures the libasound backend. The zero value opens the
// "default" device with a latency of 4 periods of 512 frames.
type Config struct {
	// Device is an ALSA device name, e.g. "default", "plughw:0,0" or "dmix".
	Device string

	// PeriodFrames is the requested period size in frames.
	PeriodFrames uint32

	// Periods is the number of periods of requested latency.
	Periods uint32

	// NoResample makes libasound fail instead of converting the sample rate.
	NoResample bool
}

func (c *Config) applyDefaults() {
	if c.Device == "" {
		c.Device = defaultDevice
	}

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
