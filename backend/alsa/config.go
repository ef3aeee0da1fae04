// Package alsa plays audio through the Linux ALSA kernel interface, using
// ioctl calls on /dev/snd/pcmC*D*p directly instead of libasound.
//
// Only direct hardware devices can be opened; the ALSA plugin layer (dmix,
// "default" and friends) is not available. Use the asound backend for those.
package alsa

import (
	"github.com/gen2brain/pcmout"
)

// Name is the backend name used in logs and for selection.
const Name = "alsa"

const (
	defaultPeriodFrames = 512
	defaultPeriods      = 4
)

// Config configures the ALSA backend. The zero value opens the first playback
// device with 512-frame periods and a 4-period buffer.
type Config struct {
	// Device is a "hw:C,D" name. Empty selects the first playback device.
	Device string

	// PeriodFrames is the minimum period size in frames.
	PeriodFrames uint32

	// Periods is the number of periods in the hardware buffer.
	Periods uint32
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
