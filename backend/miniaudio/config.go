// Package miniaudio plays audio through miniaudio, using the cgo bindings in
// github.com/gen2brain/malgo. miniaudio picks the best native API of the
// platform (WASAPI, CoreAudio, ALSA, PulseAudio, OSS, ...).
//
// The package needs cgo and is only built with -tags malgo; without it New
// fails with pcmout.KindNotImplemented.
package miniaudio

import (
	"github.com/gen2brain/pcmout"
)

// Name is the backend name used in logs and for selection.
const Name = "miniaudio"

const defaultPeriodFrames = 512

// Config configures the miniaudio backend.
type Config struct {
	// PeriodFrames is the requested period size in frames. Defaults to 512.
	PeriodFrames uint32

	// Periods is the requested number of periods. Zero lets miniaudio choose.
	Periods uint32
}

func (c *Config) applyDefaults() {
	if c.PeriodFrames == 0 {
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
