package backends

import (
	"github.com/gen2brain/pcmout"
	"github.com/gen2brain/pcmout/backend/alsa"
	"github.com/gen2brain/pcmout/backend/asound"
	"github.com/gen2brain/pcmout/backend/pulseaudio"
)

func (c Config) native() []pcmout.BackendInfo {
	return []pcmout.BackendInfo{
		pulseaudio.Info(c.PulseAudio),
		asound.Info(c.ASound),
		alsa.Info(c.ALSA),
	}
}
