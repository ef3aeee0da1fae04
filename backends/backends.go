// Package backends lists the backends built into pcmout in the order they are
// tried on the current platform.
package backends

import (
	"strings"

	"github.com/gen2brain/pcmout"
	"github.com/gen2brain/pcmout/backend/alsa"
	"github.com/gen2brain/pcmout/backend/asound"
	"github.com/gen2brain/pcmout/backend/miniaudio"
	"github.com/gen2brain/pcmout/backend/null"
	"github.com/gen2brain/pcmout/backend/otoaudio"
	"github.com/gen2brain/pcmout/backend/pulseaudio"
	"github.com/gen2brain/pcmout/backend/sdlaudio"
)

// Config holds the configuration of every backend. The zero value uses the
// defaults of each backend.
type Config struct {
	ALSA       alsa.Config
	ASound     asound.Config
	PulseAudio pulseaudio.Config
	Oto        otoaudio.Config
	Miniaudio  miniaudio.Config
	SDL        sdlaudio.Config
	Null       null.Config
}

// List returns the backends of this platform configured by c, best first.
// The null backend is always last.
func (c Config) List() []pcmout.BackendInfo {
	return append(c.native(),
		otoaudio.Info(c.Oto),
		miniaudio.Info(c.Miniaudio),
		sdlaudio.Info(c.SDL),
		null.Info(c.Null),
	)
}

// Select returns the backends of List named in a comma-separated list, in
// list order. An empty list selects all of them.
func (c Config) Select(list string) []pcmout.BackendInfo {
	if strings.TrimSpace(list) == "" {
		return c.List()
	}

	return pcmout.Lookup(c.List(), strings.Split(list, ",")...)
}

// Default returns the backends of this platform with default configuration.
func Default() []pcmout.BackendInfo {
	return Config{}.List()
}

// Select is Config.Select with default configuration.
func Select(list string) []pcmout.BackendInfo {
	return Config{}.Select(list)
}
