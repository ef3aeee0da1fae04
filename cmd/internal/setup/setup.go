// Package setup holds the flags, logging and backend selection shared by the tools.
package setup

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/decred/slog"

	"github.com/gen2brain/pcmout"
	"github.com/gen2brain/pcmout/backend/alsa"
	"github.com/gen2brain/pcmout/backend/asound"
	"github.com/gen2brain/pcmout/backend/miniaudio"
	"github.com/gen2brain/pcmout/backend/null"
	"github.com/gen2brain/pcmout/backend/otoaudio"
	"github.com/gen2brain/pcmout/backend/pulseaudio"
	"github.com/gen2brain/pcmout/backend/sdlaudio"
	"github.com/gen2brain/pcmout/backend/wavfile"
	"github.com/gen2brain/pcmout/backends"
)

// Options are the command-line options common to all tools.
type Options struct {
	Backends     string
	Card         int
	Device       int
	PeriodFrames uint
	LogLevel     string
	Record       string
}

// Register adds the common flags to fs. PCMOUT_BACKEND and PCMOUT_LOG
// provide the defaults of -backend and -log.
func Register(fs *flag.FlagSet) *Options {
	o := &Options{}

	fs.StringVar(&o.Backends, "backend", os.Getenv("PCMOUT_BACKEND"), "Comma-separated backends to try (empty = all)")
	fs.IntVar(&o.Card, "card", -1, "The card to receive the audio (alsa, asound; -1 = default)")
	fs.IntVar(&o.Device, "device", 0, "The device to receive the audio (alsa, asound)")
	fs.UintVar(&o.PeriodFrames, "period", 512, "The size of a period in frames")
	fs.StringVar(&o.LogLevel, "log", envOr("PCMOUT_LOG", "warn"), "Log level (trace, debug, info, warn, error, off)")
	fs.StringVar(&o.Record, "record", "", "Record into this WAV file instead of playing")

	return o
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

// Logging sends the log output of pcmout and every backend to stderr at the given level.
func Logging(level string) error {
	lvl, ok := slog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	backend := slog.NewBackend(os.Stderr)

	logger := func(tag string) slog.Logger {
		l := backend.Logger(tag)
		l.SetLevel(lvl)

		return l
	}

	pcmout.UseLogger(logger("PCMO"))
	alsa.UseLogger(logger("ALSA"))
	asound.UseLogger(logger("ASND"))
	pulseaudio.UseLogger(logger("PULS"))
	otoaudio.UseLogger(logger("OTO "))
	miniaudio.UseLogger(logger("MINI"))
	sdlaudio.UseLogger(logger("SDL "))
	wavfile.UseLogger(logger("WAVF"))
	null.UseLogger(logger("NULL"))

	return nil
}

// BackendList returns the backends to try for o, in order.
func (o *Options) BackendList() []pcmout.BackendInfo {
	if o.Record != "" {
		return []pcmout.BackendInfo{wavfile.Info(wavfile.Config{Path: o.Record, PeriodFrames: int(o.PeriodFrames)})}
	}

	period := uint32(o.PeriodFrames)

	c := backends.Config{
		ALSA:      alsa.Config{PeriodFrames: period},
		ASound:    asound.Config{PeriodFrames: period},
		Oto:       otoaudio.Config{PeriodFrames: int(period)},
		Miniaudio: miniaudio.Config{PeriodFrames: period},
		SDL:       sdlaudio.Config{PeriodFrames: uint16(min(period, 1<<15))},
		Null:      null.Config{PeriodFrames: int(period)},
	}

	if o.Card >= 0 {
		card, device := strconv.Itoa(o.Card), strconv.Itoa(o.Device)
		c.ALSA.Device = "hw:" + card + "," + device
		c.ASound.Device = "plughw:" + card + "," + device
	}

	return c.Select(o.Backends)
}
