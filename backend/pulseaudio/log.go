package pulseaudio

import "github.com/decred/slog"

var log = slog.Disabled

// UseLogger sets the logger of the PulseAudio backend.
func UseLogger(logger slog.Logger) {
	log = logger
}
