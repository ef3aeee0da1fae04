package wavfile

import "github.com/decred/slog"

var log = slog.Disabled

// UseLogger sets the logger of the WAV file backend.
func UseLogger(logger slog.Logger) {
	log = logger
}
