package asound

import "github.com/decred/slog"

var log = slog.Disabled

// UseLogger sets the logger of the libasound backend.
func UseLogger(logger slog.Logger) {
	log = logger
}
