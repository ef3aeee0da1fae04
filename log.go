package pcmout

import "github.com/decred/slog"

// log is the package logger. It is disabled until UseLogger is called.
var log = slog.Disabled

// UseLogger sets the logger used by the engine and the production loop.
// Backends have their own UseLogger functions.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Logger returns the package logger, so backends can share it when the
// caller only configured the engine.
func Logger() slog.Logger {
	return log
}
