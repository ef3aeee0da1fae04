//go:build !linux && !darwin && !freebsd

package dl

import (
	"errors"
	"runtime"
)

// ErrUnsupported is returned on platforms without dynamic loading support.
var ErrUnsupported = errors.New("dl: dynamic loading is not supported on " + runtime.GOOS)

// Library is a loaded shared library.
type Library struct{}

// Open always fails on this platform.
func Open(names ...string) (*Library, error) {
	return nil, ErrUnsupported
}

// Name returns an empty string.
func (l *Library) Name() string {
	return ""
}

// Bind always fails on this platform.
func (l *Library) Bind(fptr any, symbol string) error {
	return ErrUnsupported
}

// Symbols always fails on this platform.
func (l *Library) Symbols(fns map[string]any) error {
	return ErrUnsupported
}

// Close does nothing.
func (l *Library) Close() error {
	return nil
}
