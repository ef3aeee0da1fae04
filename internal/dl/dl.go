//go:build linux || darwin || freebsd

// Package dl loads shared libraries at runtime and binds their functions to Go
// function variables, without cgo.
package dl

import (
	"errors"
	"fmt"

	"github.com/ebitengine/purego"
)

// Library is a loaded shared library.
type Library struct {
	name   string
	handle uintptr
}

// Open loads the first library in names that can be found.
func Open(names ...string) (*Library, error) {
	if len(names) == 0 {
		return nil, errors.New("dl: no library name")
	}

	var errs []error
	for _, name := range names {
		h, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))

			continue
		}

		return &Library{name: name, handle: h}, nil
	}

	return nil, fmt.Errorf("dl: cannot load library: %w", errors.Join(errs...))
}

// Name returns the name the library was loaded with.
func (l *Library) Name() string {
	return l.name
}

// Bind resolves symbol and makes fptr, a pointer to a func variable, call it.
func (l *Library) Bind(fptr any, symbol string) error {
	if l.handle == 0 {
		return fmt.Errorf("dl: %s: library is closed", symbol)
	}

	sym, err := purego.Dlsym(l.handle, symbol)
	if err != nil {
		return fmt.Errorf("dl: %s: cannot resolve %s: %w", l.name, symbol, err)
	}

	purego.RegisterFunc(fptr, sym)

	return nil
}

// Symbols binds several functions at once, keyed by symbol name.
// It stops at the first symbol that cannot be resolved.
func (l *Library) Symbols(fns map[string]any) error {
	for symbol, fptr := range fns {
		if err := l.Bind(fptr, symbol); err != nil {
			return err
		}
	}

	return nil
}

// Close unloads the library. Functions bound from it must not be called afterwards.
func (l *Library) Close() error {
	if l.handle == 0 {
		return nil
	}

	err := purego.Dlclose(l.handle)
	l.handle = 0
	if err != nil {
		return fmt.Errorf("dl: cannot unload %s: %w", l.name, err)
	}

	return nil
}
