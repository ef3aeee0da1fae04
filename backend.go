// Package pcmout is a callback-driven PCM playback engine with pluggable native backends.
//
// A Backend opens a Device for a stream shape described by Properties. The
// device runs a production loop that asks a Callback for one period of samples
// at a time while it is playing and writes silence while it is paused. The
// loop is driven either by a goroutine owned by the backend (see Producer.Run)
// or by the native audio thread (see Producer.Fill).
package pcmout

import (
	"errors"
	"strings"
)

// Backend is implemented by each native audio API.
type Backend interface {
	// Name returns the short name of the backend, e.g. "alsa".
	Name() string

	// OpenDevice opens a playback device.
	//
	// props may be nil, in which case DefaultProperties is used. When props is
	// not nil, the values accepted by the native API are written back into it.
	// The production loop is started only after every allocation succeeded; on
	// failure nothing is left open.
	OpenDevice(props *Properties, cb Callback, userData any) (*Device, error)

	// CloseDevice stops the production loop, waits for it to exit, drains the
	// native device and releases every resource held for d. A nil device and
	// repeated calls are no-ops.
	CloseDevice(d *Device)

	// End releases backend-wide resources. It must be called once, after
	// every device opened through the backend has been closed.
	End() error
}

// BackendInfo names a backend factory.
// A list of BackendInfo values is passed to Begin at startup.
type BackendInfo struct {
	Name   string
	Create func() (Backend, error)
}

// Begin creates the first backend in infos that initializes successfully.
// Failures of earlier entries are logged and skipped.
func Begin(infos []BackendInfo) (Backend, error) {
	var errs []error

	for _, info := range infos {
		if info.Create == nil {
			continue
		}

		b, err := info.Create()
		if err != nil {
			log.Errorf("while trying %s audio backend: %v", info.Name, err)
			errs = append(errs, err)

			continue
		}

		log.Infof("audio selected: %s", info.Name)

		return b, nil
	}

	return nil, NewError(KindInitialize, "", "begin", errors.Join(append([]error{errors.New("no suitable audio backend")}, errs...)...))
}

// Lookup returns the entries of infos whose name is in names, in the order of names.
// Names are matched case-insensitively. An empty names list returns infos unchanged.
func Lookup(infos []BackendInfo, names ...string) []BackendInfo {
	if len(names) == 0 {
		return infos
	}

	var out []BackendInfo
	for _, name := range names {
		name = strings.TrimSpace(name)
		for _, info := range infos {
			if strings.EqualFold(info.Name, name) {
				out = append(out, info)
			}
		}
	}

	return out
}

// Names returns the names of infos, for usage messages.
func Names(infos []BackendInfo) []string {
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}

	return names
}

// PrepareProperties resolves the properties passed to OpenDevice: nil means
// defaults, zero fields are defaulted, and the result is validated.
func PrepareProperties(props *Properties) (Properties, error) {
	var p Properties
	if props != nil {
		p = *props
	}

	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return p, err
	}

	return p, nil
}
