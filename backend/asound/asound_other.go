//go:build !linux

package asound

import (
	"runtime"

	"github.com/gen2brain/pcmout"
)

// Backend is not available on this platform.
type Backend struct{}

// New always fails on this platform.
func New(cfg Config) (*Backend, error) {
	return nil, pcmout.Errorf(pcmout.KindNotImplemented, Name, "new", "libasound is not available on %s", runtime.GOOS)
}

func (b *Backend) Name() string {
	return Name
}

func (b *Backend) OpenDevice(props *pcmout.Properties, cb pcmout.Callback, userData any) (*pcmout.Device, error) {
	return nil, pcmout.NewError(pcmout.KindNotImplemented, Name, "open", nil)
}

func (b *Backend) CloseDevice(d *pcmout.Device) {}

func (b *Backend) End() error {
	return nil
}
