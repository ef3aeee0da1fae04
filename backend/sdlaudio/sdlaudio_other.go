//go:build !sdl

package sdlaudio

import (
	"github.com/gen2brain/pcmout"
)

// Backend is not built without -tags sdl.
type Backend struct{}

// New always fails without -tags sdl.
func New(cfg Config) (*Backend, error) {
	return nil, pcmout.Errorf(pcmout.KindNotImplemented, Name, "new", "built without -tags sdl")
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
