//go:build !darwin && !windows && !js && !oto

package otoaudio

import (
	"github.com/gen2brain/pcmout"
)

// Backend is not built on this platform without -tags oto.
type Backend struct{}

// New always fails without -tags oto.
func New(cfg Config) (*Backend, error) {
	return nil, pcmout.Errorf(pcmout.KindNotImplemented, Name, "new", "built without -tags oto")
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
