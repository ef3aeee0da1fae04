//go:build !linux

package backends

import (
	"github.com/gen2brain/pcmout"
)

func (c Config) native() []pcmout.BackendInfo {
	return nil
}
