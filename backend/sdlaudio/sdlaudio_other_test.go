//go:build !sdl

package sdlaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/pcmout"
)

func TestNewWithoutTag(t *testing.T) {
	_, err := pcmout.Begin([]pcmout.BackendInfo{Info(Config{})})
	require.Error(t, err)
	assert.True(t, pcmout.IsKind(err, pcmout.KindInitialize))

	_, err = New(Config{})
	assert.True(t, pcmout.IsKind(err, pcmout.KindNotImplemented))
}
