//go:build sdl

package sdlaudio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/pcmout"
)

func dummyBackend(t *testing.T, cfg Config) *Backend {
	t.Helper()
	t.Setenv("SDL_AUDIODRIVER", "dummy")

	b, err := New(cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, b.End())
	})

	return b
}

func TestDummyDriverPlayback(t *testing.T) {
	b := dummyBackend(t, Config{})

	var bases []uint64
	cb := func(buf []byte, frames int, props *pcmout.Properties, userData any, base uint64) {
		bases = append(bases, base)
		pcmout.PlayNote(buf, frames, props, userData, base)
	}

	props := &pcmout.Properties{Channels: 2}
	d, err := b.OpenDevice(props, cb, pcmout.NewNote(pcmout.Sine, 440))
	require.NoError(t, err)

	s := d.Driver().(*stream)

	d.Play()
	require.Eventually(t, func() bool { return s.producer.Periods() > 8 }, 5*time.Second, 10*time.Millisecond)

	d.Close()
	assert.False(t, d.Faulted(), "%v", d.Err())

	frames := uint64(s.producer.FramesPerPeriod())
	for i, base := range bases {
		assert.Equal(t, uint64(i)*frames, base)
	}
}

func TestTooManyChannels(t *testing.T) {
	b := dummyBackend(t, Config{})

	_, err := b.OpenDevice(&pcmout.Properties{Channels: 300}, nil, nil)
	assert.True(t, pcmout.IsKind(err, pcmout.KindUnsupported))
}
