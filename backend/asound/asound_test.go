//go:build linux

package asound

import (
	"errors"
	"syscall"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/pcmout"
)

// fakeLib returns a lib whose functions are Go closures.
func fakeLib() *lib {
	return &lib{
		strerror: func(errnum int32) string {
			return syscall.Errno(-errnum).Error()
		},
	}
}

func TestCheck(t *testing.T) {
	a := fakeLib()

	assert.NoError(t, a.check("snd_pcm_prepare", 0))
	assert.NoError(t, a.check("snd_pcm_writei", 512))

	err := a.check("snd_pcm_open", -int(syscall.ENOENT))
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.ENOENT)
	assert.Equal(t, "snd_pcm_open: "+syscall.ENOENT.Error(), err.Error())
}

func TestUnderrunClassification(t *testing.T) {
	a := fakeLib()

	var recovered int32
	a.recover = func(pcm uintptr, err int32, silent int32) int32 {
		recovered = err
		return 0
	}

	a.wait = func(pcm uintptr, timeout int32) int32 {
		return -int32(syscall.EPIPE)
	}

	s := &stream{lib: a, handle: 1, frameLen: 4}

	ready, err := s.Wait(10 * time.Millisecond)
	assert.False(t, ready)
	require.ErrorIs(t, err, pcmout.ErrUnderrun)
	assert.ErrorIs(t, err, syscall.EPIPE)

	require.NoError(t, s.Recover(err))
	assert.Equal(t, -int32(syscall.EPIPE), recovered)

	// Errors snd_pcm_recover cannot handle are fatal.
	a.wait = func(pcm uintptr, timeout int32) int32 {
		return -int32(syscall.ENODEV)
	}

	_, err = s.Wait(10 * time.Millisecond)
	require.Error(t, err)
	assert.False(t, errors.Is(err, pcmout.ErrUnderrun))
}

func TestWriteRetriesShortWrites(t *testing.T) {
	a := fakeLib()

	var calls []uint
	a.writei = func(pcm uintptr, buf unsafe.Pointer, size uint) int {
		calls = append(calls, size)
		if len(calls) == 2 {
			return -int(syscall.EINTR)
		}

		return int(min(size, 100))
	}

	s := &stream{lib: a, handle: 1, frameLen: 4}
	require.NoError(t, s.Write(make([]byte, 256*4), 256))
	assert.Equal(t, []uint{256, 156, 156, 56}, calls)
}

func TestLatency(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	assert.Equal(t, "default", cfg.Device)
	assert.Equal(t, uint32(46439), cfg.latency(44100))
	assert.Equal(t, uint32(42666), cfg.latency(48000))
}

func TestOpenDefault(t *testing.T) {
	b, err := New(Config{})
	if err != nil {
		t.Skipf("libasound not available: %v", err)
	}

	defer func() {
		assert.NoError(t, b.End())
	}()

	d, err := b.OpenDevice(nil, pcmout.PlayNote, pcmout.NewNote(pcmout.Sine, 440))
	if err != nil {
		t.Skipf("no default ALSA device: %v", err)
	}

	d.Play()
	time.Sleep(200 * time.Millisecond)
	d.Close()

	assert.False(t, d.Faulted(), "%v", d.Err())
}
