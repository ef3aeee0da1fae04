//go:build linux

package asound

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/gen2brain/pcmout/internal/dl"
)

// Values from alsa/pcm.h.
const (
	sndPcmStreamPlayback = 0

	sndPcmFormatU8      = 1
	sndPcmFormatS16LE   = 2
	sndPcmFormatFloatLE = 14

	sndPcmAccessRWInterleaved = 3
)

// lib holds the libasound functions used by the backend.
type lib struct {
	*dl.Library

	open      func(pcm *uintptr, name string, stream int32, mode int32) int32
	setParams func(pcm uintptr, format int32, access int32, channels uint32, rate uint32, softResample int32, latency uint32) int32
	getParams func(pcm uintptr, bufferSize *uint, periodSize *uint) int32
	wait      func(pcm uintptr, timeout int32) int32
	writei    func(pcm uintptr, buf unsafe.Pointer, size uint) int
	recover   func(pcm uintptr, err int32, silent int32) int32
	prepare   func(pcm uintptr) int32
	drain     func(pcm uintptr) int32
	drop      func(pcm uintptr) int32
	close     func(pcm uintptr) int32
	strerror  func(errnum int32) string
}

// loadLib loads libasound and resolves every function the backend calls.
func loadLib(names ...string) (*lib, error) {
	l, err := dl.Open(names...)
	if err != nil {
		return nil, err
	}

	a := &lib{Library: l}

	err = l.Symbols(map[string]any{
		"snd_pcm_open":       &a.open,
		"snd_pcm_set_params": &a.setParams,
		"snd_pcm_get_params": &a.getParams,
		"snd_pcm_wait":       &a.wait,
		"snd_pcm_writei":     &a.writei,
		"snd_pcm_recover":    &a.recover,
		"snd_pcm_prepare":    &a.prepare,
		"snd_pcm_drain":      &a.drain,
		"snd_pcm_drop":       &a.drop,
		"snd_pcm_close":      &a.close,
		"snd_strerror":       &a.strerror,
	})
	if err != nil {
		_ = l.Close()

		return nil, err
	}

	return a, nil
}

// alsaError is a negative errno returned by a libasound call.
type alsaError struct {
	op    string
	errno syscall.Errno
	msg   string
}

func (e *alsaError) Error() string {
	return fmt.Sprintf("%s: %s", e.op, e.msg)
}

func (e *alsaError) Unwrap() error {
	return e.errno
}

// check converts a negative libasound return value to an error.
func (a *lib) check(op string, ret int) error {
	if ret >= 0 {
		return nil
	}

	return &alsaError{op: op, errno: syscall.Errno(-ret), msg: a.strerror(int32(ret))}
}
