//go:build linux

package asound

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/gen2brain/pcmout"
)

// Backend opens playback devices through libasound.
type Backend struct {
	cfg Config
	lib *lib

	mu      sync.Mutex
	devices map[*pcmout.Device]*stream
}

// New loads libasound. It fails with pcmout.KindInitialize when the library
// or one of its functions cannot be found.
func New(cfg Config) (*Backend, error) {
	cfg.applyDefaults()

	l, err := loadLib(libNames...)
	if err != nil {
		return nil, pcmout.NewError(pcmout.KindInitialize, Name, "load library", err)
	}

	log.Debugf("loaded %s", l.Name())

	return &Backend{
		cfg:     cfg,
		lib:     l,
		devices: make(map[*pcmout.Device]*stream),
	}, nil
}

func (b *Backend) Name() string {
	return Name
}

// stream is an open snd_pcm_t. It is the Sink of the production loop.
type stream struct {
	lib      *lib
	handle   uintptr
	frameLen int
	producer *pcmout.Producer
}

func sampleFormat(f pcmout.Format) (int32, error) {
	switch f {
	case pcmout.FormatInt16:
		return sndPcmFormatS16LE, nil
	case pcmout.FormatFloat32:
		return sndPcmFormatFloatLE, nil
	case pcmout.FormatUint8:
		return sndPcmFormatU8, nil
	default:
		return 0, fmt.Errorf("no libasound sample format for %v", f)
	}
}

// latency returns the requested buffer length in microseconds.
func (c Config) latency(rate uint32) uint32 {
	return uint32(uint64(c.PeriodFrames) * uint64(c.Periods) * 1_000_000 / uint64(rate))
}

// OpenDevice opens the configured device and starts the production goroutine.
func (b *Backend) OpenDevice(props *pcmout.Properties, cb pcmout.Callback, userData any) (*pcmout.Device, error) {
	if b.lib == nil {
		return nil, pcmout.Errorf(pcmout.KindInitialize, Name, "open", "backend has ended")
	}

	p, err := pcmout.PrepareProperties(props)
	if err != nil {
		return nil, err
	}

	format, err := sampleFormat(p.Format)
	if err != nil {
		return nil, pcmout.NewError(pcmout.KindUnsupported, Name, "open", err)
	}

	var handle uintptr
	if err := b.lib.check("snd_pcm_open", int(b.lib.open(&handle, b.cfg.Device, sndPcmStreamPlayback, 0))); err != nil {
		return nil, pcmout.NewError(pcmout.KindAudio, Name, "open "+b.cfg.Device, err)
	}

	s := &stream{lib: b.lib, handle: handle, frameLen: p.FrameSize()}

	resample := int32(1)
	if b.cfg.NoResample {
		resample = 0
	}

	ret := b.lib.setParams(handle, format, sndPcmAccessRWInterleaved, p.Channels, p.SampleRate, resample, b.cfg.latency(p.SampleRate))
	if err := b.lib.check("snd_pcm_set_params", int(ret)); err != nil {
		s.close()

		kind := pcmout.KindAudio
		if errors.Is(err, syscall.EINVAL) {
			kind = pcmout.KindUnsupported
		}

		return nil, pcmout.NewError(kind, Name, "set params", err)
	}

	var bufferSize, periodSize uint
	if err := b.lib.check("snd_pcm_get_params", int(b.lib.getParams(handle, &bufferSize, &periodSize))); err != nil {
		s.close()

		return nil, pcmout.NewError(pcmout.KindAudio, Name, "get params", err)
	}

	d := pcmout.NewDevice(b, p, cb, userData)

	prod, err := pcmout.NewProducer(d, int(periodSize))
	if err != nil {
		s.close()

		return nil, err
	}

	if props != nil {
		*props = p
	}

	s.producer = prod
	d.SetDriver(s)

	b.mu.Lock()
	b.devices[d] = s
	b.mu.Unlock()

	log.Infof("device %s: %s %v, period %d frames, buffer %d frames", d.ID(), b.cfg.Device, p, periodSize, bufferSize)

	go func() {
		_ = prod.Run(s)
	}()

	return d, nil
}

// Wait blocks in snd_pcm_wait until a period is writable or the timeout expires.
func (s *stream) Wait(timeout time.Duration) (bool, error) {
	ret := s.lib.wait(s.handle, int32(timeout/time.Millisecond))
	if ret < 0 {
		return false, s.classify("snd_pcm_wait", int(ret))
	}

	return ret > 0, nil
}

// Write submits frames frames, retrying short writes.
func (s *stream) Write(buf []byte, frames int) error {
	written := 0
	for written < frames {
		ret := s.lib.writei(s.handle, unsafe.Pointer(&buf[written*s.frameLen]), uint(frames-written))
		if ret < 0 {
			if syscall.Errno(-ret) == syscall.EAGAIN || syscall.Errno(-ret) == syscall.EINTR {
				continue
			}

			return s.classify("snd_pcm_writei", ret)
		}

		written += ret
	}

	return nil
}

// Recover lets snd_pcm_recover re-prepare or resume the stream.
func (s *stream) Recover(err error) error {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		errno = syscall.EPIPE
	}

	return s.lib.check("snd_pcm_recover", int(s.lib.recover(s.handle, -int32(errno), 1)))
}

// classify marks the errors snd_pcm_recover can handle as underruns.
func (s *stream) classify(op string, ret int) error {
	err := s.lib.check(op, ret)

	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ESTRPIPE) {
		return fmt.Errorf("%w: %w", pcmout.ErrUnderrun, err)
	}

	return err
}

func (s *stream) close() {
	if s.handle == 0 {
		return
	}

	_ = s.lib.close(s.handle)
	s.handle = 0
}

// CloseDevice stops the production goroutine, drains the stream and closes it.
func (b *Backend) CloseDevice(d *pcmout.Device) {
	if d == nil || !d.BeginClose() {
		return
	}

	s, ok := d.Driver().(*stream)
	if !ok {
		return
	}

	<-d.Done()

	if d.Faulted() {
		_ = s.lib.drop(s.handle)
	} else if err := s.lib.check("snd_pcm_drain", int(s.lib.drain(s.handle))); err != nil {
		log.Debugf("device %s: %v", d.ID(), err)
	}

	s.close()

	b.mu.Lock()
	delete(b.devices, d)
	b.mu.Unlock()

	log.Infof("device %s closed after %d periods, %d underruns", d.ID(), s.producer.Periods(), s.producer.Underruns())
}

// End closes devices that are still open and unloads libasound.
func (b *Backend) End() error {
	b.mu.Lock()
	open := make([]*pcmout.Device, 0, len(b.devices))
	for d := range b.devices {
		open = append(open, d)
	}
	b.mu.Unlock()

	for _, d := range open {
		log.Warnf("device %s still open at end, closing", d.ID())
		b.CloseDevice(d)
	}

	if b.lib == nil {
		return nil
	}

	err := b.lib.Close()
	b.lib = nil
	if err != nil {
		return pcmout.NewError(pcmout.KindAudio, Name, "end", err)
	}

	return nil
}
