//go:build sdl

package sdlaudio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/gen2brain/pcmout"
	"github.com/gen2brain/pcmout/internal/clock"
)

// errDeviceStopped is the fault recorded when SDL stops a device, e.g. on unplug.
var errDeviceStopped = errors.New("SDL stopped the audio device")

// drainTimeout bounds how long CloseDevice waits for queued audio to play out.
const drainTimeout = 2 * time.Second

// Backend opens SDL audio devices.
type Backend struct {
	cfg Config

	mu      sync.Mutex
	devices map[*pcmout.Device]*stream
	ended   bool
}

// New initializes the SDL audio subsystem.
func New(cfg Config) (*Backend, error) {
	cfg.applyDefaults()

	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return nil, pcmout.NewError(pcmout.KindInitialize, Name, "init audio", err)
	}

	log.Debugf("audio driver %s", sdl.GetCurrentAudioDriver())

	return &Backend{
		cfg:     cfg,
		devices: make(map[*pcmout.Device]*stream),
	}, nil
}

func (b *Backend) Name() string {
	return Name
}

func sampleFormat(f pcmout.Format) (sdl.AudioFormat, error) {
	switch f {
	case pcmout.FormatInt16:
		return sdl.AUDIO_S16LSB, nil
	case pcmout.FormatFloat32:
		return sdl.AUDIO_F32LSB, nil
	case pcmout.FormatUint8:
		return sdl.AUDIO_U8, nil
	default:
		return 0, fmt.Errorf("no SDL sample format for %v", f)
	}
}

// stream is an open SDL queue device. It is the Sink of the production loop.
type stream struct {
	id         sdl.AudioDeviceID
	periodLen  int
	maxQueued  uint32
	pollPeriod time.Duration
	started    bool
	producer   *pcmout.Producer
}

// OpenDevice opens an SDL device without a callback and starts the production goroutine.
func (b *Backend) OpenDevice(props *pcmout.Properties, cb pcmout.Callback, userData any) (*pcmout.Device, error) {
	p, err := pcmout.PrepareProperties(props)
	if err != nil {
		return nil, err
	}

	format, err := sampleFormat(p.Format)
	if err != nil {
		return nil, pcmout.NewError(pcmout.KindUnsupported, Name, "open", err)
	}

	if p.Channels > 255 {
		return nil, pcmout.Errorf(pcmout.KindUnsupported, Name, "open", "%d channels", p.Channels)
	}

	desired := &sdl.AudioSpec{
		Freq:     int32(p.SampleRate),
		Format:   format,
		Channels: uint8(p.Channels),
		Samples:  b.cfg.PeriodFrames,
	}

	var obtained sdl.AudioSpec

	allowed := 0
	if b.cfg.AllowChanges {
		allowed = sdl.AUDIO_ALLOW_FREQUENCY_CHANGE | sdl.AUDIO_ALLOW_CHANNELS_CHANGE
	}

	id, err := sdl.OpenAudioDevice(b.cfg.Device, false, desired, &obtained, allowed)
	if err != nil {
		return nil, pcmout.NewError(pcmout.KindAudio, Name, "open", err)
	}

	p.SampleRate = uint32(obtained.Freq)
	p.Channels = uint32(obtained.Channels)

	d := pcmout.NewDevice(b, p, cb, userData)

	prod, err := pcmout.NewProducer(d, int(obtained.Samples))
	if err != nil {
		sdl.CloseAudioDevice(id)

		return nil, err
	}

	if props != nil {
		*props = p
	}

	period := clock.PeriodDuration(int(obtained.Samples), p.SampleRate)
	s := &stream{
		id:         id,
		periodLen:  p.PeriodBytes(int(obtained.Samples)),
		maxQueued:  uint32(p.PeriodBytes(int(obtained.Samples))) * b.cfg.Periods,
		pollPeriod: max(period/4, time.Millisecond),
		producer:   prod,
	}
	d.SetDriver(s)

	b.mu.Lock()
	b.devices[d] = s
	b.mu.Unlock()

	log.Infof("device %s: %q %v, period %d frames x %d", d.ID(), b.cfg.Device, p, obtained.Samples, b.cfg.Periods)

	sdl.PauseAudioDevice(id, false)

	go func() {
		_ = prod.Run(s)
	}()

	return d, nil
}

// Wait polls the queue until there is room for another period. An empty
// queue after the first write means the device ran dry.
func (s *stream) Wait(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)

	for {
		queued := sdl.GetQueuedAudioSize(s.id)
		if s.started && queued == 0 {
			s.started = false

			return false, fmt.Errorf("queue ran dry: %w", pcmout.ErrUnderrun)
		}

		if queued < s.maxQueued {
			return true, nil
		}

		if time.Now().After(deadline) {
			return false, nil
		}

		time.Sleep(s.pollPeriod)
	}
}

// Write queues one period.
func (s *stream) Write(buf []byte, frames int) error {
	if err := sdl.QueueAudio(s.id, buf[:s.periodLen]); err != nil {
		return fmt.Errorf("queue audio: %w", err)
	}

	s.started = true

	return nil
}

// Recover only checks that the device is still running. SDL plays silence
// on an empty queue and picks up the next queued period by itself.
func (s *stream) Recover(error) error {
	if sdl.GetAudioDeviceStatus(s.id) == sdl.AUDIO_STOPPED {
		return errDeviceStopped
	}

	return nil
}

// CloseDevice joins the production goroutine, lets the queue play out and closes the device.
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
		sdl.ClearQueuedAudio(s.id)
	} else {
		deadline := time.Now().Add(drainTimeout)
		for sdl.GetQueuedAudioSize(s.id) > 0 && time.Now().Before(deadline) {
			time.Sleep(s.pollPeriod)
		}
	}

	sdl.CloseAudioDevice(s.id)

	b.mu.Lock()
	delete(b.devices, d)
	b.mu.Unlock()

	log.Infof("device %s closed after %d periods, %d underruns", d.ID(), s.producer.Periods(), s.producer.Underruns())
}

// End closes devices that are still open and shuts the audio subsystem down.
func (b *Backend) End() error {
	b.mu.Lock()
	open := make([]*pcmout.Device, 0, len(b.devices))
	for d := range b.devices {
		open = append(open, d)
	}
	ended := b.ended
	b.ended = true
	b.mu.Unlock()

	for _, d := range open {
		b.CloseDevice(d)
	}

	if !ended {
		sdl.QuitSubSystem(sdl.INIT_AUDIO)
	}

	return nil
}
