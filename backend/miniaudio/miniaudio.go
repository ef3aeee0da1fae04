//go:build malgo

package miniaudio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/gen2brain/pcmout"
)

// errStopped is the fault recorded when miniaudio stops a device on its own,
// e.g. because it was unplugged.
var errStopped = errors.New("device stopped by miniaudio")

// Backend holds one miniaudio context shared by all devices.
type Backend struct {
	cfg Config
	ctx *malgo.AllocatedContext

	mu      sync.Mutex
	devices map[*pcmout.Device]*stream
}

type stream struct {
	device   *malgo.Device
	producer *pcmout.Producer
}

// New initializes a miniaudio context.
func New(cfg Config) (*Backend, error) {
	cfg.applyDefaults()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debugf("miniaudio: %s", message)
	})
	if err != nil {
		return nil, pcmout.NewError(pcmout.KindInitialize, Name, "init context", err)
	}

	return &Backend{
		cfg:     cfg,
		ctx:     ctx,
		devices: make(map[*pcmout.Device]*stream),
	}, nil
}

func (b *Backend) Name() string {
	return Name
}

func sampleFormat(f pcmout.Format) (malgo.FormatType, error) {
	switch f {
	case pcmout.FormatInt16:
		return malgo.FormatS16, nil
	case pcmout.FormatFloat32:
		return malgo.FormatF32, nil
	case pcmout.FormatUint8:
		return malgo.FormatU8, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("no miniaudio sample format for %v", f)
	}
}

// OpenDevice initializes a playback device on the default output and starts it.
func (b *Backend) OpenDevice(props *pcmout.Properties, cb pcmout.Callback, userData any) (*pcmout.Device, error) {
	if b.ctx == nil {
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

	d := pcmout.NewDevice(b, p, cb, userData)

	prod, err := pcmout.NewProducer(d, int(b.cfg.PeriodFrames))
	if err != nil {
		return nil, err
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = format
	config.Playback.Channels = p.Channels
	config.SampleRate = p.SampleRate
	config.PeriodSizeInFrames = b.cfg.PeriodFrames
	config.Periods = b.cfg.Periods
	config.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			prod.Fill(out)
		},
		Stop: func() {
			if !d.Closing() {
				d.SetFault(errStopped)
				log.Errorf("device %s: %v", d.ID(), errStopped)
			}
		},
	}

	device, err := malgo.InitDevice(b.ctx.Context, config, callbacks)
	if err != nil {
		return nil, pcmout.NewError(pcmout.KindAudio, Name, "init device", err)
	}

	if props != nil {
		*props = p
	}

	s := &stream{device: device, producer: prod}
	d.SetDriver(s)

	if err := device.Start(); err != nil {
		device.Uninit()

		return nil, pcmout.NewError(pcmout.KindAudio, Name, "start", err)
	}

	b.mu.Lock()
	b.devices[d] = s
	b.mu.Unlock()

	log.Infof("device %s: %v, period %d frames", d.ID(), p, b.cfg.PeriodFrames)

	return d, nil
}

// CloseDevice stops the device synchronously and releases it.
func (b *Backend) CloseDevice(d *pcmout.Device) {
	if d == nil || !d.BeginClose() {
		return
	}

	s, ok := d.Driver().(*stream)
	if !ok {
		return
	}

	if err := s.device.Stop(); err != nil {
		log.Debugf("device %s: stop: %v", d.ID(), err)
	}

	s.producer.Quiesce()
	s.device.Uninit()

	d.MarkDone()

	b.mu.Lock()
	delete(b.devices, d)
	b.mu.Unlock()

	log.Infof("device %s closed after %d periods", d.ID(), s.producer.Periods())
}

// End closes devices that are still open and releases the context.
func (b *Backend) End() error {
	b.mu.Lock()
	open := make([]*pcmout.Device, 0, len(b.devices))
	for d := range b.devices {
		open = append(open, d)
	}
	b.mu.Unlock()

	for _, d := range open {
		b.CloseDevice(d)
	}

	if b.ctx == nil {
		return nil
	}

	err := b.ctx.Uninit()
	b.ctx.Free()
	b.ctx = nil

	if err != nil {
		return pcmout.NewError(pcmout.KindAudio, Name, "end", err)
	}

	return nil
}
