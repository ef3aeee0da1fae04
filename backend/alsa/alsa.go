//go:build linux && (amd64 || arm64 || 386 || arm)

package alsa

import (
	"errors"
	"os"
	"sync"

	"github.com/gen2brain/pcmout"
)

// Backend opens playback devices through the ALSA kernel interface.
type Backend struct {
	cfg Config

	mu      sync.Mutex
	devices map[*pcmout.Device]struct{}
}

// device is the backend state attached to a pcmout.Device.
type device struct {
	pcm      *pcm
	producer *pcmout.Producer
}

// New checks that the ALSA kernel interface is present and returns a backend.
func New(cfg Config) (*Backend, error) {
	cfg.applyDefaults()

	if _, err := os.Stat("/dev/snd"); err != nil {
		return nil, pcmout.NewError(pcmout.KindInitialize, Name, "new", err)
	}

	return &Backend{
		cfg:     cfg,
		devices: make(map[*pcmout.Device]struct{}),
	}, nil
}

func (b *Backend) Name() string {
	return Name
}

// OpenDevice opens the configured device and starts the production goroutine.
// Channels and rate the hardware cannot do are replaced by the nearest
// supported values and written back into props.
func (b *Backend) OpenDevice(props *pcmout.Properties, cb pcmout.Callback, userData any) (*pcmout.Device, error) {
	p, err := pcmout.PrepareProperties(props)
	if err != nil {
		return nil, err
	}

	format, err := hwFormat(p.Format)
	if err != nil {
		return nil, pcmout.NewError(pcmout.KindUnsupported, Name, "open", err)
	}

	card, dev, err := resolveName(b.cfg.Device)
	if err != nil {
		return nil, pcmout.NewError(pcmout.KindAudio, Name, "open", err)
	}

	stream, err := openPCM(card, dev, hwConfig{
		Format:       format,
		Channels:     p.Channels,
		Rate:         p.SampleRate,
		PeriodFrames: b.cfg.PeriodFrames,
		Periods:      b.cfg.Periods,
	})
	if err != nil {
		kind := pcmout.KindAudio
		if errors.Is(err, errUnsupportedFormat) {
			kind = pcmout.KindUnsupported
		}

		return nil, pcmout.NewError(kind, Name, "open", err)
	}

	p.Channels = stream.config.Channels
	p.SampleRate = stream.config.Rate

	d := pcmout.NewDevice(b, p, cb, userData)

	prod, err := pcmout.NewProducer(d, int(stream.config.PeriodFrames))
	if err != nil {
		_ = stream.close()

		return nil, err
	}

	if props != nil {
		*props = p
	}

	d.SetDriver(&device{pcm: stream, producer: prod})

	b.mu.Lock()
	b.devices[d] = struct{}{}
	b.mu.Unlock()

	log.Infof("device %s: %s (%s) %v, period %d frames x %d", d.ID(), pcmPath(card, dev), stream.name, p,
		stream.config.PeriodFrames, stream.config.Periods)

	go func() {
		_ = prod.Run(stream)
	}()

	return d, nil
}

// CloseDevice stops the production goroutine, drains what is left in the
// hardware buffer and closes the PCM.
func (b *Backend) CloseDevice(d *pcmout.Device) {
	if d == nil || !d.BeginClose() {
		return
	}

	dev, ok := d.Driver().(*device)
	if !ok {
		return
	}

	<-d.Done()

	if d.Faulted() {
		_ = dev.pcm.drop()
	} else if err := dev.pcm.drain(); err != nil {
		log.Debugf("device %s: %v", d.ID(), err)
	}

	if err := dev.pcm.close(); err != nil {
		log.Warnf("device %s: close: %v", d.ID(), err)
	}

	b.mu.Lock()
	delete(b.devices, d)
	b.mu.Unlock()

	log.Infof("device %s closed after %d periods, %d underruns", d.ID(), dev.producer.Periods(), dev.producer.Underruns())
}

// End closes devices that are still open.
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

	return nil
}
