//go:build darwin || windows || js || oto

package otoaudio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/gen2brain/pcmout"
	"github.com/gen2brain/pcmout/internal/clock"
)

// shared is the process-wide oto context.
var shared struct {
	mu    sync.Mutex
	ctx   *oto.Context
	shape shape
}

// Backend opens players on the shared oto context.
type Backend struct {
	cfg Config

	mu      sync.Mutex
	devices map[*pcmout.Device]*stream
}

type stream struct {
	player   *oto.Player
	producer *pcmout.Producer
	poll     time.Duration
}

// New returns an oto backend. The context itself is created by the first
// OpenDevice, when the stream shape is known.
func New(cfg Config) (*Backend, error) {
	cfg.applyDefaults()

	return &Backend{
		cfg:     cfg,
		devices: make(map[*pcmout.Device]*stream),
	}, nil
}

func (b *Backend) Name() string {
	return Name
}

func sampleFormat(f pcmout.Format) (oto.Format, error) {
	switch f {
	case pcmout.FormatInt16:
		return oto.FormatSignedInt16LE, nil
	case pcmout.FormatFloat32:
		return oto.FormatFloat32LE, nil
	case pcmout.FormatUint8:
		return oto.FormatUnsignedInt8, nil
	default:
		return 0, fmt.Errorf("no oto sample format for %v", f)
	}
}

// context returns the shared context, creating it for p on first use.
func (b *Backend) context(p pcmout.Properties) (*oto.Context, error) {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.ctx != nil {
		if shared.shape != shapeOf(p) {
			return nil, pcmout.Errorf(pcmout.KindUnsupported, Name, "open",
				"context is fixed to %v %d ch %d Hz", shared.shape.format, shared.shape.channels, shared.shape.rate)
		}

		if err := shared.ctx.Resume(); err != nil {
			return nil, pcmout.NewError(pcmout.KindAudio, Name, "resume", err)
		}

		return shared.ctx, nil
	}

	format, err := sampleFormat(p.Format)
	if err != nil {
		return nil, pcmout.NewError(pcmout.KindUnsupported, Name, "open", err)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(p.SampleRate),
		ChannelCount: int(p.Channels),
		Format:       format,
		BufferSize:   b.cfg.BufferSize,
	})
	if err != nil {
		return nil, pcmout.NewError(pcmout.KindInitialize, Name, "new context", err)
	}

	<-ready

	shared.ctx = ctx
	shared.shape = shapeOf(p)

	log.Debugf("context created: %v", p)

	return ctx, nil
}

// OpenDevice creates a player reading from the device producer and starts it.
func (b *Backend) OpenDevice(props *pcmout.Properties, cb pcmout.Callback, userData any) (*pcmout.Device, error) {
	p, err := pcmout.PrepareProperties(props)
	if err != nil {
		return nil, err
	}

	ctx, err := b.context(p)
	if err != nil {
		return nil, err
	}

	d := pcmout.NewDevice(b, p, cb, userData)

	prod, err := pcmout.NewProducer(d, b.cfg.PeriodFrames)
	if err != nil {
		return nil, err
	}

	player := ctx.NewPlayer(&source{device: d, producer: prod, frameSize: p.FrameSize()})
	player.SetBufferSize(p.PeriodBytes(b.cfg.PeriodFrames))

	if props != nil {
		*props = p
	}

	s := &stream{
		player:   player,
		producer: prod,
		poll:     max(clock.PeriodDuration(b.cfg.PeriodFrames, p.SampleRate)/4, time.Millisecond),
	}
	d.SetDriver(s)

	b.mu.Lock()
	b.devices[d] = s
	b.mu.Unlock()

	log.Infof("device %s: %v, period %d frames", d.ID(), p, b.cfg.PeriodFrames)

	player.Play()

	return d, nil
}

// CloseDevice ends the player's input, waits for its buffer to play out
// unless the player failed, then pauses and closes it. Once it returns the
// device callback is no longer called.
func (b *Backend) CloseDevice(d *pcmout.Device) {
	if d == nil || !d.BeginClose() {
		return
	}

	s, ok := d.Driver().(*stream)
	if !ok {
		return
	}

	if err := s.player.Err(); err != nil {
		d.SetFault(err)
		log.Warnf("device %s: player error: %v", d.ID(), err)
	} else if !waitDrained(s.player.BufferedSize, drainTimeout, s.poll) {
		log.Warnf("device %s: %d bytes still buffered after %v", d.ID(), s.player.BufferedSize(), drainTimeout)
	}

	s.player.Pause()
	s.producer.Quiesce()

	if err := s.player.Close(); err != nil {
		log.Debugf("device %s: close: %v", d.ID(), err)
	}

	d.MarkDone()

	b.mu.Lock()
	delete(b.devices, d)
	b.mu.Unlock()

	log.Infof("device %s closed after %d periods", d.ID(), s.producer.Periods())
}

// End closes devices that are still open and suspends the shared context.
// oto cannot destroy its context; a later OpenDevice resumes it.
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

	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.ctx == nil {
		return nil
	}

	if err := shared.ctx.Suspend(); err != nil {
		return pcmout.NewError(pcmout.KindAudio, Name, "suspend", err)
	}

	return nil
}
