// Package null is a backend without audio output. Devices consume periods at
// the pace of a real device and discard them, which makes it the fallback
// for machines without sound hardware and for headless runs.
package null

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/pcmout"
	"github.com/gen2brain/pcmout/internal/clock"
)

// Name is the backend name used in logs and for selection.
const Name = "null"

// Config configures the null backend.
type Config struct {
	// PeriodFrames is the period size in frames. Defaults to 512.
	PeriodFrames int

	// Unpaced consumes periods as fast as they are produced.
	Unpaced bool
}

// Info returns the factory entry of the backend for pcmout.Begin.
func Info(cfg Config) pcmout.BackendInfo {
	return pcmout.BackendInfo{
		Name: Name,
		Create: func() (pcmout.Backend, error) {
			return New(cfg), nil
		},
	}
}

// Backend discards everything it is given.
type Backend struct {
	cfg Config

	mu      sync.Mutex
	devices map[*pcmout.Device]*sink
}

// New returns a null backend. It cannot fail.
func New(cfg Config) *Backend {
	if cfg.PeriodFrames <= 0 {
		cfg.PeriodFrames = pcmout.DefaultPeriodFrames
	}

	return &Backend{
		cfg:     cfg,
		devices: make(map[*pcmout.Device]*sink),
	}
}

func (b *Backend) Name() string {
	return Name
}

type sink struct {
	pacer    *clock.Pacer
	producer *pcmout.Producer
	frames   atomic.Uint64
}

// OpenDevice accepts any valid properties unchanged and starts the production goroutine.
func (b *Backend) OpenDevice(props *pcmout.Properties, cb pcmout.Callback, userData any) (*pcmout.Device, error) {
	p, err := pcmout.PrepareProperties(props)
	if err != nil {
		return nil, err
	}

	d := pcmout.NewDevice(b, p, cb, userData)

	prod, err := pcmout.NewProducer(d, b.cfg.PeriodFrames)
	if err != nil {
		return nil, err
	}

	s := &sink{producer: prod}
	if !b.cfg.Unpaced {
		s.pacer = clock.NewPacer(clock.PeriodDuration(b.cfg.PeriodFrames, p.SampleRate))
	}

	if props != nil {
		*props = p
	}

	d.SetDriver(s)

	b.mu.Lock()
	b.devices[d] = s
	b.mu.Unlock()

	log.Infof("device %s: %v, period %d frames", d.ID(), p, b.cfg.PeriodFrames)

	go func() {
		_ = prod.Run(s)
	}()

	return d, nil
}

func (s *sink) Wait(timeout time.Duration) (bool, error) {
	if s.pacer == nil {
		return true, nil
	}

	if s.pacer.Late() {
		return false, fmt.Errorf("fell behind real time: %w", pcmout.ErrUnderrun)
	}

	return s.pacer.Wait(timeout), nil
}

func (s *sink) Write(_ []byte, frames int) error {
	s.frames.Add(uint64(frames))

	if s.pacer != nil {
		s.pacer.Tick()
	}

	return nil
}

func (s *sink) Recover(error) error {
	if s.pacer != nil {
		s.pacer.Reset()
	}

	return nil
}

// Frames returns the number of frames d has consumed, or 0 if d was not
// opened by a null backend.
func Frames(d *pcmout.Device) uint64 {
	if d == nil {
		return 0
	}

	if s, ok := d.Driver().(*sink); ok {
		return s.frames.Load()
	}

	return 0
}

// CloseDevice joins the production goroutine.
func (b *Backend) CloseDevice(d *pcmout.Device) {
	if d == nil || !d.BeginClose() {
		return
	}

	s, ok := d.Driver().(*sink)
	if !ok {
		return
	}

	<-d.Done()

	b.mu.Lock()
	delete(b.devices, d)
	b.mu.Unlock()

	log.Infof("device %s closed after %d periods, %d underruns", d.ID(), s.producer.Periods(), s.producer.Underruns())
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
		b.CloseDevice(d)
	}

	return nil
}
