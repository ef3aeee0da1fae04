// Package wavfile is a backend that records the produced stream into a WAV
// file instead of playing it. By default periods are consumed at the pace of
// a real device, so pause, reset and stop behave as they do on hardware.
package wavfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/gen2brain/pcmout"
	"github.com/gen2brain/pcmout/internal/clock"
)

// Name is the backend name used in logs and for selection.
const Name = "wavfile"

// WAV audio format codes.
const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

// Config configures the WAV file backend.
type Config struct {
	// Path is the file written by the next device. Required.
	Path string

	// PeriodFrames is the period size in frames. Defaults to 512.
	PeriodFrames int

	// Unpaced writes periods as fast as they are produced instead of in real time.
	Unpaced bool
}

// Info returns the factory entry of the backend for pcmout.Begin.
func Info(cfg Config) pcmout.BackendInfo {
	return pcmout.BackendInfo{
		Name: Name,
		Create: func() (pcmout.Backend, error) {
			b, err := New(cfg)
			if err != nil {
				return nil, err
			}

			return b, nil
		},
	}
}

// errBusy is returned when the file is still held by another device.
var errBusy = errors.New("file is already recording")

// Backend writes every device to Config.Path. One device can be open at a time.
type Backend struct {
	cfg Config

	mu     sync.Mutex
	device *pcmout.Device
}

// New checks the configuration.
func New(cfg Config) (*Backend, error) {
	if cfg.Path == "" {
		return nil, pcmout.Errorf(pcmout.KindInitialize, Name, "new", "no output path")
	}

	if cfg.PeriodFrames <= 0 {
		cfg.PeriodFrames = pcmout.DefaultPeriodFrames
	}

	return &Backend{cfg: cfg}, nil
}

func (b *Backend) Name() string {
	return Name
}

// recorder is the Sink of a WAV device.
type recorder struct {
	file     *os.File
	encoder  *wav.Encoder
	props    pcmout.Properties
	pcm      *audio.IntBuffer
	pacer    *clock.Pacer
	producer *pcmout.Producer
	frames   uint64
}

func waveFormat(f pcmout.Format) (bitDepth, audioFormat int) {
	switch f {
	case pcmout.FormatFloat32:
		return 32, formatIEEEFloat
	case pcmout.FormatUint8:
		return 8, formatPCM
	default:
		return 16, formatPCM
	}
}

// OpenDevice creates the file and starts the production goroutine.
func (b *Backend) OpenDevice(props *pcmout.Properties, cb pcmout.Callback, userData any) (*pcmout.Device, error) {
	p, err := pcmout.PrepareProperties(props)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device != nil {
		return nil, pcmout.NewError(pcmout.KindAudio, Name, "open "+b.cfg.Path, errBusy)
	}

	d := pcmout.NewDevice(b, p, cb, userData)

	prod, err := pcmout.NewProducer(d, b.cfg.PeriodFrames)
	if err != nil {
		return nil, err
	}

	file, err := os.Create(b.cfg.Path)
	if err != nil {
		return nil, pcmout.NewError(pcmout.KindAudio, Name, "open", err)
	}

	bitDepth, audioFormat := waveFormat(p.Format)

	r := &recorder{
		file:    file,
		encoder: wav.NewEncoder(file, int(p.SampleRate), bitDepth, int(p.Channels), audioFormat),
		props:   p,
		pcm: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: int(p.Channels), SampleRate: int(p.SampleRate)},
			Data:           make([]int, b.cfg.PeriodFrames*int(p.Channels)),
			SourceBitDepth: bitDepth,
		},
		producer: prod,
	}

	if !b.cfg.Unpaced {
		r.pacer = clock.NewPacer(clock.PeriodDuration(b.cfg.PeriodFrames, p.SampleRate))
	}

	if props != nil {
		*props = p
	}

	d.SetDriver(r)
	b.device = d

	log.Infof("device %s: %s %v, period %d frames", d.ID(), b.cfg.Path, p, b.cfg.PeriodFrames)

	go func() {
		_ = prod.Run(r)
	}()

	return d, nil
}

// Wait hands out period slots in real time. A schedule that fell behind is
// reported as an underrun.
func (r *recorder) Wait(timeout time.Duration) (bool, error) {
	if r.pacer == nil {
		return true, nil
	}

	if r.pacer.Late() {
		return false, fmt.Errorf("fell behind real time: %w", pcmout.ErrUnderrun)
	}

	return r.pacer.Wait(timeout), nil
}

// Write appends frames frames of buf to the file.
func (r *recorder) Write(buf []byte, frames int) error {
	r.pcm.Data = r.pcm.Data[:frames*int(r.props.Channels)]
	decode(r.pcm.Data, buf, r.props.Format)

	if err := r.encoder.Write(r.pcm); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}

	r.frames += uint64(frames)

	if r.pacer != nil {
		r.pacer.Tick()
	}

	return nil
}

// Recover restarts the pacing schedule.
func (r *recorder) Recover(error) error {
	if r.pacer != nil {
		r.pacer.Reset()
	}

	return nil
}

// decode converts little-endian samples of format f into the integers the
// encoder writes. Float samples are passed as their IEEE bit patterns.
func decode(dst []int, src []byte, f pcmout.Format) {
	switch f {
	case pcmout.FormatFloat32:
		for i := range dst {
			dst[i] = int(int32(binary.LittleEndian.Uint32(src[i*4:])))
		}
	case pcmout.FormatUint8:
		for i := range dst {
			dst[i] = int(src[i])
		}
	default:
		for i := range dst {
			dst[i] = int(int16(binary.LittleEndian.Uint16(src[i*2:])))
		}
	}
}

// CloseDevice joins the production goroutine and finalizes the WAV header.
func (b *Backend) CloseDevice(d *pcmout.Device) {
	if d == nil || !d.BeginClose() {
		return
	}

	r, ok := d.Driver().(*recorder)
	if !ok {
		return
	}

	<-d.Done()

	if err := r.encoder.Close(); err != nil {
		log.Errorf("device %s: finalize %s: %v", d.ID(), b.cfg.Path, err)
	}

	if err := r.file.Close(); err != nil {
		log.Errorf("device %s: close %s: %v", d.ID(), b.cfg.Path, err)
	}

	b.mu.Lock()
	if b.device == d {
		b.device = nil
	}
	b.mu.Unlock()

	log.Infof("device %s closed: %d frames in %d periods, %d underruns", d.ID(), r.frames, r.producer.Periods(), r.producer.Underruns())
}

// End closes the device if it is still open.
func (b *Backend) End() error {
	b.mu.Lock()
	d := b.device
	b.mu.Unlock()

	b.CloseDevice(d)

	return nil
}
