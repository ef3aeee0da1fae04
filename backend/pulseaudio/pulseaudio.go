// Package pulseaudio plays audio through a PulseAudio (or PipeWire-pulse)
// server, speaking the native protocol in pure Go.
//
// The client library owns the goroutine that asks for audio, so devices of
// this backend are filled from inside the client's read callback.
package pulseaudio

import (
	"sync"
	"time"
	"unsafe"

	"github.com/jfreymuth/pulse"

	"github.com/gen2brain/pcmout"
)

// Name is the backend name used in logs and for selection.
const Name = "pulseaudio"

// Config configures the PulseAudio backend.
type Config struct {
	// Server is a PulseAudio server string. Empty uses the default server.
	Server string

	// AppName is shown by the server for this client. Defaults to "pcmout".
	AppName string

	// Latency is the requested stream latency in seconds. Defaults to 0.05.
	Latency float64
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

// Backend holds one client connection shared by all devices.
type Backend struct {
	cfg    Config
	client *pulse.Client

	mu      sync.Mutex
	devices map[*pcmout.Device]*stream
}

type stream struct {
	playback *pulse.PlaybackStream
	producer *pcmout.Producer
}

// New connects to the server.
func New(cfg Config) (*Backend, error) {
	if cfg.AppName == "" {
		cfg.AppName = "pcmout"
	}

	if cfg.Latency <= 0 {
		cfg.Latency = 0.05
	}

	opts := []pulse.ClientOption{pulse.ClientApplicationName(cfg.AppName)}
	if cfg.Server != "" {
		opts = append(opts, pulse.ClientServerString(cfg.Server))
	}

	client, err := pulse.NewClient(opts...)
	if err != nil {
		return nil, pcmout.NewError(pcmout.KindInitialize, Name, "connect", err)
	}

	return &Backend{
		cfg:     cfg,
		client:  client,
		devices: make(map[*pcmout.Device]*stream),
	}, nil
}

func (b *Backend) Name() string {
	return Name
}

// drainSlack is added to the stream latency to bound the wait in CloseDevice.
const drainSlack = 2 * time.Second

// reader adapts the producer to the typed reader the client expects. Once
// close has been requested it reports the end of the stream, so the server
// can drain what it holds.
func reader(f pcmout.Format, d *pcmout.Device, prod *pcmout.Producer) pulse.Reader {
	switch f {
	case pcmout.FormatFloat32:
		return pulse.Float32Reader(func(buf []float32) (int, error) {
			if d.Closing() {
				return 0, pulse.EndOfData
			}

			prod.Fill(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(buf))), len(buf)*4))

			return len(buf), nil
		})
	case pcmout.FormatUint8:
		return pulse.Uint8Reader(func(buf []byte) (int, error) {
			if d.Closing() {
				return 0, pulse.EndOfData
			}

			prod.Fill(buf)

			return len(buf), nil
		})
	default:
		return pulse.Int16Reader(func(buf []int16) (int, error) {
			if d.Closing() {
				return 0, pulse.EndOfData
			}

			prod.Fill(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(buf))), len(buf)*2))

			return len(buf), nil
		})
	}
}

type drainer interface {
	Drain()
}

// drain waits for the server to play out its buffer. It reports false if
// that takes longer than timeout; the pending request is then abandoned.
func drain(s drainer, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.Drain()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// OpenDevice creates a corked playback stream, then starts it. Only mono and
// stereo streams are supported.
func (b *Backend) OpenDevice(props *pcmout.Properties, cb pcmout.Callback, userData any) (*pcmout.Device, error) {
	p, err := pcmout.PrepareProperties(props)
	if err != nil {
		return nil, err
	}

	var channels pulse.PlaybackOption
	switch p.Channels {
	case 1:
		channels = pulse.PlaybackMono
	case 2:
		channels = pulse.PlaybackStereo
	default:
		return nil, pcmout.Errorf(pcmout.KindUnsupported, Name, "open", "%d channels, only mono and stereo are supported", p.Channels)
	}

	d := pcmout.NewDevice(b, p, cb, userData)

	prod, err := pcmout.NewProducer(d, pcmout.DefaultPeriodFrames)
	if err != nil {
		return nil, err
	}

	playback, err := b.client.NewPlayback(reader(p.Format, d, prod),
		channels,
		pulse.PlaybackSampleRate(int(p.SampleRate)),
		pulse.PlaybackLatency(b.cfg.Latency),
	)
	if err != nil {
		return nil, pcmout.NewError(pcmout.KindAudio, Name, "new playback", err)
	}

	if rate := playback.SampleRate(); rate > 0 && uint32(rate) != p.SampleRate {
		playback.Close()

		return nil, pcmout.Errorf(pcmout.KindUnsupported, Name, "open", "server chose %d Hz instead of %d Hz", rate, p.SampleRate)
	}

	if props != nil {
		*props = p
	}

	s := &stream{playback: playback, producer: prod}
	d.SetDriver(s)

	b.mu.Lock()
	b.devices[d] = s
	b.mu.Unlock()

	log.Infof("device %s: %v, buffer %d frames", d.ID(), p, playback.BufferSize())

	playback.Start()

	return d, nil
}

// CloseDevice ends the stream, waits for the server to drain it unless the
// stream failed, then corks and closes it. Once it returns the reader is no
// longer called with the device callback.
func (b *Backend) CloseDevice(d *pcmout.Device) {
	if d == nil || !d.BeginClose() {
		return
	}

	s, ok := d.Driver().(*stream)
	if !ok {
		return
	}

	if err := s.playback.Error(); err != nil {
		d.SetFault(err)
		log.Warnf("device %s: stream error: %v", d.ID(), err)
	} else if !drain(s.playback, b.drainTimeout()) {
		log.Warnf("device %s: drain did not finish in %v", d.ID(), b.drainTimeout())
	}

	if s.playback.Underflow() {
		log.Warnf("device %s: server reported underflows", d.ID())
	}

	s.playback.Stop()
	s.producer.Quiesce()
	s.playback.Close()

	d.MarkDone()

	b.mu.Lock()
	delete(b.devices, d)
	b.mu.Unlock()

	log.Infof("device %s closed after %d periods", d.ID(), s.producer.Periods())
}

func (b *Backend) drainTimeout() time.Duration {
	return time.Duration(b.cfg.Latency*float64(time.Second)) + drainSlack
}

// End closes devices that are still open and disconnects from the server.
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

	if b.client != nil {
		b.client.Close()
		b.client = nil
	}

	return nil
}
