package pcmout

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrUnderrun is returned by a Sink when the device ran out of data.
// The production loop recovers from it and keeps running.
var ErrUnderrun = errors.New("pcmout: underrun")

// DefaultWaitTimeout bounds a single wait for a writable period.
const DefaultWaitTimeout = 100 * time.Millisecond

// DefaultPeriodFrames is the period length used by backends that let the engine choose.
const DefaultPeriodFrames = 512

// Sink is the native side of a production loop that owns its goroutine.
type Sink interface {
	// Wait blocks until a period can be written or timeout elapses.
	// It returns false on timeout.
	Wait(timeout time.Duration) (bool, error)

	// Write submits one period of frames frames to the device.
	Write(buf []byte, frames int) error

	// Recover re-prepares the stream after an error wrapping ErrUnderrun.
	Recover(err error) error
}

// Producer runs the production loop of one device.
//
// Backends that own the playback goroutine call Run with a Sink. Backends whose
// native API owns the real-time thread call Fill from inside the native
// callback instead.
type Producer struct {
	dev      *Device
	props    Properties
	frames   int
	buf      []byte
	index    uint64 // Only touched under mu.
	mu       sync.Mutex
	periods  atomic.Uint64
	xruns    atomic.Uint64
	waitTime time.Duration
}

// NewProducer allocates a silent period buffer of framesPerPeriod frames for d.
func NewProducer(d *Device, framesPerPeriod int) (*Producer, error) {
	props := d.Properties()

	size := props.PeriodBytes(framesPerPeriod)
	if framesPerPeriod <= 0 || size <= 0 {
		return nil, Errorf(KindCannotAllocate, d.Backend(), "period buffer", "cannot allocate %d frames of %v", framesPerPeriod, props)
	}

	p := &Producer{
		dev:      d,
		props:    props,
		frames:   framesPerPeriod,
		buf:      make([]byte, size),
		waitTime: DefaultWaitTimeout,
	}

	FillSilence(p.buf, props.Format)

	return p, nil
}

// SetWaitTimeout changes the bound of a single Sink.Wait call.
func (p *Producer) SetWaitTimeout(d time.Duration) {
	if d > 0 {
		p.waitTime = d
	}
}

// FramesPerPeriod returns the period length in frames.
func (p *Producer) FramesPerPeriod() int {
	return p.frames
}

// Buffer returns the period buffer used by Run.
func (p *Producer) Buffer() []byte {
	return p.buf
}

// Periods returns the number of periods filled so far.
func (p *Producer) Periods() uint64 {
	return p.periods.Load()
}

// Underruns returns the number of underruns recovered so far.
func (p *Producer) Underruns() uint64 {
	return p.xruns.Load()
}

// Fill produces one period into buf and returns the number of whole frames written.
//
// A pending reset zeroes the sample index first. When the device is playing the
// callback fills buf and the index advances by the frame count; otherwise buf
// is filled with silence and the index is left untouched. After close has been
// requested Fill only writes silence. Bytes after the last whole frame are
// silenced.
func (p *Producer) Fill(buf []byte) int {
	frames := p.props.BytesToFrames(len(buf))
	n := frames * p.props.FrameSize()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dev.shouldClose.Load() {
		FillSilence(buf, p.props.Format)

		return frames
	}

	if p.dev.shouldReset.CompareAndSwap(true, false) {
		p.index = 0
	}

	playing := p.dev.playing.Load()
	if playing && p.dev.callback != nil && frames > 0 {
		p.dev.callback(buf[:n], frames, &p.props, p.dev.userData, p.index)
		p.index += uint64(frames)
	} else {
		FillSilence(buf[:n], p.props.Format)
	}

	FillSilence(buf[n:], p.props.Format)
	p.periods.Add(1)

	return frames
}

// Quiesce waits for an in-flight Fill to return. Call it after close has been
// requested and the native callback has been stopped; Fill never invokes the
// callback afterwards.
func (p *Producer) Quiesce() {
	p.mu.Lock()
	defer p.mu.Unlock()
}

// Run is the production loop for backends that own the playback goroutine.
//
// It returns nil once close has been requested, or the fatal error that ended
// it. A fatal error is also recorded on the device. Done is closed on return.
func (p *Producer) Run(sink Sink) error {
	defer p.dev.MarkDone()

	for {
		if p.dev.shouldClose.Load() {
			return nil
		}

		ready, err := sink.Wait(p.waitTime)
		if err != nil {
			if err = p.recover(sink, err); err != nil {
				return p.fail(err)
			}

			continue
		}

		if !ready {
			continue
		}

		p.Fill(p.buf)

		if err := sink.Write(p.buf, p.frames); err != nil {
			if err = p.recover(sink, err); err != nil {
				return p.fail(err)
			}
		}
	}
}

func (p *Producer) recover(sink Sink, err error) error {
	if !errors.Is(err, ErrUnderrun) {
		return err
	}

	p.xruns.Add(1)
	log.Warnf("device %s: underrun, re-preparing stream", p.dev.ID())

	if rerr := sink.Recover(err); rerr != nil {
		return fmt.Errorf("recovery after underrun failed: %w", rerr)
	}

	return nil
}

func (p *Producer) fail(err error) error {
	p.dev.SetFault(err)
	log.Errorf("device %s: production loop stopped: %v", p.dev.ID(), err)

	return err
}
