package pcmout

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Callback synthesizes audio into buf.
//
// buf holds frames*Channels samples in props.Format. baseSampleIndex is the
// index of the first frame in buf, counted from the last reset, which allows
// phase-exact synthesis regardless of the period size.
//
// The callback runs on the real-time context of the device. It must not block,
// allocate or perform I/O.
type Callback func(buf []byte, frames int, props *Properties, userData any, baseSampleIndex uint64)

// Device is an open playback device.
//
// The control methods (Play, Pause, Reset, Stop, IsPlaying) only touch atomic
// flags and are safe to call from any goroutine while the production loop runs.
type Device struct {
	id       string
	props    Properties
	callback Callback
	userData any

	playing     atomic.Bool
	shouldReset atomic.Bool
	shouldClose atomic.Bool

	fault    atomic.Pointer[faultErr]
	faulted  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once

	backend   Backend
	driver    any
	closeOnce sync.Once
}

type faultErr struct {
	err error
}

// NewDevice creates the shared state of a device. It is meant for Backend
// implementations: the returned device does not produce anything until a
// Producer is attached to it.
func NewDevice(b Backend, props Properties, cb Callback, userData any) *Device {
	return &Device{
		id:       uuid.NewString(),
		props:    props,
		callback: cb,
		userData: userData,
		backend:  b,
		done:     make(chan struct{}),
	}
}

// ID returns a unique identifier for the device, used in log messages.
func (d *Device) ID() string {
	if d == nil {
		return ""
	}

	return d.id
}

// Properties returns the negotiated stream properties, or the zero value for
// a nil device.
func (d *Device) Properties() Properties {
	if d == nil {
		return Properties{}
	}

	return d.props
}

// Backend returns the name of the backend that opened the device.
func (d *Device) Backend() string {
	if d == nil || d.backend == nil {
		return ""
	}

	return d.backend.Name()
}

// Play starts invoking the callback on the next period.
func (d *Device) Play() {
	if d == nil {
		return
	}

	d.playing.Store(true)
}

// Pause makes the production loop write silence instead of invoking the callback.
// The device keeps running and the sample index does not advance.
func (d *Device) Pause() {
	if d == nil {
		return
	}

	d.playing.Store(false)
}

// Reset requests that the sample index restarts at 0.
// It takes effect on the next period, not synchronously.
func (d *Device) Reset() {
	if d == nil {
		return
	}

	d.shouldReset.Store(true)
}

// Stop is Pause followed by Reset.
func (d *Device) Stop() {
	d.Pause()
	d.Reset()
}

// IsPlaying reports whether the device invokes the callback.
// It returns false for a nil device.
func (d *Device) IsPlaying() bool {
	if d == nil {
		return false
	}

	return d.playing.Load()
}

// Faulted reports whether the production loop stopped because of a fatal error.
// A faulted device stays closeable but produces no more audio.
func (d *Device) Faulted() bool {
	if d == nil {
		return false
	}

	return d.faulted.Load()
}

// Err returns the fatal error that stopped the production loop, if any.
func (d *Device) Err() error {
	if d == nil {
		return nil
	}

	if f := d.fault.Load(); f != nil {
		return f.err
	}

	return nil
}

// closedDone is the Done channel of a nil device.
var closedDone = func() chan struct{} {
	c := make(chan struct{})
	close(c)

	return c
}()

// Done returns a channel that is closed once the production loop has exited.
// For a nil device the channel is already closed.
func (d *Device) Done() <-chan struct{} {
	if d == nil {
		return closedDone
	}

	return d.done
}

// Close stops the device and releases its resources through the owning backend.
// It is safe to call on a nil device and more than once.
func (d *Device) Close() {
	if d == nil || d.backend == nil {
		return
	}

	d.backend.CloseDevice(d)
}

// Closing reports whether close has been requested.
func (d *Device) Closing() bool {
	if d == nil {
		return false
	}

	return d.shouldClose.Load()
}

// RequestClose sets the close flag without waiting. Backends call it first in
// CloseDevice, then wait for the production loop to exit.
func (d *Device) RequestClose() {
	d.shouldClose.Store(true)
}

// BeginClose requests close and reports whether this is the first call.
// Backends use it to make CloseDevice idempotent.
func (d *Device) BeginClose() bool {
	first := false
	d.closeOnce.Do(func() {
		first = true
	})

	d.RequestClose()

	return first
}

// SetDriver attaches backend-owned state to the device.
func (d *Device) SetDriver(v any) {
	d.driver = v
}

// Driver returns the state attached with SetDriver.
func (d *Device) Driver() any {
	return d.driver
}

// SetFault records a fatal runtime error. Only the first error is kept.
func (d *Device) SetFault(err error) {
	if err == nil {
		return
	}

	if d.fault.CompareAndSwap(nil, &faultErr{err: err}) {
		d.faulted.Store(true)
	}
}

// MarkDone closes the Done channel. It may be called more than once.
func (d *Device) MarkDone() {
	d.doneOnce.Do(func() {
		close(d.done)
	})
}
