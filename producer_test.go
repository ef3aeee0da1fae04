package pcmout_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/pcmout"
)

const testPeriod = 512

// period is one buffer submitted to a scriptedSink.
type period struct {
	data   []byte
	frames int
}

// scriptedSink lets a test decide when the production loop may write the next period.
// Every value sent on ticks releases exactly one Wait. Submitted buffers are
// copied to writes.
type scriptedSink struct {
	ticks  chan struct{}
	writes chan period

	// writeErrs maps a 1-based write number to the error Write returns.
	writeErrs map[int]error
	recoverFn func(error) error

	n        int
	recovers atomic.Int32
}

func newScriptedSink() *scriptedSink {
	return &scriptedSink{
		ticks:     make(chan struct{}),
		writes:    make(chan period, 256),
		writeErrs: map[int]error{},
	}
}

func (s *scriptedSink) Wait(timeout time.Duration) (bool, error) {
	select {
	case <-s.ticks:
		return true, nil
	case <-time.After(timeout):
		return false, nil
	}
}

func (s *scriptedSink) Write(buf []byte, frames int) error {
	s.n++
	s.writes <- period{data: append([]byte(nil), buf...), frames: frames}

	return s.writeErrs[s.n]
}

func (s *scriptedSink) Recover(err error) error {
	s.recovers.Add(1)
	if s.recoverFn != nil {
		return s.recoverFn(err)
	}

	return nil
}

// step releases one period and returns what was written.
func (s *scriptedSink) step(t *testing.T) period {
	t.Helper()

	select {
	case s.ticks <- struct{}{}:
	case <-time.After(2 * time.Second):
		t.Fatal("production loop did not wait for a period")
	}

	select {
	case p := <-s.writes:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("production loop did not write a period")
	}

	return period{}
}

// recorder is a Callback that records every base sample index it receives
// and fills the buffer with a non-silent pattern.
type recorder struct {
	mu    sync.Mutex
	bases []uint64
}

func (r *recorder) callback(buf []byte, frames int, props *pcmout.Properties, userData any, base uint64) {
	r.mu.Lock()
	r.bases = append(r.bases, base)
	r.mu.Unlock()

	for i := range buf {
		buf[i] = 0x5a
	}
}

func (r *recorder) indices() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]uint64(nil), r.bases...)
}

// loopBackend is a Backend whose devices run the production loop against a scriptedSink.
type loopBackend struct {
	name  string
	sinks map[*pcmout.Device]*scriptedSink
	mu    sync.Mutex
	ended bool
}

func newLoopBackend() *loopBackend {
	return &loopBackend{name: "loop", sinks: map[*pcmout.Device]*scriptedSink{}}
}

func (b *loopBackend) Name() string {
	return b.name
}

func (b *loopBackend) OpenDevice(props *pcmout.Properties, cb pcmout.Callback, userData any) (*pcmout.Device, error) {
	p, err := pcmout.PrepareProperties(props)
	if err != nil {
		return nil, err
	}

	if props != nil {
		*props = p
	}

	d := pcmout.NewDevice(b, p, cb, userData)

	prod, err := pcmout.NewProducer(d, testPeriod)
	if err != nil {
		return nil, err
	}

	prod.SetWaitTimeout(10 * time.Millisecond)

	sink := newScriptedSink()
	d.SetDriver(prod)

	b.mu.Lock()
	b.sinks[d] = sink
	b.mu.Unlock()

	go func() {
		_ = prod.Run(sink)
	}()

	return d, nil
}

func (b *loopBackend) CloseDevice(d *pcmout.Device) {
	if d == nil || !d.BeginClose() {
		return
	}

	<-d.Done()
}

func (b *loopBackend) End() error {
	b.ended = true

	return nil
}

func (b *loopBackend) sink(d *pcmout.Device) *scriptedSink {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.sinks[d]
}

func openLoop(t *testing.T, props *pcmout.Properties, cb pcmout.Callback) (*loopBackend, *pcmout.Device, *scriptedSink) {
	t.Helper()

	b := newLoopBackend()
	d, err := b.OpenDevice(props, cb, nil)
	require.NoError(t, err)

	t.Cleanup(d.Close)

	return b, d, b.sink(d)
}

func scenarioProps() *pcmout.Properties {
	return &pcmout.Properties{
		Format:     pcmout.FormatInt16,
		Channels:   2,
		SampleRate: 44100,
	}
}

func TestScenarioPlayIndexSequence(t *testing.T) {
	rec := &recorder{}
	_, d, sink := openLoop(t, scenarioProps(), rec.callback)

	d.Play()

	for i := 0; i < 100; i++ {
		p := sink.step(t)
		assert.Equal(t, testPeriod, p.frames)
		assert.Len(t, p.data, testPeriod*2*2)
	}

	want := make([]uint64, 100)
	for i := range want {
		want[i] = uint64(i * testPeriod)
	}

	assert.Equal(t, want, rec.indices())
	assert.Equal(t, uint64(50688), want[99])
}

func TestScenarioPausedSilence(t *testing.T) {
	rec := &recorder{}
	_, d, sink := openLoop(t, scenarioProps(), rec.callback)

	d.Pause()

	for i := 0; i < 10; i++ {
		p := sink.step(t)
		require.Len(t, p.data, testPeriod*2*2)

		for j, b := range p.data {
			if b != 0 {
				t.Fatalf("period %d byte %d = %#x; want 0", i, j, b)
			}
		}
	}

	assert.Empty(t, rec.indices())
}

func TestScenarioResetRestartsIndex(t *testing.T) {
	rec := &recorder{}
	_, d, sink := openLoop(t, scenarioProps(), rec.callback)

	d.Play()
	for i := 0; i < 5; i++ {
		sink.step(t)
	}

	d.Reset()
	sink.step(t)

	got := rec.indices()
	require.Len(t, got, 6)
	assert.Equal(t, []uint64{0, 512, 1024, 1536, 2048, 0}, got)
}

func TestScenarioUnderrunContinues(t *testing.T) {
	rec := &recorder{}
	_, d, sink := openLoop(t, scenarioProps(), rec.callback)
	sink.writeErrs[3] = fmt.Errorf("write: %w", pcmout.ErrUnderrun)

	d.Play()
	for i := 0; i < 4; i++ {
		sink.step(t)
	}

	assert.Equal(t, []uint64{0, 512, 1024, 1536}, rec.indices())
	assert.EqualValues(t, 1, sink.recovers.Load())
	assert.False(t, d.Faulted())
	assert.NoError(t, d.Err())

	prod := d.Driver().(*pcmout.Producer)
	assert.EqualValues(t, 1, prod.Underruns())
}

func TestUnderrunFromWaitIsRecovered(t *testing.T) {
	d := pcmout.NewDevice(nil, pcmout.DefaultProperties(), nil, nil)
	prod, err := pcmout.NewProducer(d, testPeriod)
	require.NoError(t, err)

	sink := &funcSink{
		wait: func(n int) (bool, error) {
			switch {
			case n == 1:
				return false, pcmout.ErrUnderrun
			case n < 4:
				return true, nil
			default:
				d.RequestClose()
				return false, nil
			}
		},
	}

	require.NoError(t, prod.Run(sink))
	assert.EqualValues(t, 1, prod.Underruns())
	assert.Equal(t, 2, sink.writes)
	assert.Equal(t, 1, sink.recovers)
}

func TestFatalErrorFaultsDevice(t *testing.T) {
	rec := &recorder{}
	b, d, sink := openLoop(t, scenarioProps(), rec.callback)
	sink.writeErrs[2] = errors.New("device removed")

	d.Play()
	sink.step(t)
	sink.step(t)

	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("production loop kept running after a fatal error")
	}

	assert.True(t, d.Faulted())
	assert.EqualError(t, d.Err(), "device removed")
	assert.True(t, d.IsPlaying())

	// A faulted device is still closeable.
	b.CloseDevice(d)
	b.CloseDevice(d)
}

func TestFailedRecoveryIsFatal(t *testing.T) {
	_, d, sink := openLoop(t, scenarioProps(), nil)
	sink.writeErrs[1] = pcmout.ErrUnderrun
	sink.recoverFn = func(error) error {
		return errors.New("prepare failed")
	}

	sink.step(t)

	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("production loop kept running after a failed recovery")
	}

	require.Error(t, d.Err())
	assert.Contains(t, d.Err().Error(), "prepare failed")
}

func TestCloseWhileRunning(t *testing.T) {
	var calls atomic.Int64
	cb := func(buf []byte, frames int, props *pcmout.Properties, userData any, base uint64) {
		calls.Add(1)
		time.Sleep(time.Millisecond)
	}

	b := newLoopBackend()
	d, err := b.OpenDevice(nil, cb, nil)
	require.NoError(t, err)

	sink := b.sink(d)
	d.Play()

	// Feed periods as fast as the loop takes them until the device is closed.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case sink.ticks <- struct{}{}:
			case <-stop:
				return
			}
		}
	}()

	go func() {
		for range sink.writes {
		}
	}()

	require.Eventually(t, func() bool { return calls.Load() > 3 }, 2*time.Second, time.Millisecond)

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	close(stop)
	wg.Wait()

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
	assert.False(t, d.Faulted())

	d.Close()
}

func TestFillPausedWritesSilence(t *testing.T) {
	for _, f := range []pcmout.Format{pcmout.FormatInt16, pcmout.FormatFloat32, pcmout.FormatUint8} {
		t.Run(f.String(), func(t *testing.T) {
			rec := &recorder{}
			props := pcmout.Properties{Format: f, Channels: 2}
			props.ApplyDefaults()

			d := pcmout.NewDevice(nil, props, rec.callback, nil)
			prod, err := pcmout.NewProducer(d, 64)
			require.NoError(t, err)

			want := make([]byte, props.PeriodBytes(64))
			pcmout.FillSilence(want, f)

			for i := 0; i < 3; i++ {
				buf := make([]byte, props.PeriodBytes(64))
				for j := range buf {
					buf[j] = 0xff
				}

				assert.Equal(t, 64, prod.Fill(buf))
				assert.Equal(t, want, buf)
			}

			assert.Empty(t, rec.indices())
			assert.EqualValues(t, 3, prod.Periods())
		})
	}
}

func TestFillPhaseContinuity(t *testing.T) {
	rec := &recorder{}
	d := pcmout.NewDevice(nil, pcmout.DefaultProperties(), rec.callback, nil)
	prod, err := pcmout.NewProducer(d, testPeriod)
	require.NoError(t, err)

	d.Play()

	// Host APIs may ask for any number of frames.
	sizes := []int{512, 100, 1, 333}
	for _, n := range sizes {
		prod.Fill(make([]byte, n*2))
	}

	assert.Equal(t, []uint64{0, 512, 612, 613}, rec.indices())
}

func TestFillResetIdempotent(t *testing.T) {
	rec := &recorder{}
	d := pcmout.NewDevice(nil, pcmout.DefaultProperties(), rec.callback, nil)
	prod, err := pcmout.NewProducer(d, testPeriod)
	require.NoError(t, err)

	d.Play()
	prod.Fill(prod.Buffer())
	prod.Fill(prod.Buffer())

	d.Reset()
	d.Reset()
	d.Reset()
	prod.Fill(prod.Buffer())
	prod.Fill(prod.Buffer())

	assert.Equal(t, []uint64{0, 512, 0, 512}, rec.indices())
}

func TestFillPauseHoldsIndex(t *testing.T) {
	rec := &recorder{}
	d := pcmout.NewDevice(nil, pcmout.DefaultProperties(), rec.callback, nil)
	prod, err := pcmout.NewProducer(d, testPeriod)
	require.NoError(t, err)

	d.Play()
	prod.Fill(prod.Buffer())
	prod.Fill(prod.Buffer())

	d.Pause()
	for i := 0; i < 7; i++ {
		prod.Fill(prod.Buffer())
	}

	d.Play()
	prod.Fill(prod.Buffer())

	assert.Equal(t, []uint64{0, 512, 1024}, rec.indices())
}

func TestStopRewinds(t *testing.T) {
	rec := &recorder{}
	d := pcmout.NewDevice(nil, pcmout.DefaultProperties(), rec.callback, nil)
	prod, err := pcmout.NewProducer(d, testPeriod)
	require.NoError(t, err)

	d.Play()
	prod.Fill(prod.Buffer())

	d.Stop()
	assert.False(t, d.IsPlaying())
	prod.Fill(prod.Buffer())

	d.Play()
	prod.Fill(prod.Buffer())

	assert.Equal(t, []uint64{0, 0}, rec.indices())
}

func TestFillPartialFrameIsSilenced(t *testing.T) {
	props := pcmout.Properties{Format: pcmout.FormatInt16, Channels: 2}
	props.ApplyDefaults()

	d := pcmout.NewDevice(nil, props, func(buf []byte, frames int, _ *pcmout.Properties, _ any, _ uint64) {
		assert.Len(t, buf, frames*4)
		for i := range buf {
			buf[i] = 1
		}
	}, nil)

	prod, err := pcmout.NewProducer(d, 16)
	require.NoError(t, err)

	d.Play()

	buf := make([]byte, 10)
	assert.Equal(t, 2, prod.Fill(buf))
	assert.Equal(t, []byte{1, 1, 1, 1, 1, 1, 1, 1, 0, 0}, buf)
}

func TestFillAfterCloseSkipsCallback(t *testing.T) {
	rec := &recorder{}
	d := pcmout.NewDevice(nil, pcmout.DefaultProperties(), rec.callback, nil)
	prod, err := pcmout.NewProducer(d, testPeriod)
	require.NoError(t, err)

	d.Play()
	d.RequestClose()
	prod.Quiesce()

	buf := prod.Buffer()
	prod.Fill(buf)

	assert.Empty(t, rec.indices())
	assert.Equal(t, make([]byte, len(buf)), buf)
}

func TestNewProducerRejectsEmptyPeriod(t *testing.T) {
	d := pcmout.NewDevice(nil, pcmout.DefaultProperties(), nil, nil)

	_, err := pcmout.NewProducer(d, 0)
	require.Error(t, err)
	assert.True(t, pcmout.IsKind(err, pcmout.KindCannotAllocate))
}

func TestNilDeviceControls(t *testing.T) {
	var d *pcmout.Device

	assert.NotPanics(t, func() {
		d.Play()
		d.Pause()
		d.Reset()
		d.Stop()
		d.Close()
	})

	assert.False(t, d.IsPlaying())
	assert.False(t, d.Faulted())
	assert.NoError(t, d.Err())
	assert.False(t, d.Closing())
	assert.Empty(t, d.ID())
	assert.Equal(t, pcmout.Properties{}, d.Properties())

	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatal("Done of a nil device is not closed")
	}
}

// funcSink is a Sink whose Wait is scripted by call number.
type funcSink struct {
	wait     func(n int) (bool, error)
	waits    int
	writes   int
	recovers int
}

func (s *funcSink) Wait(time.Duration) (bool, error) {
	s.waits++

	return s.wait(s.waits)
}

func (s *funcSink) Write([]byte, int) error {
	s.writes++

	return nil
}

func (s *funcSink) Recover(error) error {
	s.recovers++

	return nil
}
