package wavfile

import (
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/pcmout"
)

// counter writes the running sample index into every sample of a frame.
func counter(buf []byte, frames int, props *pcmout.Properties, _ any, base uint64) {
	s := pcmout.Int16Samples(buf)
	ch := int(props.Channels)
	for i := 0; i < frames; i++ {
		for c := 0; c < ch; c++ {
			s[i*ch+c] = int16((base + uint64(i)) % math.MaxInt16)
		}
	}
}

func record(t *testing.T, cfg Config, props *pcmout.Properties, cb pcmout.Callback, run func(d *pcmout.Device, r *recorder)) string {
	t.Helper()

	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "out.wav")
	}

	b, err := New(cfg)
	require.NoError(t, err)

	d, err := b.OpenDevice(props, cb, nil)
	require.NoError(t, err)

	run(d, d.Driver().(*recorder))

	d.Close()
	require.NoError(t, b.End())
	assert.False(t, d.Faulted(), "%v", d.Err())

	return cfg.Path
}

func TestRecordInt16RoundTrip(t *testing.T) {
	props := &pcmout.Properties{Channels: 2, SampleRate: 8000}

	var calls atomic.Int32
	cb := func(buf []byte, frames int, props *pcmout.Properties, userData any, base uint64) {
		calls.Add(1)
		counter(buf, frames, props, userData, base)
	}

	path := record(t, Config{Unpaced: true, PeriodFrames: 256}, props, cb, func(d *pcmout.Device, r *recorder) {
		d.Play()
		require.Eventually(t, func() bool { return calls.Load() >= 8 }, 2*time.Second, time.Millisecond)
	})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, uint32(8000), dec.SampleRate)
	assert.Equal(t, uint16(2), dec.NumChans)
	assert.Equal(t, uint16(16), dec.BitDepth)
	assert.Equal(t, uint16(formatPCM), dec.WavAudioFormat)

	frames := buf.NumFrames()
	require.Positive(t, frames)
	assert.Zero(t, frames%256)

	// The recording starts paused, so it is a run of silence followed by
	// an unbroken count from zero.
	start := -1
	for i := 0; i < frames; i++ {
		left, right := buf.Data[2*i], buf.Data[2*i+1]
		require.Equal(t, left, right)

		if start == -1 && left != 0 {
			start = i - 1
		}

		if start >= 0 {
			require.Equal(t, (i-start)%math.MaxInt16, left, "frame %d", i)
		}
	}

	require.NotEqual(t, -1, start)
}

func TestRecordFloatHeader(t *testing.T) {
	props := &pcmout.Properties{Format: pcmout.FormatFloat32}

	path := record(t, Config{Unpaced: true}, props, pcmout.PlayNote, func(d *pcmout.Device, r *recorder) {
		require.Eventually(t, func() bool { return r.producer.Periods() >= 2 }, 2*time.Second, time.Millisecond)
	})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	require.NoError(t, dec.Err())

	assert.True(t, dec.IsValidFile())
	assert.Equal(t, uint16(formatIEEEFloat), dec.WavAudioFormat)
	assert.Equal(t, uint16(32), dec.BitDepth)
	assert.Equal(t, uint32(pcmout.DefaultSampleRate), dec.SampleRate)
}

func TestPacedRecording(t *testing.T) {
	props := &pcmout.Properties{SampleRate: 48000}

	start := time.Now()
	record(t, Config{PeriodFrames: 480}, props, counter, func(d *pcmout.Device, r *recorder) {
		d.Play()
		require.Eventually(t, func() bool { return r.producer.Periods() >= 5 }, 2*time.Second, time.Millisecond)
	})

	// Five 10ms periods, the first of them immediately.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestOneDeviceAtATime(t *testing.T) {
	b, err := New(Config{Path: filepath.Join(t.TempDir(), "busy.wav")})
	require.NoError(t, err)

	d, err := b.OpenDevice(nil, nil, nil)
	require.NoError(t, err)

	_, err = b.OpenDevice(nil, nil, nil)
	require.ErrorIs(t, err, errBusy)
	assert.True(t, pcmout.IsKind(err, pcmout.KindAudio))

	require.NoError(t, b.End())

	select {
	case <-d.Done():
	default:
		t.Fatal("End left the device running")
	}
}

func TestNewNeedsPath(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, pcmout.IsKind(err, pcmout.KindInitialize))
}

func TestDecode(t *testing.T) {
	dst := make([]int, 2)

	decode(dst, []byte{0x00, 0x80, 0xff, 0x7f}, pcmout.FormatInt16)
	assert.Equal(t, []int{math.MinInt16, math.MaxInt16}, dst)

	decode(dst, []byte{0x00, 0xff}, pcmout.FormatUint8)
	assert.Equal(t, []int{0, 255}, dst)

	decode(dst[:1], []byte{0x00, 0x00, 0x80, 0xbf}, pcmout.FormatFloat32)
	assert.Equal(t, math.Float32bits(-1), uint32(int32(dst[0])))
}
