package pcmout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/pcmout"
)

func TestFormatWidth(t *testing.T) {
	testCases := map[pcmout.Format]int{
		pcmout.FormatInt16:   2,
		pcmout.FormatFloat32: 4,
		pcmout.FormatUint8:   1,
		pcmout.Format(0):     0,
	}

	for format, width := range testCases {
		t.Run(format.String(), func(t *testing.T) {
			assert.Equal(t, width, format.Width())
			assert.Equal(t, width != 0, format.Valid())
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := pcmout.ParseFormat("f32")
	require.NoError(t, err)
	assert.Equal(t, pcmout.FormatFloat32, f)

	f, err = pcmout.ParseFormat("s16")
	require.NoError(t, err)
	assert.Equal(t, pcmout.FormatInt16, f)

	_, err = pcmout.ParseFormat("s24")
	assert.Error(t, err)
}

func TestPropertiesSizes(t *testing.T) {
	p := pcmout.Properties{Format: pcmout.FormatFloat32, Channels: 2, SampleRate: 48000}

	assert.Equal(t, 8, p.FrameSize())
	assert.Equal(t, 4096, p.PeriodBytes(512))
	assert.Equal(t, 512, p.BytesToFrames(4100))
	assert.Equal(t, "f32 2ch 48000Hz", p.String())
}

func TestDefaultProperties(t *testing.T) {
	p := pcmout.DefaultProperties()

	assert.Equal(t, pcmout.FormatInt16, p.Format)
	assert.EqualValues(t, 1, p.Channels)
	assert.EqualValues(t, 44100, p.SampleRate)
	assert.EqualValues(t, 16000, p.Amplitude)
	assert.EqualValues(t, 0, p.Silence)
	assert.NoError(t, p.Validate())
}

func TestValidate(t *testing.T) {
	bad := []pcmout.Properties{
		{Format: pcmout.Format(9), Channels: 1, SampleRate: 44100},
		{Format: pcmout.FormatInt16, Channels: 0, SampleRate: 44100},
		{Format: pcmout.FormatInt16, Channels: 1, SampleRate: 0},
	}

	for _, p := range bad {
		err := p.Validate()
		assert.True(t, pcmout.IsKind(err, pcmout.KindUnsupported), "%+v", p)
	}
}

func TestFillSilence(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	pcmout.FillSilence(buf, pcmout.FormatUint8)
	assert.Equal(t, []byte{0x80, 0x80, 0x80, 0x80, 0x80}, buf)

	buf = []byte{1, 2, 3, 4, 5}
	pcmout.FillSilence(buf, pcmout.FormatInt16)
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, buf)
}

func TestSampleViews(t *testing.T) {
	buf := make([]byte, 8)

	s := pcmout.Int16Samples(buf)
	require.Len(t, s, 4)
	s[1] = -2
	assert.Equal(t, []byte{0, 0, 0xfe, 0xff}, buf[:4])

	f := pcmout.Float32Samples(buf)
	require.Len(t, f, 2)
	f[1] = 1
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, buf[4:])

	assert.Nil(t, pcmout.Int16Samples(nil))
}
