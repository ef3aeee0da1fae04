//go:build linux && (amd64 || arm64 || 386 || arm)

package alsa

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/pcmout"
)

func TestHwParamsLayout(t *testing.T) {
	// struct snd_pcm_hw_params is 604 bytes on 32-bit and 608 bytes on 64-bit kernels.
	want := uintptr(604)
	if unsafe.Sizeof(uintptr(0)) == 8 {
		want = 608
	}

	assert.Equal(t, want, unsafe.Sizeof(sndPcmHwParams{}))
	assert.Equal(t, uintptr(288), unsafe.Sizeof(sndPcmInfo{}))
}

func TestParamMask(t *testing.T) {
	var p sndPcmHwParams
	paramInit(&p)

	assert.True(t, paramTestMask(&p, SNDRV_PCM_HW_PARAM_FORMAT, uint32(SNDRV_PCM_FORMAT_FLOAT_LE)))

	paramSetMask(&p, SNDRV_PCM_HW_PARAM_FORMAT, uint32(SNDRV_PCM_FORMAT_S16_LE))
	assert.True(t, paramTestMask(&p, SNDRV_PCM_HW_PARAM_FORMAT, uint32(SNDRV_PCM_FORMAT_S16_LE)))
	assert.False(t, paramTestMask(&p, SNDRV_PCM_HW_PARAM_FORMAT, uint32(SNDRV_PCM_FORMAT_FLOAT_LE)))
	assert.False(t, paramTestMask(&p, SNDRV_PCM_HW_PARAM_RATE, 0))
}

func TestParamInterval(t *testing.T) {
	var p sndPcmHwParams
	paramInit(&p)

	lo, hi := paramRange(&p, SNDRV_PCM_HW_PARAM_RATE)
	assert.Equal(t, uint32(0), lo)
	assert.Equal(t, ^uint32(0), hi)

	paramSetInt(&p, SNDRV_PCM_HW_PARAM_RATE, 44100)
	lo, hi = paramRange(&p, SNDRV_PCM_HW_PARAM_RATE)
	assert.Equal(t, uint32(44100), lo)
	assert.Equal(t, uint32(44100), hi)
	assert.Equal(t, uint32(44100), paramGetInt(&p, SNDRV_PCM_HW_PARAM_RATE))

	paramSetMin(&p, SNDRV_PCM_HW_PARAM_PERIOD_SIZE, 512)
	assert.Equal(t, uint32(512), paramGetInt(&p, SNDRV_PCM_HW_PARAM_PERIOD_SIZE))

	assert.Equal(t, uint32(0), paramGetInt(&p, SNDRV_PCM_HW_PARAM_FORMAT))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(2), clamp(1, 2, 8))
	assert.Equal(t, uint32(8), clamp(10, 2, 8))
	assert.Equal(t, uint32(4), clamp(4, 2, 8))
	assert.Equal(t, uint32(4), clamp(4, 8, 2))
}

func TestHwFormat(t *testing.T) {
	f, err := hwFormat(pcmout.FormatFloat32)
	require.NoError(t, err)
	assert.Equal(t, SNDRV_PCM_FORMAT_FLOAT_LE, f)

	_, err = hwFormat(pcmout.Format(0))
	assert.Error(t, err)
}

func TestCString(t *testing.T) {
	assert.Equal(t, "Loopback PCM", cString([]byte("Loopback PCM\x00\x00junk")))
	assert.Equal(t, "abc", cString([]byte("abc")))
}

func TestCapabilitiesFromRefinedParams(t *testing.T) {
	var p sndPcmHwParams
	paramInit(&p)

	paramSetMask(&p, SNDRV_PCM_HW_PARAM_FORMAT, uint32(SNDRV_PCM_FORMAT_S16_LE))
	p.Intervals[SNDRV_PCM_HW_PARAM_CHANNELS-SNDRV_PCM_HW_PARAM_SAMPLE_BITS] = sndInterval{MinVal: 1, MaxVal: 2}
	p.Intervals[SNDRV_PCM_HW_PARAM_RATE-SNDRV_PCM_HW_PARAM_SAMPLE_BITS] = sndInterval{MinVal: 8000, MaxVal: 48000}

	c := capabilities(&p)
	assert.Equal(t, []pcmout.Format{pcmout.FormatInt16}, c.Formats)
	assert.Equal(t, uint32(1), c.MinChannels)
	assert.Equal(t, uint32(2), c.MaxChannels)
	assert.Equal(t, uint32(48000), c.MaxRate)

	s := c.String()
	assert.Contains(t, s, "Format: s16")
	assert.Contains(t, s, "Rate: min=8000")
	// Unrestricted ranges are left out.
	assert.NotContains(t, s, "Periods")
}
