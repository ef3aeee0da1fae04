//go:build linux && (amd64 || arm64 || 386 || arm)

package alsa

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"github.com/gen2brain/pcmout"
)

// Query asks the driver for the full range of parameters of a playback
// device. The device is opened non-blocking and closed again.
func Query(card, device uint) (Capabilities, error) {
	path := pcmPath(card, device)

	file, err := os.OpenFile(path, os.O_RDWR|syscall.O_NONBLOCK, 0)
	if err != nil {
		return Capabilities{}, fmt.Errorf("failed to open PCM device %s for query: %w", path, err)
	}
	defer file.Close()

	hw := &sndPcmHwParams{}
	paramInit(hw)
	paramSetMask(hw, SNDRV_PCM_HW_PARAM_ACCESS, SNDRV_PCM_ACCESS_RW_INTERLEAVED)

	if err := ioctl(file.Fd(), SNDRV_PCM_IOCTL_HW_REFINE, uintptr(unsafe.Pointer(hw))); err != nil {
		return Capabilities{}, fmt.Errorf("ioctl HW_REFINE failed: %w", err)
	}

	return capabilities(hw), nil
}

func capabilities(hw *sndPcmHwParams) Capabilities {
	var c Capabilities

	for _, f := range []pcmout.Format{pcmout.FormatInt16, pcmout.FormatFloat32, pcmout.FormatUint8} {
		if hf, err := hwFormat(f); err == nil && paramTestMask(hw, SNDRV_PCM_HW_PARAM_FORMAT, uint32(hf)) {
			c.Formats = append(c.Formats, f)
		}
	}

	c.MinChannels, c.MaxChannels = paramRange(hw, SNDRV_PCM_HW_PARAM_CHANNELS)
	c.MinRate, c.MaxRate = paramRange(hw, SNDRV_PCM_HW_PARAM_RATE)
	c.MinPeriodFrames, c.MaxPeriodFrames = paramRange(hw, SNDRV_PCM_HW_PARAM_PERIOD_SIZE)
	c.MinPeriods, c.MaxPeriods = paramRange(hw, SNDRV_PCM_HW_PARAM_PERIODS)

	return c
}
