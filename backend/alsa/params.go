//go:build linux && (amd64 || arm64 || 386 || arm)

package alsa

import (
	"fmt"

	"github.com/gen2brain/pcmout"
)

// hwFormat maps a pcmout sample format to the kernel format.
func hwFormat(f pcmout.Format) (PcmFormat, error) {
	switch f {
	case pcmout.FormatInt16:
		return SNDRV_PCM_FORMAT_S16_LE, nil
	case pcmout.FormatFloat32:
		return SNDRV_PCM_FORMAT_FLOAT_LE, nil
	case pcmout.FormatUint8:
		return SNDRV_PCM_FORMAT_U8, nil
	default:
		return 0, fmt.Errorf("no kernel sample format for %v", f)
	}
}

// paramInit initializes a sndPcmHwParams struct to allow all possible values.
func paramInit(p *sndPcmHwParams) {
	for n := range p.Masks {
		for i := range p.Masks[n].Bits {
			p.Masks[n].Bits[i] = ^uint32(0)
		}
	}

	for n := range p.Mres {
		for i := range p.Mres[n].Bits {
			p.Mres[n].Bits[i] = ^uint32(0)
		}
	}

	for n := range p.Intervals {
		p.Intervals[n] = sndInterval{MinVal: 0, MaxVal: ^uint32(0)}
	}

	for n := range p.Ires {
		p.Ires[n] = sndInterval{MinVal: 0, MaxVal: ^uint32(0)}
	}

	p.Rmask = ^uint32(0)
	p.Info = ^uint32(0)
}

func isMask(param PcmParam) bool {
	return param >= SNDRV_PCM_HW_PARAM_ACCESS && param <= SNDRV_PCM_HW_PARAM_SUBFORMAT
}

func isInterval(param PcmParam) bool {
	return param >= SNDRV_PCM_HW_PARAM_SAMPLE_BITS && param <= SNDRV_PCM_HW_PARAM_TICK_TIME
}

func paramSetMask(p *sndPcmHwParams, param PcmParam, bit uint32) {
	if !isMask(param) {
		return
	}

	mask := &p.Masks[param-SNDRV_PCM_HW_PARAM_ACCESS]
	for i := range mask.Bits {
		mask.Bits[i] = 0
	}

	if bit >= 256 { // SNDRV_MASK_MAX
		return
	}

	mask.Bits[bit>>5] |= 1 << (bit & 31)
}

func paramTestMask(p *sndPcmHwParams, param PcmParam, bit uint32) bool {
	if !isMask(param) || bit >= 256 {
		return false
	}

	return p.Masks[param-SNDRV_PCM_HW_PARAM_ACCESS].Bits[bit>>5]&(1<<(bit&31)) != 0
}

func paramSetInt(p *sndPcmHwParams, param PcmParam, val uint32) {
	if !isInterval(param) {
		return
	}

	interval := &p.Intervals[param-SNDRV_PCM_HW_PARAM_SAMPLE_BITS]
	interval.MinVal = val
	interval.MaxVal = val
	interval.Flags = SNDRV_PCM_INTERVAL_INTEGER
}

func paramSetMin(p *sndPcmHwParams, param PcmParam, val uint32) {
	if !isInterval(param) {
		return
	}

	p.Intervals[param-SNDRV_PCM_HW_PARAM_SAMPLE_BITS].MinVal = val
}

// paramGetInt reads the value the driver settled on, which is the interval minimum.
func paramGetInt(p *sndPcmHwParams, param PcmParam) uint32 {
	if !isInterval(param) {
		return 0
	}

	return p.Intervals[param-SNDRV_PCM_HW_PARAM_SAMPLE_BITS].MinVal
}

func paramRange(p *sndPcmHwParams, param PcmParam) (lo, hi uint32) {
	if !isInterval(param) {
		return 0, 0
	}

	interval := p.Intervals[param-SNDRV_PCM_HW_PARAM_SAMPLE_BITS]

	return interval.MinVal, interval.MaxVal
}

// clamp moves v into [lo, hi]. An empty range leaves v unchanged.
func clamp(v, lo, hi uint32) uint32 {
	if lo > hi {
		return v
	}

	return min(max(v, lo), hi)
}
