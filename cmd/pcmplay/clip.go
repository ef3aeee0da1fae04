package main

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/gen2brain/pcmout"
)

// clip is a decoded file. Its callback plays the frame at baseSampleIndex, so
// pausing holds the position and a reset rewinds to the start.
type clip struct {
	rate     uint32
	channels uint32
	samples  []float32
	loop     bool

	position atomic.Uint64
	ended    atomic.Bool
}

// Frames returns the length of the clip in frames.
func (c *clip) Frames() uint64 {
	if c.channels == 0 {
		return 0
	}

	return uint64(len(c.samples)) / uint64(c.channels)
}

// Duration returns the playing time of the clip.
func (c *clip) Duration() time.Duration {
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.rate)
}

// Position returns the playing time of the last period produced.
func (c *clip) Position() time.Duration {
	return time.Duration(c.position.Load()) * time.Second / time.Duration(c.rate)
}

// sample returns channel ch of frame i. Devices with more channels than the
// clip repeat the clip channels.
func (c *clip) sample(i uint64, ch int) float32 {
	total := c.Frames()
	if total == 0 {
		return 0
	}

	if c.loop {
		i %= total
	}

	if i >= total {
		return 0
	}

	return c.samples[i*uint64(c.channels)+uint64(ch%int(c.channels))]
}

func (c *clip) callback(buf []byte, frames int, props *pcmout.Properties, _ any, base uint64) {
	ch := int(props.Channels)

	switch props.Format {
	case pcmout.FormatFloat32:
		out := pcmout.Float32Samples(buf)
		for i := 0; i < frames; i++ {
			for j := 0; j < ch; j++ {
				out[i*ch+j] = c.sample(base+uint64(i), j)
			}
		}
	case pcmout.FormatUint8:
		for i := 0; i < frames; i++ {
			for j := 0; j < ch; j++ {
				buf[i*ch+j] = byte(math.Round(float64(clampUnit(c.sample(base+uint64(i), j)))*127 + 128))
			}
		}
	default:
		out := pcmout.Int16Samples(buf)
		for i := 0; i < frames; i++ {
			for j := 0; j < ch; j++ {
				out[i*ch+j] = int16(clampUnit(c.sample(base+uint64(i), j)) * math.MaxInt16)
			}
		}
	}

	end := base + uint64(frames)
	c.position.Store(end)

	if !c.loop && end >= c.Frames() {
		c.ended.Store(true)
	}
}

func clampUnit(v float32) float32 {
	return max(-1, min(1, v))
}
