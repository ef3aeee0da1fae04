package alsa

import (
	"fmt"
	"strings"

	"github.com/gen2brain/pcmout"
)

// Capabilities is what the hardware of a playback device can do.
type Capabilities struct {
	Formats         []pcmout.Format
	MinChannels     uint32
	MaxChannels     uint32
	MinRate         uint32
	MaxRate         uint32
	MinPeriodFrames uint32
	MaxPeriodFrames uint32
	MinPeriods      uint32
	MaxPeriods      uint32
}

// String returns a human-readable representation of the capabilities.
func (c Capabilities) String() string {
	var b strings.Builder

	formats := make([]string, 0, len(c.Formats))
	for _, f := range c.Formats {
		formats = append(formats, f.String())
	}

	if len(formats) == 0 {
		formats = append(formats, "none usable")
	}

	b.WriteString(fmt.Sprintf("%12s: %s\n", "Format", strings.Join(formats, ", ")))

	printInterval := func(name string, lo, hi uint32, unit string) {
		if hi == 0 || hi == ^uint32(0) { // Don't print meaningless ranges
			return
		}

		b.WriteString(fmt.Sprintf("%12s: min=%-6d max=%-6d %s\n", name, lo, hi, unit))
	}

	printInterval("Rate", c.MinRate, c.MaxRate, "Hz")
	printInterval("Channels", c.MinChannels, c.MaxChannels, "")
	printInterval("Period size", c.MinPeriodFrames, c.MaxPeriodFrames, "frames")
	printInterval("Periods", c.MinPeriods, c.MaxPeriods, "")

	return b.String()
}
