package pcmout

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

// Waveform selects the oscillator shape used by PlayNote.
type Waveform int32

const (
	Sine Waveform = iota
	Square
	Triangle
	Sawtooth
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	case Sawtooth:
		return "sawtooth"
	default:
		return fmt.Sprintf("Waveform(%d)", int32(w))
	}
}

// Next returns the waveform that follows w, wrapping after Sawtooth.
func (w Waveform) Next() Waveform {
	return (w + 1) % (Sawtooth + 1)
}

// ParseWaveform maps a waveform name as returned by String to a Waveform.
func ParseWaveform(s string) (Waveform, error) {
	for w := Sine; w <= Sawtooth; w++ {
		if strings.EqualFold(s, w.String()) {
			return w, nil
		}
	}

	return 0, fmt.Errorf("unknown waveform %q. Supported waveforms are sine, square, triangle, sawtooth", s)
}

// squareLevel is the magnitude of the square wave, kept low because of its harmonics.
const squareLevel = 0.2

// Note is the user data of PlayNote.
//
// Waveform and frequency can be changed from any goroutine while the device plays.
type Note struct {
	waveform  atomic.Int32
	frequency atomic.Uint64
}

// NewNote returns a note with the given waveform and frequency in Hz.
func NewNote(w Waveform, freq float64) *Note {
	n := &Note{}
	n.SetWaveform(w)
	n.SetFrequency(freq)

	return n
}

// Waveform returns the current waveform.
func (n *Note) Waveform() Waveform {
	return Waveform(n.waveform.Load())
}

// SetWaveform changes the waveform.
func (n *Note) SetWaveform(w Waveform) {
	n.waveform.Store(int32(w))
}

// Frequency returns the current frequency in Hz.
func (n *Note) Frequency() float64 {
	return math.Float64frombits(n.frequency.Load())
}

// SetFrequency changes the frequency in Hz.
func (n *Note) SetFrequency(freq float64) {
	n.frequency.Store(math.Float64bits(freq))
}

// Value returns the oscillator output in [-1, 1] at sample index i.
// The phase is derived from i alone, so the output does not depend on how the
// stream is split into periods. Sawtooth starts its cycle at 0, Triangle at -1.
func (n *Note) Value(i uint64, sampleRate uint32) float64 {
	step := 2 * math.Pi * n.Frequency() / float64(sampleRate)
	phase := math.Mod(float64(i)*step, 2*math.Pi)

	// t ramps over [0, 1) once per cycle.
	t := phase / (2 * math.Pi)

	switch n.Waveform() {
	case Square:
		if math.Sin(phase) > 0 {
			return squareLevel
		}

		return -squareLevel
	case Triangle:
		return 4*math.Abs(t-math.Floor(t+0.5)) - 1
	case Sawtooth:
		return 2 * (t - math.Floor(t+0.5))
	default:
		return math.Sin(phase)
	}
}

// PlayNote is a Callback that synthesizes the *Note passed as user data.
//
// Every channel of a frame carries the same value. Int16 output is scaled by
// props.Amplitude and clamped, Uint8 output is scaled around 0x80, Float32
// output is written as is.
func PlayNote(buf []byte, frames int, props *Properties, userData any, baseSampleIndex uint64) {
	note, ok := userData.(*Note)
	if !ok || note == nil {
		FillSilence(buf, props.Format)

		return
	}

	ch := int(props.Channels)

	switch props.Format {
	case FormatInt16:
		out := Int16Samples(buf)
		amp := float64(props.Amplitude)
		for f := 0; f < frames; f++ {
			v := clampInt16(note.Value(baseSampleIndex+uint64(f), props.SampleRate) * amp)
			for c := 0; c < ch; c++ {
				out[f*ch+c] = v
			}
		}
	case FormatFloat32:
		out := Float32Samples(buf)
		for f := 0; f < frames; f++ {
			v := float32(note.Value(baseSampleIndex+uint64(f), props.SampleRate))
			for c := 0; c < ch; c++ {
				out[f*ch+c] = v
			}
		}
	case FormatUint8:
		for f := 0; f < frames; f++ {
			v := note.Value(baseSampleIndex+uint64(f), props.SampleRate)
			s := byte(math.Max(0, math.Min(255, math.Round(0x80+v*127))))
			for c := 0; c < ch; c++ {
				buf[f*ch+c] = s
			}
		}
	default:
		FillSilence(buf, props.Format)
	}
}

func clampInt16(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}
