package pcmout

import (
	"fmt"
	"unsafe"
)

// Format defines the sample encoding of a stream.
// Samples are interleaved and stored in native (little-endian) byte order.
type Format int

const (
	// FormatInt16 is signed 16-bit integer samples.
	FormatInt16 Format = iota + 1
	// FormatFloat32 is 32-bit IEEE float samples in [-1, 1].
	FormatFloat32
	// FormatUint8 is unsigned 8-bit samples centered on 0x80.
	FormatUint8
)

const (
	// DefaultSampleRate is used when Properties.SampleRate is zero.
	DefaultSampleRate = 44100
	// DefaultChannels is used when Properties.Channels is zero.
	DefaultChannels = 1
	// DefaultAmplitude is used when Properties.Amplitude is zero.
	DefaultAmplitude = 16000
)

// Width returns the number of bytes occupied by one sample, or 0 for an unknown format.
func (f Format) Width() int {
	switch f {
	case FormatInt16:
		return 2
	case FormatFloat32:
		return 4
	case FormatUint8:
		return 1
	default:
		return 0
	}
}

// Silence returns the bit pattern that represents "no sound" in this format.
func (f Format) Silence() uint32 {
	if f == FormatUint8 {
		return 0x80
	}

	return 0
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f.Width() != 0
}

func (f Format) String() string {
	switch f {
	case FormatInt16:
		return "s16"
	case FormatFloat32:
		return "f32"
	case FormatUint8:
		return "u8"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat maps "s16", "f32" or "u8" to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "s16", "int16":
		return FormatInt16, nil
	case "f32", "float", "float32":
		return FormatFloat32, nil
	case "u8", "uint8":
		return FormatUint8, nil
	default:
		return 0, fmt.Errorf("unsupported format: '%s'. Supported formats are s16, f32, u8", s)
	}
}

// Properties describes the shape of a stream.
// It is immutable once a device has been opened.
type Properties struct {
	Format     Format
	Channels   uint32
	SampleRate uint32
	Amplitude  int16  // Peak value used by integer synthesis, see PlayNote.
	Silence    uint32 // Bit pattern written when paused. Set from Format at open.
}

// DefaultProperties returns the properties used when a backend is opened with nil properties.
func DefaultProperties() Properties {
	p := Properties{}
	p.ApplyDefaults()

	return p
}

// ApplyDefaults fills zero fields with the package defaults and derives Silence from Format.
func (p *Properties) ApplyDefaults() {
	if p.Format == 0 {
		p.Format = FormatInt16
	}

	if p.Channels == 0 {
		p.Channels = DefaultChannels
	}

	if p.SampleRate == 0 {
		p.SampleRate = DefaultSampleRate
	}

	if p.Amplitude == 0 {
		p.Amplitude = DefaultAmplitude
	}

	p.Silence = p.Format.Silence()
}

// Validate checks that the properties describe a playable stream.
func (p *Properties) Validate() error {
	if !p.Format.Valid() {
		return Errorf(KindUnsupported, "", "properties", "unknown sample format %v", p.Format)
	}

	if p.Channels == 0 {
		return Errorf(KindUnsupported, "", "properties", "channel count must be at least 1")
	}

	if p.SampleRate == 0 {
		return Errorf(KindUnsupported, "", "properties", "sample rate must be positive")
	}

	return nil
}

// FrameSize returns the size of one frame in bytes.
// A frame contains one sample for each channel.
func (p *Properties) FrameSize() int {
	return p.Format.Width() * int(p.Channels)
}

// PeriodBytes returns the size in bytes of a buffer holding frames frames.
func (p *Properties) PeriodBytes(frames int) int {
	return frames * p.FrameSize()
}

// BytesToFrames converts a byte count to whole frames.
func (p *Properties) BytesToFrames(n int) int {
	fs := p.FrameSize()
	if fs == 0 {
		return 0
	}

	return n / fs
}

func (p Properties) String() string {
	return fmt.Sprintf("%s %dch %dHz", p.Format, p.Channels, p.SampleRate)
}

// FillSilence writes the silence pattern of format f into every sample slot of buf.
// A trailing partial sample is zeroed.
func FillSilence(buf []byte, f Format) {
	w := f.Width()
	if w == 0 {
		clear(buf)

		return
	}

	s := f.Silence()
	n := len(buf) / w * w
	for i := 0; i < n; i += w {
		switch w {
		case 1:
			buf[i] = byte(s)
		case 2:
			*(*uint16)(unsafe.Pointer(&buf[i])) = uint16(s)
		case 4:
			*(*uint32)(unsafe.Pointer(&buf[i])) = s
		}
	}

	clear(buf[n:])
}

// Int16Samples returns buf viewed as int16 samples. Writes go straight to buf.
func Int16Samples(buf []byte) []int16 {
	if len(buf) < 2 {
		return nil
	}

	return unsafe.Slice((*int16)(unsafe.Pointer(&buf[0])), len(buf)/2)
}

// Float32Samples returns buf viewed as float32 samples. Writes go straight to buf.
func Float32Samples(buf []byte) []float32 {
	if len(buf) < 4 {
		return nil
	}

	return unsafe.Slice((*float32)(unsafe.Pointer(&buf[0])), len(buf)/4)
}
