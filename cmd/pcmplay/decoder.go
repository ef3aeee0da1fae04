package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// AudioDecoder abstracts the file formats the player reads.
type AudioDecoder interface {
	// PCMBuffer reads decoded samples into buf and returns the number of
	// samples (not frames) read.
	PCMBuffer(buf *audio.IntBuffer) (n int, err error)
	NumChans() uint16
	SampleRate() uint32
	BitDepth() uint16
	IsFloat() bool
}

type wavDecoderWrapper struct {
	*wav.Decoder
}

func newWavDecoder(r io.ReadSeeker) (AudioDecoder, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	return &wavDecoderWrapper{Decoder: decoder}, nil
}

func (w *wavDecoderWrapper) SampleRate() uint32 { return w.Decoder.SampleRate }
func (w *wavDecoderWrapper) NumChans() uint16   { return w.Decoder.NumChans }
func (w *wavDecoderWrapper) BitDepth() uint16   { return w.Decoder.BitDepth }
func (w *wavDecoderWrapper) IsFloat() bool      { return w.Decoder.WavAudioFormat == 3 } // 3 == IEEE float

// mp3DecoderWrapper decodes MP3 to 16-bit stereo.
type mp3DecoderWrapper struct {
	decoder *mp3.Decoder
	raw     []byte
}

func newMp3Decoder(r io.Reader) (AudioDecoder, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	return &mp3DecoderWrapper{decoder: decoder}, nil
}

func (m *mp3DecoderWrapper) PCMBuffer(buf *audio.IntBuffer) (n int, err error) {
	if cap(m.raw) < len(buf.Data)*2 {
		m.raw = make([]byte, len(buf.Data)*2)
	}

	raw := m.raw[:len(buf.Data)*2]

	read, err := io.ReadFull(m.decoder, raw)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}

	n = read / 2
	for i := 0; i < n; i++ {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}

	return n, err
}

func (m *mp3DecoderWrapper) SampleRate() uint32 { return uint32(m.decoder.SampleRate()) }
func (m *mp3DecoderWrapper) NumChans() uint16   { return 2 }
func (m *mp3DecoderWrapper) BitDepth() uint16   { return 16 }
func (m *mp3DecoderWrapper) IsFloat() bool      { return false }

// decodeFile reads a whole WAV or MP3 file into a clip.
func decodeFile(path string) (*clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var dec AudioDecoder
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		dec, err = newMp3Decoder(f)
	} else {
		dec, err = newWavDecoder(f)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return decodeAll(dec)
}

// errNoFrames is returned for a stream that decodes to no whole frame.
var errNoFrames = errors.New("stream has no audio frames")

// decodeAll drains dec and converts the samples to floats in [-1, 1].
func decodeAll(dec AudioDecoder) (*clip, error) {
	channels := int(dec.NumChans())
	if channels == 0 || dec.SampleRate() == 0 {
		return nil, errors.New("stream has no channels or no sample rate")
	}

	convert, err := converter(dec.BitDepth(), dec.IsFloat())
	if err != nil {
		return nil, err
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate())},
		Data:   make([]int, 4096*channels),
	}

	var samples []float32
	for {
		n, err := dec.PCMBuffer(buf)
		for _, v := range buf.Data[:n] {
			samples = append(samples, convert(v))
		}

		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
	}

	// Drop a trailing partial frame.
	samples = samples[:len(samples)/channels*channels]
	if len(samples) == 0 {
		return nil, errNoFrames
	}

	return &clip{
		rate:     dec.SampleRate(),
		channels: uint32(channels),
		samples:  samples,
	}, nil
}

// converter returns the function that maps a decoded sample to [-1, 1].
func converter(bitDepth uint16, isFloat bool) (func(int) float32, error) {
	switch {
	case isFloat && bitDepth == 32:
		return func(v int) float32 { return math.Float32frombits(uint32(v)) }, nil
	case isFloat:
		return nil, fmt.Errorf("unsupported float bit depth: %d", bitDepth)
	case bitDepth == 8:
		// 8-bit WAV is unsigned.
		return func(v int) float32 { return float32(v-128) / 128 }, nil
	case bitDepth == 16, bitDepth == 24, bitDepth == 32:
		scale := float32(int64(1) << (bitDepth - 1))

		return func(v int) float32 { return float32(v) / scale }, nil
	default:
		return nil, fmt.Errorf("unsupported integer bit depth: %d", bitDepth)
	}
}
