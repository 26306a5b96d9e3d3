package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVE format tags.
const (
	wavFormatPCM        = 0x0001
	wavFormatFloat      = 0x0003
	wavFormatExtensible = 0xFFFE
)

// WAVDecoder decodes integer PCM and 32-bit IEEE float WAV files with
// go-audio/wav. Other encodings fail so the registry can fall back.
type WAVDecoder struct{}

func (WAVDecoder) Name() string { return "wav" }

func (WAVDecoder) Decode(_ context.Context, data []byte) (PCM, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return PCM{}, errors.New("invalid WAV file")
	}

	format := d.WavAudioFormat
	if format == wavFormatExtensible {
		sub, ok := extensibleSubFormat(data)
		if !ok {
			return PCM{}, errors.New("WAVE_FORMAT_EXTENSIBLE without a readable sub-format")
		}
		format = sub
	}
	bitDepth := int(d.BitDepth)
	switch {
	case format == wavFormatPCM && bitDepth > 0 && bitDepth <= 32:
	case format == wavFormatFloat && bitDepth == 32:
	default:
		return PCM{}, fmt.Errorf("unsupported WAV encoding: format 0x%04x, %d bits", format, bitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("failed to read PCM data: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return PCM{}, errors.New("WAV file has no format chunk")
	}

	samples := make([]float32, len(buf.Data))
	switch {
	case format == wavFormatFloat:
		// go-audio hands back the raw 32-bit words.
		for i, s := range buf.Data {
			v := math.Float32frombits(uint32(int32(s)))
			if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
				return PCM{}, fmt.Errorf("float sample %d is not finite", i)
			}
			samples[i] = v
		}
	case bitDepth == 8:
		// 8-bit WAV is unsigned.
		for i, s := range buf.Data {
			samples[i] = float32(s-128) / 128
		}
	default:
		scale := float32(int64(1) << (bitDepth - 1))
		for i, s := range buf.Data {
			samples[i] = float32(s) / scale
		}
	}

	return PCM{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

// extensibleSubFormat reads the format tag held in the first two bytes of
// the sub-format GUID of a WAVE_FORMAT_EXTENSIBLE fmt chunk.
func extensibleSubFormat(data []byte) (uint16, bool) {
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, false
	}
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if id == "fmt " {
			if size < 26 || body+26 > len(data) {
				return 0, false
			}
			return binary.LittleEndian.Uint16(data[body+24 : body+26]), true
		}
		off = body + size + size%2
	}
	return 0, false
}

// EncodeFloatWAV encodes interleaved samples as a 32-bit IEEE float WAV.
func EncodeFloatWAV(samples []float32, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid format %d Hz x %d", sampleRate, channels)
	}
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(int32(math.Float32bits(s)))
	}

	var out memFile
	enc := wav.NewEncoder(&out, sampleRate, 32, channels, wavFormatFloat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 32,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode WAV: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finish WAV: %w", err)
	}
	return out.buf, nil
}

// memFile is an in-memory io.WriteSeeker for the WAV encoder, which
// patches chunk sizes after writing the samples.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(m.pos)
	case io.SeekEnd:
		base = int64(len(m.buf))
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	pos := base + offset
	if pos < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = int(pos)
	return pos, nil
}
