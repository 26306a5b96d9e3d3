package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jfreymuth/oggvorbis"
)

// VorbisDecoder decodes Ogg Vorbis. Opus-in-Ogg is left to the ffmpeg
// fallback.
type VorbisDecoder struct{}

func (VorbisDecoder) Name() string { return "vorbis" }

func (VorbisDecoder) Decode(_ context.Context, data []byte) (PCM, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return PCM{}, fmt.Errorf("failed to decode ogg vorbis: %w", err)
	}
	if format == nil || len(samples) == 0 {
		return PCM{}, errors.New("ogg stream contains no vorbis audio")
	}
	return PCM{Samples: samples, SampleRate: format.SampleRate, Channels: format.Channels}, nil
}
