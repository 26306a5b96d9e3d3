//go:build !js

package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

func init() {
	nativeDecoders = append(nativeDecoders, nativeDecoder{FormatFLAC, FLACDecoder{}})
}

// FLACDecoder decodes FLAC streams with mewkiz/flac.
type FLACDecoder struct{}

func (FLACDecoder) Name() string { return "flac" }

func (FLACDecoder) Decode(ctx context.Context, data []byte) (PCM, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return PCM{}, fmt.Errorf("failed to open flac stream: %w", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	bits := int(stream.Info.BitsPerSample)
	if channels == 0 || bits == 0 || bits > 32 {
		return PCM{}, fmt.Errorf("invalid stream info: %d channels, %d bits", channels, bits)
	}
	scale := float32(int64(1) << (bits - 1))

	var samples []float32
	if n := stream.Info.NSamples; n > 0 {
		samples = make([]float32, 0, int(n)*channels)
	}

	for {
		if err := ctx.Err(); err != nil {
			return PCM{}, err
		}
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return PCM{}, fmt.Errorf("failed to parse flac frame: %w", err)
		}
		if len(frame.Subframes) != channels {
			return PCM{}, fmt.Errorf("frame has %d subframes, want %d", len(frame.Subframes), channels)
		}
		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, float32(frame.Subframes[ch].Samples[i])/scale)
			}
		}
	}
	if len(samples) == 0 {
		return PCM{}, errors.New("flac stream contains no audio frames")
	}

	return PCM{Samples: samples, SampleRate: int(stream.Info.SampleRate), Channels: channels}, nil
}
