package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MPEG-1/2 layer III with go-mp3. The decoder always
// produces 16-bit little-endian stereo.
type MP3Decoder struct{}

func (MP3Decoder) Name() string { return "mp3" }

func (MP3Decoder) Decode(ctx context.Context, data []byte) (PCM, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return PCM{}, fmt.Errorf("failed to open mp3 stream: %w", err)
	}

	var samples []float32
	if n := dec.Length(); n > 0 {
		samples = make([]float32, 0, n/2)
	}

	chunk := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return PCM{}, err
		}
		n, err := dec.Read(chunk)
		n -= n % 2
		for i := 0; i < n; i += 2 {
			s := int16(binary.LittleEndian.Uint16(chunk[i:]))
			samples = append(samples, float32(s)/32768)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return PCM{}, fmt.Errorf("failed to decode mp3 frame: %w", err)
		}
	}
	if len(samples) == 0 {
		return PCM{}, errors.New("mp3 stream contains no audio frames")
	}

	// Drop a trailing half frame if the stream was cut mid-sample.
	samples = samples[:len(samples)-len(samples)%2]

	return PCM{Samples: samples, SampleRate: dec.SampleRate(), Channels: 2}, nil
}
