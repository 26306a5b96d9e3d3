package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/himanishpuri/voicematch/pkg/models"
)

// PCM is audio straight out of a container: interleaved float samples in
// [-1, 1] at the file's native rate and channel count.
type PCM struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames.
func (p PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Duration returns the native playback length.
func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(p.Frames()) / float64(p.SampleRate) * float64(time.Second))
}

func (p PCM) validate() error {
	switch {
	case p.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate %d", p.SampleRate)
	case p.Channels <= 0:
		return fmt.Errorf("invalid channel count %d", p.Channels)
	case len(p.Samples)%p.Channels != 0:
		return fmt.Errorf("%d samples do not divide into %d channels", len(p.Samples), p.Channels)
	}
	return nil
}

// Decoder turns container bytes into PCM. Implementations must not retain
// data after returning.
type Decoder interface {
	Name() string
	Decode(ctx context.Context, data []byte) (PCM, error)
}

// Registry maps formats to an ordered list of decoders. The first decoder
// that succeeds wins.
type Registry struct {
	decoders map[Format][]Decoder
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[Format][]Decoder)}
}

// Register appends d to the decoders tried for f.
func (r *Registry) Register(f Format, d Decoder) {
	r.decoders[f] = append(r.decoders[f], d)
}

// Lookup returns the decoders registered for f.
func (r *Registry) Lookup(f Format) []Decoder {
	return r.decoders[f]
}

type nativeDecoder struct {
	format  Format
	decoder Decoder
}

// nativeDecoders lists the pure Go decoders compiled into this build.
// Platform-specific files append to it from init.
var nativeDecoders = []nativeDecoder{
	{FormatWAV, WAVDecoder{}},
	{FormatMP3, MP3Decoder{}},
	{FormatOGG, VorbisDecoder{}},
}

// DefaultRegistry wires the native Go decoders and, when an ffmpeg binary
// is on PATH, the ffmpeg fallback for containers without a native decoder.
// sampleRate is the rate ffmpeg resamples to.
func DefaultRegistry(sampleRate int) *Registry {
	r := NewRegistry()
	for _, nd := range nativeDecoders {
		r.Register(nd.format, nd.decoder)
	}

	if ff, ok := LookupFFmpeg(); ok {
		ff.SampleRate = sampleRate
		for _, f := range SupportedFormats {
			r.Register(f, ff)
		}
	}
	return r
}

// Decode runs the decoders registered for f in order and returns the PCM
// of the first one that succeeds together with its name.
func (r *Registry) Decode(ctx context.Context, f Format, data []byte) (PCM, string, error) {
	const op = "decode"

	decoders := r.Lookup(f)
	if len(decoders) == 0 {
		return PCM{}, "", models.Errorf(models.KindDecode, op,
			"no decoder available for %s audio (ffmpeg not installed?)", f)
	}

	var errs []error
	for _, d := range decoders {
		if err := ctx.Err(); err != nil {
			return PCM{}, "", err
		}
		pcm, err := safeDecode(ctx, d, data)
		if err == nil {
			err = pcm.validate()
		}
		if err == nil {
			return pcm, d.Name(), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return PCM{}, "", ctxErr
		}
		errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
	}
	return PCM{}, "", models.Wrap(models.KindDecode, op,
		fmt.Sprintf("could not decode %s audio", f), errors.Join(errs...))
}

// safeDecode turns a decoder panic on malformed input into an error.
func safeDecode(ctx context.Context, d Decoder, data []byte) (pcm PCM, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return d.Decode(ctx, data)
}
