package audio

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/voicematch/pkg/models"
)

// Options bounds and tunes normalization.
type Options struct {
	SampleRate   int           // Output rate in Hz
	MaxFileBytes int64         // Payload cap checked before decode; 0 disables
	MinDuration  time.Duration // Shortest usable waveform after trimming
	MaxDuration  time.Duration // Longest accepted native duration; 0 disables
	SilenceFloor float64       // Amplitude below which edges are trimmed
	TargetDBFS   float64       // Volume normalization target; 0 disables
	VAD          bool          // Cut long unvoiced stretches when available
	Decoders     *Registry     // Nil means DefaultRegistry
}

func DefaultOptions() Options {
	return Options{
		SampleRate:   16000,
		MaxFileBytes: 16 << 20,
		MinDuration:  500 * time.Millisecond,
		MaxDuration:  5 * time.Minute,
		SilenceFloor: 0.01,
		TargetDBFS:   -30,
		VAD:          true,
	}
}

// Normalizer turns arbitrary audio payloads into canonical waveforms:
// mono, fixed rate, silence trimmed, volume normalized, duration bounded.
// It is safe for concurrent use.
type Normalizer struct {
	opts Options
}

func NewNormalizer(opts Options) *Normalizer {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultOptions().SampleRate
	}
	if opts.Decoders == nil {
		opts.Decoders = DefaultRegistry(opts.SampleRate)
	}
	return &Normalizer{opts: opts}
}

// Options returns the effective options.
func (n *Normalizer) Options() Options {
	return n.opts
}

// Normalize decodes blob and returns its canonical waveform.
func (n *Normalizer) Normalize(ctx context.Context, blob models.AudioBlob) (models.Waveform, error) {
	w, _, err := n.run(ctx, blob)
	return w, err
}

// Inspect runs the same pipeline as Normalize and reports what each stage
// saw. On failure the metadata is filled in as far as the pipeline got.
func (n *Normalizer) Inspect(ctx context.Context, blob models.AudioBlob) (Metadata, error) {
	_, meta, err := n.run(ctx, blob)
	return meta, err
}

func (n *Normalizer) run(ctx context.Context, blob models.AudioBlob) (models.Waveform, Metadata, error) {
	meta := Metadata{Filename: blob.Filename, SizeBytes: blob.Size()}

	if blob.Size() == 0 {
		return models.Waveform{}, meta, models.Errorf(models.KindInvalidInput, "normalize", "audio payload is empty")
	}
	if limit := n.opts.MaxFileBytes; limit > 0 && blob.Size() > limit {
		return models.Waveform{}, meta, models.Errorf(models.KindPayloadTooLarge, "normalize",
			"audio file is %s, limit is %s", humanize.IBytes(uint64(blob.Size())), humanize.IBytes(uint64(limit)))
	}

	format, err := ResolveFormat(blob)
	if err != nil {
		return models.Waveform{}, meta, err
	}
	meta.Format = format

	pcm, decoder, err := n.opts.Decoders.Decode(ctx, format, blob.Data)
	if err != nil {
		return models.Waveform{}, meta, err
	}
	meta.Decoder = decoder

	w, err := n.finish(ctx, pcm, &meta)
	return w, meta, err
}

// FromPCM runs the post-decode stages on already decoded audio.
func (n *Normalizer) FromPCM(ctx context.Context, pcm PCM) (models.Waveform, Metadata, error) {
	meta := Metadata{Decoder: "pcm"}
	if err := pcm.validate(); err != nil {
		return models.Waveform{}, meta, models.Wrap(models.KindInvalidInput, "normalize", "invalid PCM input", err)
	}
	w, err := n.finish(ctx, pcm, &meta)
	return w, meta, err
}

func (n *Normalizer) finish(ctx context.Context, pcm PCM, meta *Metadata) (models.Waveform, error) {
	const op = "normalize"

	meta.NativeSampleRate = pcm.SampleRate
	meta.NativeChannels = pcm.Channels
	meta.NativeDuration = pcm.Duration()

	if limit := n.opts.MaxDuration; limit > 0 && meta.NativeDuration > limit {
		return models.Waveform{}, models.Errorf(models.KindAudioTooLong, op,
			"audio is %s long, limit is %s", meta.NativeDuration.Round(time.Millisecond), limit)
	}

	mono := Downmix(pcm.Samples, pcm.Channels)
	resampled, err := Resample(mono, pcm.SampleRate, n.opts.SampleRate)
	if err != nil {
		return models.Waveform{}, models.Wrap(models.KindInternal, op, "resampling failed", err)
	}
	if err := ctx.Err(); err != nil {
		return models.Waveform{}, err
	}

	// Gain runs before trimming so quiet recordings are lifted above the
	// silence floor instead of being discarded.
	gained := append([]float32(nil), resampled...)
	if n.opts.TargetDBFS < 0 {
		NormalizeVolume(gained, n.opts.TargetDBFS)
	}

	trimmed := TrimSilence(gained, n.opts.SilenceFloor)
	if len(trimmed) == 0 {
		return models.Waveform{}, models.Errorf(models.KindDegenerateEmbedding, op,
			"audio contains no signal above the silence floor")
	}

	if n.opts.VAD && VADAvailable {
		voiced, err := TrimLongSilences(trimmed, n.opts.SampleRate)
		if err != nil {
			return models.Waveform{}, models.Wrap(models.KindInternal, op, "voice activity detection failed", err)
		}
		trimmed = voiced
		meta.VAD = true
	}

	// Compact copy owned by the waveform.
	trimmed = append([]float32(nil), trimmed...)

	w := models.NewWaveform(trimmed, n.opts.SampleRate)
	meta.Duration = w.Duration()
	meta.Trimmed = time.Duration(float64(len(resampled)-len(trimmed)) / float64(n.opts.SampleRate) * float64(time.Second))
	meta.RMSDBFS = dbfs(RMS(trimmed))

	if w.Duration() < n.opts.MinDuration {
		return models.Waveform{}, models.Errorf(models.KindAudioTooShort, op,
			"audio has %s of usable signal, need at least %s", w.Duration().Round(time.Millisecond), n.opts.MinDuration)
	}
	return w, nil
}
