package voicematch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/himanishpuri/voicematch/pkg/logger"
	"github.com/himanishpuri/voicematch/pkg/models"
	"github.com/himanishpuri/voicematch/pkg/utils"
	"github.com/himanishpuri/voicematch/pkg/voicematch/audio"
	"github.com/himanishpuri/voicematch/pkg/voicematch/embedding"
	"github.com/himanishpuri/voicematch/pkg/voicematch/similarity"
)

// voiceService is the default implementation of the Service interface.
type voiceService struct {
	config     *Config
	log        Logger
	normalizer *audio.Normalizer
	provider   *embedding.Provider
	fetcher    Fetcher
	memory     MemorySampler
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if !similarity.ValidThreshold(cfg.Threshold) {
		return nil, fmt.Errorf("threshold %v outside [-1, 1]", cfg.Threshold)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", cfg.SampleRate)
	}
	if cfg.MaxDuration > 0 && cfg.MinDuration >= cfg.MaxDuration {
		return nil, fmt.Errorf("min duration %s must be below max duration %s", cfg.MinDuration, cfg.MaxDuration)
	}

	// Set default logger if none provided
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().With("voicematch")
	}
	if cfg.MemorySampler == nil {
		cfg.MemorySampler = NewProcessMemorySampler()
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = NewHTTPFetcher(cfg.MaxFileBytes, cfg.FetchTimeout)
	}

	provider := cfg.Provider
	if provider == nil {
		cfg.Embedding.SampleRate = cfg.SampleRate
		p, err := embedding.NewProvider(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding provider: %w", err)
		}
		provider = p
	}
	if provider.SampleRate() != cfg.SampleRate {
		return nil, fmt.Errorf("provider expects %d Hz, pipeline produces %d Hz", provider.SampleRate(), cfg.SampleRate)
	}
	if cfg.LoadHook != nil {
		provider.OnLoad(cfg.LoadHook)
	}

	normalizer := audio.NewNormalizer(audio.Options{
		SampleRate:   cfg.SampleRate,
		MaxFileBytes: cfg.MaxFileBytes,
		MinDuration:  cfg.MinDuration,
		MaxDuration:  cfg.MaxDuration,
		SilenceFloor: cfg.SilenceFloor,
		TargetDBFS:   cfg.TargetDBFS,
		VAD:          cfg.VAD,
		Decoders:     cfg.Decoders,
	})

	return &voiceService{
		config:     cfg,
		log:        cfg.Logger,
		normalizer: normalizer,
		provider:   provider,
		fetcher:    cfg.Fetcher,
		memory:     cfg.MemorySampler,
	}, nil
}

func (s *voiceService) Backend() string { return s.provider.Backend() }

func (s *voiceService) Threshold() float64 { return s.config.Threshold }

func (s *voiceService) ModelLoaded() bool { return s.provider.Loaded() }

// Warmup loads the embedding model ahead of the first request.
func (s *voiceService) Warmup(ctx context.Context) error {
	if err := s.provider.Load(ctx); err != nil {
		s.log.Errorf("Model warmup failed (will retry on first request): %v", err)
		return err
	}
	s.log.Infof("Embedding model %q loaded (dim=%d)", s.provider.Backend(), s.provider.Dimension())
	return nil
}

// Compare runs RECEIVED → VALIDATED → NORMALIZED → EMBEDDED → SCORED for
// two payloads. Any stage failure short-circuits to an error result.
func (s *voiceService) Compare(ctx context.Context, a, b models.AudioBlob, threshold *float64) (models.ComparisonResult, error) {
	m := startMeasurement(s.memory)
	reqID := s.requestID(ctx)

	t := s.config.Threshold
	if threshold != nil {
		t = *threshold
	}
	if !similarity.ValidThreshold(t) {
		err := models.Errorf(models.KindInvalidInput, "compare", "threshold must be between -1 and 1")
		return s.fail(m, reqID, t, err), err
	}

	score, err := runBounded(ctx, s.config.ProcessTimeout, s.log, func(ctx context.Context) (float64, error) {
		return s.pipeline(ctx, a, b)
	})
	if err != nil {
		return s.fail(m, reqID, t, err), err
	}
	return s.succeed(m, reqID, t, score), nil
}

// CompareURLs downloads both recordings and compares them. Download time
// counts towards the reported execution time.
func (s *voiceService) CompareURLs(ctx context.Context, url1, url2 string, threshold *float64) (models.ComparisonResult, error) {
	m := startMeasurement(s.memory)
	reqID := s.requestID(ctx)
	ctx = ContextWithRequestID(ctx, reqID)

	t := s.config.Threshold
	if threshold != nil {
		t = *threshold
	}

	var blobs [2]models.AudioBlob
	for i, u := range []string{url1, url2} {
		s.log.Debugf("[%s] downloading audio%d from %s", reqID, i+1, u)
		blob, err := s.fetcher.Fetch(ctx, u)
		if err != nil {
			err = labelled(fmt.Sprintf("audio%d", i+1), err)
			return s.fail(m, reqID, t, err), err
		}
		blobs[i] = blob
	}

	res, err := s.Compare(ctx, blobs[0], blobs[1], threshold)
	seconds, mb, unavailable := m.stop()
	res.ExecutionTimeSeconds, res.MemoryUsageMB, res.MemoryUnavailable = seconds, mb, unavailable
	return res, err
}

// Inspect reports what the normalizer sees in blob.
func (s *voiceService) Inspect(ctx context.Context, blob models.AudioBlob) (audio.Metadata, error) {
	return s.normalizer.Inspect(ctx, blob)
}

// Embed normalizes blob and returns its embedding.
func (s *voiceService) Embed(ctx context.Context, blob models.AudioBlob) (models.Embedding, error) {
	return runBounded(ctx, s.config.ProcessTimeout, s.log, func(ctx context.Context) (models.Embedding, error) {
		w, err := s.normalizer.Normalize(ctx, blob)
		if err != nil {
			return nil, err
		}
		vec, err := s.provider.Embed(ctx, w)
		if err != nil {
			return nil, err
		}
		if vec.Degenerate() {
			return nil, models.Errorf(models.KindDegenerateEmbedding, "embed",
				"audio produced an empty voice embedding (silent or too little speech)")
		}
		return vec, nil
	})
}

func (s *voiceService) Close() error {
	return s.provider.Close()
}

func (s *voiceService) pipeline(ctx context.Context, a, b models.AudioBlob) (float64, error) {
	// VALIDATED
	for i, blob := range []models.AudioBlob{a, b} {
		if blob.Size() == 0 {
			return 0, models.Errorf(models.KindInvalidInput, "compare", "audio%d: no audio provided", i+1)
		}
	}

	// NORMALIZED
	wa, err := s.normalizer.Normalize(ctx, a)
	if err != nil {
		return 0, labelled("audio1", err)
	}
	wb, err := s.normalizer.Normalize(ctx, b)
	if err != nil {
		return 0, labelled("audio2", err)
	}
	s.log.Debugf("Normalized audio1=%s audio2=%s", wa.Duration(), wb.Duration())

	// EMBEDDED
	ea, err := s.provider.Embed(ctx, wa)
	if err != nil {
		return 0, labelled("audio1", err)
	}
	eb, err := s.provider.Embed(ctx, wb)
	if err != nil {
		return 0, labelled("audio2", err)
	}

	// SCORED
	for i, e := range []models.Embedding{ea, eb} {
		if e.Degenerate() {
			return 0, models.Errorf(models.KindDegenerateEmbedding, "score",
				"audio%d: audio produced an empty voice embedding (silent or too little speech)", i+1)
		}
	}
	return similarity.Cosine(ea, eb)
}

// runBounded runs fn under timeout and turns panics into internal errors.
// When the deadline passes first it returns at once; fn finishes in the
// background on bounded input.
func runBounded[T any](ctx context.Context, timeout time.Duration, log Logger, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("panic in comparison pipeline: %v\n%s", r, debug.Stack())
				o.err = models.Errorf(models.KindInternal, "compare", "unexpected failure")
			}
			done <- o
		}()
		o.v, o.err = fn(ctx)
	}()

	select {
	case o := <-done:
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		return zero, models.ContextError("compare", "processing exceeded the time limit", ctx.Err())
	}
}

func (s *voiceService) requestID(ctx context.Context) string {
	return utils.NewRequestID(RequestIDFromContext(ctx))
}

func (s *voiceService) succeed(m *measurement, reqID string, threshold, score float64) models.ComparisonResult {
	same, conclusion := similarity.Classify(score, threshold)
	seconds, mb, unavailable := m.stop()

	s.log.Infof("[%s] compared voices: score=%.4f threshold=%.2f decision=%s time=%.3fs",
		reqID, score, threshold, conclusion, seconds)

	return models.ComparisonResult{
		RequestID:            reqID,
		SimilarityScore:      score,
		IsSamePerson:         same,
		Conclusion:           conclusion,
		Threshold:            threshold,
		Backend:              s.provider.Backend(),
		ExecutionTimeSeconds: seconds,
		MemoryUsageMB:        mb,
		MemoryUnavailable:    unavailable,
		Status:               models.StatusSuccess,
	}
}

func (s *voiceService) fail(m *measurement, reqID string, threshold float64, err error) models.ComparisonResult {
	kind := models.KindOf(err)
	seconds, mb, unavailable := m.stop()

	switch {
	case kind == models.KindEmbedding:
		s.log.Errorf("[%s] invariant violated: %v", reqID, err)
	case kind.Internal():
		s.log.Errorf("[%s] comparison failed (%s): %v", reqID, kind, err)
	default:
		s.log.Warnf("[%s] comparison rejected (%s): %v", reqID, kind, err)
	}

	return models.ComparisonResult{
		RequestID:            reqID,
		Threshold:            threshold,
		Backend:              s.provider.Backend(),
		ExecutionTimeSeconds: seconds,
		MemoryUsageMB:        mb,
		MemoryUnavailable:    unavailable,
		Status:               models.StatusError,
		Error:                models.PublicMessage(err),
		ErrorKind:            kind,
	}
}

// labelled prefixes the caller-facing message of a classified error with
// the input it concerns.
func labelled(label string, err error) error {
	var e *models.Error
	if !errors.As(err, &e) {
		return err
	}
	c := *e
	c.Msg = label + ": " + e.Msg
	return &c
}
