package voicematch

import (
	"time"

	"github.com/himanishpuri/voicematch/pkg/voicematch/audio"
	"github.com/himanishpuri/voicematch/pkg/voicematch/embedding"
	"github.com/himanishpuri/voicematch/pkg/voicematch/similarity"
)

type Config struct {
	Threshold      float64
	SampleRate     int
	MaxFileBytes   int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	SilenceFloor   float64
	TargetDBFS     float64
	VAD            bool
	Embedding      embedding.Config
	Provider       *embedding.Provider
	LoadHook       embedding.LoadHook
	Decoders       *audio.Registry
	Logger         Logger
	MemorySampler  MemorySampler
	Fetcher        Fetcher
	ProcessTimeout time.Duration
	FetchTimeout   time.Duration
}

type Option func(*Config)

// WithThreshold sets the default decision threshold.
func WithThreshold(t float64) Option {
	return func(c *Config) {
		c.Threshold = t
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

// WithMaxFileSize caps each payload; larger payloads are rejected before
// decoding.
func WithMaxFileSize(n int64) Option {
	return func(c *Config) {
		c.MaxFileBytes = n
	}
}

func WithMinDuration(d time.Duration) Option {
	return func(c *Config) {
		c.MinDuration = d
	}
}

func WithMaxDuration(d time.Duration) Option {
	return func(c *Config) {
		c.MaxDuration = d
	}
}

func WithSilenceFloor(floor float64) Option {
	return func(c *Config) {
		c.SilenceFloor = floor
	}
}

// WithTargetDBFS sets the volume normalization target. 0 disables it.
func WithTargetDBFS(dbfs float64) Option {
	return func(c *Config) {
		c.TargetDBFS = dbfs
	}
}

func WithVAD(enabled bool) Option {
	return func(c *Config) {
		c.VAD = enabled
	}
}

// WithBackend selects a registered embedding backend by name.
func WithBackend(name string) Option {
	return func(c *Config) {
		c.Embedding.Backend = name
	}
}

// WithONNX configures the onnx backend.
func WithONNX(modelPath, libraryPath, input, output string, dim int) Option {
	return func(c *Config) {
		c.Embedding.ONNXModelPath = modelPath
		c.Embedding.ONNXLibraryPath = libraryPath
		if input != "" {
			c.Embedding.ONNXInput = input
		}
		if output != "" {
			c.Embedding.ONNXOutput = output
		}
		if dim > 0 {
			c.Embedding.ONNXDim = dim
		}
	}
}

// WithProvider injects a ready embedding provider, overriding the backend
// options.
func WithProvider(p *embedding.Provider) Option {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithLoadHook observes model initialization attempts.
func WithLoadHook(h embedding.LoadHook) Option {
	return func(c *Config) {
		c.LoadHook = h
	}
}

func WithDecoders(r *audio.Registry) Option {
	return func(c *Config) {
		c.Decoders = r
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithMemorySampler(m MemorySampler) Option {
	return func(c *Config) {
		c.MemorySampler = m
	}
}

func WithFetcher(f Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

// WithProcessTimeout bounds one comparison. 0 means no bound.
func WithProcessTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ProcessTimeout = d
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.FetchTimeout = d
	}
}

func defaultConfig() *Config {
	norm := audio.DefaultOptions()
	return &Config{
		Threshold:      similarity.DefaultThreshold,
		SampleRate:     norm.SampleRate,
		MaxFileBytes:   norm.MaxFileBytes,
		MinDuration:    norm.MinDuration,
		MaxDuration:    norm.MaxDuration,
		SilenceFloor:   norm.SilenceFloor,
		TargetDBFS:     norm.TargetDBFS,
		VAD:            norm.VAD,
		Embedding:      embedding.DefaultConfig(),
		ProcessTimeout: 30 * time.Second,
		FetchTimeout:   30 * time.Second,
	}
}
