package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/himanishpuri/voicematch/pkg/voicematch"
	"github.com/himanishpuri/voicematch/pkg/voicematch/embedding"
	"github.com/himanishpuri/voicematch/pkg/voicematch/similarity"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":5001"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"90s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	Threshold    float64       `env:"VOICEMATCH_THRESHOLD" envDefault:"0.80"`
	SampleRate   int           `env:"VOICEMATCH_SAMPLE_RATE" envDefault:"16000"`
	MaxFileBytes int64         `env:"VOICEMATCH_MAX_FILE_BYTES" envDefault:"16777216"`
	MinDuration  time.Duration `env:"VOICEMATCH_MIN_DURATION" envDefault:"500ms"`
	MaxDuration  time.Duration `env:"VOICEMATCH_MAX_DURATION" envDefault:"5m"`
	SilenceFloor float64       `env:"VOICEMATCH_SILENCE_FLOOR" envDefault:"0.01"`
	TargetDBFS   float64       `env:"VOICEMATCH_TARGET_DBFS" envDefault:"-30"`
	VAD          bool          `env:"VOICEMATCH_VAD" envDefault:"true"`

	Backend     string `env:"VOICEMATCH_BACKEND" envDefault:"spectral"`
	ONNXModel   string `env:"VOICEMATCH_ONNX_MODEL"`
	ONNXLibrary string `env:"VOICEMATCH_ONNX_LIBRARY"`
	ONNXInput   string `env:"VOICEMATCH_ONNX_INPUT" envDefault:"x"`
	ONNXOutput  string `env:"VOICEMATCH_ONNX_OUTPUT" envDefault:"embedding"`
	ONNXDim     int    `env:"VOICEMATCH_ONNX_DIM" envDefault:"512"`

	ProcessTimeout time.Duration `env:"VOICEMATCH_PROCESS_TIMEOUT" envDefault:"30s"`
	FetchTimeout   time.Duration `env:"VOICEMATCH_FETCH_TIMEOUT" envDefault:"30s"`
	Preload        bool          `env:"VOICEMATCH_PRELOAD" envDefault:"false"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile  string
	HTTPAddr string
	LogLevel string
	Backend  string
	Preload  bool
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.Backend != "" {
		cfg.Backend = overrides.Backend
	}
	if overrides.Preload {
		cfg.Preload = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if !similarity.ValidThreshold(c.Threshold) {
		return fmt.Errorf("VOICEMATCH_THRESHOLD %v outside [-1, 1]", c.Threshold)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("VOICEMATCH_SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.MaxFileBytes <= 0 {
		return fmt.Errorf("VOICEMATCH_MAX_FILE_BYTES must be positive, got %d", c.MaxFileBytes)
	}
	if c.MinDuration >= c.MaxDuration {
		return fmt.Errorf("VOICEMATCH_MIN_DURATION %s must be below VOICEMATCH_MAX_DURATION %s", c.MinDuration, c.MaxDuration)
	}
	if _, err := embedding.Lookup(c.Backend); err != nil {
		return fmt.Errorf("VOICEMATCH_BACKEND: %w", err)
	}
	if c.Backend == embedding.BackendONNX && c.ONNXModel == "" {
		return fmt.Errorf("VOICEMATCH_ONNX_MODEL is required for the onnx backend")
	}
	return nil
}

// ServiceOptions translates the config into library options.
func (c *Config) ServiceOptions() []voicematch.Option {
	return []voicematch.Option{
		voicematch.WithThreshold(c.Threshold),
		voicematch.WithSampleRate(c.SampleRate),
		voicematch.WithMaxFileSize(c.MaxFileBytes),
		voicematch.WithMinDuration(c.MinDuration),
		voicematch.WithMaxDuration(c.MaxDuration),
		voicematch.WithSilenceFloor(c.SilenceFloor),
		voicematch.WithTargetDBFS(c.TargetDBFS),
		voicematch.WithVAD(c.VAD),
		voicematch.WithBackend(c.Backend),
		voicematch.WithONNX(c.ONNXModel, c.ONNXLibrary, c.ONNXInput, c.ONNXOutput, c.ONNXDim),
		voicematch.WithProcessTimeout(c.ProcessTimeout),
		voicematch.WithFetchTimeout(c.FetchTimeout),
	}
}
