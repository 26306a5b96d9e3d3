package voicematch

import (
	"context"

	"github.com/himanishpuri/voicematch/pkg/models"
	"github.com/himanishpuri/voicematch/pkg/voicematch/audio"
)

// Service compares the voices in two recordings.
//
// Compare and CompareURLs always return a complete result: on failure the
// result has Status "error", a caller-safe message and the error kind, and
// the returned error carries the classified cause.
type Service interface {
	Compare(ctx context.Context, a, b models.AudioBlob, threshold *float64) (models.ComparisonResult, error)
	CompareURLs(ctx context.Context, url1, url2 string, threshold *float64) (models.ComparisonResult, error)
	Inspect(ctx context.Context, blob models.AudioBlob) (audio.Metadata, error)
	Embed(ctx context.Context, blob models.AudioBlob) (models.Embedding, error)
	Warmup(ctx context.Context) error
	ModelLoaded() bool
	Backend() string
	Threshold() float64
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// MemorySampler reports the resident memory of the current process.
type MemorySampler interface {
	RSS() (uint64, error)
}

// Fetcher downloads a remote recording.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (models.AudioBlob, error)
}
