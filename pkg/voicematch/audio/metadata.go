package audio

import (
	"math"
	"time"
)

// Metadata describes one payload as seen by the normalizer.
type Metadata struct {
	Filename         string
	SizeBytes        int64
	Format           Format
	Decoder          string
	NativeSampleRate int
	NativeChannels   int
	NativeDuration   time.Duration
	Duration         time.Duration // after trimming
	Trimmed          time.Duration
	RMSDBFS          float64
	VAD              bool
}

func dbfs(rms float64) float64 {
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}
