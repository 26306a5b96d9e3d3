package models

import (
	"math"
	"path/filepath"
	"strings"
	"time"
)

// AudioBlob is one uploaded recording: raw container bytes plus whatever
// the caller knows about its format.
type AudioBlob struct {
	Data     []byte // Raw container bytes
	Filename string // Original filename, used for the extension hint
	MIMEType string // Declared content type, may be empty
}

// Hint returns the declared format hint, preferring the file extension
// over the MIME type.
func (b AudioBlob) Hint() string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(b.Filename)), "."); ext != "" {
		return ext
	}
	return strings.ToLower(strings.TrimSpace(b.MIMEType))
}

// Size returns the payload size in bytes.
func (b AudioBlob) Size() int64 {
	return int64(len(b.Data))
}

// Waveform is a normalized mono recording at a fixed sample rate.
// It is built once by the normalizer and never modified afterwards.
type Waveform struct {
	samples    []float32
	sampleRate int
}

// NewWaveform wraps samples in a Waveform. The waveform takes ownership
// of the slice; callers must not modify it afterwards.
func NewWaveform(samples []float32, sampleRate int) Waveform {
	return Waveform{samples: samples, sampleRate: sampleRate}
}

// Samples returns the sample data. The returned slice is shared and must
// be treated as read-only.
func (w Waveform) Samples() []float32 { return w.samples }

// SampleRate returns the sample rate in Hz.
func (w Waveform) SampleRate() int { return w.sampleRate }

// Channels is always 1.
func (w Waveform) Channels() int { return 1 }

// Len returns the number of samples.
func (w Waveform) Len() int { return len(w.samples) }

// Duration returns the playback length.
func (w Waveform) Duration() time.Duration {
	if w.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.samples)) / float64(w.sampleRate) * float64(time.Second))
}

// Embedding is a fixed-length speaker embedding vector.
type Embedding []float32

// Dim returns the vector dimension.
func (e Embedding) Dim() int { return len(e) }

// Norm returns the Euclidean norm.
func (e Embedding) Norm() float64 {
	var sum float64
	for _, v := range e {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Degenerate reports whether the vector is empty, has zero norm or
// contains non-finite components.
func (e Embedding) Degenerate() bool {
	if len(e) == 0 {
		return true
	}
	for _, v := range e {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return true
		}
	}
	return e.Norm() == 0
}

// Conclusion is the human-readable verdict of a comparison.
type Conclusion string

const (
	SamePerson      Conclusion = "SAME PERSON"
	DifferentPeople Conclusion = "DIFFERENT PEOPLE"
)

// Status reports whether a comparison completed.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ComparisonResult is the record returned for every comparison request,
// successful or not. On failure only Status, Error, ErrorKind, Threshold
// and the instrumentation fields are meaningful.
type ComparisonResult struct {
	RequestID            string     `json:"request_id,omitempty"`
	SimilarityScore      float64    `json:"similarity_score"`
	IsSamePerson         bool       `json:"is_same_person"`
	Conclusion           Conclusion `json:"conclusion,omitempty"`
	Threshold            float64    `json:"threshold"`
	Backend              string     `json:"backend,omitempty"`
	ExecutionTimeSeconds float64    `json:"execution_time_seconds"`
	MemoryUsageMB        float64    `json:"memory_usage_mb"`
	MemoryUnavailable    bool       `json:"memory_unavailable,omitempty"`
	Status               Status     `json:"status"`
	Error                string     `json:"error,omitempty"`
	ErrorKind            Kind       `json:"error_kind,omitempty"`
}

// Succeeded reports whether the comparison completed.
func (r ComparisonResult) Succeeded() bool {
	return r.Status == StatusSuccess
}
