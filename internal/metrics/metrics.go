package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/himanishpuri/voicematch/pkg/models"
	"github.com/himanishpuri/voicematch/pkg/voicematch/embedding"
)

const namespace = "voicematch"

// HTTP metrics, incremented by middleware.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed.",
	}, []string{"method", "path_pattern", "status_code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path_pattern"})
)

// Pipeline metrics.
var (
	ComparisonsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "comparisons_total",
		Help:      "Comparisons by outcome and error kind.",
	}, []string{"status", "kind"})

	ComparisonDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "comparison_duration_seconds",
		Help:      "Wall time of one comparison, decode to score.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	SameSpeakerTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "same_speaker_decisions_total",
		Help:      "Successful comparisons that concluded SAME PERSON.",
	})

	ModelLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_loads_total",
		Help:      "Embedding model initialization attempts.",
	}, []string{"backend", "result"})

	ModelLoadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "model_load_duration_seconds",
		Help:      "Time spent initializing the embedding model.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"backend"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ComparisonsTotal,
		ComparisonDuration,
		SameSpeakerTotal,
		ModelLoadsTotal,
		ModelLoadDuration,
	)
}

// ObserveComparison records one finished comparison.
func ObserveComparison(res models.ComparisonResult) {
	ComparisonsTotal.WithLabelValues(string(res.Status), string(res.ErrorKind)).Inc()
	ComparisonDuration.Observe(res.ExecutionTimeSeconds)
	if res.Succeeded() && res.IsSamePerson {
		SameSpeakerTotal.Inc()
	}
}

// ModelLoadHook returns a hook for embedding.Provider.OnLoad.
func ModelLoadHook() embedding.LoadHook {
	return func(backend string, took time.Duration, err error) {
		result := "success"
		if err != nil {
			result = "error"
		}
		ModelLoadsTotal.WithLabelValues(backend, result).Inc()
		ModelLoadDuration.WithLabelValues(backend).Observe(took.Seconds())
	}
}

// InstrumentHandler returns middleware that records HTTP request metrics.
// It uses chi's route pattern as the path label to avoid cardinality explosion.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(sw, r)

		pattern := "unknown"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			pattern = rc.RoutePattern()
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(sw.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
