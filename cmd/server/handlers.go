package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"

	"github.com/himanishpuri/voicematch/internal/config"
	"github.com/himanishpuri/voicematch/internal/metrics"
	"github.com/himanishpuri/voicematch/pkg/models"
	"github.com/himanishpuri/voicematch/pkg/voicematch"
	"github.com/himanishpuri/voicematch/pkg/voicematch/audio"
)

// retryAfterSeconds is advertised on failures that may clear on their own,
// such as a model that failed to load or an overloaded pipeline.
const retryAfterSeconds = 5

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service  voicematch.Service
	config   *config.Config
	log      voicematch.Logger
	validate *validator.Validate
	http     *http.Server
}

// NewServer creates a new server instance
func NewServer(service voicematch.Service, cfg *config.Config, log voicematch.Logger) *Server {
	return &Server{
		service:  service,
		config:   cfg,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondResult writes a comparison result with the status its kind maps to.
func (s *Server) respondResult(w http.ResponseWriter, res models.ComparisonResult) {
	metrics.ObserveComparison(res)
	if res.ErrorKind.Retryable() {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	s.respondJSON(w, statusForKind(res.ErrorKind), res)
}

// rejected builds the result for a request refused before comparison.
func (s *Server) rejected(r *http.Request, kind models.Kind, msg string) models.ComparisonResult {
	return models.ComparisonResult{
		RequestID: voicematch.RequestIDFromContext(r.Context()),
		Threshold: s.service.Threshold(),
		Backend:   s.service.Backend(),
		Status:    models.StatusError,
		Error:     msg,
		ErrorKind: kind,
	}
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	formats := make([]string, len(audio.SupportedFormats))
	for i, f := range audio.SupportedFormats {
		formats[i] = string(f)
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service":     "VoiceMatch API",
		"version":     "1.0.0",
		"description": "Compares two voice recordings and decides whether they come from the same speaker.",
		"endpoints": map[string]string{
			"GET /":                    "This documentation",
			"GET /health":              "Health check",
			"GET /metrics":             "Prometheus metrics",
			"POST /compare_voices":     "Compare two uploaded recordings (multipart: audio1, audio2, optional threshold)",
			"POST /compare_voices/url": "Compare two recordings by URL (JSON: audio1_url, audio2_url, optional threshold)",
		},
		"usage": map[string]any{
			"supported_formats": formats,
			"max_file_size":     humanize.IBytes(uint64(s.config.MaxFileBytes)),
			"default_threshold": s.service.Threshold(),
			"threshold_range":   "-1.0 to 1.0",
			"example":           "curl -X POST -F audio1=@a.wav -F audio2=@b.wav http://localhost:5001/compare_voices",
		},
		"response_fields": map[string]string{
			"similarity_score":       "Cosine similarity of the two voice embeddings, -1.0 to 1.0",
			"is_same_person":         "True when similarity_score >= threshold",
			"conclusion":             "SAME PERSON or DIFFERENT PEOPLE",
			"threshold":              "Threshold used for the decision",
			"execution_time_seconds": "Processing time",
			"memory_usage_mb":        "Process resident memory",
			"status":                 "success or error",
			"error":                  "Failure description, present when status is error",
			"error_kind":             "Machine-readable failure class",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		Message:     "Voice similarity API is running",
		ModelLoaded: s.service.ModelLoaded(),
		Backend:     s.service.Backend(),
	})
}

// handleCompare handles POST /compare_voices (multipart upload)
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	limit := 2*s.config.MaxFileBytes + 1<<20
	if r.ContentLength > limit {
		s.respondResult(w, s.rejected(r, models.KindPayloadTooLarge,
			fmt.Sprintf("request exceeds %s", humanize.IBytes(uint64(limit)))))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(s.config.MaxFileBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondResult(w, s.rejected(r, models.KindPayloadTooLarge,
				fmt.Sprintf("request exceeds %s", humanize.IBytes(uint64(tooLarge.Limit)))))
			return
		}
		s.respondResult(w, s.rejected(r, models.KindInvalidInput, "expected multipart form data with audio1 and audio2"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	threshold, err := parseThreshold(r.FormValue("threshold"))
	if err != nil {
		s.respondResult(w, s.rejected(r, models.KindInvalidInput, err.Error()))
		return
	}

	var blobs [2]models.AudioBlob
	for i, field := range []string{"audio1", "audio2"} {
		file, header, err := r.FormFile(field)
		if err != nil {
			s.respondResult(w, s.rejected(r, models.KindInvalidInput, "Both audio1 and audio2 files are required"))
			return
		}
		blob, err := readPart(file, header)
		file.Close()
		if err != nil {
			s.log.Errorf("Failed to read %s: %v", field, err)
			s.respondResult(w, s.rejected(r, models.KindInvalidInput, "failed to read "+field))
			return
		}
		blobs[i] = blob
	}

	res, _ := s.service.Compare(r.Context(), blobs[0], blobs[1], threshold)
	s.respondResult(w, res)
}

// handleCompareURL handles POST /compare_voices/url
func (s *Server) handleCompareURL(w http.ResponseWriter, r *http.Request) {
	var req CompareURLRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.respondResult(w, s.rejected(r, models.KindInvalidInput, "Invalid request body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondResult(w, s.rejected(r, models.KindInvalidInput, validationMessage(err)))
		return
	}

	res, _ := s.service.CompareURLs(r.Context(), req.Audio1URL, req.Audio2URL, req.Threshold)
	s.respondResult(w, res)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   http.StatusText(http.StatusNotFound),
		Message: "no route for " + r.Method + " " + r.URL.Path,
		Code:    http.StatusNotFound,
	})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:   http.StatusText(http.StatusMethodNotAllowed),
		Message: "Method not allowed",
		Code:    http.StatusMethodNotAllowed,
	})
}

func readPart(file multipart.File, header *multipart.FileHeader) (models.AudioBlob, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return models.AudioBlob{}, err
	}
	return models.AudioBlob{
		Data:     data,
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
	}, nil
}

func parseThreshold(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("threshold must be a number, got %q", raw)
	}
	return &t, nil
}

// validationMessage flattens validator errors into one line per field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Field() {
		case "Audio1URL":
			field = "audio1_url"
		case "Audio2URL":
			field = "audio2_url"
		}
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "url":
			parts = append(parts, field+" must be a valid URL")
		case "gte", "lte":
			parts = append(parts, field+" must be between -1 and 1")
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
