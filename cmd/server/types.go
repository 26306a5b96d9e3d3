package main

import (
	"net/http"

	"github.com/himanishpuri/voicematch/pkg/models"
)

// CompareURLRequest is the request body for POST /compare_voices/url
type CompareURLRequest struct {
	Audio1URL string   `json:"audio1_url" validate:"required,url"`
	Audio2URL string   `json:"audio2_url" validate:"required,url"`
	Threshold *float64 `json:"threshold,omitempty" validate:"omitempty,gte=-1,lte=1"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ModelLoaded bool   `json:"model_loaded"`
	Backend     string `json:"backend"`
}

// ErrorResponse is returned for requests that never reach a comparison,
// such as unknown routes.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// statusClientClosedRequest is the de facto status for a request whose
// client disconnected before the response.
const statusClientClosedRequest = 499

// statusForKind maps an error kind to the HTTP status of the response.
func statusForKind(kind models.Kind) int {
	switch kind {
	case "":
		return http.StatusOK
	case models.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case models.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case models.KindAudioTooShort, models.KindAudioTooLong, models.KindDecode, models.KindDegenerateEmbedding:
		return http.StatusUnprocessableEntity
	case models.KindInvalidInput:
		return http.StatusBadRequest
	case models.KindModelLoad:
		return http.StatusServiceUnavailable
	case models.KindTimeout:
		return http.StatusGatewayTimeout
	case models.KindFetch:
		return http.StatusBadGateway
	case models.KindCanceled:
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
