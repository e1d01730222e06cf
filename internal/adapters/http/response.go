package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quotevault/histprice-service/internal/domain"
)

// Response helpers for consistent JSON responses

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// respondJSON sends a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondErrorWithCode sends an error response with an error code
func respondErrorWithCode(w http.ResponseWriter, status int, message, code string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// handleDomainError maps domain errors to HTTP responses
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSymbol):
		respondErrorWithCode(w, http.StatusBadRequest, "invalid symbol format", "INVALID_SYMBOL")

	case errors.Is(err, domain.ErrSymbolNotFound):
		respondErrorWithCode(w, http.StatusNotFound, "symbol not found", "SYMBOL_NOT_FOUND")

	case errors.Is(err, domain.ErrSourceUnavailable):
		respondErrorWithCode(w, http.StatusServiceUnavailable, "market data source unavailable", "SOURCE_UNAVAILABLE")

	case errors.Is(err, domain.ErrRateLimited):
		respondErrorWithCode(w, http.StatusTooManyRequests, "rate limited by source", "RATE_LIMITED")

	case errors.Is(err, domain.ErrUnexpectedStatus):
		respondErrorWithCode(w, http.StatusBadGateway, "unexpected response from source", "UNEXPECTED_SOURCE_RESPONSE")

	default:
		respondErrorWithCode(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
