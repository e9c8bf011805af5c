package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"trustd/internal/domain"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, &domain.APIError{
		Code:    status,
		Message: message,
	})
}

// handleError converts domain errors to HTTP errors. Unknown errors are
// reported as store failures, never as an allow.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingSourceIP):
		respondError(w, http.StatusBadRequest, "missing or invalid source ip")
	case errors.Is(err, domain.ErrMissingIdentity):
		respondError(w, http.StatusUnauthorized, "missing identity")
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	default:
		respondError(w, http.StatusInternalServerError, "trust store unavailable")
	}
}
