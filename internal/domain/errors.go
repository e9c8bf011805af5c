package domain

import "errors"

// Common errors used throughout the application.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrMissingIdentity  = errors.New("missing identity")
	ErrMissingSourceIP  = errors.New("missing source ip")
	ErrStoreUnavailable = errors.New("trust store unavailable")
)

// APIError represents an error response from the API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}
