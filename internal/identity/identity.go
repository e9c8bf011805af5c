// Package identity resolves the caller's identity from an HTTP request.
//
// The service does not authenticate users itself; identity is asserted
// by an upstream identity provider. The Extractor interface makes that
// trust boundary explicit and swappable.
package identity

import (
	"net/http"
	"strings"

	"trustd/internal/domain"
)

// Extractor resolves the identity of the caller of a request.
type Extractor interface {
	// Identity returns the caller's identity, or ErrMissingIdentity
	// when the request carries none.
	Identity(r *http.Request) (string, error)
}

// HeaderExtractor reads the identity from an inbound header set by a
// trusted upstream provider. The header value is not verified; the
// deployment must guarantee the endpoint is only reachable through the
// identity provider.
type HeaderExtractor struct {
	header string
}

// NewHeaderExtractor creates an extractor reading the given header.
func NewHeaderExtractor(header string) *HeaderExtractor {
	return &HeaderExtractor{header: header}
}

// Identity implements Extractor.
func (e *HeaderExtractor) Identity(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(e.header))
	if id == "" {
		return "", domain.ErrMissingIdentity
	}
	return id, nil
}
