// Package realip extracts the caller's source IP from an HTTP request.
package realip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"trustd/internal/domain"
)

// Extractor resolves the caller's source IP from a configurable inbound
// header, falling back to the transport-level peer address when the
// header is absent.
type Extractor struct {
	header string
}

// NewExtractor creates an extractor reading the given header.
func NewExtractor(header string) *Extractor {
	return &Extractor{header: header}
}

// FromRequest returns the caller's source IP. Forwarded-for style
// headers may carry a comma-separated chain; the first entry is the
// original client.
func (e *Extractor) FromRequest(r *http.Request) (netip.Addr, error) {
	value := r.Header.Get(e.header)
	if value == "" {
		return fromRemoteAddr(r.RemoteAddr)
	}

	if i := strings.IndexByte(value, ','); i >= 0 {
		value = value[:i]
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(value))
	if err != nil {
		return netip.Addr{}, domain.ErrMissingSourceIP
	}
	return addr.Unmap(), nil
}

func fromRemoteAddr(remoteAddr string) (netip.Addr, error) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, domain.ErrMissingSourceIP
	}
	return addr.Unmap(), nil
}
