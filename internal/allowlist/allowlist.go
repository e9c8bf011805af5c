// Package allowlist implements the static network allow-list consulted
// before any trust store lookup.
package allowlist

import "net/netip"

// AllowList is an immutable set of networks whose addresses are always
// treated as trusted. It is built once at startup and is safe for
// concurrent use.
type AllowList struct {
	prefixes []netip.Prefix
}

// New creates an allow-list from the given prefixes.
func New(prefixes []netip.Prefix) *AllowList {
	return &AllowList{prefixes: append([]netip.Prefix(nil), prefixes...)}
}

// Contains reports whether addr falls within any allow-listed network.
func (a *AllowList) Contains(addr netip.Addr) bool {
	for _, p := range a.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Len returns the number of configured networks.
func (a *AllowList) Len() int {
	return len(a.prefixes)
}
