// Package service implements the trust decision and grant logic on top
// of the store and the static allow-list.
package service

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/charmbracelet/log"

	"trustd/internal/allowlist"
	"trustd/internal/domain"
	"trustd/internal/storage"
)

// TrustService answers trust checks and records grants.
type TrustService struct {
	store storage.TrustStore
	allow *allowlist.AllowList
	cache *decisionCache // nil when caching is disabled
	log   *log.Logger
}

// New creates a trust service. A cacheTTL of zero disables the decision
// cache and every check consults the store.
func New(store storage.TrustStore, allow *allowlist.AllowList, cacheTTL time.Duration, logger *log.Logger) *TrustService {
	s := &TrustService{
		store: store,
		allow: allow,
		log:   logger,
	}
	if cacheTTL > 0 {
		s.cache = newDecisionCache(cacheTTL)
	}
	return s
}

// Check reports whether addr is currently trusted. Allow-listed networks
// are decided without touching the store; store failures propagate so
// callers never treat an error as an allow.
func (s *TrustService) Check(ctx context.Context, addr netip.Addr) (bool, error) {
	if s.allow.Contains(addr) {
		return true, nil
	}

	ip := addr.String()
	if s.cache != nil {
		if trusted, ok := s.cache.get(ip); ok {
			s.log.Debug("check cache hit", "ip", ip, "trusted", trusted)
			return trusted, nil
		}
	}

	trusted := false
	_, err := s.store.GetByIP(ctx, ip)
	switch {
	case err == nil:
		trusted = true
	case errors.Is(err, domain.ErrNotFound):
	default:
		return false, err
	}

	if s.cache != nil {
		s.cache.put(ip, trusted)
	}
	return trusted, nil
}

// Grant marks addr as the identity's trusted IP, superseding the
// identity's previous IP. Granting an already-trusted IP is idempotent.
func (s *TrustService) Grant(ctx context.Context, identity string, addr netip.Addr) (*domain.TrustRecord, error) {
	ip := addr.String()

	previous, err := s.store.GetByIdentity(ctx, identity)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	rec, err := s.store.Grant(ctx, identity, ip)
	if err != nil {
		return nil, err
	}

	switch {
	case previous == nil:
		s.log.Info("trusting identity for the first time", "identity", identity, "ip", ip)
	case previous.IP != ip:
		s.log.Info("trusted ip changed", "identity", identity, "old", previous.IP, "new", ip)
	default:
		s.log.Debug("ip already trusted", "identity", identity, "ip", ip)
	}

	if s.cache != nil {
		if previous != nil && previous.IP != ip {
			s.cache.evict(previous.IP)
		}
		s.cache.put(ip, true)
	}
	return rec, nil
}

// List returns all trust records.
func (s *TrustService) List(ctx context.Context) ([]*domain.TrustRecord, error) {
	return s.store.List(ctx)
}

// CacheExpiry returns when the cached decision for ip lapses, if the
// cache is enabled and holds a fresh entry.
func (s *TrustService) CacheExpiry(ip string) (time.Time, bool) {
	if s.cache == nil {
		return time.Time{}, false
	}
	return s.cache.expiry(ip)
}

// Healthy probes store connectivity.
func (s *TrustService) Healthy(ctx context.Context) error {
	return s.store.Ping(ctx)
}
