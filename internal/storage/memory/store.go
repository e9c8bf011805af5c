package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trustd/internal/domain"
)

// Store is an in-memory implementation of the trust store for testing.
type Store struct {
	mu sync.RWMutex

	byIP       map[string]*domain.TrustRecord
	byIdentity map[string]*domain.TrustRecord

	// failing makes every operation report a connectivity failure,
	// letting tests exercise the fail-closed paths.
	failing bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		byIP:       make(map[string]*domain.TrustRecord),
		byIdentity: make(map[string]*domain.TrustRecord),
	}
}

// SetFailing toggles simulated store connectivity failure.
func (s *Store) SetFailing(failing bool) {
	s.mu.Lock()
	s.failing = failing
	s.mu.Unlock()
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return domain.ErrStoreUnavailable
	}
	return nil
}

func (s *Store) GetByIP(ctx context.Context, ip string) (*domain.TrustRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return nil, domain.ErrStoreUnavailable
	}
	rec, ok := s.byIP[ip]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *Store) GetByIdentity(ctx context.Context, identity string) (*domain.TrustRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return nil, domain.ErrStoreUnavailable
	}
	rec, ok := s.byIdentity[identity]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *Store) Grant(ctx context.Context, identity, ip string) (*domain.TrustRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, domain.ErrStoreUnavailable
	}

	if existing, ok := s.byIdentity[identity]; ok {
		if existing.IP == ip {
			return copyRecord(existing), nil
		}
		delete(s.byIP, existing.IP)
		now := time.Now().UTC()
		updated := &domain.TrustRecord{
			Identity:   identity,
			IP:         ip,
			CreatedAt:  existing.CreatedAt,
			ModifiedAt: &now,
		}
		s.byIdentity[identity] = updated
		s.byIP[ip] = updated
		return copyRecord(updated), nil
	}

	rec := &domain.TrustRecord{
		Identity:  identity,
		IP:        ip,
		CreatedAt: time.Now().UTC(),
	}
	s.byIdentity[identity] = rec
	s.byIP[ip] = rec
	return copyRecord(rec), nil
}

func (s *Store) List(ctx context.Context) ([]*domain.TrustRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return nil, domain.ErrStoreUnavailable
	}

	records := make([]*domain.TrustRecord, 0, len(s.byIdentity))
	for _, rec := range s.byIdentity {
		records = append(records, copyRecord(rec))
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Identity < records[j].Identity
	})
	return records, nil
}

// Count returns the number of trust records. Test helper.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byIdentity)
}

func copyRecord(rec *domain.TrustRecord) *domain.TrustRecord {
	out := *rec
	if rec.ModifiedAt != nil {
		t := *rec.ModifiedAt
		out.ModifiedAt = &t
	}
	return &out
}
