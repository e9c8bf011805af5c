package storage

import (
	"context"

	"trustd/internal/domain"
)

// TrustStore defines the interface for the trust store backend.
// Implementations must be safe for concurrent use.
type TrustStore interface {
	// Close closes the store connection.
	Close() error

	// Ping probes store connectivity.
	Ping(ctx context.Context) error

	// GetByIP returns the record trusting the given IP, or ErrNotFound.
	GetByIP(ctx context.Context, ip string) (*domain.TrustRecord, error)

	// GetByIdentity returns the identity's current record, or ErrNotFound.
	GetByIdentity(ctx context.Context, identity string) (*domain.TrustRecord, error)

	// Grant marks ip as the identity's trusted IP, removing any mapping
	// for the identity's previous IP. Granting an IP the identity
	// already holds is a no-op and returns the existing record.
	Grant(ctx context.Context, identity, ip string) (*domain.TrustRecord, error)

	// List returns all trust records.
	List(ctx context.Context) ([]*domain.TrustRecord, error)
}
