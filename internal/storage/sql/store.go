package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"trustd/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store implements storage.TrustStore using SQL. It keeps the same
// single-table shape the service has always used: one row per identity,
// with a uniqueness constraint on the trusted IP.
type Store struct {
	db *sqlx.DB
}

// New connects to the database and runs migrations.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping probes connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) GetByIP(ctx context.Context, ip string) (*domain.TrustRecord, error) {
	var rec domain.TrustRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT identity, ip, created_at, modified_at FROM trusted_ips WHERE ip = $1`, ip)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) GetByIdentity(ctx context.Context, identity string) (*domain.TrustRecord, error) {
	var rec domain.TrustRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT identity, ip, created_at, modified_at FROM trusted_ips WHERE identity = $1`, identity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Grant replaces the identity's trusted IP in a single transaction.
func (s *Store) Grant(ctx context.Context, identity, ip string) (*domain.TrustRecord, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing domain.TrustRecord
	err = tx.GetContext(ctx, &existing,
		`SELECT identity, ip, created_at, modified_at FROM trusted_ips WHERE identity = $1`, identity)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec := &domain.TrustRecord{
			Identity:  identity,
			IP:        ip,
			CreatedAt: time.Now().UTC(),
		}
		// Evict any other identity holding this IP so the uniqueness
		// constraint mirrors the key-value backend's overwrite.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM trusted_ips WHERE ip = $1`, ip); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trusted_ips (identity, ip, created_at) VALUES ($1, $2, $3)`,
			rec.Identity, rec.IP, rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return rec, nil

	case err != nil:
		return nil, err
	}

	if existing.IP == ip {
		return &existing, nil
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM trusted_ips WHERE ip = $1 AND identity <> $2`, ip, identity); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE trusted_ips SET ip = $1, modified_at = $2 WHERE identity = $3`,
		ip, now, identity); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	existing.IP = ip
	existing.ModifiedAt = &now
	return &existing, nil
}

func (s *Store) List(ctx context.Context) ([]*domain.TrustRecord, error) {
	var records []*domain.TrustRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT identity, ip, created_at, modified_at FROM trusted_ips ORDER BY identity`)
	if err != nil {
		return nil, err
	}
	return records, nil
}
