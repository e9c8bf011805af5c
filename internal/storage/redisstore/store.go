// Package redisstore implements the trust store on Redis.
//
// Layout: one key per trusted IP ("<prefix>ip:<IP>") holding the JSON
// record, plus a reverse key per identity ("<prefix>identity:<name>")
// holding the identity's current IP. The reverse key supports the
// replace-on-trust step of a grant without scanning.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trustd/internal/domain"
)

// Store implements storage.TrustStore using Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// New connects to Redis and verifies connectivity.
func New(ctx context.Context, redisURL, keyPrefix string) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Store{client: client, prefix: keyPrefix}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping probes connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) ipKey(ip string) string {
	return s.prefix + "ip:" + ip
}

func (s *Store) identityKey(identity string) string {
	return s.prefix + "identity:" + identity
}

func (s *Store) GetByIP(ctx context.Context, ip string) (*domain.TrustRecord, error) {
	data, err := s.client.Get(ctx, s.ipKey(ip)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decodeRecord(data)
}

func (s *Store) GetByIdentity(ctx context.Context, identity string) (*domain.TrustRecord, error) {
	ip, err := s.client.Get(ctx, s.identityKey(identity)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return s.GetByIP(ctx, ip)
}

// Grant replaces the identity's trusted IP. The delete of the previous
// IP key and both inserts run in one MULTI/EXEC pipeline; a concurrent
// grant for the same identity resolves to last write wins.
func (s *Store) Grant(ctx context.Context, identity, ip string) (*domain.TrustRecord, error) {
	existing, err := s.GetByIdentity(ctx, identity)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	rec := &domain.TrustRecord{
		Identity:  identity,
		IP:        ip,
		CreatedAt: time.Now().UTC(),
	}
	var previousIP string
	if existing != nil {
		if existing.IP == ip {
			return existing, nil
		}
		previousIP = existing.IP
		rec.CreatedAt = existing.CreatedAt
		now := time.Now().UTC()
		rec.ModifiedAt = &now
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding trust record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previousIP != "" {
			pipe.Del(ctx, s.ipKey(previousIP))
		}
		pipe.Set(ctx, s.ipKey(ip), data, 0)
		pipe.Set(ctx, s.identityKey(identity), ip, 0)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis grant: %w", err)
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context) ([]*domain.TrustRecord, error) {
	var records []*domain.TrustRecord

	iter := s.client.Scan(ctx, 0, s.ipKey("*"), 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// Key raced away between SCAN and GET.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get: %w", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return records, nil
}

func decodeRecord(data []byte) (*domain.TrustRecord, error) {
	var rec domain.TrustRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding trust record: %w", err)
	}
	return &rec, nil
}
