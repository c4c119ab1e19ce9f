// Package redis keeps the session revocation list in Redis, letting key
// expiry do the cleanup.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/joshijoe05/records-backend/internal/repository"
)

const keyPrefix = "record:revoked:"

var _ repository.RevocationStore = (*RevocationStore)(nil)

// RevocationStore implements repository.RevocationStore.
type RevocationStore struct {
	client *goredis.Client
	now    func() time.Time
}

// New parses a redis:// URL and verifies the server answers.
func New(ctx context.Context, url string) (*RevocationStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: connecting: %w", err)
	}

	return &RevocationStore{client: client, now: time.Now}, nil
}

// Revoke stores the hash with a TTL equal to the token's remaining life.
// Already-expired tokens need no entry.
func (s *RevocationStore) Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, keyPrefix+tokenHash, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis: revoking token: %w", err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	err := s.client.Get(ctx, keyPrefix+tokenHash).Err()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis: checking revoked token: %w", err)
	}
	return true, nil
}

func (s *RevocationStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RevocationStore) Close() error {
	return s.client.Close()
}
