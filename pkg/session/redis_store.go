package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the remembered identity in Redis so that it survives
// process restarts and is shared between replicas of the same deployment.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets an expiry on the stored identity. Zero (the default) keeps it
// until explicitly cleared, matching browser local storage semantics.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedisStore creates a store writing under the given key.
func NewRedisStore(client *redis.Client, key string, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}
	if key == "" {
		return nil, ErrEmptyStorageKey
	}

	s := &RedisStore{client: client, key: key}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStore) Get(ctx context.Context) (string, error) {
	value, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session: redis get %q: %w", s.key, err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, value string) error {
	if err := s.client.Set(ctx, s.key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set %q: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("session: redis del %q: %w", s.key, err)
	}
	return nil
}
