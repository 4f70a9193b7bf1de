// Package idempotency remembers client-supplied request keys so a retried
// checkout does not create a second order.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
)

// DefaultTTL is how long a key is remembered.
const DefaultTTL = 24 * time.Hour

var (
	ErrDuplicate  = errors.New("idempotency key already used")
	ErrInvalidKey = errors.New("invalid idempotency key")
)

// Store reserves keys. Reserve fails with ErrDuplicate when the key was
// reserved within the TTL.
type Store interface {
	Reserve(ctx context.Context, key string) error
}

func redisKey(key string) string {
	return fmt.Sprintf("idempotent-key:%s", key)
}

func validate(key string) error {
	if strings.TrimSpace(key) == "" || len(key) > 128 {
		return ErrInvalidKey
	}
	return nil
}

// RedisStore keeps keys in Redis so every server instance shares them.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Reserve(ctx context.Context, key string) error {
	if err := validate(key); err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, redisKey(key), "exists", s.ttl).Result()
	if err != nil {
		return fmt.Errorf("reserve idempotency key: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

// MemoryStore keeps keys in process memory.
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{cache: cache.New(ttl, time.Hour), ttl: ttl}
}

func (s *MemoryStore) Reserve(_ context.Context, key string) error {
	if err := validate(key); err != nil {
		return err
	}
	if err := s.cache.Add(redisKey(key), struct{}{}, s.ttl); err != nil {
		return ErrDuplicate
	}
	return nil
}
