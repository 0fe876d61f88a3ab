package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// IdempotencyStore remembers request keys so a retried checkout is not
// placed twice.
type IdempotencyStore interface {
	// Claim returns false when the key was already claimed.
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisIdempotency struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIdempotency(rdb *redis.Client, ttl time.Duration) *RedisIdempotency {
	return &RedisIdempotency{rdb: rdb, ttl: ttl}
}

func idempotencyRedisKey(key string) string {
	return fmt.Sprintf("idempotent-key:%s", key)
}

func (s *RedisIdempotency) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, idempotencyRedisKey(key), "exists", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return ok, nil
}

func (s *RedisIdempotency) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, idempotencyRedisKey(key)).Err()
}
