package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss means the key does not exist or has expired.
var ErrCacheMiss = errors.New("cache miss")

// KVStore is the string key/value backend behind ReportCache.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisKVStore stores values with plain GET/SET/DEL.
type RedisKVStore struct {
	cmd redis.Cmdable
}

// NewRedisKVStore accepts a *redis.Client, a cluster client or a pipeline.
func NewRedisKVStore(cmd redis.Cmdable) *RedisKVStore {
	return &RedisKVStore{cmd: cmd}
}

func (s *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	switch val, err := s.cmd.Get(ctx, key).Result(); {
	case errors.Is(err, redis.Nil):
		return "", ErrCacheMiss
	case err != nil:
		return "", err
	default:
		return val, nil
	}
}

// Set with ttl <= 0 keeps the key until it is deleted.
func (s *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.cmd.Set(ctx, key, value, ttl).Err()
}

// Delete is a no-op for missing keys.
func (s *RedisKVStore) Delete(ctx context.Context, key string) error {
	return s.cmd.Del(ctx, key).Err()
}
