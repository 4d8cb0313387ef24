package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/naka-gawa/repo-issues/internal/config"
)

// RedisStore is a Store backed by redis or a redis-compatible server.
type RedisStore struct {
	prefix     string
	connection *redis.Client
}

func NewRedisStore(cfg config.CacheConfig) *RedisStore {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{prefix: cfg.Prefix, connection: c}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.connection.Get(ctx, prefixed(s.prefix, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.connection.Set(ctx, prefixed(s.prefix, key), value, ttl).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.connection.Close()
}
