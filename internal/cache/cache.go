// Package cache stores GitHub responses in redis or memcached.
package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/naka-gawa/repo-issues/internal/config"
)

// Store is a byte-oriented key/value store with expiry.
type Store interface {
	// Get returns the value of key; ok is false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

var (
	_ io.Closer = (*RedisStore)(nil)
	_ io.Closer = (*MemcacheStore)(nil)
)

// New returns the Store configured by cfg, or nil when caching is disabled.
func New(cfg config.CacheConfig) (Store, error) {
	switch cfg.Kind {
	case config.CacheNone, "":
		return nil, nil
	case config.CacheRedis:
		return NewRedisStore(cfg), nil
	case config.CacheMemcache:
		return NewMemcacheStore(cfg), nil
	}
	return nil, fmt.Errorf("unknown cache kind %q", cfg.Kind)
}

func prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
