package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/naka-gawa/repo-issues/internal/config"
)

// MemcacheStore is a Store backed by memcached. The client has no context
// support, so ctx is only checked before each call.
type MemcacheStore struct {
	prefix     string
	connection *memcache.Client
}

func NewMemcacheStore(cfg config.CacheConfig) *MemcacheStore {
	return &MemcacheStore{prefix: cfg.Prefix, connection: memcache.New(cfg.Addr)}
}

func (s *MemcacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	item, err := s.connection.Get(prefixed(s.prefix, key))
	// cache miss is memcached's way of saying the key was not found.
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item.Value, true, nil
}

func (s *MemcacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.connection.Set(&memcache.Item{
		Key:        prefixed(s.prefix, key),
		Value:      value,
		Expiration: expiration(ttl),
	})
}

// Close drops the idle connections.
func (s *MemcacheStore) Close() error {
	return s.connection.Close()
}

// expiration converts ttl to memcached's relative seconds. It rounds up so a
// short TTL never becomes 0 (no expiry) and caps at config.MaxCacheTTL, past
// which memcached reads the value as a Unix timestamp.
func expiration(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	ttl = min(ttl, config.MaxCacheTTL)
	return int32((ttl + time.Second - 1) / time.Second)
}
