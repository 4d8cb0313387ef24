package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/naka-gawa/repo-issues/internal/cache"
	"github.com/naka-gawa/repo-issues/internal/domain"
)

// CachingFetcher serves responses from a cache.Store and falls back to the
// wrapped Fetcher. Cache failures are logged and never fail a fetch.
type CachingFetcher struct {
	next   Fetcher
	store  cache.Store
	ttl    time.Duration
	logger *log.Logger
}

// NewCachingFetcher wraps next with store.
func NewCachingFetcher(next Fetcher, store cache.Store, ttl time.Duration, logger *log.Logger) *CachingFetcher {
	return &CachingFetcher{next: next, store: store, ttl: ttl, logger: logger}
}

// Close releases the store's connections when it holds any.
func (c *CachingFetcher) Close() error {
	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *CachingFetcher) FetchRepository(ctx context.Context, ref domain.RepositoryRef) (*domain.RepositoryInfo, error) {
	key := "repo:" + ref.String()
	var cached domain.RepositoryInfo
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}
	repo, err := c.next.FetchRepository(ctx, ref)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, repo)
	return repo, nil
}

func (c *CachingFetcher) FetchIssues(ctx context.Context, ref domain.RepositoryRef, q domain.IssueQuery) ([]domain.Issue, error) {
	key := fmt.Sprintf("issues:%s:%s:%d:%d", ref, q.State, q.PerPage, q.Page)
	var cached []domain.Issue
	if c.load(ctx, key, &cached) {
		return cached, nil
	}
	issues, err := c.next.FetchIssues(ctx, ref, q)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, issues)
	return issues, nil
}

func (c *CachingFetcher) load(ctx context.Context, key string, v any) bool {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Printf("Cache read of %s failed: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.logger.Printf("Ignoring undecodable cache entry %s: %v", key, err)
		return false
	}
	c.logger.Printf("Cache hit for %s.", key)
	return true
}

func (c *CachingFetcher) save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Printf("Failed to encode %s for the cache: %v", key, err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Printf("Cache write of %s failed: %v", key, err)
	}
}
