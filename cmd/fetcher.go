package cmd

import (
	"fmt"
	"io"
	"log"

	"github.com/naka-gawa/repo-issues/internal/cache"
	"github.com/naka-gawa/repo-issues/internal/config"
	"github.com/naka-gawa/repo-issues/internal/gateway"
)

// newFetcher builds the gateway selected by cfg, wrapped in the cache when one is configured.
func newFetcher(cfg *config.Config, logger *log.Logger) (gateway.Fetcher, error) {
	httpClient, err := gateway.NewHTTPClient(cfg.Token)
	if err != nil {
		return nil, err
	}

	var fetcher gateway.Fetcher
	switch cfg.Backend {
	case config.BackendGraphQL:
		fetcher, err = gateway.NewGraphQLGateway(httpClient, cfg.Token, cfg.GraphQLURL, logger)
	default:
		fetcher, err = gateway.NewGitHubGateway(httpClient, cfg.APIURL, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}

	if !cfg.Cache.Enabled() {
		return fetcher, nil
	}
	store, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.Cache.TTLDuration()
	if err != nil {
		return nil, err
	}
	logger.Printf("Caching GitHub responses in %s at %s for %s.", cfg.Cache.Kind, cfg.Cache.Addr, ttl)
	return gateway.NewCachingFetcher(fetcher, store, ttl, logger), nil
}

// closeFetcher releases the connections the fetcher holds, such as the cache pool.
func closeFetcher(fetcher gateway.Fetcher, logger *log.Logger) {
	closer, ok := fetcher.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Printf("Failed to close the cache: %v", err)
	}
}
