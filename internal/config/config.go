// Package config loads the application configuration from an optional TOML
// file, the environment, and defaults.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Backends supported for talking to GitHub.
const (
	BackendREST    = "rest"
	BackendGraphQL = "graphql"
)

// Cache kinds.
const (
	CacheNone     = "none"
	CacheRedis    = "redis"
	CacheMemcache = "memcache"
)

// TokenEnv is the environment variable holding the GitHub token.
const TokenEnv = "GITHUB_TOKEN"

// Config is the merged application configuration.
type Config struct {
	Listen  string `toml:"listen"`
	Backend string `toml:"backend"`
	// APIURL is the REST base URL; GraphQLURL the GraphQL endpoint. Empty means github.com.
	APIURL     string          `toml:"api_url"`
	GraphQLURL string          `toml:"graphql_url"`
	Cache      CacheConfig     `toml:"cache"`
	RateLimit  RateLimitConfig `toml:"rate_limit"`

	// Token is never read from the file.
	Token string `toml:"-"`
}

// CacheConfig configures the optional GitHub response cache.
type CacheConfig struct {
	Kind     string `toml:"kind"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
	TTL      string `toml:"ttl"`
}

// RateLimitConfig configures the per-client limiter of the web server.
type RateLimitConfig struct {
	PerSecond float64 `toml:"per_second"`
	Burst     int     `toml:"burst"`
	// TrustedProxies lists the addresses or CIDR ranges whose X-Real-IP and
	// X-Forwarded-For headers are believed. Empty means no proxy is trusted.
	TrustedProxies []string `toml:"trusted_proxies"`
}

// MaxCacheTTL is the longest TTL accepted. memcached reads anything longer as
// an absolute timestamp.
const MaxCacheTTL = 30 * 24 * time.Hour

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		Listen:  "127.0.0.1:8080",
		Backend: BackendREST,
		Cache: CacheConfig{
			Kind:   CacheNone,
			Prefix: "repo-issues",
			TTL:    "60s",
		},
		RateLimit: RateLimitConfig{
			PerSecond: 5,
			Burst:     10,
		},
	}
}

// Load reads path on top of the defaults. An empty path skips the file.
// The token always comes from the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.Token = os.Getenv(TokenEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendREST, BackendGraphQL:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	switch c.Cache.Kind {
	case CacheNone, "":
	case CacheRedis, CacheMemcache:
		if c.Cache.Addr == "" {
			errs = append(errs, fmt.Errorf("cache kind %q requires an addr", c.Cache.Kind))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache kind %q", c.Cache.Kind))
	}
	if _, err := c.Cache.TTLDuration(); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit.PerSecond < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate_limit values must not be negative"))
	}
	if _, err := c.RateLimit.TrustedPrefixes(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool {
	return c.Kind != "" && c.Kind != CacheNone
}

// TTLDuration parses TTL. An empty TTL means no caching time limit.
func (c CacheConfig) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid cache ttl %q: %w", c.TTL, err)
	}
	if d < time.Second || d > MaxCacheTTL {
		return 0, fmt.Errorf("invalid cache ttl %q: must be between 1s and %s", c.TTL, MaxCacheTTL)
	}
	return d, nil
}

// TrustedPrefixes parses TrustedProxies. A bare address trusts only itself.
func (c RateLimitConfig) TrustedPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, s := range c.TrustedProxies {
		if !strings.Contains(s, "/") {
			addr, err := netip.ParseAddr(s)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", s, err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", s, err)
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes, nil
}
