package cachestore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-payouts/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const healthCacheKeyPrefix = "go-payouts::provider_health::v1"

// HealthCache memoizes provider health probes in a go-repository-cache
// service. Entries live for the TTL configured on the cache service.
type HealthCache struct {
	cache repositorycache.CacheService
}

func NewHealthCache(cacheService repositorycache.CacheService) (*HealthCache, error) {
	if cacheService == nil {
		return nil, fmt.Errorf("cachestore: health cache service is required")
	}
	return &HealthCache{cache: cacheService}, nil
}

// NewHealthCacheWithTTL builds a dedicated cache service that keeps probe
// results for ttl. A non-positive ttl disables caching and returns a nil
// cache, which probes on every call.
func NewHealthCacheWithTTL(ttl time.Duration) (*HealthCache, error) {
	if ttl <= 0 {
		return nil, nil
	}
	config := repositorycache.DefaultConfig()
	config.TTL = ttl
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		return nil, fmt.Errorf("cachestore: new cache service: %w", err)
	}
	return NewHealthCache(service)
}

// HealthCacheKey is go-payouts::provider_health::v1::<provider> with the
// provider id lowercased and path escaped.
func HealthCacheKey(providerID string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(providerID))
	if normalized == "" {
		return "", fmt.Errorf("cachestore: provider id is required")
	}
	return healthCacheKeyPrefix + "::" + url.PathEscape(normalized), nil
}

func (c *HealthCache) GetOrProbe(
	ctx context.Context,
	providerID string,
	probe func(ctx context.Context) (core.HealthStatus, error),
) (core.HealthStatus, error) {
	if probe == nil {
		return core.HealthStatus{}, fmt.Errorf("cachestore: probe is required")
	}
	if c == nil || c.cache == nil {
		return probe(ctx)
	}
	key, err := HealthCacheKey(providerID)
	if err != nil {
		return core.HealthStatus{}, err
	}
	return repositorycache.GetOrFetch(ctx, c.cache, key, probe)
}

func (c *HealthCache) Invalidate(ctx context.Context, providerID string) error {
	if c == nil || c.cache == nil {
		return nil
	}
	key, err := HealthCacheKey(providerID)
	if err != nil {
		return err
	}
	return c.cache.Delete(ctx, key)
}

var _ core.HealthCache = (*HealthCache)(nil)
