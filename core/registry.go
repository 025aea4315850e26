package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type Registry interface {
	Register(provider Provider) error
	Get(providerID string) (Provider, bool)
	List() []Provider
}

type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[string]Provider)}
}

func (r *ProviderRegistry) Register(provider Provider) error {
	if provider == nil {
		return fmt.Errorf("core: provider is nil")
	}
	id := strings.TrimSpace(provider.ID())
	if id == "" {
		return fmt.Errorf("core: provider id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("core: provider already registered: %s", id)
	}
	r.providers[id] = provider
	return nil
}

func (r *ProviderRegistry) Get(providerID string) (Provider, bool) {
	id := strings.TrimSpace(providerID)
	if id == "" {
		return nil, false
	}
	r.mu.RLock()
	provider, ok := r.providers[id]
	r.mu.RUnlock()
	return provider, ok
}

// List returns the registered providers ordered by id.
func (r *ProviderRegistry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.providers))
	for id := range r.providers {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	providers := make([]Provider, 0, len(keys))
	for _, id := range keys {
		providers = append(providers, r.providers[id])
	}
	return providers
}

// Selection is the outcome of a successful SelectBest call.
type Selection struct {
	Provider Provider
	// Reason is one of "preferred", "default" or "failover".
	Reason string
}

const (
	SelectionPreferred = "preferred"
	SelectionDefault   = "default"
	SelectionFailover  = "failover"
)

// ProviderSelector resolves providers for requests on top of a Registry using
// the routing and health configuration.
type ProviderSelector struct {
	registry     Registry
	routing      RoutingConfig
	probeTimeout time.Duration
	healthCache  HealthCache
	now          func() time.Time
}

func NewProviderSelector(registry Registry, cfg Config, cache HealthCache) *ProviderSelector {
	if registry == nil {
		registry = NewProviderRegistry()
	}
	// health.cache_ttl zero disables probe caching.
	if cfg.Health.CacheTTL <= 0 {
		cache = nil
	}
	return &ProviderSelector{
		registry:     registry,
		routing:      cfg.Routing,
		probeTimeout: cfg.Health.ProbeTimeout,
		healthCache:  cache,
		now:          time.Now,
	}
}

func (s *ProviderSelector) Get(providerID string) (Provider, error) {
	provider, ok := s.registry.Get(providerID)
	if !ok {
		return nil, ProviderNotFoundError(providerID)
	}
	return provider, nil
}

// Ordered returns every provider with routing.provider_priority entries first
// and the rest by id.
func (s *ProviderSelector) Ordered() []Provider {
	all := s.registry.List()
	rank := make(map[string]int, len(s.routing.ProviderPriority))
	for idx, id := range s.routing.ProviderPriority {
		id = strings.TrimSpace(id)
		if _, seen := rank[id]; !seen {
			rank[id] = idx
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		ri, iok := rank[all[i].ID()]
		rj, jok := rank[all[j].ID()]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return false
		}
	})
	return all
}

// Default returns the configured default provider, falling back to the
// highest priority registered provider.
func (s *ProviderSelector) Default() (Provider, bool) {
	if id := strings.TrimSpace(s.routing.DefaultProvider); id != "" {
		return s.registry.Get(id)
	}
	ordered := s.Ordered()
	if len(ordered) == 0 {
		return nil, false
	}
	return ordered[0], true
}

func (s *ProviderSelector) Supporting(criteria SupportCriteria) []Provider {
	out := make([]Provider, 0)
	for _, provider := range s.Ordered() {
		if provider.Info().Capabilities.Supports(criteria) {
			out = append(out, provider)
		}
	}
	return out
}

// SelectBest tries the preferred provider, then the default provider, then,
// when failover is enabled, every other supporting provider in priority
// order. A candidate is returned only if it supports criteria and its health
// probe reports healthy. ErrNoProvider is returned when nothing qualifies.
func (s *ProviderSelector) SelectBest(ctx context.Context, preferred string, criteria SupportCriteria) (Selection, error) {
	tried := map[string]bool{}

	if id := strings.TrimSpace(preferred); id != "" {
		if provider, ok := s.registry.Get(id); ok {
			tried[id] = true
			if s.qualifies(ctx, provider, criteria) {
				return Selection{Provider: provider, Reason: SelectionPreferred}, nil
			}
		}
	}

	if provider, ok := s.Default(); ok && !tried[provider.ID()] {
		tried[provider.ID()] = true
		if s.qualifies(ctx, provider, criteria) {
			return Selection{Provider: provider, Reason: SelectionDefault}, nil
		}
	}

	if !s.routing.EnableFailover {
		return Selection{}, ErrNoProvider
	}
	for _, provider := range s.Supporting(criteria) {
		if tried[provider.ID()] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Selection{}, err
		}
		tried[provider.ID()] = true
		if s.healthy(ctx, provider) {
			return Selection{Provider: provider, Reason: SelectionFailover}, nil
		}
	}
	return Selection{}, ErrNoProvider
}

func (s *ProviderSelector) qualifies(ctx context.Context, provider Provider, criteria SupportCriteria) bool {
	if !provider.Info().Capabilities.Supports(criteria) {
		return false
	}
	return s.healthy(ctx, provider)
}

func (s *ProviderSelector) healthy(ctx context.Context, provider Provider) bool {
	status, err := s.Check(ctx, provider)
	return err == nil && status.Healthy
}

// Check runs one health probe bounded by health.probe_timeout, served from
// the health cache when one is configured.
func (s *ProviderSelector) Check(ctx context.Context, provider Provider) (HealthStatus, error) {
	probe := func(ctx context.Context) (HealthStatus, error) {
		return s.probe(ctx, provider)
	}
	if s.healthCache != nil {
		return s.healthCache.GetOrProbe(ctx, provider.ID(), probe)
	}
	return probe(ctx)
}

func (s *ProviderSelector) probe(ctx context.Context, provider Provider) (status HealthStatus, err error) {
	if s.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.probeTimeout)
		defer cancel()
	}
	startedAt := s.now()
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("core: health probe panicked: %v", recovered)
			status = HealthStatus{ProviderID: provider.ID(), Status: "error", Message: err.Error()}
		}
		if status.ProviderID == "" {
			status.ProviderID = provider.ID()
		}
		if status.Latency == 0 {
			status.Latency = s.now().Sub(startedAt)
		}
		if status.CheckedAt.IsZero() {
			status.CheckedAt = s.now().UTC()
		}
		if err != nil {
			status.Healthy = false
			if status.Status == "" {
				status.Status = "error"
			}
			if status.Message == "" {
				status.Message = err.Error()
			}
		}
	}()
	return provider.HealthCheck(ctx)
}

// CheckAll probes every provider in parallel. A failing probe only affects
// its own entry.
func (s *ProviderSelector) CheckAll(ctx context.Context) []HealthStatus {
	providers := s.Ordered()
	results := make([]HealthStatus, len(providers))
	var wg sync.WaitGroup
	for idx, provider := range providers {
		wg.Add(1)
		go func(idx int, provider Provider) {
			defer wg.Done()
			status, _ := s.Check(ctx, provider)
			results[idx] = status
		}(idx, provider)
	}
	wg.Wait()
	return results
}

// selectionError maps a failed selection onto the orchestration error
// taxonomy.
func (s *ProviderSelector) selectionError(err error, criteria SupportCriteria) error {
	if !errors.Is(err, ErrNoProvider) {
		return err
	}
	if len(s.Supporting(criteria)) == 0 {
		return UnsupportedConfigurationError(criteria)
	}
	return AllProvidersUnavailableError(criteria)
}
