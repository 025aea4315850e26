package core

import (
	"context"
)

func (s *Service) ListProviders() []ProviderInfo {
	providers := s.selector.Ordered()
	out := make([]ProviderInfo, 0, len(providers))
	for _, provider := range providers {
		out = append(out, providerInfo(provider))
	}
	return out
}

func (s *Service) GetProvider(providerID string) (ProviderInfo, error) {
	provider, err := s.selector.Get(providerID)
	if err != nil {
		return ProviderInfo{}, s.mapError(err)
	}
	return providerInfo(provider), nil
}

// SearchProviders lists the providers whose capability matrix supports
// criteria, in routing priority order.
func (s *Service) SearchProviders(criteria SupportCriteria) []ProviderInfo {
	providers := s.selector.Supporting(criteria)
	out := make([]ProviderInfo, 0, len(providers))
	for _, provider := range providers {
		out = append(out, providerInfo(provider))
	}
	return out
}

func (s *Service) CheckProviderHealth(ctx context.Context, providerID string) (status HealthStatus, err error) {
	startedAt := s.now()
	fields := map[string]any{"provider_id": providerID}
	defer func() {
		err = s.mapError(err)
		fields["healthy"] = status.Healthy
		s.observeOperation(ctx, startedAt, "check_provider_health", err, fields)
	}()

	provider, err := s.selector.Get(providerID)
	if err != nil {
		return HealthStatus{}, err
	}
	status, _ = s.selector.Check(ctx, provider)
	return status, nil
}

// CheckAllProviders probes every registered provider in parallel.
func (s *Service) CheckAllProviders(ctx context.Context) []HealthStatus {
	startedAt := s.now()
	statuses := s.selector.CheckAll(ctx)
	healthy := 0
	for _, status := range statuses {
		if status.Healthy {
			healthy++
		}
	}
	s.observeOperation(ctx, startedAt, "check_all_providers", nil, map[string]any{
		"providers": len(statuses),
		"healthy":   healthy,
	})
	return statuses
}

func providerInfo(provider Provider) ProviderInfo {
	info := provider.Info()
	if info.ID == "" {
		info.ID = provider.ID()
	}
	info.Capabilities = info.Capabilities.Clone()
	return info
}
