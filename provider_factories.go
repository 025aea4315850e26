package payouts

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-payouts/core"
	"github.com/goliatone/go-payouts/providers/corridor"
	"github.com/goliatone/go-payouts/providers/rampa"
)

func RampaProvider(cfg rampa.Config) (core.Provider, error) {
	return rampa.New(cfg)
}

func CorridorProvider(cfg corridor.Config) (core.Provider, error) {
	return corridor.New(cfg)
}

// ProviderConfigs selects built-in providers. A nil entry leaves that
// provider unregistered.
type ProviderConfigs struct {
	Rampa    *rampa.Config
	Corridor *corridor.Config
}

// BuiltInProviders constructs every configured built-in provider, ordered by id.
func BuiltInProviders(cfgs ProviderConfigs) ([]core.Provider, error) {
	out := []core.Provider{}
	if cfgs.Corridor != nil {
		provider, err := CorridorProvider(*cfgs.Corridor)
		if err != nil {
			return nil, fmt.Errorf("payouts: corridor provider: %w", err)
		}
		out = append(out, provider)
	}
	if cfgs.Rampa != nil {
		provider, err := RampaProvider(*cfgs.Rampa)
		if err != nil {
			return nil, fmt.Errorf("payouts: rampa provider: %w", err)
		}
		out = append(out, provider)
	}
	return out, nil
}

// RegisterProviders adds providers to registry, failing on the first
// duplicate or invalid provider.
func RegisterProviders(registry core.Registry, providers ...core.Provider) error {
	if registry == nil {
		return fmt.Errorf("payouts: registry is required")
	}
	for _, provider := range providers {
		if provider == nil || strings.TrimSpace(provider.ID()) == "" {
			return fmt.Errorf("payouts: provider with id is required")
		}
		if err := registry.Register(provider); err != nil {
			return err
		}
	}
	return nil
}
