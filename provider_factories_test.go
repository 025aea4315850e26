package payouts

import (
	"testing"

	"github.com/goliatone/go-payouts/core"
	"github.com/goliatone/go-payouts/providers/corridor"
	"github.com/goliatone/go-payouts/providers/devkit"
	"github.com/goliatone/go-payouts/providers/rampa"
)

func TestBuiltInProviders(t *testing.T) {
	providers, err := BuiltInProviders(ProviderConfigs{
		Rampa:    &rampa.Config{ClientID: "client", ClientSecret: "secret", WebhookSecret: "whsec"},
		Corridor: &corridor.Config{APIKey: "key", WebhookSecret: "whsec"},
	})
	if err != nil {
		t.Fatalf("built-in providers: %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("expected two providers, got %d", len(providers))
	}
	if providers[0].ID() != corridor.ProviderID || providers[1].ID() != rampa.ProviderID {
		t.Fatalf("unexpected provider order %q %q", providers[0].ID(), providers[1].ID())
	}

	registry := core.NewProviderRegistry()
	if err := RegisterProviders(registry, providers...); err != nil {
		t.Fatalf("register providers: %v", err)
	}
	if len(registry.List()) != 2 {
		t.Fatalf("expected registry to hold both providers")
	}
}

func TestBuiltInProviders_SkipsUnconfigured(t *testing.T) {
	providers, err := BuiltInProviders(ProviderConfigs{})
	if err != nil {
		t.Fatalf("built-in providers: %v", err)
	}
	if len(providers) != 0 {
		t.Fatalf("expected no providers, got %d", len(providers))
	}
}

func TestBuiltInProviders_ReportsInvalidConfig(t *testing.T) {
	if _, err := BuiltInProviders(ProviderConfigs{Corridor: &corridor.Config{}}); err == nil {
		t.Fatalf("expected corridor without api key to fail")
	}
	if _, err := BuiltInProviders(ProviderConfigs{Rampa: &rampa.Config{}}); err == nil {
		t.Fatalf("expected rampa without client id to fail")
	}
}

func TestRegisterProviders_Validation(t *testing.T) {
	if err := RegisterProviders(nil, devkit.NewFakeProvider("fake")); err == nil {
		t.Fatalf("expected missing registry to fail")
	}
	registry := core.NewProviderRegistry()
	if err := RegisterProviders(registry, nil); err == nil {
		t.Fatalf("expected nil provider to fail")
	}
	if err := RegisterProviders(registry, devkit.NewFakeProvider("fake"), devkit.NewFakeProvider("fake")); err == nil {
		t.Fatalf("expected duplicate provider to fail")
	}
}
