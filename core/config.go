package core

import (
	"fmt"
	"strings"
	"time"
)

type RoutingConfig struct {
	DefaultProvider  string   `koanf:"default_provider" mapstructure:"default_provider"`
	EnableFailover   bool     `koanf:"enable_failover" mapstructure:"enable_failover"`
	ProviderPriority []string `koanf:"provider_priority" mapstructure:"provider_priority"`
}

type HealthConfig struct {
	ProbeTimeout time.Duration `koanf:"probe_timeout" mapstructure:"probe_timeout"`
	CacheTTL     time.Duration `koanf:"cache_ttl" mapstructure:"cache_ttl"`
}

type QuotesConfig struct {
	FanoutTimeout time.Duration `koanf:"fanout_timeout" mapstructure:"fanout_timeout"`
}

type WebhooksConfig struct {
	AllowUnsigned bool `koanf:"allow_unsigned" mapstructure:"allow_unsigned"`
}

type StoresConfig struct {
	UpdateRetries int `koanf:"update_retries" mapstructure:"update_retries"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Routing     RoutingConfig  `koanf:"routing" mapstructure:"routing"`
	Health      HealthConfig   `koanf:"health" mapstructure:"health"`
	Quotes      QuotesConfig   `koanf:"quotes" mapstructure:"quotes"`
	Webhooks    WebhooksConfig `koanf:"webhooks" mapstructure:"webhooks"`
	Stores      StoresConfig   `koanf:"stores" mapstructure:"stores"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "payouts",
		Health: HealthConfig{
			ProbeTimeout: 5 * time.Second,
		},
		Quotes: QuotesConfig{
			FanoutTimeout: 15 * time.Second,
		},
		Stores: StoresConfig{
			UpdateRetries: 3,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Health.ProbeTimeout < 0 {
		return fmt.Errorf("core: health.probe_timeout must not be negative")
	}
	if c.Health.CacheTTL < 0 {
		return fmt.Errorf("core: health.cache_ttl must not be negative")
	}
	if c.Quotes.FanoutTimeout < 0 {
		return fmt.Errorf("core: quotes.fanout_timeout must not be negative")
	}
	if c.Stores.UpdateRetries < 0 {
		return fmt.Errorf("core: stores.update_retries must not be negative")
	}
	return nil
}
