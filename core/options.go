package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
	"github.com/google/uuid"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// IDGenerator mints canonical ids for customers, payouts and quotes.
type IDGenerator func() string

type serviceBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	registry        Registry
	customerStore   CustomerStore
	payoutStore     PayoutStore
	quoteStore      QuoteStore
	healthCache     HealthCache
	eventPublisher  EventPublisher
	jobEnqueuer     JobEnqueuer
	clock           func() time.Time
	idGenerator     IDGenerator
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithRegistry(registry Registry) Option {
	return func(b *serviceBuilder) {
		b.registry = registry
	}
}

func WithCustomerStore(store CustomerStore) Option {
	return func(b *serviceBuilder) {
		b.customerStore = store
	}
}

func WithPayoutStore(store PayoutStore) Option {
	return func(b *serviceBuilder) {
		b.payoutStore = store
	}
}

func WithQuoteStore(store QuoteStore) Option {
	return func(b *serviceBuilder) {
		b.quoteStore = store
	}
}

func WithHealthCache(cache HealthCache) Option {
	return func(b *serviceBuilder) {
		b.healthCache = cache
	}
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(b *serviceBuilder) {
		b.eventPublisher = publisher
	}
}

// WithJobEnqueuer enables scheduling of payout status refresh jobs.
func WithJobEnqueuer(enqueuer JobEnqueuer) Option {
	return func(b *serviceBuilder) {
		b.jobEnqueuer = enqueuer
	}
}

func WithClock(clock func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.clock = clock
	}
}

func WithIDGenerator(generator IDGenerator) Option {
	return func(b *serviceBuilder) {
		b.idGenerator = generator
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("payouts", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     errorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		registry:        NewProviderRegistry(),
		eventPublisher:  NopEventPublisher{},
		clock:           time.Now,
		idGenerator:     uuid.NewString,
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// StaticConfigLoader serves a fixed raw configuration map.
func StaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

// Resolve merges defaults < loaded < runtime. Zero values in the loaded and
// runtime layers do not override lower layers.
func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	routing := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Routing.DefaultProvider) != "" {
		routing["default_provider"] = cfg.Routing.DefaultProvider
	}
	if includeZero || cfg.Routing.EnableFailover {
		routing["enable_failover"] = cfg.Routing.EnableFailover
	}
	if includeZero || len(cfg.Routing.ProviderPriority) > 0 {
		routing["provider_priority"] = append([]string(nil), cfg.Routing.ProviderPriority...)
	}
	if len(routing) > 0 {
		layer["routing"] = routing
	}

	health := map[string]any{}
	if includeZero || cfg.Health.ProbeTimeout != 0 {
		health["probe_timeout"] = cfg.Health.ProbeTimeout
	}
	if includeZero || cfg.Health.CacheTTL != 0 {
		health["cache_ttl"] = cfg.Health.CacheTTL
	}
	if len(health) > 0 {
		layer["health"] = health
	}

	if includeZero || cfg.Quotes.FanoutTimeout != 0 {
		layer["quotes"] = map[string]any{"fanout_timeout": cfg.Quotes.FanoutTimeout}
	}
	if includeZero || cfg.Webhooks.AllowUnsigned {
		layer["webhooks"] = map[string]any{"allow_unsigned": cfg.Webhooks.AllowUnsigned}
	}
	if includeZero || cfg.Stores.UpdateRetries != 0 {
		layer["stores"] = map[string]any{"update_retries": cfg.Stores.UpdateRetries}
	}
	return layer
}
