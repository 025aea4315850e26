package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Service orchestrates customers, verification, quotes, payouts and webhooks
// across the registered providers. It owns the canonical records; providers
// only ever see provider scoped ids.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	registry        Registry
	selector        *ProviderSelector
	customers       CustomerStore
	payouts         PayoutStore
	quotes          QuoteStore
	healthCache     HealthCache
	events          EventPublisher
	jobs            JobEnqueuer
	now             func() time.Time
	newID           IDGenerator
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("payouts", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("payouts"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = errorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.registry == nil {
		builder.registry = NewProviderRegistry()
	}
	if builder.customerStore == nil {
		builder.customerStore = NewMemoryCustomerStore()
	}
	if builder.payoutStore == nil {
		builder.payoutStore = NewMemoryPayoutStore()
	}
	if builder.quoteStore == nil {
		builder.quoteStore = NewMemoryQuoteStore()
	}
	if builder.eventPublisher == nil {
		builder.eventPublisher = NopEventPublisher{}
	}
	if builder.clock == nil {
		builder.clock = time.Now
	}
	if builder.idGenerator == nil {
		builder.idGenerator = uuid.NewString
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	selector := NewProviderSelector(builder.registry, finalConfig, builder.healthCache)
	selector.now = builder.clock

	return &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		registry:        builder.registry,
		selector:        selector,
		customers:       builder.customerStore,
		payouts:         builder.payoutStore,
		quotes:          builder.quoteStore,
		healthCache:     builder.healthCache,
		events:          builder.eventPublisher,
		jobs:            builder.jobEnqueuer,
		now:             builder.clock,
		newID:           builder.idGenerator,
	}, nil
}

func (s *Service) Config() Config {
	return s.config
}

func (s *Service) Registry() Registry {
	return s.registry
}

func (s *Service) Selector() *ProviderSelector {
	return s.selector
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return errorMapper(err)
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) publish(ctx context.Context, event PayoutEvent) {
	if s.events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logWarn(ctx, "payout event publish failed", map[string]any{
			"payout_id":  event.PayoutID,
			"event_type": string(event.Type),
			"error":      err.Error(),
		})
	}
}
