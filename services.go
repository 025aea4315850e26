package payouts

import "github.com/goliatone/go-payouts/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type Provider = core.Provider
type Registry = core.Registry
type CustomerStore = core.CustomerStore
type PayoutStore = core.PayoutStore
type QuoteStore = core.QuoteStore
type HealthCache = core.HealthCache
type EventPublisher = core.EventPublisher
type JobEnqueuer = core.JobEnqueuer

type Customer = core.Customer
type CreateCustomerRequest = core.CreateCustomerRequest
type UpdateCustomerRequest = core.UpdateCustomerRequest

type Payout = core.Payout
type PayoutStatus = core.PayoutStatus
type CreatePayoutRequest = core.CreatePayoutRequest

type Quote = core.Quote
type QuoteRequest = core.QuoteRequest

type PayoutEvent = core.PayoutEvent

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorMapper     = core.WithErrorMapper
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithRegistry        = core.WithRegistry
	WithCustomerStore   = core.WithCustomerStore
	WithPayoutStore     = core.WithPayoutStore
	WithQuoteStore      = core.WithQuoteStore
	WithHealthCache     = core.WithHealthCache
	WithEventPublisher  = core.WithEventPublisher
	WithJobEnqueuer     = core.WithJobEnqueuer
	WithClock           = core.WithClock
	WithIDGenerator     = core.WithIDGenerator
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
