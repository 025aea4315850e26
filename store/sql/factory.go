package sqlstore

import (
	"fmt"
	"time"

	"github.com/goliatone/go-payouts/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

const defaultUpdateRetries = 3

// RepositoryFactory builds the SQL backed stores over one bun database.
type RepositoryFactory struct {
	db      *bun.DB
	retries int
	now     func() time.Time

	customerStore *CustomerStore
	payoutStore   *PayoutStore
	quoteStore    *QuoteStore
}

type FactoryOption func(*RepositoryFactory)

// WithUpdateRetries sets how many times an optimistic update is retried after
// losing a version race. Negative values are ignored.
func WithUpdateRetries(retries int) FactoryOption {
	return func(f *RepositoryFactory) {
		if retries >= 0 {
			f.retries = retries
		}
	}
}

func WithClock(now func() time.Time) FactoryOption {
	return func(f *RepositoryFactory) {
		if now != nil {
			f.now = now
		}
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{
		retries: defaultUpdateRetries,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// BuildStores resolves the bun database from a *bun.DB or any value exposing
// DB() *bun.DB and wires every store. Calling it again is a no-op.
func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.customerStore != nil && f.payoutStore != nil && f.quoteStore != nil {
		return nil
	}
	return f.initStores()
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) CustomerStore() *CustomerStore {
	if f == nil {
		return nil
	}
	return f.customerStore
}

func (f *RepositoryFactory) PayoutStore() *PayoutStore {
	if f == nil {
		return nil
	}
	return f.payoutStore
}

func (f *RepositoryFactory) QuoteStore() *QuoteStore {
	if f == nil {
		return nil
	}
	return f.quoteStore
}

// ServiceOptions returns the core options that install every SQL store.
func (f *RepositoryFactory) ServiceOptions() []core.Option {
	if f == nil {
		return nil
	}
	return []core.Option{
		core.WithCustomerStore(f.customerStore),
		core.WithPayoutStore(f.payoutStore),
		core.WithQuoteStore(f.quoteStore),
	}
}

func (f *RepositoryFactory) initStores() error {
	customerRepo := repository.NewRepository[*customerRecord](f.db, customerHandlers())
	if validator, ok := customerRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid customer repository wiring: %w", err)
		}
	}

	payoutRepo := repository.NewRepository[*payoutRecord](f.db, payoutHandlers())
	if validator, ok := payoutRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid payout repository wiring: %w", err)
		}
	}

	quoteRepo := repository.NewRepository[*quoteRecord](f.db, quoteHandlers())
	if validator, ok := quoteRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid quote repository wiring: %w", err)
		}
	}

	f.customerStore = &CustomerStore{
		db:      f.db,
		repo:    customerRepo,
		retries: f.retries,
		now:     f.now,
	}
	f.payoutStore = &PayoutStore{
		db:      f.db,
		repo:    payoutRepo,
		retries: f.retries,
		now:     f.now,
	}
	f.quoteStore = &QuoteStore{
		db:   f.db,
		repo: quoteRepo,
		now:  f.now,
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
