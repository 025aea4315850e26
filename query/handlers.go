package query

import (
	"context"

	"github.com/goliatone/go-payouts/core"
)

// ReadService is the read side of the payout service.
type ReadService interface {
	GetCustomer(ctx context.Context, customerID string) (core.Customer, error)
	GetCustomerByExternalID(ctx context.Context, externalID string) (core.Customer, error)
	ListCustomers(ctx context.Context, filter core.CustomerFilter) (core.CustomerPage, error)
	GetPayout(ctx context.Context, payoutID string) (core.Payout, error)
	GetDepositWallet(ctx context.Context, payoutID string) (core.DepositWallet, error)
	GetPayoutHistory(ctx context.Context, filter core.PayoutHistoryFilter) (core.PayoutPage, error)
	ListProviders() []core.ProviderInfo
	GetProvider(providerID string) (core.ProviderInfo, error)
	SearchProviders(criteria core.SupportCriteria) []core.ProviderInfo
	CheckProviderHealth(ctx context.Context, providerID string) (core.HealthStatus, error)
	CheckAllProviders(ctx context.Context) []core.HealthStatus
	GetQuote(ctx context.Context, req core.QuoteRequest) (core.Quote, error)
	CompareQuotes(ctx context.Context, req core.QuoteRequest) ([]core.QuoteComparison, error)
	GetKYCStatus(ctx context.Context, customerID string) (core.VerificationInfo, error)
	GetKYBStatus(ctx context.Context, customerID string) (core.VerificationInfo, error)
	ListDocuments(ctx context.Context, customerID string) ([]core.VerificationDocument, error)
}

type GetCustomerQuery struct {
	service ReadService
}

func NewGetCustomerQuery(service ReadService) *GetCustomerQuery {
	return &GetCustomerQuery{service: service}
}

func (q *GetCustomerQuery) Query(ctx context.Context, msg GetCustomerMessage) (core.Customer, error) {
	if q == nil || q.service == nil {
		return core.Customer{}, queryDependencyError("query: customer reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Customer{}, err
	}
	return q.service.GetCustomer(ctx, msg.CustomerID)
}

type GetCustomerByExternalIDQuery struct {
	service ReadService
}

func NewGetCustomerByExternalIDQuery(service ReadService) *GetCustomerByExternalIDQuery {
	return &GetCustomerByExternalIDQuery{service: service}
}

func (q *GetCustomerByExternalIDQuery) Query(ctx context.Context, msg GetCustomerByExternalIDMessage) (core.Customer, error) {
	if q == nil || q.service == nil {
		return core.Customer{}, queryDependencyError("query: customer reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Customer{}, err
	}
	return q.service.GetCustomerByExternalID(ctx, msg.ExternalID)
}

type ListCustomersQuery struct {
	service ReadService
}

func NewListCustomersQuery(service ReadService) *ListCustomersQuery {
	return &ListCustomersQuery{service: service}
}

func (q *ListCustomersQuery) Query(ctx context.Context, msg ListCustomersMessage) (core.CustomerPage, error) {
	if q == nil || q.service == nil {
		return core.CustomerPage{}, queryDependencyError("query: customer reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.CustomerPage{}, err
	}
	return q.service.ListCustomers(ctx, msg.Filter)
}

type GetPayoutQuery struct {
	service ReadService
}

func NewGetPayoutQuery(service ReadService) *GetPayoutQuery {
	return &GetPayoutQuery{service: service}
}

func (q *GetPayoutQuery) Query(ctx context.Context, msg GetPayoutMessage) (core.Payout, error) {
	if q == nil || q.service == nil {
		return core.Payout{}, queryDependencyError("query: payout reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Payout{}, err
	}
	return q.service.GetPayout(ctx, msg.PayoutID)
}

type GetDepositWalletQuery struct {
	service ReadService
}

func NewGetDepositWalletQuery(service ReadService) *GetDepositWalletQuery {
	return &GetDepositWalletQuery{service: service}
}

func (q *GetDepositWalletQuery) Query(ctx context.Context, msg GetDepositWalletMessage) (core.DepositWallet, error) {
	if q == nil || q.service == nil {
		return core.DepositWallet{}, queryDependencyError("query: payout reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.DepositWallet{}, err
	}
	return q.service.GetDepositWallet(ctx, msg.PayoutID)
}

type GetPayoutHistoryQuery struct {
	service ReadService
}

func NewGetPayoutHistoryQuery(service ReadService) *GetPayoutHistoryQuery {
	return &GetPayoutHistoryQuery{service: service}
}

func (q *GetPayoutHistoryQuery) Query(ctx context.Context, msg GetPayoutHistoryMessage) (core.PayoutPage, error) {
	if q == nil || q.service == nil {
		return core.PayoutPage{}, queryDependencyError("query: payout reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.PayoutPage{}, err
	}
	return q.service.GetPayoutHistory(ctx, msg.Filter)
}

type ListProvidersQuery struct {
	service ReadService
}

func NewListProvidersQuery(service ReadService) *ListProvidersQuery {
	return &ListProvidersQuery{service: service}
}

func (q *ListProvidersQuery) Query(ctx context.Context, msg ListProvidersMessage) ([]core.ProviderInfo, error) {
	if q == nil || q.service == nil {
		return nil, queryDependencyError("query: provider reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.service.ListProviders(), nil
}

type GetProviderQuery struct {
	service ReadService
}

func NewGetProviderQuery(service ReadService) *GetProviderQuery {
	return &GetProviderQuery{service: service}
}

func (q *GetProviderQuery) Query(ctx context.Context, msg GetProviderMessage) (core.ProviderInfo, error) {
	if q == nil || q.service == nil {
		return core.ProviderInfo{}, queryDependencyError("query: provider reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.ProviderInfo{}, err
	}
	return q.service.GetProvider(msg.ProviderID)
}

type SearchProvidersQuery struct {
	service ReadService
}

func NewSearchProvidersQuery(service ReadService) *SearchProvidersQuery {
	return &SearchProvidersQuery{service: service}
}

func (q *SearchProvidersQuery) Query(ctx context.Context, msg SearchProvidersMessage) ([]core.ProviderInfo, error) {
	if q == nil || q.service == nil {
		return nil, queryDependencyError("query: provider reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.service.SearchProviders(msg.Criteria), nil
}

type CheckProviderHealthQuery struct {
	service ReadService
}

func NewCheckProviderHealthQuery(service ReadService) *CheckProviderHealthQuery {
	return &CheckProviderHealthQuery{service: service}
}

func (q *CheckProviderHealthQuery) Query(ctx context.Context, msg CheckProviderHealthMessage) (core.HealthStatus, error) {
	if q == nil || q.service == nil {
		return core.HealthStatus{}, queryDependencyError("query: provider reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.HealthStatus{}, err
	}
	return q.service.CheckProviderHealth(ctx, msg.ProviderID)
}

type CheckAllProvidersQuery struct {
	service ReadService
}

func NewCheckAllProvidersQuery(service ReadService) *CheckAllProvidersQuery {
	return &CheckAllProvidersQuery{service: service}
}

func (q *CheckAllProvidersQuery) Query(ctx context.Context, msg CheckAllProvidersMessage) ([]core.HealthStatus, error) {
	if q == nil || q.service == nil {
		return nil, queryDependencyError("query: provider reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.service.CheckAllProviders(ctx), nil
}

type GetQuoteQuery struct {
	service ReadService
}

func NewGetQuoteQuery(service ReadService) *GetQuoteQuery {
	return &GetQuoteQuery{service: service}
}

func (q *GetQuoteQuery) Query(ctx context.Context, msg GetQuoteMessage) (core.Quote, error) {
	if q == nil || q.service == nil {
		return core.Quote{}, queryDependencyError("query: quote reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Quote{}, err
	}
	return q.service.GetQuote(ctx, msg.Request)
}

type CompareQuotesQuery struct {
	service ReadService
}

func NewCompareQuotesQuery(service ReadService) *CompareQuotesQuery {
	return &CompareQuotesQuery{service: service}
}

func (q *CompareQuotesQuery) Query(ctx context.Context, msg CompareQuotesMessage) ([]core.QuoteComparison, error) {
	if q == nil || q.service == nil {
		return nil, queryDependencyError("query: quote reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.service.CompareQuotes(ctx, msg.Request)
}

type GetVerificationStatusQuery struct {
	service ReadService
}

func NewGetVerificationStatusQuery(service ReadService) *GetVerificationStatusQuery {
	return &GetVerificationStatusQuery{service: service}
}

func (q *GetVerificationStatusQuery) Query(ctx context.Context, msg GetVerificationStatusMessage) (core.VerificationInfo, error) {
	if q == nil || q.service == nil {
		return core.VerificationInfo{}, queryDependencyError("query: verification reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.VerificationInfo{}, err
	}
	if msg.Business {
		return q.service.GetKYBStatus(ctx, msg.CustomerID)
	}
	return q.service.GetKYCStatus(ctx, msg.CustomerID)
}

type ListDocumentsQuery struct {
	service ReadService
}

func NewListDocumentsQuery(service ReadService) *ListDocumentsQuery {
	return &ListDocumentsQuery{service: service}
}

func (q *ListDocumentsQuery) Query(ctx context.Context, msg ListDocumentsMessage) ([]core.VerificationDocument, error) {
	if q == nil || q.service == nil {
		return nil, queryDependencyError("query: verification reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.service.ListDocuments(ctx, msg.CustomerID)
}
