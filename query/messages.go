package query

import (
	"strings"

	"github.com/goliatone/go-payouts/core"
)

const (
	TypeGetCustomer           = "payouts.query.customer.get"
	TypeGetCustomerByExternal = "payouts.query.customer.get_by_external_id"
	TypeListCustomers         = "payouts.query.customer.list"
	TypeGetPayout             = "payouts.query.payout.get"
	TypeGetDepositWallet      = "payouts.query.payout.deposit_wallet"
	TypeGetPayoutHistory      = "payouts.query.payout.history"
	TypeListProviders         = "payouts.query.provider.list"
	TypeGetProvider           = "payouts.query.provider.get"
	TypeSearchProviders       = "payouts.query.provider.search"
	TypeCheckProviderHealth   = "payouts.query.provider.health"
	TypeCheckAllProviders     = "payouts.query.provider.health_all"
	TypeGetQuote              = "payouts.query.quote.get"
	TypeCompareQuotes         = "payouts.query.quote.compare"
	TypeGetVerificationStatus = "payouts.query.verification.status"
	TypeListDocuments         = "payouts.query.verification.documents"
)

type GetCustomerMessage struct {
	CustomerID string
}

func (GetCustomerMessage) Type() string { return TypeGetCustomer }

func (m GetCustomerMessage) Validate() error {
	return requireID("customer_id", m.CustomerID)
}

type GetCustomerByExternalIDMessage struct {
	ExternalID string
}

func (GetCustomerByExternalIDMessage) Type() string { return TypeGetCustomerByExternal }

func (m GetCustomerByExternalIDMessage) Validate() error {
	return requireID("external_id", m.ExternalID)
}

type ListCustomersMessage struct {
	Filter core.CustomerFilter
}

func (ListCustomersMessage) Type() string { return TypeListCustomers }

func (m ListCustomersMessage) Validate() error {
	return validatePage(m.Filter.Page, m.Filter.PerPage)
}

type GetPayoutMessage struct {
	PayoutID string
}

func (GetPayoutMessage) Type() string { return TypeGetPayout }

func (m GetPayoutMessage) Validate() error {
	return requireID("payout_id", m.PayoutID)
}

type GetDepositWalletMessage struct {
	PayoutID string
}

func (GetDepositWalletMessage) Type() string { return TypeGetDepositWallet }

func (m GetDepositWalletMessage) Validate() error {
	return requireID("payout_id", m.PayoutID)
}

type GetPayoutHistoryMessage struct {
	Filter core.PayoutHistoryFilter
}

func (GetPayoutHistoryMessage) Type() string { return TypeGetPayoutHistory }

func (m GetPayoutHistoryMessage) Validate() error {
	if m.Filter.From != nil && m.Filter.To != nil && m.Filter.To.Before(*m.Filter.From) {
		return queryValidationError("to", "to must not be before from")
	}
	return validatePage(m.Filter.Page, m.Filter.PerPage)
}

type ListProvidersMessage struct{}

func (ListProvidersMessage) Type() string { return TypeListProviders }

func (ListProvidersMessage) Validate() error { return nil }

type GetProviderMessage struct {
	ProviderID string
}

func (GetProviderMessage) Type() string { return TypeGetProvider }

func (m GetProviderMessage) Validate() error {
	return requireID("provider_id", m.ProviderID)
}

type SearchProvidersMessage struct {
	Criteria core.SupportCriteria
}

func (SearchProvidersMessage) Type() string { return TypeSearchProviders }

func (SearchProvidersMessage) Validate() error { return nil }

type CheckProviderHealthMessage struct {
	ProviderID string
}

func (CheckProviderHealthMessage) Type() string { return TypeCheckProviderHealth }

func (m CheckProviderHealthMessage) Validate() error {
	return requireID("provider_id", m.ProviderID)
}

type CheckAllProvidersMessage struct{}

func (CheckAllProvidersMessage) Type() string { return TypeCheckAllProviders }

func (CheckAllProvidersMessage) Validate() error { return nil }

type GetQuoteMessage struct {
	Request core.QuoteRequest
}

func (GetQuoteMessage) Type() string { return TypeGetQuote }

func (m GetQuoteMessage) Validate() error {
	return validateQuote(m.Request)
}

type CompareQuotesMessage struct {
	Request core.QuoteRequest
}

func (CompareQuotesMessage) Type() string { return TypeCompareQuotes }

func (m CompareQuotesMessage) Validate() error {
	return validateQuote(m.Request)
}

// GetVerificationStatusMessage reads KYC for individuals and KYB for
// businesses, selected by Business.
type GetVerificationStatusMessage struct {
	CustomerID string
	Business   bool
}

func (GetVerificationStatusMessage) Type() string { return TypeGetVerificationStatus }

func (m GetVerificationStatusMessage) Validate() error {
	return requireID("customer_id", m.CustomerID)
}

type ListDocumentsMessage struct {
	CustomerID string
}

func (ListDocumentsMessage) Type() string { return TypeListDocuments }

func (m ListDocumentsMessage) Validate() error {
	return requireID("customer_id", m.CustomerID)
}

func validateQuote(req core.QuoteRequest) error {
	if req.SourceAmount <= 0 && req.TargetAmount <= 0 {
		return queryValidationError("source_amount", "source or target amount must be positive")
	}
	if strings.TrimSpace(req.SourceCurrency) == "" {
		return queryValidationError("source_currency", "source currency is required")
	}
	if strings.TrimSpace(req.TargetCurrency) == "" {
		return queryValidationError("target_currency", "target currency is required")
	}
	return nil
}

func validatePage(page int, perPage int) error {
	if page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if perPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	return nil
}

func requireID(field string, value string) error {
	if strings.TrimSpace(value) == "" {
		return queryValidationError(field, strings.ReplaceAll(field, "_", " ")+" is required")
	}
	return nil
}
