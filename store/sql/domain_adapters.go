package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-payouts/core"
)

func newCustomerRecord(customer core.Customer) *customerRecord {
	customer = customer.Clone()
	record := &customerRecord{
		ID:                 strings.TrimSpace(customer.ID),
		Type:               string(customer.Type),
		Role:               string(customer.Role),
		Status:             string(customer.Status),
		PrimaryProvider:    customer.PrimaryProvider,
		VerificationStatus: string(customer.Verification.Status),
		Individual:         customer.Individual,
		Business:           customer.Business,
		Contact:            customer.Contact,
		BankAccounts:       customer.BankAccounts,
		ProviderIDs:        customer.ProviderIDs,
		Verification:       customer.Verification,
		Metadata:           customer.Metadata,
		Version:            customer.Version,
		CreatedAt:          customer.CreatedAt.UTC(),
		UpdatedAt:          customer.UpdatedAt.UTC(),
	}
	if external := strings.TrimSpace(customer.ExternalID); external != "" {
		record.ExternalID = &external
	}
	if record.BankAccounts == nil {
		record.BankAccounts = []core.BankAccount{}
	}
	return record
}

func (r *customerRecord) toDomain() core.Customer {
	if r == nil {
		return core.Customer{}
	}
	customer := core.Customer{
		ID:              r.ID,
		Type:            core.CustomerType(r.Type),
		Role:            core.CustomerRole(r.Role),
		Status:          core.CustomerStatus(r.Status),
		PrimaryProvider: r.PrimaryProvider,
		Individual:      r.Individual,
		Business:        r.Business,
		Contact:         r.Contact,
		BankAccounts:    r.BankAccounts,
		ProviderIDs:     r.ProviderIDs,
		Verification:    r.Verification,
		Metadata:        r.Metadata,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
	if r.ExternalID != nil {
		customer.ExternalID = *r.ExternalID
	}
	return customer.Clone()
}

func newPayoutRecord(payout core.Payout) *payoutRecord {
	payout = payout.Clone()
	return &payoutRecord{
		ID:               strings.TrimSpace(payout.ID),
		ExternalID:       payout.ExternalID,
		ProviderID:       payout.ProviderID,
		ProviderOrderID:  payout.ProviderOrderID,
		QuoteID:          payout.QuoteID,
		Status:           string(payout.Status),
		ProviderStatus:   payout.ProviderStatus,
		SourceCurrency:   payout.SourceCurrency,
		SourceAmount:     payout.SourceAmount,
		TargetCurrency:   payout.TargetCurrency,
		TargetAmount:     payout.TargetAmount,
		ExchangeRate:     payout.ExchangeRate,
		Fee:              payout.Fee,
		FeeBreakdown:     payout.FeeBreakdown,
		Network:          payout.Network,
		SenderID:         payout.Sender.CustomerID,
		BeneficiaryID:    payout.Beneficiary.CustomerID,
		Sender:           payout.Sender,
		Beneficiary:      payout.Beneficiary,
		DepositWallet:    payout.DepositWallet,
		BlockchainTxHash: payout.BlockchainTxHash,
		BankReference:    payout.BankReference,
		FailureReason:    payout.FailureReason,
		Purpose:          payout.Purpose,
		Reference:        payout.Reference,
		Metadata:         payout.Metadata,
		Version:          payout.Version,
		CreatedAt:        payout.CreatedAt.UTC(),
		UpdatedAt:        payout.UpdatedAt.UTC(),
		CompletedAt:      payout.CompletedAt,
	}
}

func (r *payoutRecord) toDomain() core.Payout {
	if r == nil {
		return core.Payout{}
	}
	payout := core.Payout{
		ID:               r.ID,
		ExternalID:       r.ExternalID,
		ProviderID:       r.ProviderID,
		ProviderOrderID:  r.ProviderOrderID,
		QuoteID:          r.QuoteID,
		Status:           core.PayoutStatus(r.Status),
		ProviderStatus:   r.ProviderStatus,
		SourceCurrency:   r.SourceCurrency,
		SourceAmount:     r.SourceAmount,
		TargetCurrency:   r.TargetCurrency,
		TargetAmount:     r.TargetAmount,
		ExchangeRate:     r.ExchangeRate,
		Fee:              r.Fee,
		FeeBreakdown:     r.FeeBreakdown,
		Network:          r.Network,
		Sender:           r.Sender,
		Beneficiary:      r.Beneficiary,
		DepositWallet:    r.DepositWallet,
		BlockchainTxHash: r.BlockchainTxHash,
		BankReference:    r.BankReference,
		FailureReason:    r.FailureReason,
		Purpose:          r.Purpose,
		Reference:        r.Reference,
		Metadata:         r.Metadata,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
		CompletedAt:      r.CompletedAt,
	}
	return payout.Clone()
}

func newQuoteRecord(quote core.Quote) *quoteRecord {
	record := &quoteRecord{
		ID:              strings.TrimSpace(quote.ID),
		ProviderID:      quote.ProviderID,
		ProviderQuoteID: quote.ProviderQuoteID,
		SourceCurrency:  quote.SourceCurrency,
		SourceAmount:    quote.SourceAmount,
		TargetCurrency:  quote.TargetCurrency,
		TargetAmount:    quote.TargetAmount,
		ExchangeRate:    quote.ExchangeRate,
		Fee:             quote.Fee,
		Network:         quote.Network,
		CreatedAt:       quote.CreatedAt.UTC(),
	}
	if quote.FeeBreakdown != nil {
		breakdown := *quote.FeeBreakdown
		record.FeeBreakdown = &breakdown
	}
	if !quote.ExpiresAt.IsZero() {
		expires := quote.ExpiresAt.UTC()
		record.ExpiresAt = &expires
	}
	return record
}

func (r *quoteRecord) toDomain() core.Quote {
	if r == nil {
		return core.Quote{}
	}
	quote := core.Quote{
		ID:              r.ID,
		ProviderID:      r.ProviderID,
		ProviderQuoteID: r.ProviderQuoteID,
		SourceCurrency:  r.SourceCurrency,
		SourceAmount:    r.SourceAmount,
		TargetCurrency:  r.TargetCurrency,
		TargetAmount:    r.TargetAmount,
		ExchangeRate:    r.ExchangeRate,
		Fee:             r.Fee,
		Network:         r.Network,
		CreatedAt:       r.CreatedAt.UTC(),
	}
	if r.FeeBreakdown != nil {
		breakdown := *r.FeeBreakdown
		quote.FeeBreakdown = &breakdown
	}
	if r.ExpiresAt != nil {
		quote.ExpiresAt = r.ExpiresAt.UTC()
	}
	return quote
}

func stampTimes(created *time.Time, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
