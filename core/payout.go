package core

import (
	"fmt"
	"strings"
	"time"
)

type PayoutStatus string

const (
	PayoutStatusCreated           PayoutStatus = "created"
	PayoutStatusAwaitingFunds     PayoutStatus = "awaiting_funds"
	PayoutStatusFundsReceived     PayoutStatus = "funds_received"
	PayoutStatusProcessing        PayoutStatus = "processing"
	PayoutStatusSentToBeneficiary PayoutStatus = "sent_to_beneficiary"
	PayoutStatusCompleted         PayoutStatus = "completed"
	PayoutStatusFailed            PayoutStatus = "failed"
	PayoutStatusCancelled         PayoutStatus = "cancelled"
	PayoutStatusExpired           PayoutStatus = "expired"
	PayoutStatusPendingReview     PayoutStatus = "pending_review"
	PayoutStatusRefunded          PayoutStatus = "refunded"
)

// PayoutStatuses lists every canonical payout status.
var PayoutStatuses = []PayoutStatus{
	PayoutStatusCreated,
	PayoutStatusAwaitingFunds,
	PayoutStatusFundsReceived,
	PayoutStatusProcessing,
	PayoutStatusSentToBeneficiary,
	PayoutStatusCompleted,
	PayoutStatusFailed,
	PayoutStatusCancelled,
	PayoutStatusExpired,
	PayoutStatusPendingReview,
	PayoutStatusRefunded,
}

func (s PayoutStatus) IsTerminal() bool {
	switch s {
	case PayoutStatusCompleted,
		PayoutStatusFailed,
		PayoutStatusCancelled,
		PayoutStatusExpired,
		PayoutStatusRefunded:
		return true
	default:
		return false
	}
}

// progressRank orders the forward chain Created through Completed. Statuses
// outside the chain rank zero.
func (s PayoutStatus) progressRank() int {
	switch s {
	case PayoutStatusCreated:
		return 1
	case PayoutStatusAwaitingFunds:
		return 2
	case PayoutStatusFundsReceived:
		return 3
	case PayoutStatusProcessing:
		return 4
	case PayoutStatusSentToBeneficiary:
		return 5
	case PayoutStatusCompleted:
		return 6
	default:
		return 0
	}
}

// CanTransitionTo reports whether a payout in status s may move to next.
// Terminal statuses are absorbing, the forward chain never moves backwards,
// and PendingReview or any terminal status is reachable from every
// non-terminal status. A payout leaves PendingReview to any status.
func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	switch {
	case next == "" || next == s:
		return next == s
	case s.IsTerminal():
		return false
	case next.IsTerminal(), next == PayoutStatusPendingReview, s == PayoutStatusPendingReview:
		return true
	}
	return next.progressRank() > s.progressRank()
}

func (s PayoutStatus) IsCancellable() bool {
	switch s {
	case PayoutStatusCreated, PayoutStatusAwaitingFunds, PayoutStatusPendingReview:
		return true
	default:
		return false
	}
}

type FeeBreakdown struct {
	NetworkFee    float64
	ProcessingFee float64
	FXSpread      float64
	BankFee       float64
	DeveloperFee  float64
}

func (f FeeBreakdown) Total() float64 {
	return f.NetworkFee + f.ProcessingFee + f.FXSpread + f.BankFee + f.DeveloperFee
}

// PayoutParty identifies the sender or beneficiary of a payout. BankAccount is
// only meaningful for the beneficiary.
type PayoutParty struct {
	CustomerID  string
	Type        CustomerType
	Name        string
	Email       string
	Phone       string
	Address     *Address
	BankAccount *BankAccount
}

func (p PayoutParty) clone() PayoutParty {
	out := p
	if p.Address != nil {
		address := *p.Address
		out.Address = &address
	}
	if p.BankAccount != nil {
		account := *p.BankAccount
		out.BankAccount = &account
	}
	return out
}

type DepositWallet struct {
	Address        string
	Network        string
	Currency       string
	ExpectedAmount float64
	ExpiresAt      *time.Time
	Memo           string
}

type Payout struct {
	ID               string
	ExternalID       string
	ProviderID       string
	ProviderOrderID  string
	QuoteID          string
	Status           PayoutStatus
	ProviderStatus   string
	SourceCurrency   string
	SourceAmount     float64
	TargetCurrency   string
	TargetAmount     float64
	ExchangeRate     float64
	Fee              float64
	FeeBreakdown     *FeeBreakdown
	Network          string
	Sender           PayoutParty
	Beneficiary      PayoutParty
	DepositWallet    *DepositWallet
	BlockchainTxHash string
	BankReference    string
	FailureReason    string
	Purpose          string
	Reference        string
	Metadata         map[string]any
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

func (p Payout) Clone() Payout {
	out := p
	if p.FeeBreakdown != nil {
		breakdown := *p.FeeBreakdown
		out.FeeBreakdown = &breakdown
	}
	if p.DepositWallet != nil {
		wallet := *p.DepositWallet
		wallet.ExpiresAt = cloneTime(p.DepositWallet.ExpiresAt)
		out.DepositWallet = &wallet
	}
	out.Sender = p.Sender.clone()
	out.Beneficiary = p.Beneficiary.clone()
	out.Metadata = copyAnyMap(p.Metadata)
	out.CompletedAt = cloneTime(p.CompletedAt)
	return out
}

// DestinationCountry is the country of the beneficiary bank account, the
// routing key used for provider selection.
func (p Payout) DestinationCountry() string {
	if p.Beneficiary.BankAccount != nil && strings.TrimSpace(p.Beneficiary.BankAccount.Country) != "" {
		return p.Beneficiary.BankAccount.Country
	}
	if p.Beneficiary.Address != nil {
		return p.Beneficiary.Address.Country
	}
	return ""
}

type Quote struct {
	ID              string
	ProviderID      string
	ProviderQuoteID string
	SourceCurrency  string
	SourceAmount    float64
	TargetCurrency  string
	TargetAmount    float64
	ExchangeRate    float64
	Fee             float64
	FeeBreakdown    *FeeBreakdown
	Network         string
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

func (q Quote) Expired(now time.Time) bool {
	return !q.ExpiresAt.IsZero() && !q.ExpiresAt.After(now)
}

// PayoutStatusUpdate is the canonical form of a provider reported status
// change, produced by polling or by webhook normalization.
type PayoutStatusUpdate struct {
	PayoutID         string
	ProviderOrderID  string
	ProviderID       string
	Status           PayoutStatus
	ProviderStatus   string
	BlockchainTxHash string
	BankReference    string
	FailureReason    string
	Timestamp        time.Time
}

type PayoutHistoryFilter struct {
	ExternalID    string
	SenderID      string
	BeneficiaryID string
	ProviderID    string
	Status        PayoutStatus
	From          *time.Time
	To            *time.Time
	Page          int
	PerPage       int
}

type PayoutPage struct {
	Items   []Payout
	Total   int
	Page    int
	PerPage int
}

// SupportCriteria is the currency/network/country combination a provider must
// support to serve a request.
type SupportCriteria struct {
	SourceCurrency     string
	TargetCurrency     string
	Network            string
	DestinationCountry string
	// SourceAmount is checked against the provider amount limits when positive.
	SourceAmount float64
}

func (c SupportCriteria) normalized() SupportCriteria {
	return SupportCriteria{
		SourceCurrency:     strings.ToUpper(strings.TrimSpace(c.SourceCurrency)),
		TargetCurrency:     strings.ToUpper(strings.TrimSpace(c.TargetCurrency)),
		Network:            strings.ToLower(strings.TrimSpace(c.Network)),
		DestinationCountry: strings.ToUpper(strings.TrimSpace(c.DestinationCountry)),
		SourceAmount:       c.SourceAmount,
	}
}

func (c SupportCriteria) String() string {
	c = c.normalized()
	return fmt.Sprintf("%s->%s on %s to %s", c.SourceCurrency, c.TargetCurrency, valueOr(c.Network, "any network"), valueOr(c.DestinationCountry, "any country"))
}

func (c SupportCriteria) fields() map[string]any {
	c = c.normalized()
	fields := map[string]any{
		"source_currency":     c.SourceCurrency,
		"target_currency":     c.TargetCurrency,
		"network":             c.Network,
		"destination_country": c.DestinationCountry,
	}
	if c.SourceAmount > 0 {
		fields["source_amount"] = c.SourceAmount
	}
	return fields
}

func valueOr(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
