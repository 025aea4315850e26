package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type ProviderInfo struct {
	ID           string
	Name         string
	Description  string
	Environment  string
	Capabilities Capabilities
}

type ProviderDescriptor interface {
	ID() string
	Info() ProviderInfo
}

type CreateCustomerRequest struct {
	ExternalID        string
	Type              CustomerType
	Role              CustomerRole
	Individual        *IndividualProfile
	Business          *BusinessProfile
	Contact           ContactInfo
	Metadata          map[string]any
	PreferredProvider string
}

// UpdateCustomerRequest carries a partial update; nil fields are left
// untouched.
type UpdateCustomerRequest struct {
	Role       *CustomerRole
	Status     *CustomerStatus
	Individual *IndividualProfile
	Business   *BusinessProfile
	Email      *string
	Phone      *string
	Address    *Address
	Metadata   map[string]any
}

type AddBankAccountRequest struct {
	Account BankAccount
}

// ProviderCustomer is a provider's view of a customer.
type ProviderCustomer struct {
	ProviderCustomerID string
	Status             CustomerStatus
	Verification       *VerificationStatusResult
	BankAccounts       []BankAccount
	Metadata           map[string]any
}

type CustomerCapability interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (ProviderCustomer, error)
	GetCustomer(ctx context.Context, providerCustomerID string) (ProviderCustomer, error)
	UpdateCustomer(ctx context.Context, providerCustomerID string, req UpdateCustomerRequest) (ProviderCustomer, error)
	ListCustomers(ctx context.Context, page int, perPage int) ([]ProviderCustomer, error)
	AddBankAccount(ctx context.Context, providerCustomerID string, req AddBankAccountRequest) (BankAccount, error)
}

type InitiateVerificationRequest struct {
	CustomerID        string
	TargetLevel       VerificationLevel
	RedirectURL       string
	PreferredProvider string
	Metadata          map[string]any
}

type VerificationSession struct {
	SessionID       string
	VerificationURL string
	Status          VerificationStatus
	ExpiresAt       *time.Time
}

type VerificationStatusResult struct {
	Status          VerificationStatus
	ProviderStatus  string
	Level           VerificationLevel
	RejectionReason string
	SubmittedAt     *time.Time
	CompletedAt     *time.Time
	ExpiresAt       *time.Time
	Documents       []VerificationDocument
}

type UploadDocumentRequest struct {
	CustomerID  string
	Type        DocumentType
	FileName    string
	ContentType string
	Content     []byte
	ExpiresAt   *time.Time
}

type SubmitVerificationRequest struct {
	CustomerID          string
	DeclarationAccepted bool
	Metadata            map[string]any
}

type VerificationCapability interface {
	InitiateKYC(ctx context.Context, providerCustomerID string, req InitiateVerificationRequest) (VerificationSession, error)
	InitiateKYB(ctx context.Context, providerCustomerID string, req InitiateVerificationRequest) (VerificationSession, error)
	GetVerificationStatus(ctx context.Context, providerCustomerID string) (VerificationStatusResult, error)
	UploadDocument(ctx context.Context, providerCustomerID string, req UploadDocumentRequest) (VerificationDocument, error)
	ListDocuments(ctx context.Context, providerCustomerID string) ([]VerificationDocument, error)
	SubmitVerification(ctx context.Context, providerCustomerID string, req SubmitVerificationRequest) (VerificationStatusResult, error)
}

type QuoteRequest struct {
	ProviderID         string
	SourceCurrency     string
	SourceAmount       float64
	TargetCurrency     string
	TargetAmount       float64
	Network            string
	DestinationCountry string
}

func (r QuoteRequest) Criteria() SupportCriteria {
	return SupportCriteria{
		SourceCurrency:     r.SourceCurrency,
		TargetCurrency:     r.TargetCurrency,
		Network:            r.Network,
		DestinationCountry: r.DestinationCountry,
		SourceAmount:       r.SourceAmount,
	}
}

type QuoteCapability interface {
	CreateQuote(ctx context.Context, req QuoteRequest) (Quote, error)
}

type CreatePayoutRequest struct {
	ExternalID        string
	PreferredProvider string
	QuoteID           string
	SourceCurrency    string
	SourceAmount      float64
	TargetCurrency    string
	TargetAmount      float64
	Network           string
	Sender            PayoutParty
	Beneficiary       PayoutParty
	Purpose           string
	Reference         string
	Metadata          map[string]any
}

func (r CreatePayoutRequest) Criteria() SupportCriteria {
	country := ""
	if r.Beneficiary.BankAccount != nil {
		country = r.Beneficiary.BankAccount.Country
	}
	if country == "" && r.Beneficiary.Address != nil {
		country = r.Beneficiary.Address.Country
	}
	return SupportCriteria{
		SourceCurrency:     r.SourceCurrency,
		TargetCurrency:     r.TargetCurrency,
		Network:            r.Network,
		DestinationCountry: country,
		SourceAmount:       r.SourceAmount,
	}
}

// ProviderPayout is a provider's view of a payout order.
type ProviderPayout struct {
	ProviderOrderID  string
	ProviderQuoteID  string
	Status           PayoutStatus
	ProviderStatus   string
	SourceAmount     float64
	TargetAmount     float64
	ExchangeRate     float64
	Fee              float64
	FeeBreakdown     *FeeBreakdown
	DepositWallet    *DepositWallet
	BlockchainTxHash string
	BankReference    string
	FailureReason    string
	ExternalID       string
	UpdatedAt        time.Time
}

type PayoutCapability interface {
	CreatePayout(ctx context.Context, req CreatePayoutRequest) (ProviderPayout, error)
	GetPayout(ctx context.Context, providerOrderID string) (ProviderPayout, error)
	GetPayoutStatus(ctx context.Context, providerOrderID string) (PayoutStatusUpdate, error)
	CancelPayout(ctx context.Context, providerOrderID string) error
	ListPayouts(ctx context.Context, page int, perPage int) ([]ProviderPayout, error)
}

type WebhookCapability interface {
	ValidateWebhookSignature(payload []byte, signature string) bool
	ParseWebhook(payload []byte) (PayoutStatusUpdate, error)
}

// WebhookSignatureHeaderProvider is implemented by adapters that deliver the
// webhook signature in a provider specific header.
type WebhookSignatureHeaderProvider interface {
	WebhookSignatureHeader() string
}

type HealthStatus struct {
	ProviderID string
	Healthy    bool
	Status     string
	Message    string
	Latency    time.Duration
	CheckedAt  time.Time
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) (HealthStatus, error)
}

// Provider is the full capability contract a payout provider adapter
// implements. The orchestration service depends on nothing else.
type Provider interface {
	ProviderDescriptor
	CustomerCapability
	VerificationCapability
	QuoteCapability
	PayoutCapability
	WebhookCapability
	HealthChecker
}

// UpdateFunc computes the next value of a stored record from its current
// value. Returning an error aborts the update.
type UpdateFunc[T any] func(current T) (T, error)

type CustomerStore interface {
	Create(ctx context.Context, customer Customer) (Customer, error)
	Get(ctx context.Context, id string) (Customer, error)
	GetByExternalID(ctx context.Context, externalID string) (Customer, error)
	Update(ctx context.Context, id string, fn UpdateFunc[Customer]) (Customer, error)
	List(ctx context.Context, filter CustomerFilter) (CustomerPage, error)
}

type PayoutStore interface {
	Create(ctx context.Context, payout Payout) (Payout, error)
	Get(ctx context.Context, id string) (Payout, error)
	GetByProviderOrder(ctx context.Context, providerID string, providerOrderID string) (Payout, error)
	Update(ctx context.Context, id string, fn UpdateFunc[Payout]) (Payout, error)
	List(ctx context.Context, filter PayoutHistoryFilter) (PayoutPage, error)
}

type QuoteStore interface {
	Save(ctx context.Context, quote Quote) error
	Get(ctx context.Context, id string) (Quote, error)
}

// HealthCache memoizes provider health probes for a short window.
type HealthCache interface {
	GetOrProbe(ctx context.Context, providerID string, probe func(ctx context.Context) (HealthStatus, error)) (HealthStatus, error)
	Invalidate(ctx context.Context, providerID string) error
}

type PayoutEventType string

const (
	PayoutEventCreated       PayoutEventType = "payout.created"
	PayoutEventStatusChanged PayoutEventType = "payout.status_changed"
	PayoutEventCancelled     PayoutEventType = "payout.cancelled"
)

type PayoutEvent struct {
	Type           PayoutEventType
	PayoutID       string
	ExternalID     string
	ProviderID     string
	PreviousStatus PayoutStatus
	Status         PayoutStatus
	OccurredAt     time.Time
	Payout         Payout
}

type EventPublisher interface {
	Publish(ctx context.Context, event PayoutEvent) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
