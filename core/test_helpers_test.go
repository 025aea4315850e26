package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubProvider struct {
	id           string
	capabilities Capabilities
	healthy      bool
	healthErr    error

	mu        sync.Mutex
	calls     map[string]int
	nextID    int64
	quote     Quote
	quoteErr  error
	payout    ProviderPayout
	payoutErr error
	status    PayoutStatusUpdate
	statusErr error
	cancelErr error
	verify    VerificationStatusResult
	documents []VerificationDocument
	secret    string
	parseErr  error
	webhook   PayoutStatusUpdate
}

func newStubProvider(id string) *stubProvider {
	return &stubProvider{
		id:      id,
		healthy: true,
		capabilities: Capabilities{
			Stablecoins:    []string{"USDC", "USDT"},
			FiatCurrencies: []string{"EUR", "MXN"},
			Networks:       []string{"polygon", "ethereum"},
			Features:       []string{FeatureKYC, FeatureKYB, FeatureQuotes},
		},
		calls:  map[string]int{},
		secret: "whsec",
	}
}

func (p *stubProvider) record(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[name]++
}

func (p *stubProvider) callCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *stubProvider) totalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for name, count := range p.calls {
		if name != "HealthCheck" {
			total += count
		}
	}
	return total
}

func (p *stubProvider) mintID(prefix string) string {
	return fmt.Sprintf("%s-%s-%d", p.id, prefix, atomic.AddInt64(&p.nextID, 1))
}

func (p *stubProvider) ID() string { return p.id }

func (p *stubProvider) Info() ProviderInfo {
	return ProviderInfo{ID: p.id, Name: strings.ToUpper(p.id), Capabilities: p.capabilities}
}

func (p *stubProvider) CreateCustomer(_ context.Context, req CreateCustomerRequest) (ProviderCustomer, error) {
	p.record("CreateCustomer")
	return ProviderCustomer{ProviderCustomerID: p.mintID("cus"), Status: CustomerStatusPending}, nil
}

func (p *stubProvider) GetCustomer(_ context.Context, id string) (ProviderCustomer, error) {
	p.record("GetCustomer")
	return ProviderCustomer{ProviderCustomerID: id}, nil
}

func (p *stubProvider) UpdateCustomer(_ context.Context, id string, _ UpdateCustomerRequest) (ProviderCustomer, error) {
	p.record("UpdateCustomer")
	return ProviderCustomer{ProviderCustomerID: id}, nil
}

func (p *stubProvider) ListCustomers(context.Context, int, int) ([]ProviderCustomer, error) {
	p.record("ListCustomers")
	return nil, nil
}

func (p *stubProvider) AddBankAccount(_ context.Context, _ string, req AddBankAccountRequest) (BankAccount, error) {
	p.record("AddBankAccount")
	account := req.Account
	account.ID = p.mintID("ba")
	return account, nil
}

func (p *stubProvider) InitiateKYC(_ context.Context, _ string, _ InitiateVerificationRequest) (VerificationSession, error) {
	p.record("InitiateKYC")
	return VerificationSession{SessionID: p.mintID("kyc"), VerificationURL: "https://verify.example/kyc"}, nil
}

func (p *stubProvider) InitiateKYB(_ context.Context, _ string, _ InitiateVerificationRequest) (VerificationSession, error) {
	p.record("InitiateKYB")
	return VerificationSession{SessionID: p.mintID("kyb"), VerificationURL: "https://verify.example/kyb"}, nil
}

func (p *stubProvider) GetVerificationStatus(context.Context, string) (VerificationStatusResult, error) {
	p.record("GetVerificationStatus")
	return p.verify, nil
}

func (p *stubProvider) UploadDocument(_ context.Context, _ string, req UploadDocumentRequest) (VerificationDocument, error) {
	p.record("UploadDocument")
	return VerificationDocument{ID: p.mintID("doc"), Type: req.Type, Status: DocumentStatusPending}, nil
}

func (p *stubProvider) ListDocuments(context.Context, string) ([]VerificationDocument, error) {
	p.record("ListDocuments")
	return append([]VerificationDocument(nil), p.documents...), nil
}

func (p *stubProvider) SubmitVerification(context.Context, string, SubmitVerificationRequest) (VerificationStatusResult, error) {
	p.record("SubmitVerification")
	return VerificationStatusResult{Status: VerificationStatusInReview}, nil
}

func (p *stubProvider) CreateQuote(_ context.Context, req QuoteRequest) (Quote, error) {
	p.record("CreateQuote")
	if p.quoteErr != nil {
		return Quote{}, p.quoteErr
	}
	quote := p.quote
	if quote.ID == "" {
		quote.ID = p.mintID("quote")
	}
	if quote.SourceAmount == 0 {
		quote.SourceAmount = req.SourceAmount
	}
	if quote.ExpiresAt.IsZero() {
		quote.ExpiresAt = time.Now().Add(time.Hour)
	}
	return quote, nil
}

func (p *stubProvider) CreatePayout(_ context.Context, req CreatePayoutRequest) (ProviderPayout, error) {
	p.record("CreatePayout")
	if p.payoutErr != nil {
		return ProviderPayout{}, p.payoutErr
	}
	payout := p.payout
	payout.ProviderOrderID = p.mintID("order")
	payout.ProviderQuoteID = req.QuoteID
	if payout.Status == "" {
		payout.Status = PayoutStatusAwaitingFunds
	}
	return payout, nil
}

func (p *stubProvider) GetPayout(_ context.Context, id string) (ProviderPayout, error) {
	p.record("GetPayout")
	payout := p.payout
	payout.ProviderOrderID = id
	return payout, nil
}

func (p *stubProvider) GetPayoutStatus(_ context.Context, id string) (PayoutStatusUpdate, error) {
	p.record("GetPayoutStatus")
	if p.statusErr != nil {
		return PayoutStatusUpdate{}, p.statusErr
	}
	update := p.status
	update.ProviderOrderID = id
	return update, nil
}

func (p *stubProvider) CancelPayout(context.Context, string) error {
	p.record("CancelPayout")
	return p.cancelErr
}

func (p *stubProvider) ListPayouts(context.Context, int, int) ([]ProviderPayout, error) {
	p.record("ListPayouts")
	return nil, nil
}

func (p *stubProvider) ValidateWebhookSignature(payload []byte, signature string) bool {
	p.record("ValidateWebhookSignature")
	return signature == "sig:"+p.secret
}

func (p *stubProvider) ParseWebhook([]byte) (PayoutStatusUpdate, error) {
	p.record("ParseWebhook")
	if p.parseErr != nil {
		return PayoutStatusUpdate{}, p.parseErr
	}
	return p.webhook, nil
}

func (p *stubProvider) HealthCheck(context.Context) (HealthStatus, error) {
	p.record("HealthCheck")
	if p.healthErr != nil {
		return HealthStatus{}, p.healthErr
	}
	status := "ok"
	if !p.healthy {
		status = "down"
	}
	return HealthStatus{ProviderID: p.id, Healthy: p.healthy, Status: status}, nil
}

var _ Provider = (*stubProvider)(nil)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	return copyAnyMap(l.values), nil
}

type captureEventPublisher struct {
	mu     sync.Mutex
	events []PayoutEvent
}

func (p *captureEventPublisher) Publish(_ context.Context, event PayoutEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *captureEventPublisher) snapshot() []PayoutEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PayoutEvent(nil), p.events...)
}

type captureEnqueuer struct {
	mu       sync.Mutex
	messages []*JobExecutionMessage
}

func (e *captureEnqueuer) Enqueue(_ context.Context, msg *JobExecutionMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.messages = append(e.messages, msg)
	return nil
}

// newTestService registers providers and builds a service with the given
// routing config and options.
func newTestService(t *testing.T, routing RoutingConfig, providers []*stubProvider, opts ...Option) *Service {
	t.Helper()
	registry := NewProviderRegistry()
	for _, provider := range providers {
		if err := registry.Register(provider); err != nil {
			t.Fatalf("register provider: %v", err)
		}
	}
	cfg := DefaultConfig()
	cfg.Routing = routing
	all := append([]Option{
		WithRegistry(registry),
		WithLogger(stubLogger{}),
	}, opts...)
	svc, err := NewService(cfg, all...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func individualRequest(email string) CreateCustomerRequest {
	return CreateCustomerRequest{
		Type:       CustomerTypeIndividual,
		Role:       CustomerRoleSender,
		Individual: &IndividualProfile{FirstName: "Ana", LastName: "Ruiz"},
		Contact:    ContactInfo{Email: email},
	}
}

func businessRequest(email string) CreateCustomerRequest {
	return CreateCustomerRequest{
		Type:     CustomerTypeBusiness,
		Role:     CustomerRoleBeneficiary,
		Business: &BusinessProfile{LegalName: "Acme SA"},
		Contact:  ContactInfo{Email: email},
	}
}

func payoutRequest(country string) CreatePayoutRequest {
	return CreatePayoutRequest{
		SourceCurrency: "USDC",
		SourceAmount:   100,
		TargetCurrency: "EUR",
		Network:        "polygon",
		Sender:         PayoutParty{CustomerID: "sender-1", Type: CustomerTypeIndividual},
		Beneficiary: PayoutParty{
			CustomerID:  "beneficiary-1",
			Type:        CustomerTypeIndividual,
			Name:        "Luis Vega",
			BankAccount: &BankAccount{IBAN: "ES9121000418450200051332", Country: country, Currency: "EUR"},
		},
	}
}
