package devkit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-payouts/core"
	"github.com/goliatone/go-payouts/webhooks"
)

const (
	FakeSignatureHeader = "X-Fake-Signature"
	defaultFakeRate     = 0.92
	defaultFakeFee      = 1.5
)

// Operation names accepted by Fail and reported by Calls.
const (
	OpCreateCustomer        = "CreateCustomer"
	OpGetCustomer           = "GetCustomer"
	OpUpdateCustomer        = "UpdateCustomer"
	OpListCustomers         = "ListCustomers"
	OpAddBankAccount        = "AddBankAccount"
	OpInitiateKYC           = "InitiateKYC"
	OpInitiateKYB           = "InitiateKYB"
	OpGetVerificationStatus = "GetVerificationStatus"
	OpUploadDocument        = "UploadDocument"
	OpListDocuments         = "ListDocuments"
	OpSubmitVerification    = "SubmitVerification"
	OpCreateQuote           = "CreateQuote"
	OpCreatePayout          = "CreatePayout"
	OpGetPayout             = "GetPayout"
	OpGetPayoutStatus       = "GetPayoutStatus"
	OpCancelPayout          = "CancelPayout"
	OpListPayouts           = "ListPayouts"
	OpHealthCheck           = "HealthCheck"
)

// FakeWebhookEvent is the payload format understood by FakeProvider.
type FakeWebhookEvent struct {
	OrderID       string    `json:"order_id"`
	ExternalID    string    `json:"external_id,omitempty"`
	Status        string    `json:"status"`
	TxHash        string    `json:"tx_hash,omitempty"`
	BankReference string    `json:"bank_reference,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// FakeStatusEntries maps every canonical status string onto itself so tests
// can drive any status through the fake.
func FakeStatusEntries() map[string]core.PayoutStatus {
	entries := map[string]core.PayoutStatus{}
	for _, status := range core.PayoutStatuses {
		entries[string(status)] = status
	}
	return entries
}

var FakeStatuses = core.NewStatusTable(core.PayoutStatusProcessing, FakeStatusEntries())

// FakeProvider is an in-memory provider adapter for tests and local runs.
type FakeProvider struct {
	mu            sync.Mutex
	id            string
	capabilities  core.Capabilities
	secret        string
	healthy       bool
	rate          float64
	fee           float64
	initialStatus core.PayoutStatus
	now           func() time.Time

	seq           int
	customers     map[string]core.ProviderCustomer
	verifications map[string]core.VerificationStatusResult
	documents     map[string][]core.VerificationDocument
	payouts       map[string]core.ProviderPayout
	failures      map[string]error
	calls         map[string]int
}

type FakeOption func(*FakeProvider)

func WithCapabilities(capabilities core.Capabilities) FakeOption {
	return func(p *FakeProvider) {
		p.capabilities = capabilities.Clone()
	}
}

func WithWebhookSecret(secret string) FakeOption {
	return func(p *FakeProvider) {
		p.secret = secret
	}
}

func WithPricing(rate float64, fee float64) FakeOption {
	return func(p *FakeProvider) {
		p.rate = rate
		p.fee = fee
	}
}

func WithInitialStatus(status core.PayoutStatus) FakeOption {
	return func(p *FakeProvider) {
		p.initialStatus = status
	}
}

func WithClock(now func() time.Time) FakeOption {
	return func(p *FakeProvider) {
		if now != nil {
			p.now = now
		}
	}
}

func DefaultFakeCapabilities() core.Capabilities {
	return core.Capabilities{
		Stablecoins:    []string{"USDC", "USDT"},
		FiatCurrencies: []string{"EUR", "USD", "GBP"},
		Networks:       []string{"ethereum", "polygon", "solana"},
		Features:       []string{core.FeatureKYC, core.FeatureKYB, core.FeatureQuotes, core.FeatureCancellation, core.FeatureWebhooks},
	}
}

func NewFakeProvider(id string, opts ...FakeOption) *FakeProvider {
	provider := &FakeProvider{
		id:            strings.TrimSpace(strings.ToLower(id)),
		capabilities:  DefaultFakeCapabilities(),
		secret:        "fake-secret",
		healthy:       true,
		rate:          defaultFakeRate,
		fee:           defaultFakeFee,
		initialStatus: core.PayoutStatusAwaitingFunds,
		now:           func() time.Time { return time.Now().UTC() },
		customers:     map[string]core.ProviderCustomer{},
		verifications: map[string]core.VerificationStatusResult{},
		documents:     map[string][]core.VerificationDocument{},
		payouts:       map[string]core.ProviderPayout{},
		failures:      map[string]error{},
		calls:         map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}
	return provider
}

func (p *FakeProvider) ID() string {
	return p.id
}

func (p *FakeProvider) Info() core.ProviderInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return core.ProviderInfo{
		ID:           p.id,
		Name:         "Fake " + p.id,
		Description:  "in-memory provider",
		Environment:  "test",
		Capabilities: p.capabilities.Clone(),
	}
}

func (p *FakeProvider) WebhookSignatureHeader() string {
	return FakeSignatureHeader
}

// Fail makes every later call of op return err until cleared with a nil
// error.
func (p *FakeProvider) Fail(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, op)
		return
	}
	p.failures[op] = err
}

func (p *FakeProvider) SetHealthy(healthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.healthy = healthy
}

func (p *FakeProvider) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// SetPayoutStatus moves a stored order to status, as the provider would
// after off-chain progress.
func (p *FakeProvider) SetPayoutStatus(orderID string, status core.PayoutStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	payout, ok := p.payouts[orderID]
	if !ok {
		return core.ProviderAPIError(p.id, "not_found", fmt.Sprintf("order %s not found", orderID))
	}
	payout.Status = status
	payout.ProviderStatus = string(status)
	payout.UpdatedAt = p.now()
	p.payouts[orderID] = payout
	return nil
}

func (p *FakeProvider) SetVerification(providerCustomerID string, result core.VerificationStatusResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verifications[providerCustomerID] = result
}

// Webhook builds a signed delivery for event.
func (p *FakeProvider) Webhook(event FakeWebhookEvent) ([]byte, string) {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	payload, _ := json.Marshal(event)
	return payload, webhooks.HMACSignature(p.secret, payload)
}

func (p *FakeProvider) begin(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[op]++
	return p.failures[op]
}

func (p *FakeProvider) nextID(prefix string) string {
	p.seq++
	return fmt.Sprintf("%s-%s-%d", p.id, prefix, p.seq)
}

func (p *FakeProvider) CreateCustomer(ctx context.Context, req core.CreateCustomerRequest) (core.ProviderCustomer, error) {
	if err := p.begin(OpCreateCustomer); err != nil {
		return core.ProviderCustomer{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.ProviderCustomer{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	customer := core.ProviderCustomer{
		ProviderCustomerID: p.nextID("cus"),
		Status:             core.CustomerStatusPending,
		Metadata:           map[string]any{"external_id": req.ExternalID},
	}
	p.customers[customer.ProviderCustomerID] = customer
	return customer, nil
}

func (p *FakeProvider) GetCustomer(_ context.Context, providerCustomerID string) (core.ProviderCustomer, error) {
	if err := p.begin(OpGetCustomer); err != nil {
		return core.ProviderCustomer{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	customer, ok := p.customers[providerCustomerID]
	if !ok {
		return core.ProviderCustomer{}, core.ProviderAPIError(p.id, "not_found", "customer not found")
	}
	if verification, ok := p.verifications[providerCustomerID]; ok {
		customer.Verification = &verification
	}
	return customer, nil
}

func (p *FakeProvider) UpdateCustomer(_ context.Context, providerCustomerID string, req core.UpdateCustomerRequest) (core.ProviderCustomer, error) {
	if err := p.begin(OpUpdateCustomer); err != nil {
		return core.ProviderCustomer{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	customer, ok := p.customers[providerCustomerID]
	if !ok {
		return core.ProviderCustomer{}, core.ProviderAPIError(p.id, "not_found", "customer not found")
	}
	if req.Status != nil {
		customer.Status = *req.Status
	}
	p.customers[providerCustomerID] = customer
	return customer, nil
}

func (p *FakeProvider) ListCustomers(_ context.Context, page int, perPage int) ([]core.ProviderCustomer, error) {
	if err := p.begin(OpListCustomers); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.ProviderCustomer, 0, len(p.customers))
	for _, customer := range p.customers {
		out = append(out, customer)
	}
	return pageOf(out, page, perPage), nil
}

func (p *FakeProvider) AddBankAccount(_ context.Context, providerCustomerID string, req core.AddBankAccountRequest) (core.BankAccount, error) {
	if err := p.begin(OpAddBankAccount); err != nil {
		return core.BankAccount{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	customer, ok := p.customers[providerCustomerID]
	if !ok {
		return core.BankAccount{}, core.ProviderAPIError(p.id, "not_found", "customer not found")
	}
	account := req.Account
	account.ID = p.nextID("ba")
	account.CreatedAt = p.now()
	customer.BankAccounts = append(customer.BankAccounts, account)
	p.customers[providerCustomerID] = customer
	return account, nil
}

func (p *FakeProvider) InitiateKYC(_ context.Context, providerCustomerID string, req core.InitiateVerificationRequest) (core.VerificationSession, error) {
	if err := p.begin(OpInitiateKYC); err != nil {
		return core.VerificationSession{}, err
	}
	return p.startVerification(providerCustomerID, req), nil
}

func (p *FakeProvider) InitiateKYB(_ context.Context, providerCustomerID string, req core.InitiateVerificationRequest) (core.VerificationSession, error) {
	if err := p.begin(OpInitiateKYB); err != nil {
		return core.VerificationSession{}, err
	}
	return p.startVerification(providerCustomerID, req), nil
}

func (p *FakeProvider) startVerification(providerCustomerID string, req core.InitiateVerificationRequest) core.VerificationSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verifications[providerCustomerID] = core.VerificationStatusResult{
		Status:         core.VerificationStatusPending,
		ProviderStatus: string(core.VerificationStatusPending),
		Level:          req.TargetLevel,
	}
	sessionID := p.nextID("ses")
	return core.VerificationSession{
		SessionID:       sessionID,
		VerificationURL: "https://verify.fake.test/" + sessionID,
		Status:          core.VerificationStatusPending,
	}
}

func (p *FakeProvider) GetVerificationStatus(_ context.Context, providerCustomerID string) (core.VerificationStatusResult, error) {
	if err := p.begin(OpGetVerificationStatus); err != nil {
		return core.VerificationStatusResult{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	result, ok := p.verifications[providerCustomerID]
	if !ok {
		return core.VerificationStatusResult{Status: core.VerificationStatusNotStarted}, nil
	}
	result.Documents = append([]core.VerificationDocument(nil), p.documents[providerCustomerID]...)
	return result, nil
}

func (p *FakeProvider) UploadDocument(_ context.Context, providerCustomerID string, req core.UploadDocumentRequest) (core.VerificationDocument, error) {
	if err := p.begin(OpUploadDocument); err != nil {
		return core.VerificationDocument{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	document := core.VerificationDocument{
		ID:         p.nextID("doc"),
		Type:       req.Type,
		Status:     core.DocumentStatusUploaded,
		FileName:   req.FileName,
		UploadedAt: p.now(),
		ExpiresAt:  req.ExpiresAt,
	}
	p.documents[providerCustomerID] = append(p.documents[providerCustomerID], document)
	return document, nil
}

func (p *FakeProvider) ListDocuments(_ context.Context, providerCustomerID string) ([]core.VerificationDocument, error) {
	if err := p.begin(OpListDocuments); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.VerificationDocument(nil), p.documents[providerCustomerID]...), nil
}

func (p *FakeProvider) SubmitVerification(_ context.Context, providerCustomerID string, _ core.SubmitVerificationRequest) (core.VerificationStatusResult, error) {
	if err := p.begin(OpSubmitVerification); err != nil {
		return core.VerificationStatusResult{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	result := p.verifications[providerCustomerID]
	result.Status = core.VerificationStatusInReview
	result.ProviderStatus = string(core.VerificationStatusInReview)
	result.SubmittedAt = &now
	p.verifications[providerCustomerID] = result
	return result, nil
}

func (p *FakeProvider) CreateQuote(_ context.Context, req core.QuoteRequest) (core.Quote, error) {
	if err := p.begin(OpCreateQuote); err != nil {
		return core.Quote{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	source, target := p.price(req.SourceAmount, req.TargetAmount)
	id := p.nextID("quo")
	now := p.now()
	return core.Quote{
		ID:              id,
		ProviderID:      p.id,
		ProviderQuoteID: id,
		SourceCurrency:  strings.ToUpper(req.SourceCurrency),
		SourceAmount:    source,
		TargetCurrency:  strings.ToUpper(req.TargetCurrency),
		TargetAmount:    target,
		ExchangeRate:    p.rate,
		Fee:             p.fee,
		Network:         strings.ToLower(req.Network),
		ExpiresAt:       now.Add(10 * time.Minute),
		CreatedAt:       now,
	}, nil
}

// price derives the missing side of an amount pair from the fake rate.
func (p *FakeProvider) price(source float64, target float64) (float64, float64) {
	if source > 0 {
		return source, (source - p.fee) * p.rate
	}
	if p.rate == 0 {
		return 0, target
	}
	return target/p.rate + p.fee, target
}

func (p *FakeProvider) CreatePayout(ctx context.Context, req core.CreatePayoutRequest) (core.ProviderPayout, error) {
	if err := p.begin(OpCreatePayout); err != nil {
		return core.ProviderPayout{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.ProviderPayout{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	source, target := p.price(req.SourceAmount, req.TargetAmount)
	expiresAt := p.now().Add(time.Hour)
	payout := core.ProviderPayout{
		ProviderOrderID: p.nextID("ord"),
		ProviderQuoteID: req.QuoteID,
		Status:          p.initialStatus,
		ProviderStatus:  string(p.initialStatus),
		SourceAmount:    source,
		TargetAmount:    target,
		ExchangeRate:    p.rate,
		Fee:             p.fee,
		ExternalID:      req.ExternalID,
		UpdatedAt:       p.now(),
		DepositWallet: &core.DepositWallet{
			Address:        "0xfake" + fmt.Sprintf("%04d", p.seq),
			Network:        strings.ToLower(req.Network),
			Currency:       strings.ToUpper(req.SourceCurrency),
			ExpectedAmount: source,
			ExpiresAt:      &expiresAt,
		},
	}
	p.payouts[payout.ProviderOrderID] = payout
	return payout, nil
}

func (p *FakeProvider) GetPayout(_ context.Context, providerOrderID string) (core.ProviderPayout, error) {
	if err := p.begin(OpGetPayout); err != nil {
		return core.ProviderPayout{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	payout, ok := p.payouts[providerOrderID]
	if !ok {
		return core.ProviderPayout{}, core.ProviderAPIError(p.id, "not_found", "order not found")
	}
	return payout, nil
}

func (p *FakeProvider) GetPayoutStatus(_ context.Context, providerOrderID string) (core.PayoutStatusUpdate, error) {
	if err := p.begin(OpGetPayoutStatus); err != nil {
		return core.PayoutStatusUpdate{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	payout, ok := p.payouts[providerOrderID]
	if !ok {
		return core.PayoutStatusUpdate{}, core.ProviderAPIError(p.id, "not_found", "order not found")
	}
	return core.PayoutStatusUpdate{
		PayoutID:         firstNonEmpty(payout.ExternalID, payout.ProviderOrderID),
		ProviderOrderID:  payout.ProviderOrderID,
		ProviderID:       p.id,
		Status:           payout.Status,
		ProviderStatus:   payout.ProviderStatus,
		BlockchainTxHash: payout.BlockchainTxHash,
		BankReference:    payout.BankReference,
		FailureReason:    payout.FailureReason,
		Timestamp:        payout.UpdatedAt,
	}, nil
}

func (p *FakeProvider) CancelPayout(_ context.Context, providerOrderID string) error {
	if err := p.begin(OpCancelPayout); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	payout, ok := p.payouts[providerOrderID]
	if !ok {
		return core.ProviderAPIError(p.id, "not_found", "order not found")
	}
	payout.Status = core.PayoutStatusCancelled
	payout.ProviderStatus = string(core.PayoutStatusCancelled)
	payout.UpdatedAt = p.now()
	p.payouts[providerOrderID] = payout
	return nil
}

func (p *FakeProvider) ListPayouts(_ context.Context, page int, perPage int) ([]core.ProviderPayout, error) {
	if err := p.begin(OpListPayouts); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.ProviderPayout, 0, len(p.payouts))
	for _, payout := range p.payouts {
		out = append(out, payout)
	}
	return pageOf(out, page, perPage), nil
}

func (p *FakeProvider) ValidateWebhookSignature(payload []byte, signature string) bool {
	p.mu.Lock()
	secret := p.secret
	p.mu.Unlock()
	return webhooks.VerifyHMAC(secret, payload, signature)
}

func (p *FakeProvider) ParseWebhook(payload []byte) (core.PayoutStatusUpdate, error) {
	var event FakeWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return core.PayoutStatusUpdate{}, core.WebhookPayloadError(p.id, err)
	}
	if strings.TrimSpace(event.OrderID) == "" && strings.TrimSpace(event.ExternalID) == "" {
		return core.PayoutStatusUpdate{}, core.WebhookPayloadError(p.id, fmt.Errorf("event has no order reference"))
	}
	return core.PayoutStatusUpdate{
		PayoutID:         firstNonEmpty(event.ExternalID, event.OrderID),
		ProviderOrderID:  event.OrderID,
		ProviderID:       p.id,
		Status:           FakeStatuses.Map(event.Status),
		ProviderStatus:   event.Status,
		BlockchainTxHash: event.TxHash,
		BankReference:    event.BankReference,
		FailureReason:    event.FailureReason,
		Timestamp:        event.Timestamp,
	}, nil
}

func (p *FakeProvider) HealthCheck(ctx context.Context) (core.HealthStatus, error) {
	if err := p.begin(OpHealthCheck); err != nil {
		return core.HealthStatus{ProviderID: p.id, Status: "error", Message: err.Error()}, err
	}
	if err := ctx.Err(); err != nil {
		return core.HealthStatus{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	status := core.HealthStatus{
		ProviderID: p.id,
		Healthy:    p.healthy,
		Status:     "ok",
		Latency:    time.Millisecond,
		CheckedAt:  p.now(),
	}
	if !p.healthy {
		status.Status = "down"
		status.Message = "fake provider marked unhealthy"
	}
	return status, nil
}

func pageOf[T any](items []T, page int, perPage int) []T {
	if perPage <= 0 {
		return items
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

var _ core.Provider = (*FakeProvider)(nil)
var _ core.WebhookSignatureHeaderProvider = (*FakeProvider)(nil)
