// Package rampa adapts the Rampa off-ramp API. Calls authenticate with an
// OAuth2 client credentials token and webhooks carry a hex HMAC-SHA256 of
// the raw body in X-Rampa-Signature.
package rampa

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-payouts/auth"
	"github.com/goliatone/go-payouts/core"
	"github.com/goliatone/go-payouts/providers"
	"github.com/goliatone/go-payouts/transport"
)

const (
	ProviderID      = "rampa"
	BaseURL         = "https://api.rampa.example/v1"
	TokenURL        = "https://auth.rampa.example/oauth/token"
	SignatureHeader = "X-Rampa-Signature"
)

type Config struct {
	BaseURL       string
	TokenURL      string
	ClientID      string
	ClientSecret  string
	Scopes        []string
	WebhookSecret string
	Environment   string
	Capabilities  core.Capabilities
	RenewBefore   time.Duration
	HTTPClient    transport.HTTPDoer
	RateLimiter   transport.RateLimiter
	Now           func() time.Time
}

func DefaultConfig() Config {
	return Config{
		BaseURL:     BaseURL,
		TokenURL:    TokenURL,
		Scopes:      []string{"customers", "orders", "quotes"},
		Environment: "production",
		Capabilities: core.Capabilities{
			Stablecoins:     []string{"USDC", "USDT"},
			FiatCurrencies:  []string{"EUR", "USD", "MXN", "COP"},
			Networks:        []string{"ethereum", "polygon", "solana", "tron"},
			Countries:       []string{"ES", "FR", "DE", "IT", "PT", "NL", "US", "MX", "CO"},
			Features:        []string{core.FeatureKYC, core.FeatureKYB, core.FeatureQuotes, core.FeatureCancellation, core.FeatureWebhooks},
			MinSourceAmount: 10,
			MaxSourceAmount: 250000,
		},
	}
}

type Provider struct {
	*providers.Base
	tokens *auth.ClientCredentialsSource
}

func New(cfg Config) (*Provider, error) {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		cfg.TokenURL = defaults.TokenURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = defaults.Scopes
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = defaults.Environment
	}
	if len(cfg.Capabilities.Stablecoins) == 0 {
		cfg.Capabilities = defaults.Capabilities
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("rampa: client id is required")
	}

	tokens := auth.NewClientCredentialsSource(auth.ClientCredentialsConfig{
		ProviderID:   ProviderID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
		RenewBefore:  cfg.RenewBefore,
		HTTPClient:   cfg.HTTPClient,
		Now:          cfg.Now,
	})
	base, err := providers.NewBase(providers.BaseConfig{
		ID:              ProviderID,
		Name:            "Rampa",
		Description:     "Stablecoin off-ramp to SEPA, ACH and LatAm rails",
		Environment:     cfg.Environment,
		Capabilities:    cfg.Capabilities,
		BaseURL:         cfg.BaseURL,
		HealthPath:      "/health",
		WebhookSecret:   cfg.WebhookSecret,
		SignatureHeader: SignatureHeader,
		HTTPClient:      cfg.HTTPClient,
		RateLimiter:     cfg.RateLimiter,
		Authorizer:      tokens,
		Now:             cfg.Now,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{Base: base, tokens: tokens}, nil
}

// Credentials exposes the cached token source.
func (p *Provider) Credentials() *auth.ClientCredentialsSource {
	return p.tokens
}

func (p *Provider) call(ctx context.Context, method string, path string, body any, out any) error {
	return p.Client().JSON(ctx, transport.Request{Method: method, Path: path, Body: body, Bucket: providers.Bucket(path)}, out)
}

func (p *Provider) CreateCustomer(ctx context.Context, req core.CreateCustomerRequest) (core.ProviderCustomer, error) {
	var res customerResponse
	if err := p.call(ctx, http.MethodPost, "/customers", toCustomerPayload(req), &res); err != nil {
		return core.ProviderCustomer{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) GetCustomer(ctx context.Context, providerCustomerID string) (core.ProviderCustomer, error) {
	var res customerResponse
	if err := p.call(ctx, http.MethodGet, providers.Path("customers", providerCustomerID), nil, &res); err != nil {
		return core.ProviderCustomer{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) UpdateCustomer(ctx context.Context, providerCustomerID string, req core.UpdateCustomerRequest) (core.ProviderCustomer, error) {
	var res customerResponse
	if err := p.call(ctx, http.MethodPatch, providers.Path("customers", providerCustomerID), toUpdatePayload(req), &res); err != nil {
		return core.ProviderCustomer{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) ListCustomers(ctx context.Context, page int, perPage int) ([]core.ProviderCustomer, error) {
	var res listResponse[customerResponse]
	req := transport.Request{Method: http.MethodGet, Path: "/customers", Query: providers.PageQuery(page, perPage)}
	if err := p.Client().JSON(ctx, req, &res); err != nil {
		return nil, err
	}
	out := make([]core.ProviderCustomer, 0, len(res.Data))
	for _, item := range res.Data {
		out = append(out, item.toCore())
	}
	return out, nil
}

func (p *Provider) AddBankAccount(ctx context.Context, providerCustomerID string, req core.AddBankAccountRequest) (core.BankAccount, error) {
	var res bankAccountPayload
	path := providers.Path("customers", providerCustomerID, "bank-accounts")
	if err := p.call(ctx, http.MethodPost, path, toBankAccountPayload(req.Account), &res); err != nil {
		return core.BankAccount{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) InitiateKYC(ctx context.Context, providerCustomerID string, req core.InitiateVerificationRequest) (core.VerificationSession, error) {
	return p.initiate(ctx, providerCustomerID, "kyc", req)
}

func (p *Provider) InitiateKYB(ctx context.Context, providerCustomerID string, req core.InitiateVerificationRequest) (core.VerificationSession, error) {
	return p.initiate(ctx, providerCustomerID, "kyb", req)
}

func (p *Provider) initiate(ctx context.Context, providerCustomerID string, kind string, req core.InitiateVerificationRequest) (core.VerificationSession, error) {
	var res sessionResponse
	payload := sessionPayload{Level: string(req.TargetLevel), RedirectURL: req.RedirectURL, Metadata: req.Metadata}
	if err := p.call(ctx, http.MethodPost, providers.Path("customers", providerCustomerID, kind), payload, &res); err != nil {
		return core.VerificationSession{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) GetVerificationStatus(ctx context.Context, providerCustomerID string) (core.VerificationStatusResult, error) {
	var res verificationResponse
	if err := p.call(ctx, http.MethodGet, providers.Path("customers", providerCustomerID, "verification"), nil, &res); err != nil {
		return core.VerificationStatusResult{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) UploadDocument(ctx context.Context, providerCustomerID string, req core.UploadDocumentRequest) (core.VerificationDocument, error) {
	var res documentResponse
	payload := documentPayload{
		Type:        string(req.Type),
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Content:     req.Content,
		ExpiresAt:   providers.FormatDate(req.ExpiresAt),
	}
	if err := p.call(ctx, http.MethodPost, providers.Path("customers", providerCustomerID, "documents"), payload, &res); err != nil {
		return core.VerificationDocument{}, err
	}
	document := res.toCore()
	if document.UploadedAt.IsZero() {
		document.UploadedAt = p.Now()
	}
	return document, nil
}

func (p *Provider) ListDocuments(ctx context.Context, providerCustomerID string) ([]core.VerificationDocument, error) {
	var res listResponse[documentResponse]
	if err := p.call(ctx, http.MethodGet, providers.Path("customers", providerCustomerID, "documents"), nil, &res); err != nil {
		return nil, err
	}
	out := make([]core.VerificationDocument, 0, len(res.Data))
	for _, item := range res.Data {
		out = append(out, item.toCore())
	}
	return out, nil
}

func (p *Provider) SubmitVerification(ctx context.Context, providerCustomerID string, req core.SubmitVerificationRequest) (core.VerificationStatusResult, error) {
	var res verificationResponse
	payload := submitPayload{DeclarationAccepted: req.DeclarationAccepted, Metadata: req.Metadata}
	path := providers.Path("customers", providerCustomerID, "verification", "submit")
	if err := p.call(ctx, http.MethodPost, path, payload, &res); err != nil {
		return core.VerificationStatusResult{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) CreateQuote(ctx context.Context, req core.QuoteRequest) (core.Quote, error) {
	var res quoteResponse
	payload := quotePayload{
		FromCurrency: strings.ToUpper(req.SourceCurrency),
		ToCurrency:   strings.ToUpper(req.TargetCurrency),
		FromAmount:   req.SourceAmount,
		ToAmount:     req.TargetAmount,
		Network:      strings.ToLower(req.Network),
		Country:      strings.ToUpper(req.DestinationCountry),
	}
	if err := p.call(ctx, http.MethodPost, "/quotes", payload, &res); err != nil {
		return core.Quote{}, err
	}
	return core.Quote{
		ID:              res.ID,
		ProviderID:      ProviderID,
		ProviderQuoteID: res.ID,
		SourceCurrency:  res.FromCurrency,
		SourceAmount:    res.FromAmount,
		TargetCurrency:  res.ToCurrency,
		TargetAmount:    res.ToAmount,
		ExchangeRate:    res.Rate,
		Fee:             res.Fee,
		FeeBreakdown:    res.Fees.toCore(),
		Network:         firstNonEmpty(res.Network, payload.Network),
		ExpiresAt:       providers.TimeOr(res.ExpiresAt, time.Time{}),
		CreatedAt:       providers.TimeOr(res.CreatedAt, p.Now()),
	}, nil
}

func (p *Provider) CreatePayout(ctx context.Context, req core.CreatePayoutRequest) (core.ProviderPayout, error) {
	var res orderResponse
	payload := orderPayload{
		ExternalReference: req.ExternalID,
		QuoteID:           req.QuoteID,
		FromCurrency:      strings.ToUpper(req.SourceCurrency),
		ToCurrency:        strings.ToUpper(req.TargetCurrency),
		FromAmount:        req.SourceAmount,
		ToAmount:          req.TargetAmount,
		Network:           strings.ToLower(req.Network),
		Sender:            toPartyPayload(req.Sender),
		Beneficiary:       toPartyPayload(req.Beneficiary),
		Purpose:           req.Purpose,
		Reference:         req.Reference,
		Metadata:          req.Metadata,
	}
	if err := p.call(ctx, http.MethodPost, "/orders", payload, &res); err != nil {
		return core.ProviderPayout{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) GetPayout(ctx context.Context, providerOrderID string) (core.ProviderPayout, error) {
	var res orderResponse
	if err := p.call(ctx, http.MethodGet, providers.Path("orders", providerOrderID), nil, &res); err != nil {
		return core.ProviderPayout{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) GetPayoutStatus(ctx context.Context, providerOrderID string) (core.PayoutStatusUpdate, error) {
	var res orderStatusResponse
	if err := p.call(ctx, http.MethodGet, providers.Path("orders", providerOrderID, "status"), nil, &res); err != nil {
		return core.PayoutStatusUpdate{}, err
	}
	update := res.toUpdate(ProviderID, providerOrderID)
	if update.Timestamp.IsZero() {
		update.Timestamp = p.Now()
	}
	return update, nil
}

func (p *Provider) CancelPayout(ctx context.Context, providerOrderID string) error {
	return p.call(ctx, http.MethodPost, providers.Path("orders", providerOrderID, "cancel"), nil, nil)
}

func (p *Provider) ListPayouts(ctx context.Context, page int, perPage int) ([]core.ProviderPayout, error) {
	var res listResponse[orderResponse]
	req := transport.Request{Method: http.MethodGet, Path: "/orders", Query: providers.PageQuery(page, perPage)}
	if err := p.Client().JSON(ctx, req, &res); err != nil {
		return nil, err
	}
	out := make([]core.ProviderPayout, 0, len(res.Data))
	for _, item := range res.Data {
		out = append(out, item.toCore())
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

var _ core.Provider = (*Provider)(nil)
