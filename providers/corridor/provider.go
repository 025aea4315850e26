// Package corridor adapts the Corridor payouts API. Requests carry a static
// API key in X-Api-Key, amounts travel as decimal strings and webhooks are
// signed with "sha256=<hex>" in X-Corridor-Signature.
package corridor

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
	ProviderID      = "corridor"
	BaseURL         = "https://api.corridor.example/v2"
	APIKeyHeader    = "X-Api-Key"
	SignatureHeader = "X-Corridor-Signature"
	SignaturePrefix = "sha256="
)

type Config struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Environment   string
	Capabilities  core.Capabilities
	HTTPClient    transport.HTTPDoer
	RateLimiter   transport.RateLimiter
	Now           func() time.Time
}

func DefaultConfig() Config {
	return Config{
		BaseURL:     BaseURL,
		Environment: "production",
		Capabilities: core.Capabilities{
			Stablecoins:     []string{"USDC", "EURC", "PYUSD"},
			FiatCurrencies:  []string{"EUR", "GBP", "USD", "BRL", "ARS"},
			Networks:        []string{"ethereum", "base", "arbitrum", "solana", "stellar"},
			Countries:       []string{"GB", "IE", "ES", "FR", "DE", "US", "BR", "AR"},
			Features:        []string{core.FeatureKYC, core.FeatureKYB, core.FeatureQuotes, core.FeatureCancellation, core.FeatureWebhooks},
			MinSourceAmount: 1,
			MaxSourceAmount: 1000000,
		},
	}
}

type Provider struct {
	*providers.Base
}

func New(cfg Config) (*Provider, error) {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = defaults.Environment
	}
	if len(cfg.Capabilities.Stablecoins) == 0 {
		cfg.Capabilities = defaults.Capabilities
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("corridor: api key is required")
	}

	base, err := providers.NewBase(providers.BaseConfig{
		ID:              ProviderID,
		Name:            "Corridor",
		Description:     "Multi-chain stablecoin payouts to local bank rails",
		Environment:     cfg.Environment,
		Capabilities:    cfg.Capabilities,
		BaseURL:         cfg.BaseURL,
		HealthPath:      "/status",
		WebhookSecret:   cfg.WebhookSecret,
		SignatureHeader: SignatureHeader,
		SignaturePrefix: SignaturePrefix,
		HTTPClient:      cfg.HTTPClient,
		RateLimiter:     cfg.RateLimiter,
		Authorizer:      auth.NewAPIKeySigner(auth.APIKeyConfig{Key: cfg.APIKey, Header: APIKeyHeader}),
		DecodeError:     decodeError,
		Now:             cfg.Now,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{Base: base}, nil
}

func (p *Provider) call(ctx context.Context, method string, path string, body any, out any) error {
	return p.Client().JSON(ctx, transport.Request{Method: method, Path: path, Body: body, Bucket: providers.Bucket(path)}, out)
}

func (p *Provider) CreateCustomer(ctx context.Context, req core.CreateCustomerRequest) (core.ProviderCustomer, error) {
	var res clientResponse
	if err := p.call(ctx, http.MethodPost, "/clients", toClientRequest(req), &res); err != nil {
		return core.ProviderCustomer{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) GetCustomer(ctx context.Context, providerCustomerID string) (core.ProviderCustomer, error) {
	var res clientResponse
	if err := p.call(ctx, http.MethodGet, providers.Path("clients", providerCustomerID), nil, &res); err != nil {
		return core.ProviderCustomer{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) UpdateCustomer(ctx context.Context, providerCustomerID string, req core.UpdateCustomerRequest) (core.ProviderCustomer, error) {
	var res clientResponse
	if err := p.call(ctx, http.MethodPatch, providers.Path("clients", providerCustomerID), toClientPatch(req), &res); err != nil {
		return core.ProviderCustomer{}, err
	}
	return res.toCore(), nil
}

// ListCustomers maps per_page onto Corridor's limit parameter.
func (p *Provider) ListCustomers(ctx context.Context, pageNumber int, perPage int) ([]core.ProviderCustomer, error) {
	var res page[clientResponse]
	if err := p.Client().JSON(ctx, transport.Request{Method: http.MethodGet, Path: "/clients", Query: pageQuery(pageNumber, perPage)}, &res); err != nil {
		return nil, err
	}
	out := make([]core.ProviderCustomer, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, item.toCore())
	}
	return out, nil
}

func (p *Provider) AddBankAccount(ctx context.Context, providerCustomerID string, req core.AddBankAccountRequest) (core.BankAccount, error) {
	var res accountBody
	if err := p.call(ctx, http.MethodPost, providers.Path("clients", providerCustomerID, "accounts"), toAccount(req.Account), &res); err != nil {
		return core.BankAccount{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) InitiateKYC(ctx context.Context, providerCustomerID string, req core.InitiateVerificationRequest) (core.VerificationSession, error) {
	return p.openVerification(ctx, providerCustomerID, "INDIVIDUAL", req)
}

func (p *Provider) InitiateKYB(ctx context.Context, providerCustomerID string, req core.InitiateVerificationRequest) (core.VerificationSession, error) {
	return p.openVerification(ctx, providerCustomerID, "BUSINESS", req)
}

func (p *Provider) openVerification(ctx context.Context, providerCustomerID string, kind string, req core.InitiateVerificationRequest) (core.VerificationSession, error) {
	var res verificationBody
	payload := verificationRequest{
		Kind:      kind,
		Tier:      tierOf(req.TargetLevel),
		ReturnURL: req.RedirectURL,
		Tags:      req.Metadata,
	}
	if err := p.call(ctx, http.MethodPost, providers.Path("clients", providerCustomerID, "verifications"), payload, &res); err != nil {
		return core.VerificationSession{}, err
	}
	return res.toSession(), nil
}

func (p *Provider) GetVerificationStatus(ctx context.Context, providerCustomerID string) (core.VerificationStatusResult, error) {
	var res verificationBody
	path := providers.Path("clients", providerCustomerID, "verifications", "current")
	if err := p.call(ctx, http.MethodGet, path, nil, &res); err != nil {
		return core.VerificationStatusResult{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) UploadDocument(ctx context.Context, providerCustomerID string, req core.UploadDocumentRequest) (core.VerificationDocument, error) {
	var res documentBody
	payload := documentRequest{
		Category:   strings.ToUpper(string(req.Type)),
		Filename:   req.FileName,
		MimeType:   req.ContentType,
		Data:       req.Content,
		ValidUntil: providers.FormatDate(req.ExpiresAt),
	}
	path := providers.Path("clients", providerCustomerID, "verifications", "documents")
	if err := p.call(ctx, http.MethodPost, path, payload, &res); err != nil {
		return core.VerificationDocument{}, err
	}
	document := res.toCore()
	if document.UploadedAt.IsZero() {
		document.UploadedAt = p.Now()
	}
	return document, nil
}

func (p *Provider) ListDocuments(ctx context.Context, providerCustomerID string) ([]core.VerificationDocument, error) {
	var res page[documentBody]
	path := providers.Path("clients", providerCustomerID, "verifications", "documents")
	if err := p.call(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	out := make([]core.VerificationDocument, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, item.toCore())
	}
	return out, nil
}

func (p *Provider) SubmitVerification(ctx context.Context, providerCustomerID string, req core.SubmitVerificationRequest) (core.VerificationStatusResult, error) {
	var res verificationBody
	path := providers.Path("clients", providerCustomerID, "verifications", "current", "submit")
	if err := p.call(ctx, http.MethodPost, path, submitRequest{Attested: req.DeclarationAccepted, Tags: req.Metadata}, &res); err != nil {
		return core.VerificationStatusResult{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) CreateQuote(ctx context.Context, req core.QuoteRequest) (core.Quote, error) {
	var res rateResponse
	payload := rateRequest{
		Sell:        strings.ToUpper(req.SourceCurrency),
		Buy:         strings.ToUpper(req.TargetCurrency),
		SellAmount:  amount(req.SourceAmount),
		BuyAmount:   amount(req.TargetAmount),
		Chain:       strings.ToLower(req.Network),
		Destination: strings.ToUpper(req.DestinationCountry),
	}
	if err := p.call(ctx, http.MethodPost, "/rates", payload, &res); err != nil {
		return core.Quote{}, err
	}
	return core.Quote{
		ID:              res.RateID,
		ProviderID:      ProviderID,
		ProviderQuoteID: res.RateID,
		SourceCurrency:  firstNonEmpty(res.Sell, payload.Sell),
		SourceAmount:    float64(res.SellAmount),
		TargetCurrency:  firstNonEmpty(res.Buy, payload.Buy),
		TargetAmount:    float64(res.BuyAmount),
		ExchangeRate:    float64(res.Price),
		Fee:             float64(res.TotalFee),
		FeeBreakdown:    res.Charges.toCore(),
		Network:         firstNonEmpty(strings.ToLower(res.Chain), payload.Chain),
		ExpiresAt:       providers.TimeOr(res.ValidUntil, time.Time{}),
		CreatedAt:       providers.TimeOr(res.Issued, p.Now()),
	}, nil
}

func (p *Provider) CreatePayout(ctx context.Context, req core.CreatePayoutRequest) (core.ProviderPayout, error) {
	var res transferBody
	payload := transferRequest{
		ClientReference: req.ExternalID,
		RateID:          req.QuoteID,
		Sell:            strings.ToUpper(req.SourceCurrency),
		Buy:             strings.ToUpper(req.TargetCurrency),
		SellAmount:      amount(req.SourceAmount),
		BuyAmount:       amount(req.TargetAmount),
		Chain:           strings.ToLower(req.Network),
		Originator:      toCounterparty(req.Sender),
		Recipient:       toCounterparty(req.Beneficiary),
		Purpose:         req.Purpose,
		Memo:            req.Reference,
		Tags:            req.Metadata,
	}
	if err := p.call(ctx, http.MethodPost, "/transfers", payload, &res); err != nil {
		return core.ProviderPayout{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) GetPayout(ctx context.Context, providerOrderID string) (core.ProviderPayout, error) {
	var res transferBody
	if err := p.call(ctx, http.MethodGet, providers.Path("transfers", providerOrderID), nil, &res); err != nil {
		return core.ProviderPayout{}, err
	}
	return res.toCore(), nil
}

func (p *Provider) GetPayoutStatus(ctx context.Context, providerOrderID string) (core.PayoutStatusUpdate, error) {
	var res transferBody
	if err := p.call(ctx, http.MethodGet, providers.Path("transfers", providerOrderID, "status"), nil, &res); err != nil {
		return core.PayoutStatusUpdate{}, err
	}
	update := res.toUpdate(providerOrderID)
	if update.Timestamp.IsZero() {
		update.Timestamp = p.Now()
	}
	return update, nil
}

// CancelPayout deletes the transfer; Corridor only accepts this before
// funds arrive.
func (p *Provider) CancelPayout(ctx context.Context, providerOrderID string) error {
	return p.call(ctx, http.MethodDelete, providers.Path("transfers", providerOrderID), nil, nil)
}

func (p *Provider) ListPayouts(ctx context.Context, pageNumber int, perPage int) ([]core.ProviderPayout, error) {
	var res page[transferBody]
	if err := p.Client().JSON(ctx, transport.Request{Method: http.MethodGet, Path: "/transfers", Query: pageQuery(pageNumber, perPage)}, &res); err != nil {
		return nil, err
	}
	out := make([]core.ProviderPayout, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, item.toCore())
	}
	return out, nil
}

func pageQuery(pageNumber int, perPage int) map[string]string {
	query := providers.PageQuery(pageNumber, perPage)
	if limit, ok := query["per_page"]; ok {
		delete(query, "per_page")
		query["limit"] = limit
	}
	return query
}

var _ core.Provider = (*Provider)(nil)
