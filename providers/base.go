package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-payouts/core"
	"github.com/goliatone/go-payouts/ratelimit"
	"github.com/goliatone/go-payouts/transport"
	"github.com/goliatone/go-payouts/webhooks"
)

const defaultHealthPath = "/health"

type BaseConfig struct {
	ID              string
	Name            string
	Description     string
	Environment     string
	Capabilities    core.Capabilities
	BaseURL         string
	HealthPath      string
	WebhookSecret   string
	SignatureHeader string
	SignaturePrefix string
	HTTPClient      transport.HTTPDoer
	Authorizer      transport.RequestAuthorizer
	DecodeError     transport.ErrorDecoder
	// RateLimiter defaults to an in-memory adaptive policy.
	RateLimiter transport.RateLimiter
	Now         func() time.Time
}

// Base carries what every HTTP backed adapter shares: identity, the REST
// client, webhook signature checks and the health probe.
type Base struct {
	cfg      BaseConfig
	client   *transport.RESTClient
	verifier webhooks.HMACVerifier
}

func NewBase(cfg BaseConfig) (*Base, error) {
	cfg.ID = strings.TrimSpace(strings.ToLower(cfg.ID))
	if cfg.ID == "" {
		return nil, fmt.Errorf("providers: provider id is required")
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("providers: base url is required for provider %q", cfg.ID)
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = cfg.ID
	}
	if strings.TrimSpace(cfg.HealthPath) == "" {
		cfg.HealthPath = defaultHealthPath
	}
	if strings.TrimSpace(cfg.SignatureHeader) == "" {
		cfg.SignatureHeader = webhooks.DefaultSignatureHeader
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	cfg.Capabilities = cfg.Capabilities.Clone()

	client := transport.NewRESTClient(cfg.ID, cfg.BaseURL, cfg.HTTPClient, cfg.Authorizer)
	if cfg.DecodeError != nil {
		client.DecodeError = cfg.DecodeError
	}
	if cfg.RateLimiter == nil {
		cfg.RateLimiter = ratelimit.NewMemoryPolicy(cfg.Now)
	}
	client.Limiter = cfg.RateLimiter
	return &Base{
		cfg:    cfg,
		client: client,
		verifier: webhooks.HMACVerifier{
			Secret:   cfg.WebhookSecret,
			Prefix:   cfg.SignaturePrefix,
			Encoding: webhooks.EncodingHex,
		},
	}, nil
}

// Bucket names the rate limit bucket for a request path: its first segment.
func Bucket(path string) string {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return transport.DefaultBucket
	}
	if i := strings.IndexAny(trimmed, "/?"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.ToLower(trimmed)
}

func (b *Base) ID() string {
	if b == nil {
		return ""
	}
	return b.cfg.ID
}

func (b *Base) Info() core.ProviderInfo {
	return core.ProviderInfo{
		ID:           b.cfg.ID,
		Name:         b.cfg.Name,
		Description:  b.cfg.Description,
		Environment:  b.cfg.Environment,
		Capabilities: b.cfg.Capabilities.Clone(),
	}
}

func (b *Base) Client() *transport.RESTClient {
	return b.client
}

func (b *Base) Now() time.Time {
	return b.cfg.Now().UTC()
}

func (b *Base) ValidateWebhookSignature(payload []byte, signature string) bool {
	return b.verifier.Valid(payload, signature)
}

func (b *Base) WebhookSignatureHeader() string {
	return b.cfg.SignatureHeader
}

// HealthCheck probes the provider's health endpoint. Probe failures are
// reported as an unhealthy status, never as an error.
func (b *Base) HealthCheck(ctx context.Context) (core.HealthStatus, error) {
	startedAt := time.Now()
	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	err := b.client.JSON(ctx, transport.Request{Method: http.MethodGet, Path: b.cfg.HealthPath}, &payload)
	status := core.HealthStatus{
		ProviderID: b.cfg.ID,
		Latency:    time.Since(startedAt),
		CheckedAt:  b.Now(),
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return status, ctxErr
		}
		status.Status = "unreachable"
		status.Message = err.Error()
		return status, nil
	}
	status.Status = firstNonEmpty(strings.ToLower(payload.Status), "ok")
	status.Message = payload.Message
	switch status.Status {
	case "ok", "up", "healthy", "operational":
		status.Healthy = true
	}
	return status, nil
}

var _ core.WebhookSignatureHeaderProvider = (*Base)(nil)
