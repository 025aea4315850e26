package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-payouts/core"
)

const (
	DefaultSignatureHeader       = "X-Signature"
	defaultMaxBodyBytes    int64 = 1 << 20
)

type InboundRequest struct {
	ProviderID string
	Headers    map[string]string
	Body       []byte
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Matched    bool
	Changed    bool
	PayoutID   string
	Status     core.PayoutStatus
	Metadata   map[string]any
}

type Handler interface {
	ProcessWebhook(ctx context.Context, providerID string, payload []byte, signature string) (core.WebhookResult, error)
}

type ProviderLookup interface {
	Get(providerID string) (core.Provider, bool)
}

// Processor resolves the signature header for a provider and forwards the
// raw delivery to the payout service.
type Processor struct {
	Handler                Handler
	Providers              ProviderLookup
	DefaultSignatureHeader string
	MaxBodyBytes           int64
}

func NewProcessor(handler Handler, providers ProviderLookup) *Processor {
	return &Processor{
		Handler:                handler,
		Providers:              providers,
		DefaultSignatureHeader: DefaultSignatureHeader,
		MaxBodyBytes:           defaultMaxBodyBytes,
	}
}

func (p *Processor) Process(ctx context.Context, req InboundRequest) (InboundResult, error) {
	if p == nil || p.Handler == nil {
		err := fmt.Errorf("webhooks: processor requires a handler")
		return InboundResult{StatusCode: http.StatusInternalServerError}, err
	}
	providerID := strings.TrimSpace(req.ProviderID)
	if providerID == "" {
		err := core.ValidationError("provider_id", "provider id is required")
		return InboundResult{StatusCode: http.StatusBadRequest}, err
	}

	signature := headerValue(req.Headers, p.SignatureHeader(providerID))
	result, err := p.Handler.ProcessWebhook(ctx, providerID, req.Body, signature)
	if err != nil {
		return InboundResult{
			Accepted:   false,
			StatusCode: StatusCode(err),
			Metadata: map[string]any{
				"provider_id":     providerID,
				"error_text_code": core.TextCode(err),
			},
		}, err
	}

	out := InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Matched:    result.Matched,
		Changed:    result.Changed,
		Metadata: map[string]any{
			"provider_id":       providerID,
			"provider_order_id": result.Update.ProviderOrderID,
		},
	}
	if result.Payout != nil {
		out.PayoutID = result.Payout.ID
		out.Status = result.Payout.Status
	}
	return out, nil
}

// SignatureHeader returns the header carrying the provider's signature.
func (p *Processor) SignatureHeader(providerID string) string {
	if p != nil && p.Providers != nil {
		if provider, ok := p.Providers.Get(providerID); ok {
			if named, ok := provider.(core.WebhookSignatureHeaderProvider); ok {
				if header := strings.TrimSpace(named.WebhookSignatureHeader()); header != "" {
					return header
				}
			}
		}
	}
	if p != nil && strings.TrimSpace(p.DefaultSignatureHeader) != "" {
		return p.DefaultSignatureHeader
	}
	return DefaultSignatureHeader
}

// FromHTTP reads the raw body of r without any re-encoding so signatures
// computed over the exact bytes still verify.
func (p *Processor) FromHTTP(providerID string, r *http.Request) (InboundRequest, error) {
	limit := defaultMaxBodyBytes
	if p != nil && p.MaxBodyBytes > 0 {
		limit = p.MaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return InboundRequest{}, fmt.Errorf("webhooks: read body: %w", err)
	}
	if int64(len(body)) > limit {
		return InboundRequest{}, core.ValidationError("body", fmt.Sprintf("webhook body exceeds %d bytes", limit))
	}
	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	return InboundRequest{ProviderID: providerID, Headers: headers, Body: body}, nil
}

// StatusCode maps a processing error onto the HTTP status returned to the
// provider.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Code > 0 {
		return rich.Code
	}
	return http.StatusInternalServerError
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
