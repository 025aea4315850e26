package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-payouts/core"
)

const defaultRESTClientTimeout = 30 * time.Second
const defaultRESTResponseBodyLimit int64 = 10 << 20 // 10 MiB

const DefaultBucket = "api"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestAuthorizer attaches provider credentials to an outbound request.
type RequestAuthorizer interface {
	Authorize(ctx context.Context, req *http.Request) error
}

// RateLimiter gates provider calls on throttling state learned from earlier
// responses.
type RateLimiter interface {
	BeforeCall(ctx context.Context, providerID string, bucket string) error
	AfterCall(ctx context.Context, providerID string, bucket string, res Response) error
}

type Request struct {
	Method  string
	Path    string
	Query   map[string]string
	Headers map[string]string
	// Bucket groups requests sharing a provider rate limit. Empty means
	// DefaultBucket.
	Bucket string
	// Body is JSON encoded unless it is already a []byte.
	Body                 any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

// RESTClient executes JSON calls against one provider API and converts
// every failure into a provider scoped error.
type RESTClient struct {
	ProviderID           string
	BaseURL              string
	Client               HTTPDoer
	Authorizer           RequestAuthorizer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
	DecodeError          ErrorDecoder
	Limiter              RateLimiter
}

func NewRESTClient(providerID string, baseURL string, client HTTPDoer, authorizer RequestAuthorizer) *RESTClient {
	if client == nil {
		client = &http.Client{Timeout: defaultRESTClientTimeout}
	}
	return &RESTClient{
		ProviderID: strings.TrimSpace(providerID),
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Client:     client,
		Authorizer: authorizer,
		DefaultHeaders: map[string]string{
			"Accept": "application/json",
		},
		MaxResponseBodyBytes: defaultRESTResponseBodyLimit,
		DecodeError:          DecodeJSONError,
	}
}

// JSON performs req and decodes a successful response into out, which may
// be nil. Non 2xx responses become provider API errors; 401 and 403 become
// authentication errors and drop any cached credential.
func (c *RESTClient) JSON(ctx context.Context, req Request, out any) error {
	res, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		if invalidator, ok := c.Authorizer.(interface{ Invalidate() }); ok {
			invalidator.Invalidate()
		}
		_, message := c.decodeError(res)
		return core.AuthenticationError(c.ProviderID, fmt.Errorf("provider rejected credentials (%d): %s", res.StatusCode, message))
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		code, message := c.decodeError(res)
		return core.ProviderAPIError(c.ProviderID, code, message)
	}
	if out == nil || len(bytes.TrimSpace(res.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return core.ProviderAPIError(c.ProviderID, "invalid_response", fmt.Sprintf("decode response: %v", err))
	}
	return nil
}

func (c *RESTClient) Do(ctx context.Context, req Request) (Response, error) {
	if c == nil || c.Client == nil {
		return Response{}, transportError(
			"transport: rest client requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	target, err := c.resolveURL(req)
	if err != nil {
		return Response{}, err
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return Response{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: encode request body",
			http.StatusBadRequest,
			map[string]any{"provider_id": c.ProviderID, "path": req.Path},
		)
	}

	bucket := strings.TrimSpace(req.Bucket)
	if bucket == "" {
		bucket = DefaultBucket
	}
	if c.Limiter != nil {
		if err := c.Limiter.BeforeCall(ctx, c.ProviderID, bucket); err != nil {
			return Response{}, err
		}
	}

	requestCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, target, bytes.NewReader(body))
	if err != nil {
		return Response{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"provider_id": c.ProviderID, "method": method, "url": target},
		)
	}
	if len(body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	applyHeaders(httpReq.Header, c.DefaultHeaders)
	applyHeaders(httpReq.Header, req.Headers)
	if c.Authorizer != nil {
		if err := c.Authorizer.Authorize(requestCtx, httpReq); err != nil {
			if core.TextCode(err) != "" {
				return Response{}, err
			}
			return Response{}, core.AuthenticationError(c.ProviderID, err)
		}
	}

	startedAt := time.Now()
	httpRes, err := c.Client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return Response{}, core.ProviderAPIError(c.ProviderID, "timeout", err.Error())
		}
		return Response{}, core.ProviderAPIError(c.ProviderID, "transport_error", err.Error())
	}
	defer httpRes.Body.Close()

	maxBodyBytes := resolveResponseBodyLimit(req.MaxResponseBodyBytes, c.MaxResponseBodyBytes)
	payload, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return Response{}, core.ProviderAPIError(c.ProviderID, "transport_error", fmt.Sprintf("read response body: %v", err))
	}
	if int64(len(payload)) > maxBodyBytes {
		return Response{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"provider_id":      c.ProviderID,
				"status_code":      httpRes.StatusCode,
				"response_limit_b": maxBodyBytes,
			},
		)
	}

	res := Response{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       payload,
		Duration:   time.Since(startedAt),
	}
	if c.Limiter != nil {
		// Limiter bookkeeping never fails a call that reached the provider.
		_ = c.Limiter.AfterCall(ctx, c.ProviderID, bucket, res)
	}
	return res, nil
}

func (c *RESTClient) resolveURL(req Request) (string, error) {
	raw := strings.TrimSpace(req.Path)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = c.BaseURL + "/" + strings.TrimLeft(raw, "/")
	}
	parsedURL, err := url.Parse(raw)
	if err != nil || parsedURL.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing host")
		}
		return "", transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request url",
			http.StatusBadRequest,
			map[string]any{"provider_id": c.ProviderID, "url": raw},
		)
	}
	if len(req.Query) > 0 {
		query := parsedURL.Query()
		for key, value := range req.Query {
			if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
				continue
			}
			query.Set(strings.TrimSpace(key), strings.TrimSpace(value))
		}
		parsedURL.RawQuery = query.Encode()
	}
	return parsedURL.String(), nil
}

func (c *RESTClient) decodeError(res Response) (string, string) {
	decoder := c.DecodeError
	if decoder == nil {
		decoder = DecodeJSONError
	}
	return decoder(res.StatusCode, res.Body)
}

func encodeBody(body any) ([]byte, error) {
	switch typed := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return typed, nil
	default:
		return json.Marshal(typed)
	}
}

func applyHeaders(target http.Header, headers map[string]string) {
	for key, value := range headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		target.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

func resolveResponseBodyLimit(requestLimit int64, adapterLimit int64) int64 {
	if requestLimit > 0 {
		return requestLimit
	}
	if adapterLimit > 0 {
		return adapterLimit
	}
	return defaultRESTResponseBodyLimit
}
