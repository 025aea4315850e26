package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-payouts/core"
)

type headerAuthorizer struct {
	value       string
	invalidated int
}

func (a *headerAuthorizer) Authorize(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", a.value)
	return nil
}

func (a *headerAuthorizer) Invalidate() {
	a.invalidated++
}

func TestRESTClient_JSONRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payouts" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer t1" {
			t.Errorf("expected authorizer header, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("idempotency") != "k1" {
			t.Errorf("expected query parameter, got %q", r.URL.RawQuery)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["amount"] != 10.5 {
			t.Errorf("unexpected body %v (%v)", body, err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "order-1"})
	}))
	defer server.Close()

	client := NewRESTClient("rampa", server.URL+"/v1/", server.Client(), &headerAuthorizer{value: "Bearer t1"})
	var out struct {
		ID string `json:"id"`
	}
	err := client.JSON(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/payouts",
		Query:  map[string]string{"idempotency": "k1"},
		Body:   map[string]any{"amount": 10.5},
	}, &out)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.ID != "order-1" {
		t.Fatalf("expected decoded id, got %q", out.ID)
	}
}

func TestRESTClient_ProviderErrorsKeepProviderCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": "LIMIT_EXCEEDED", "message": "daily limit reached"}})
	}))
	defer server.Close()

	err := NewRESTClient("rampa", server.URL, server.Client(), nil).JSON(context.Background(), Request{Path: "/payouts"}, nil)
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != core.ErrorProviderAPI {
		t.Fatalf("expected provider api code, got %q", rich.TextCode)
	}
	if rich.Metadata["provider_code"] != "LIMIT_EXCEEDED" || rich.Metadata["provider_message"] != "daily limit reached" {
		t.Fatalf("expected verbatim provider code and message, got %v", rich.Metadata)
	}
}

func TestRESTClient_UnauthorizedInvalidatesCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	authorizer := &headerAuthorizer{value: "Bearer stale"}
	err := NewRESTClient("rampa", server.URL, server.Client(), authorizer).JSON(context.Background(), Request{Path: "/customers"}, nil)
	if !core.HasTextCode(err, core.ErrorAuthenticationFailed) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if authorizer.invalidated != 1 {
		t.Fatalf("expected cached credential to be invalidated")
	}
}

func TestRESTClient_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	client := NewRESTClient("rampa", server.URL, server.Client(), nil)
	client.MaxResponseBodyBytes = 4

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal || rich.Code != http.StatusBadGateway {
		t.Fatalf("unexpected envelope %q (%d)", rich.Category, rich.Code)
	}
}

func TestRESTClient_CancelledContextPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRESTClient("rampa", server.URL, server.Client(), nil).Do(ctx, Request{Path: "/health"})
	if err != context.Canceled {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestRESTClient_InvalidURLIsBadInput(t *testing.T) {
	_, err := NewRESTClient("rampa", "", nil, nil).Do(context.Background(), Request{Path: "/x"})
	if !core.HasTextCode(err, core.ErrorBadInput) {
		t.Fatalf("expected bad input error, got %v", err)
	}
}

func TestDecodeJSONError_Envelopes(t *testing.T) {
	tests := []struct {
		body      string
		code, msg string
	}{
		{body: `{"code":"E1","message":"nope"}`, code: "E1", msg: "nope"},
		{body: `{"error":"invalid_request","error_description":"missing iban"}`, code: "invalid_request", msg: "missing iban"},
		{body: `{"code":409,"message":"duplicate"}`, code: "409", msg: "duplicate"},
		{body: `gateway exploded`, code: "502", msg: "gateway exploded"},
		{body: ``, code: "502", msg: "Bad Gateway"},
	}
	for _, tt := range tests {
		code, msg := DecodeJSONError(http.StatusBadGateway, []byte(tt.body))
		if code != tt.code || msg != tt.msg {
			t.Fatalf("decode %q: expected (%q, %q), got (%q, %q)", tt.body, tt.code, tt.msg, code, msg)
		}
	}
}

type recordingLimiter struct {
	blockWith error
	buckets   []string
	statuses  []int
}

func (l *recordingLimiter) BeforeCall(_ context.Context, _ string, bucket string) error {
	l.buckets = append(l.buckets, bucket)
	return l.blockWith
}

func (l *recordingLimiter) AfterCall(_ context.Context, _ string, _ string, res Response) error {
	l.statuses = append(l.statuses, res.StatusCode)
	return nil
}

func TestRESTClient_ConsultsRateLimiter(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	limiter := &recordingLimiter{}
	client := NewRESTClient("corridor", server.URL, server.Client(), nil)
	client.Limiter = limiter

	if _, err := client.Do(context.Background(), Request{Path: "/transfers", Bucket: "transfers"}); err != nil {
		t.Fatalf("do: %v", err)
	}
	if len(limiter.buckets) != 1 || limiter.buckets[0] != "transfers" {
		t.Fatalf("unexpected buckets %v", limiter.buckets)
	}
	if len(limiter.statuses) != 1 || limiter.statuses[0] != http.StatusTooManyRequests {
		t.Fatalf("expected limiter to observe the 429, got %v", limiter.statuses)
	}

	limiter.blockWith = core.RateLimitedError("corridor", DefaultBucket, 0)
	err := client.JSON(context.Background(), Request{Path: "/clients"}, nil)
	if !core.HasTextCode(err, core.ErrorRateLimited) {
		t.Fatalf("expected limiter error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected blocked call to skip the provider, calls=%d", calls)
	}
	if limiter.buckets[1] != DefaultBucket {
		t.Fatalf("expected default bucket, got %q", limiter.buckets[1])
	}
}
