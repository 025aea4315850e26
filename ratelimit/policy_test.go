package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-payouts/core"
	"github.com/goliatone/go-payouts/transport"
)

func fixedPolicy(now *time.Time) (*AdaptivePolicy, *MemoryStateStore) {
	store := NewMemoryStateStore()
	policy := NewAdaptivePolicy(store)
	policy.Now = func() time.Time { return *now }
	return policy, store
}

func TestAdaptivePolicy_BeforeCallAllowsWhenNoState(t *testing.T) {
	policy := NewAdaptivePolicy(NewMemoryStateStore())
	if err := policy.BeforeCall(context.Background(), "rampa", "orders"); err != nil {
		t.Fatalf("expected no error when no state exists, got %v", err)
	}
}

func TestAdaptivePolicy_AfterCallParsesHeadersAndPersistsState(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	policy, store := fixedPolicy(&now)

	err := policy.AfterCall(context.Background(), "Rampa", "", transport.Response{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "600",
			"X-RateLimit-Remaining": "599",
			"X-RateLimit-Reset":     "1700000045",
		},
	})
	if err != nil {
		t.Fatalf("after call: %v", err)
	}

	state, err := store.Get(context.Background(), Key{ProviderID: "rampa", Bucket: transport.DefaultBucket})
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Limit != 600 || state.Remaining != 599 {
		t.Fatalf("unexpected quota %+v", state)
	}
	if state.ResetAt == nil || !state.ResetAt.Equal(now.Add(45*time.Second)) {
		t.Fatalf("unexpected reset at %+v", state.ResetAt)
	}
}

func TestAdaptivePolicy_BlocksWhileThrottled(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	policy, store := fixedPolicy(&now)

	until := now.Add(20 * time.Second)
	if err := store.Upsert(context.Background(), State{Key: Key{ProviderID: "corridor", Bucket: "transfers"}, ThrottledUntil: &until}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	err := policy.BeforeCall(context.Background(), "corridor", "transfers")
	if !core.HasTextCode(err, core.ErrorRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
	var mapped *goerrors.Error
	if !errors.As(err, &mapped) || mapped.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 envelope, got %#v", err)
	}

	now = until.Add(time.Second)
	if err := policy.BeforeCall(context.Background(), "corridor", "transfers"); err != nil {
		t.Fatalf("expected window to expire, got %v", err)
	}
}

func TestAdaptivePolicy_BlocksExhaustedQuotaUntilReset(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	policy, _ := fixedPolicy(&now)

	if err := policy.AfterCall(context.Background(), "rampa", "quotes", transport.Response{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "1700000030",
		},
	}); err != nil {
		t.Fatalf("after call: %v", err)
	}
	if err := policy.BeforeCall(context.Background(), "rampa", "quotes"); !core.HasTextCode(err, core.ErrorRateLimited) {
		t.Fatalf("expected exhausted quota to throttle, got %v", err)
	}
	if err := policy.BeforeCall(context.Background(), "rampa", "orders"); err != nil {
		t.Fatalf("expected other bucket to stay open, got %v", err)
	}
}

func TestAdaptivePolicy_429UsesRetryAfter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	policy, store := fixedPolicy(&now)

	if err := policy.AfterCall(context.Background(), "rampa", "api", transport.Response{
		StatusCode: http.StatusTooManyRequests,
		Headers:    map[string]string{"Retry-After": "10"},
	}); err != nil {
		t.Fatalf("after call: %v", err)
	}

	state, err := store.Get(context.Background(), Key{ProviderID: "rampa", Bucket: "api"})
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Attempts != 1 || state.ThrottledUntil == nil {
		t.Fatalf("expected one throttled attempt, got %+v", state)
	}
	if got := state.ThrottledUntil.Sub(now); got != 10*time.Second {
		t.Fatalf("expected 10s window, got %s", got)
	}
}

func TestAdaptivePolicy_BackoffDoublesWithoutRetryAfter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	policy, store := fixedPolicy(&now)
	policy.InitialBackoff = 2 * time.Second
	policy.MaxBackoff = 30 * time.Second

	throttled := transport.Response{StatusCode: http.StatusTooManyRequests}
	if err := policy.AfterCall(context.Background(), "corridor", "api", throttled); err != nil {
		t.Fatalf("first call: %v", err)
	}
	now = now.Add(3 * time.Second)
	if err := policy.AfterCall(context.Background(), "corridor", "api", throttled); err != nil {
		t.Fatalf("second call: %v", err)
	}

	state, _ := store.Get(context.Background(), Key{ProviderID: "corridor", Bucket: "api"})
	if state.Attempts != 2 {
		t.Fatalf("expected two attempts, got %d", state.Attempts)
	}
	if got := state.ThrottledUntil.Sub(now); got != 4*time.Second {
		t.Fatalf("expected 4s backoff, got %s", got)
	}
}

func TestAdaptivePolicy_SuccessResetsAttempts(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	policy, store := fixedPolicy(&now)

	until := now.Add(10 * time.Second)
	if err := store.Upsert(context.Background(), State{Key: Key{ProviderID: "rampa", Bucket: "api"}, Attempts: 3, ThrottledUntil: &until}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	now = now.Add(12 * time.Second)
	if err := policy.AfterCall(context.Background(), "rampa", "api", transport.Response{StatusCode: http.StatusOK}); err != nil {
		t.Fatalf("after call: %v", err)
	}

	state, _ := store.Get(context.Background(), Key{ProviderID: "rampa", Bucket: "api"})
	if state.Attempts != 0 || state.ThrottledUntil != nil {
		t.Fatalf("expected throttle state cleared, got %+v", state)
	}
}

func TestAdaptivePolicy_ServerErrorsDoNotThrottle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	policy, _ := fixedPolicy(&now)

	if err := policy.AfterCall(context.Background(), "rampa", "api", transport.Response{
		StatusCode: http.StatusServiceUnavailable,
		Headers:    map[string]string{"X-RateLimit-Remaining": "0"},
	}); err != nil {
		t.Fatalf("after call: %v", err)
	}
	if err := policy.BeforeCall(context.Background(), "rampa", "api"); err != nil {
		t.Fatalf("expected 5xx to leave the bucket open, got %v", err)
	}
}
