package providers

import (
	"testing"

	"github.com/goliatone/go-payouts/transport"
)

func TestBucket(t *testing.T) {
	cases := map[string]string{
		"/transfers/tr_1": "transfers",
		"Orders?page=2":   "orders",
		"/quotes":         "quotes",
		"":                transport.DefaultBucket,
		"/":               transport.DefaultBucket,
	}
	for path, want := range cases {
		if got := Bucket(path); got != want {
			t.Fatalf("Bucket(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestNewBase_DefaultsRateLimiter(t *testing.T) {
	base, err := NewBase(BaseConfig{ID: "Rampa", BaseURL: "https://api.rampa.example"})
	if err != nil {
		t.Fatalf("new base: %v", err)
	}
	if base.ID() != "rampa" {
		t.Fatalf("expected normalized id, got %q", base.ID())
	}
	if base.Client().Limiter == nil {
		t.Fatalf("expected default rate limiter")
	}
}
