package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIKeySigner_Placement(t *testing.T) {
	tests := []struct {
		name   string
		config APIKeyConfig
		header string
		want   string
		query  string
	}{
		{name: "default header", config: APIKeyConfig{Key: "k1"}, header: "X-API-Key", want: "k1"},
		{name: "prefixed header", config: APIKeyConfig{Key: "k1", Header: "Authorization", Prefix: "Token"}, header: "Authorization", want: "Token k1"},
		{name: "query parameter", config: APIKeyConfig{Key: "k1", QueryParam: "api_key"}, query: "api_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "https://api.example.test/v1/quotes?page=1", nil)
			if err := NewAPIKeySigner(tt.config).Authorize(context.Background(), req); err != nil {
				t.Fatalf("authorize: %v", err)
			}
			if tt.query != "" {
				if req.URL.Query().Get(tt.query) != "k1" || req.URL.Query().Get("page") != "1" {
					t.Fatalf("unexpected query %q", req.URL.RawQuery)
				}
				return
			}
			if got := req.Header.Get(tt.header); got != tt.want {
				t.Fatalf("expected %s header %q, got %q", tt.header, tt.want, got)
			}
		})
	}
}

func TestAPIKeySigner_RequiresKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://api.example.test", nil)
	if err := NewAPIKeySigner(APIKeyConfig{}).Authorize(context.Background(), req); err == nil {
		t.Fatalf("expected missing key to fail")
	}
}
