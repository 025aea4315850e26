package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-payouts/core"
)

const (
	defaultTokenTTL       = time.Hour
	defaultRenewBefore    = 2 * time.Minute
	defaultTokenTimeout   = 15 * time.Second
	tokenErrorBodyLimit   = 4 << 10
	tokenResponseBodySize = 64 << 10
)

type ClientCredentialsConfig struct {
	ProviderID   string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
	Audience     string
	// DefaultTTL applies when the token endpoint omits expires_in.
	DefaultTTL  time.Duration
	RenewBefore time.Duration
	HTTPClient  HTTPDoer
	Now         func() time.Time
}

// ClientCredentialsSource fetches and caches an OAuth2 client credentials
// token. Concurrent callers share a single in-flight fetch.
type ClientCredentialsSource struct {
	config  ClientCredentialsConfig
	mu      sync.Mutex
	current atomic.Pointer[Credential]
	fetches atomic.Int64
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func NewClientCredentialsSource(cfg ClientCredentialsConfig) *ClientCredentialsSource {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = defaultTokenTTL
	}
	if cfg.RenewBefore <= 0 {
		cfg.RenewBefore = defaultRenewBefore
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTokenTimeout}
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	cfg.ProviderID = strings.TrimSpace(cfg.ProviderID)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	cfg.Scopes = normalizeValues(cfg.Scopes)
	return &ClientCredentialsSource{config: cfg}
}

func (*ClientCredentialsSource) Kind() string {
	return KindClientCredentials
}

// Token returns the cached credential while it is outside the renewal
// margin, otherwise fetches a new one.
func (s *ClientCredentialsSource) Token(ctx context.Context) (Credential, error) {
	if cred, ok := s.cached(); ok {
		return cred, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cred, ok := s.cached(); ok {
		return cred, nil
	}

	cred, err := s.fetch(ctx)
	if err != nil {
		return Credential{}, core.AuthenticationError(s.config.ProviderID, err)
	}
	s.current.Store(&cred)
	return cred, nil
}

func (s *ClientCredentialsSource) Authorize(ctx context.Context, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("auth: request is required")
	}
	cred, err := s.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", cred.AuthorizationHeader())
	return nil
}

func (s *ClientCredentialsSource) Invalidate() {
	s.current.Store(nil)
}

// Fetches reports how many token requests were issued.
func (s *ClientCredentialsSource) Fetches() int64 {
	return s.fetches.Load()
}

func (s *ClientCredentialsSource) cached() (Credential, bool) {
	cred := s.current.Load()
	if cred == nil || !cred.usableAt(s.config.Now(), s.config.RenewBefore) {
		return Credential{}, false
	}
	return *cred, true
}

func (s *ClientCredentialsSource) fetch(ctx context.Context) (Credential, error) {
	if s.config.ClientID == "" || s.config.ClientSecret == "" {
		return Credential{}, fmt.Errorf("auth: client credentials require client id and secret")
	}
	if s.config.TokenURL == "" {
		return Credential{}, fmt.Errorf("auth: client credentials require a token url")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	if len(s.config.Scopes) > 0 {
		form.Set("scope", strings.Join(s.config.Scopes, " "))
	}
	if s.config.Audience != "" {
		form.Set("audience", s.config.Audience)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, fmt.Errorf("auth: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(url.QueryEscape(s.config.ClientID), url.QueryEscape(s.config.ClientSecret))

	s.fetches.Add(1)
	issuedAt := s.config.Now()
	res, err := s.config.HTTPClient.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("auth: token request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, tokenErrorBodyLimit))
		var payload tokenResponse
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			return Credential{}, fmt.Errorf("auth: token endpoint returned %d: %s %s", res.StatusCode, payload.Error, payload.ErrorDescription)
		}
		return Credential{}, fmt.Errorf("auth: token endpoint returned %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload tokenResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, tokenResponseBodySize)).Decode(&payload); err != nil {
		return Credential{}, fmt.Errorf("auth: decode token response: %w", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return Credential{}, fmt.Errorf("auth: token response has no access_token")
	}

	ttl := s.config.DefaultTTL
	if payload.ExpiresIn > 0 {
		ttl = time.Duration(payload.ExpiresIn) * time.Second
	}
	scopes := s.config.Scopes
	if payload.Scope != "" {
		scopes = normalizeValues(strings.Fields(payload.Scope))
	}
	return Credential{
		TokenType:   firstNonEmpty(payload.TokenType, "Bearer"),
		AccessToken: payload.AccessToken,
		Scopes:      append([]string(nil), scopes...),
		ExpiresAt:   issuedAt.Add(ttl),
	}, nil
}

var _ Authorizer = (*ClientCredentialsSource)(nil)
var _ Invalidator = (*ClientCredentialsSource)(nil)
