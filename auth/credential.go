// Package auth holds the outbound credentials provider adapters attach to
// their API calls.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const (
	KindClientCredentials = "oauth2_client_credentials"
	KindAPIKey            = "api_key"
)

// Authorizer decorates an outbound provider request with credentials.
type Authorizer interface {
	Kind() string
	Authorize(ctx context.Context, req *http.Request) error
}

// Invalidator is implemented by authorizers holding a cached credential the
// caller can discard after the provider rejected it.
type Invalidator interface {
	Invalidate()
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Credential struct {
	TokenType   string
	AccessToken string
	Scopes      []string
	ExpiresAt   time.Time
}

// usableAt reports whether the credential is still valid at now plus the
// renewal margin.
func (c Credential) usableAt(now time.Time, renewBefore time.Duration) bool {
	if strings.TrimSpace(c.AccessToken) == "" {
		return false
	}
	if c.ExpiresAt.IsZero() {
		return true
	}
	return c.ExpiresAt.After(now.Add(renewBefore))
}

func (c Credential) AuthorizationHeader() string {
	tokenType := strings.TrimSpace(c.TokenType)
	if tokenType == "" || strings.EqualFold(tokenType, "bearer") {
		tokenType = "Bearer"
	}
	return tokenType + " " + c.AccessToken
}
