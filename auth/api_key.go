package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const defaultAPIKeyHeader = "X-API-Key"

type APIKeyConfig struct {
	Key string
	// Header defaults to X-API-Key; ignored when QueryParam is set.
	Header     string
	Prefix     string
	QueryParam string
}

type APIKeySigner struct {
	config APIKeyConfig
}

func NewAPIKeySigner(cfg APIKeyConfig) *APIKeySigner {
	cfg.Key = strings.TrimSpace(cfg.Key)
	cfg.Header = firstNonEmpty(cfg.Header, defaultAPIKeyHeader)
	cfg.Prefix = strings.TrimSpace(cfg.Prefix)
	cfg.QueryParam = strings.TrimSpace(cfg.QueryParam)
	return &APIKeySigner{config: cfg}
}

func (*APIKeySigner) Kind() string {
	return KindAPIKey
}

func (s *APIKeySigner) Authorize(_ context.Context, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("auth: request is required")
	}
	if s == nil || s.config.Key == "" {
		return fmt.Errorf("auth: api key is required")
	}
	if s.config.QueryParam != "" {
		query := req.URL.Query()
		query.Set(s.config.QueryParam, s.config.Key)
		req.URL.RawQuery = query.Encode()
		return nil
	}
	value := s.config.Key
	if s.config.Prefix != "" {
		value = s.config.Prefix + " " + value
	}
	req.Header.Set(s.config.Header, value)
	return nil
}

var _ Authorizer = (*APIKeySigner)(nil)
