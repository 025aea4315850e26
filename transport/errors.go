package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-payouts/core"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ErrorBadInput
	case goerrors.CategoryAuth:
		return core.ErrorAuthenticationFailed
	case goerrors.CategoryExternal:
		return core.ErrorProviderAPI
	default:
		return core.ErrorInternal
	}
}

// ErrorDecoder extracts the provider's own error code and message from a
// failed response body.
type ErrorDecoder func(statusCode int, body []byte) (code string, message string)

// DecodeJSONError understands the common envelopes {"code","message"},
// {"error":{"code","message"}} and {"error","error_description"}.
func DecodeJSONError(statusCode int, body []byte) (string, string) {
	var flat struct {
		Code             any    `json:"code"`
		Message          string `json:"message"`
		Error            any    `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &flat); err == nil {
		code := stringify(flat.Code)
		message := flat.Message
		switch typed := flat.Error.(type) {
		case string:
			code = firstNonEmpty(code, typed)
			message = firstNonEmpty(message, flat.ErrorDescription)
		case map[string]any:
			code = firstNonEmpty(code, stringify(typed["code"]))
			message = firstNonEmpty(message, stringify(typed["message"]))
		}
		if code != "" || message != "" {
			return firstNonEmpty(code, strconv.Itoa(statusCode)), firstNonEmpty(message, http.StatusText(statusCode))
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 256 {
		text = text[:256]
	}
	return strconv.Itoa(statusCode), firstNonEmpty(text, http.StatusText(statusCode))
}

func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
