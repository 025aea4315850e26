package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput                 = "PAYOUTS_BAD_INPUT"
	ErrorCustomerNotFound         = "PAYOUTS_CUSTOMER_NOT_FOUND"
	ErrorPayoutNotFound           = "PAYOUTS_PAYOUT_NOT_FOUND"
	ErrorProviderNotFound         = "PAYOUTS_PROVIDER_NOT_FOUND"
	ErrorQuoteNotFound            = "PAYOUTS_QUOTE_NOT_FOUND"
	ErrorDepositWalletNotFound    = "PAYOUTS_DEPOSIT_WALLET_NOT_FOUND"
	ErrorInvalidCustomerType      = "PAYOUTS_INVALID_CUSTOMER_TYPE"
	ErrorDeclarationNotAccepted   = "PAYOUTS_DECLARATION_NOT_ACCEPTED"
	ErrorProviderUnavailable      = "PAYOUTS_PROVIDER_UNAVAILABLE"
	ErrorProviderAPI              = "PAYOUTS_PROVIDER_API_ERROR"
	ErrorAuthenticationFailed     = "PAYOUTS_AUTHENTICATION_FAILED"
	ErrorUnsupportedConfiguration = "PAYOUTS_UNSUPPORTED_CONFIGURATION"
	ErrorAllProvidersUnavailable  = "PAYOUTS_ALL_PROVIDERS_UNAVAILABLE"
	ErrorCancellationNotAllowed   = "PAYOUTS_CANCELLATION_NOT_ALLOWED"
	ErrorRateLimited              = "PAYOUTS_RATE_LIMITED"
	ErrorWebhookSignatureInvalid  = "PAYOUTS_WEBHOOK_SIGNATURE_INVALID"
	ErrorWebhookPayloadInvalid    = "PAYOUTS_WEBHOOK_PAYLOAD_INVALID"
	ErrorConflict                 = "PAYOUTS_CONFLICT"
	ErrorCancelled                = "PAYOUTS_CANCELLED"
	ErrorInternal                 = "PAYOUTS_INTERNAL_ERROR"
)

var (
	// ErrNoProvider is returned by selection when no configured provider can
	// serve a request.
	ErrNoProvider = errors.New("core: no provider available")
	// ErrVersionConflict is returned by stores when an optimistic update lost
	// the race against a concurrent writer.
	ErrVersionConflict = errors.New("core: record version conflict")
	ErrDuplicateKey    = errors.New("core: duplicate key")
)

func newError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func CustomerNotFoundError(customerID string) error {
	return newError(fmt.Sprintf("customer %q not found", customerID), goerrors.CategoryNotFound, ErrorCustomerNotFound).
		WithMetadata(map[string]any{"customer_id": customerID})
}

func PayoutNotFoundError(payoutID string) error {
	return newError(fmt.Sprintf("payout %q not found", payoutID), goerrors.CategoryNotFound, ErrorPayoutNotFound).
		WithMetadata(map[string]any{"payout_id": payoutID})
}

func ProviderNotFoundError(providerID string) error {
	return newError(fmt.Sprintf("provider %q is not configured", providerID), goerrors.CategoryNotFound, ErrorProviderNotFound).
		WithMetadata(map[string]any{"provider_id": providerID})
}

func QuoteNotFoundError(quoteID string) error {
	return newError(fmt.Sprintf("quote %q not found", quoteID), goerrors.CategoryNotFound, ErrorQuoteNotFound).
		WithMetadata(map[string]any{"quote_id": quoteID})
}

func DepositWalletNotFoundError(payoutID string) error {
	return newError(fmt.Sprintf("payout %q has no deposit wallet", payoutID), goerrors.CategoryNotFound, ErrorDepositWalletNotFound).
		WithMetadata(map[string]any{"payout_id": payoutID})
}

func ValidationError(field string, message string) error {
	return goerrors.NewValidation("validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorBadInput).
		WithSeverity(goerrors.SeverityError)
}

func InvalidCustomerTypeError(customerID string, expected CustomerType, actual CustomerType) error {
	return newError(
		fmt.Sprintf("customer %q is %s, verification requires %s", customerID, actual, expected),
		goerrors.CategoryValidation,
		ErrorInvalidCustomerType,
	).WithMetadata(map[string]any{
		"customer_id":   customerID,
		"expected_type": string(expected),
		"actual_type":   string(actual),
	})
}

func DeclarationNotAcceptedError(customerID string) error {
	return newError("verification declaration must be accepted before submission", goerrors.CategoryValidation, ErrorDeclarationNotAccepted).
		WithMetadata(map[string]any{"customer_id": customerID})
}

func ProviderUnavailableError(providerID string, message string) error {
	if strings.TrimSpace(message) == "" {
		message = "health probe failed"
	}
	return newError(fmt.Sprintf("provider %q unavailable: %s", providerID, message), goerrors.CategoryExternal, ErrorProviderUnavailable).
		WithCode(http.StatusServiceUnavailable).
		WithMetadata(map[string]any{"provider_id": providerID})
}

// ProviderAPIError wraps a failed provider call. The provider's own code and
// message are kept verbatim in metadata.
func ProviderAPIError(providerID string, providerCode string, providerMessage string) error {
	message := strings.TrimSpace(providerMessage)
	if message == "" {
		message = "provider request failed"
	}
	return newError(fmt.Sprintf("provider %q: %s", providerID, message), goerrors.CategoryExternal, ErrorProviderAPI).
		WithCode(http.StatusBadGateway).
		WithMetadata(map[string]any{
			"provider_id":      providerID,
			"provider_code":    providerCode,
			"provider_message": providerMessage,
		})
}

// RateLimitedError reports a provider call refused locally because the
// provider asked callers to back off.
func RateLimitedError(providerID string, bucket string, retryAfter time.Duration) error {
	metadata := map[string]any{
		"provider_id": providerID,
		"bucket":      bucket,
	}
	if retryAfter > 0 {
		metadata["retry_after_ms"] = retryAfter.Milliseconds()
	}
	return newError(
		fmt.Sprintf("provider %q bucket %q throttled for %s", providerID, bucket, retryAfter),
		goerrors.CategoryRateLimit,
		ErrorRateLimited,
	).WithMetadata(metadata)
}

func AuthenticationError(providerID string, cause error) error {
	message := fmt.Sprintf("provider %q authentication failed", providerID)
	if cause == nil {
		return newError(message, goerrors.CategoryAuth, ErrorAuthenticationFailed).
			WithMetadata(map[string]any{"provider_id": providerID})
	}
	return ensureErrorEnvelope(
		goerrors.Wrap(cause, goerrors.CategoryAuth, message).
			WithTextCode(ErrorAuthenticationFailed).
			WithMetadata(map[string]any{"provider_id": providerID}),
	)
}

func UnsupportedConfigurationError(criteria SupportCriteria) error {
	return newError(
		fmt.Sprintf("no configured provider supports %s", criteria),
		goerrors.CategoryBadInput,
		ErrorUnsupportedConfiguration,
	).WithMetadata(criteria.fields())
}

func AllProvidersUnavailableError(criteria SupportCriteria) error {
	return newError(
		fmt.Sprintf("every provider supporting %s is unavailable", criteria),
		goerrors.CategoryExternal,
		ErrorAllProvidersUnavailable,
	).WithCode(http.StatusServiceUnavailable).
		WithMetadata(criteria.fields())
}

func CancellationNotAllowedError(payoutID string, status PayoutStatus) error {
	return newError(
		fmt.Sprintf("payout %q cannot be cancelled in status %s", payoutID, status),
		goerrors.CategoryConflict,
		ErrorCancellationNotAllowed,
	).WithMetadata(map[string]any{"payout_id": payoutID, "status": string(status)})
}

func WebhookSignatureError(providerID string, message string) error {
	return newError(message, goerrors.CategoryAuth, ErrorWebhookSignatureInvalid).
		WithMetadata(map[string]any{"provider_id": providerID})
}

func WebhookPayloadError(providerID string, cause error) error {
	message := fmt.Sprintf("provider %q webhook payload could not be parsed", providerID)
	if cause == nil {
		return newError(message, goerrors.CategoryBadInput, ErrorWebhookPayloadInvalid)
	}
	return ensureErrorEnvelope(
		goerrors.Wrap(cause, goerrors.CategoryBadInput, message).
			WithTextCode(ErrorWebhookPayloadInvalid).
			WithMetadata(map[string]any{"provider_id": providerID}),
	)
}

func ConflictError(message string) error {
	return newError(message, goerrors.CategoryConflict, ErrorConflict)
}

// TextCode returns the machine readable code carried by err, or "" when err
// is not a structured error.
func TextCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}

func HasTextCode(err error, code string) bool {
	return err != nil && TextCode(err) == code
}

func errorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ensureErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryOperation, "operation cancelled").
				WithTextCode(ErrorCancelled).
				WithCode(http.StatusRequestTimeout),
		)
	case errors.Is(err, ErrVersionConflict), errors.Is(err, ErrDuplicateKey):
		return newError(err.Error(), goerrors.CategoryConflict, ErrorConflict)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	if strings.Contains(msg, "required") || strings.Contains(msg, "invalid") {
		return newError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = errorHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryAuth:
		return ErrorAuthenticationFailed
	case goerrors.CategoryConflict:
		return ErrorConflict
	case goerrors.CategoryRateLimit:
		return ErrorRateLimited
	case goerrors.CategoryExternal:
		return ErrorProviderAPI
	default:
		return ErrorInternal
	}
}

func errorHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
