package command

import (
	"strings"

	"github.com/goliatone/go-payouts/core"
)

const (
	TypeCreateCustomer      = "payouts.command.customer.create"
	TypeUpdateCustomer      = "payouts.command.customer.update"
	TypeAddBankAccount      = "payouts.command.customer.bank_account.add"
	TypeCreatePayout        = "payouts.command.payout.create"
	TypeCancelPayout        = "payouts.command.payout.cancel"
	TypeRefreshPayoutStatus = "payouts.command.payout.refresh_status"
	TypeApplyStatusUpdate   = "payouts.command.payout.apply_status"
	TypeInitiateKYC         = "payouts.command.verification.kyc.initiate"
	TypeInitiateKYB         = "payouts.command.verification.kyb.initiate"
	TypeUploadDocument      = "payouts.command.verification.document.upload"
	TypeSubmitVerification  = "payouts.command.verification.submit"
	TypeProcessWebhook      = "payouts.command.webhook.process"
)

type CreateCustomerMessage struct {
	Request core.CreateCustomerRequest
}

func (CreateCustomerMessage) Type() string { return TypeCreateCustomer }

func (m CreateCustomerMessage) Validate() error {
	switch m.Request.Type {
	case core.CustomerTypeIndividual:
		if m.Request.Individual == nil {
			return commandValidationError("individual", "individual profile is required")
		}
	case core.CustomerTypeBusiness:
		if m.Request.Business == nil {
			return commandValidationError("business", "business profile is required")
		}
	default:
		return commandValidationError("type", "customer type must be individual or business")
	}
	return nil
}

type UpdateCustomerMessage struct {
	CustomerID string
	Request    core.UpdateCustomerRequest
}

func (UpdateCustomerMessage) Type() string { return TypeUpdateCustomer }

func (m UpdateCustomerMessage) Validate() error {
	return requireID("customer_id", m.CustomerID)
}

type AddBankAccountMessage struct {
	CustomerID string
	Request    core.AddBankAccountRequest
}

func (AddBankAccountMessage) Type() string { return TypeAddBankAccount }

func (m AddBankAccountMessage) Validate() error {
	if err := requireID("customer_id", m.CustomerID); err != nil {
		return err
	}
	account := m.Request.Account
	if strings.TrimSpace(account.AccountNumber) == "" && strings.TrimSpace(account.IBAN) == "" {
		return commandValidationError("account_number", "account number or iban is required")
	}
	return nil
}

type CreatePayoutMessage struct {
	Request core.CreatePayoutRequest
}

func (CreatePayoutMessage) Type() string { return TypeCreatePayout }

func (m CreatePayoutMessage) Validate() error {
	if m.Request.SourceAmount <= 0 {
		return commandValidationError("source_amount", "source amount must be positive")
	}
	if strings.TrimSpace(m.Request.SourceCurrency) == "" {
		return commandValidationError("source_currency", "source currency is required")
	}
	if strings.TrimSpace(m.Request.TargetCurrency) == "" {
		return commandValidationError("target_currency", "target currency is required")
	}
	if err := requireID("sender.customer_id", m.Request.Sender.CustomerID); err != nil {
		return err
	}
	return requireID("beneficiary.customer_id", m.Request.Beneficiary.CustomerID)
}

type CancelPayoutMessage struct {
	PayoutID string
}

func (CancelPayoutMessage) Type() string { return TypeCancelPayout }

func (m CancelPayoutMessage) Validate() error {
	return requireID("payout_id", m.PayoutID)
}

// RefreshPayoutStatusMessage polls the provider and persists the result.
type RefreshPayoutStatusMessage struct {
	PayoutID string
}

func (RefreshPayoutStatusMessage) Type() string { return TypeRefreshPayoutStatus }

func (m RefreshPayoutStatusMessage) Validate() error {
	return requireID("payout_id", m.PayoutID)
}

type ApplyStatusUpdateMessage struct {
	PayoutID string
	Update   core.PayoutStatusUpdate
}

func (ApplyStatusUpdateMessage) Type() string { return TypeApplyStatusUpdate }

func (m ApplyStatusUpdateMessage) Validate() error {
	if err := requireID("payout_id", m.PayoutID); err != nil {
		return err
	}
	if strings.TrimSpace(string(m.Update.Status)) == "" {
		return commandValidationError("status", "status is required")
	}
	return nil
}

type InitiateKYCMessage struct {
	CustomerID string
	Request    core.InitiateVerificationRequest
}

func (InitiateKYCMessage) Type() string { return TypeInitiateKYC }

func (m InitiateKYCMessage) Validate() error {
	return requireID("customer_id", m.CustomerID)
}

type InitiateKYBMessage struct {
	CustomerID string
	Request    core.InitiateVerificationRequest
}

func (InitiateKYBMessage) Type() string { return TypeInitiateKYB }

func (m InitiateKYBMessage) Validate() error {
	return requireID("customer_id", m.CustomerID)
}

type UploadDocumentMessage struct {
	CustomerID string
	Request    core.UploadDocumentRequest
}

func (UploadDocumentMessage) Type() string { return TypeUploadDocument }

func (m UploadDocumentMessage) Validate() error {
	if err := requireID("customer_id", m.CustomerID); err != nil {
		return err
	}
	if strings.TrimSpace(string(m.Request.Type)) == "" {
		return commandValidationError("type", "document type is required")
	}
	if len(m.Request.Content) == 0 {
		return commandValidationError("content", "document content is required")
	}
	return nil
}

type SubmitVerificationMessage struct {
	CustomerID string
	Request    core.SubmitVerificationRequest
}

func (SubmitVerificationMessage) Type() string { return TypeSubmitVerification }

func (m SubmitVerificationMessage) Validate() error {
	return requireID("customer_id", m.CustomerID)
}

// ProcessWebhookMessage carries a raw provider delivery. Payload must be the
// exact bytes received so the signature can be verified.
type ProcessWebhookMessage struct {
	ProviderID string
	Payload    []byte
	Signature  string
}

func (ProcessWebhookMessage) Type() string { return TypeProcessWebhook }

func (m ProcessWebhookMessage) Validate() error {
	if err := requireID("provider_id", m.ProviderID); err != nil {
		return err
	}
	if len(m.Payload) == 0 {
		return commandValidationError("payload", "payload is required")
	}
	return nil
}

func requireID(field string, value string) error {
	if strings.TrimSpace(value) == "" {
		return commandValidationError(field, strings.ReplaceAll(field, "_", " ")+" is required")
	}
	return nil
}
