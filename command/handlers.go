package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-payouts/core"
)

// MutatingService is the write side of the payout service.
type MutatingService interface {
	CreateCustomer(ctx context.Context, req core.CreateCustomerRequest) (core.Customer, error)
	UpdateCustomer(ctx context.Context, customerID string, req core.UpdateCustomerRequest) (core.Customer, error)
	AddBankAccount(ctx context.Context, customerID string, req core.AddBankAccountRequest) (core.BankAccount, error)
	CreatePayout(ctx context.Context, req core.CreatePayoutRequest) (core.Payout, error)
	CancelPayout(ctx context.Context, payoutID string) (core.Payout, error)
	GetPayoutStatus(ctx context.Context, payoutID string) (core.Payout, error)
	ApplyStatusUpdate(ctx context.Context, payoutID string, update core.PayoutStatusUpdate) (core.Payout, error)
	InitiateKYC(ctx context.Context, customerID string, req core.InitiateVerificationRequest) (core.VerificationSession, error)
	InitiateKYB(ctx context.Context, customerID string, req core.InitiateVerificationRequest) (core.VerificationSession, error)
	UploadDocument(ctx context.Context, customerID string, req core.UploadDocumentRequest) (core.VerificationDocument, error)
	SubmitVerification(ctx context.Context, customerID string, req core.SubmitVerificationRequest) (core.VerificationInfo, error)
	ProcessWebhook(ctx context.Context, providerID string, payload []byte, signature string) (core.WebhookResult, error)
}

type CreateCustomerCommand struct {
	service MutatingService
}

func NewCreateCustomerCommand(service MutatingService) *CreateCustomerCommand {
	return &CreateCustomerCommand{service: service}
}

func (c *CreateCustomerCommand) Execute(ctx context.Context, msg CreateCustomerMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: create customer service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.CreateCustomer(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateCustomerCommand struct {
	service MutatingService
}

func NewUpdateCustomerCommand(service MutatingService) *UpdateCustomerCommand {
	return &UpdateCustomerCommand{service: service}
}

func (c *UpdateCustomerCommand) Execute(ctx context.Context, msg UpdateCustomerMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: update customer service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.UpdateCustomer(ctx, msg.CustomerID, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AddBankAccountCommand struct {
	service MutatingService
}

func NewAddBankAccountCommand(service MutatingService) *AddBankAccountCommand {
	return &AddBankAccountCommand{service: service}
}

func (c *AddBankAccountCommand) Execute(ctx context.Context, msg AddBankAccountMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: bank account service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.AddBankAccount(ctx, msg.CustomerID, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreatePayoutCommand struct {
	service MutatingService
}

func NewCreatePayoutCommand(service MutatingService) *CreatePayoutCommand {
	return &CreatePayoutCommand{service: service}
}

func (c *CreatePayoutCommand) Execute(ctx context.Context, msg CreatePayoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: create payout service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.CreatePayout(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CancelPayoutCommand struct {
	service MutatingService
}

func NewCancelPayoutCommand(service MutatingService) *CancelPayoutCommand {
	return &CancelPayoutCommand{service: service}
}

func (c *CancelPayoutCommand) Execute(ctx context.Context, msg CancelPayoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: cancel payout service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.CancelPayout(ctx, msg.PayoutID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshPayoutStatusCommand struct {
	service MutatingService
}

func NewRefreshPayoutStatusCommand(service MutatingService) *RefreshPayoutStatusCommand {
	return &RefreshPayoutStatusCommand{service: service}
}

func (c *RefreshPayoutStatusCommand) Execute(ctx context.Context, msg RefreshPayoutStatusMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: payout status service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.GetPayoutStatus(ctx, msg.PayoutID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ApplyStatusUpdateCommand struct {
	service MutatingService
}

func NewApplyStatusUpdateCommand(service MutatingService) *ApplyStatusUpdateCommand {
	return &ApplyStatusUpdateCommand{service: service}
}

func (c *ApplyStatusUpdateCommand) Execute(ctx context.Context, msg ApplyStatusUpdateMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: status update service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.ApplyStatusUpdate(ctx, msg.PayoutID, msg.Update)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type InitiateKYCCommand struct {
	service MutatingService
}

func NewInitiateKYCCommand(service MutatingService) *InitiateKYCCommand {
	return &InitiateKYCCommand{service: service}
}

func (c *InitiateKYCCommand) Execute(ctx context.Context, msg InitiateKYCMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: kyc service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.InitiateKYC(ctx, msg.CustomerID, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type InitiateKYBCommand struct {
	service MutatingService
}

func NewInitiateKYBCommand(service MutatingService) *InitiateKYBCommand {
	return &InitiateKYBCommand{service: service}
}

func (c *InitiateKYBCommand) Execute(ctx context.Context, msg InitiateKYBMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: kyb service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.InitiateKYB(ctx, msg.CustomerID, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UploadDocumentCommand struct {
	service MutatingService
}

func NewUploadDocumentCommand(service MutatingService) *UploadDocumentCommand {
	return &UploadDocumentCommand{service: service}
}

func (c *UploadDocumentCommand) Execute(ctx context.Context, msg UploadDocumentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: document upload service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.UploadDocument(ctx, msg.CustomerID, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SubmitVerificationCommand struct {
	service MutatingService
}

func NewSubmitVerificationCommand(service MutatingService) *SubmitVerificationCommand {
	return &SubmitVerificationCommand{service: service}
}

func (c *SubmitVerificationCommand) Execute(ctx context.Context, msg SubmitVerificationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: verification submit service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.SubmitVerification(ctx, msg.CustomerID, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ProcessWebhookCommand struct {
	service MutatingService
}

func NewProcessWebhookCommand(service MutatingService) *ProcessWebhookCommand {
	return &ProcessWebhookCommand{service: service}
}

func (c *ProcessWebhookCommand) Execute(ctx context.Context, msg ProcessWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.ProcessWebhook(ctx, msg.ProviderID, msg.Payload, msg.Signature)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
