package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateCustomerMessage]      = (*CreateCustomerCommand)(nil)
	_ gocmd.Commander[UpdateCustomerMessage]      = (*UpdateCustomerCommand)(nil)
	_ gocmd.Commander[AddBankAccountMessage]      = (*AddBankAccountCommand)(nil)
	_ gocmd.Commander[CreatePayoutMessage]        = (*CreatePayoutCommand)(nil)
	_ gocmd.Commander[CancelPayoutMessage]        = (*CancelPayoutCommand)(nil)
	_ gocmd.Commander[RefreshPayoutStatusMessage] = (*RefreshPayoutStatusCommand)(nil)
	_ gocmd.Commander[ApplyStatusUpdateMessage]   = (*ApplyStatusUpdateCommand)(nil)
	_ gocmd.Commander[InitiateKYCMessage]         = (*InitiateKYCCommand)(nil)
	_ gocmd.Commander[InitiateKYBMessage]         = (*InitiateKYBCommand)(nil)
	_ gocmd.Commander[UploadDocumentMessage]      = (*UploadDocumentCommand)(nil)
	_ gocmd.Commander[SubmitVerificationMessage]  = (*SubmitVerificationCommand)(nil)
	_ gocmd.Commander[ProcessWebhookMessage]      = (*ProcessWebhookCommand)(nil)
)
