package payouts

import (
	"fmt"

	payoutscommand "github.com/goliatone/go-payouts/command"
	payoutsquery "github.com/goliatone/go-payouts/query"
)

// CommandQueryService is satisfied by *core.Service.
type CommandQueryService interface {
	payoutscommand.MutatingService
	payoutsquery.ReadService
}

type Commands struct {
	CreateCustomer      *payoutscommand.CreateCustomerCommand
	UpdateCustomer      *payoutscommand.UpdateCustomerCommand
	AddBankAccount      *payoutscommand.AddBankAccountCommand
	CreatePayout        *payoutscommand.CreatePayoutCommand
	CancelPayout        *payoutscommand.CancelPayoutCommand
	RefreshPayoutStatus *payoutscommand.RefreshPayoutStatusCommand
	ApplyStatusUpdate   *payoutscommand.ApplyStatusUpdateCommand
	InitiateKYC         *payoutscommand.InitiateKYCCommand
	InitiateKYB         *payoutscommand.InitiateKYBCommand
	UploadDocument      *payoutscommand.UploadDocumentCommand
	SubmitVerification  *payoutscommand.SubmitVerificationCommand
	ProcessWebhook      *payoutscommand.ProcessWebhookCommand
}

type Queries struct {
	GetCustomer             *payoutsquery.GetCustomerQuery
	GetCustomerByExternalID *payoutsquery.GetCustomerByExternalIDQuery
	ListCustomers           *payoutsquery.ListCustomersQuery
	GetPayout               *payoutsquery.GetPayoutQuery
	GetDepositWallet        *payoutsquery.GetDepositWalletQuery
	GetPayoutHistory        *payoutsquery.GetPayoutHistoryQuery
	ListProviders           *payoutsquery.ListProvidersQuery
	GetProvider             *payoutsquery.GetProviderQuery
	SearchProviders         *payoutsquery.SearchProvidersQuery
	CheckProviderHealth     *payoutsquery.CheckProviderHealthQuery
	CheckAllProviders       *payoutsquery.CheckAllProvidersQuery
	GetQuote                *payoutsquery.GetQuoteQuery
	CompareQuotes           *payoutsquery.CompareQuotesQuery
	GetVerificationStatus   *payoutsquery.GetVerificationStatusQuery
	ListDocuments           *payoutsquery.ListDocumentsQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("payouts: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		CreateCustomer:      payoutscommand.NewCreateCustomerCommand(service),
		UpdateCustomer:      payoutscommand.NewUpdateCustomerCommand(service),
		AddBankAccount:      payoutscommand.NewAddBankAccountCommand(service),
		CreatePayout:        payoutscommand.NewCreatePayoutCommand(service),
		CancelPayout:        payoutscommand.NewCancelPayoutCommand(service),
		RefreshPayoutStatus: payoutscommand.NewRefreshPayoutStatusCommand(service),
		ApplyStatusUpdate:   payoutscommand.NewApplyStatusUpdateCommand(service),
		InitiateKYC:         payoutscommand.NewInitiateKYCCommand(service),
		InitiateKYB:         payoutscommand.NewInitiateKYBCommand(service),
		UploadDocument:      payoutscommand.NewUploadDocumentCommand(service),
		SubmitVerification:  payoutscommand.NewSubmitVerificationCommand(service),
		ProcessWebhook:      payoutscommand.NewProcessWebhookCommand(service),
	}
	facade.queries = Queries{
		GetCustomer:             payoutsquery.NewGetCustomerQuery(service),
		GetCustomerByExternalID: payoutsquery.NewGetCustomerByExternalIDQuery(service),
		ListCustomers:           payoutsquery.NewListCustomersQuery(service),
		GetPayout:               payoutsquery.NewGetPayoutQuery(service),
		GetDepositWallet:        payoutsquery.NewGetDepositWalletQuery(service),
		GetPayoutHistory:        payoutsquery.NewGetPayoutHistoryQuery(service),
		ListProviders:           payoutsquery.NewListProvidersQuery(service),
		GetProvider:             payoutsquery.NewGetProviderQuery(service),
		SearchProviders:         payoutsquery.NewSearchProvidersQuery(service),
		CheckProviderHealth:     payoutsquery.NewCheckProviderHealthQuery(service),
		CheckAllProviders:       payoutsquery.NewCheckAllProvidersQuery(service),
		GetQuote:                payoutsquery.NewGetQuoteQuery(service),
		CompareQuotes:           payoutsquery.NewCompareQuotesQuery(service),
		GetVerificationStatus:   payoutsquery.NewGetVerificationStatusQuery(service),
		ListDocuments:           payoutsquery.NewListDocumentsQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
