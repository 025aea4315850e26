package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-payouts/core"
)

var (
	_ gocmd.Querier[GetCustomerMessage, core.Customer]                   = (*GetCustomerQuery)(nil)
	_ gocmd.Querier[GetCustomerByExternalIDMessage, core.Customer]       = (*GetCustomerByExternalIDQuery)(nil)
	_ gocmd.Querier[ListCustomersMessage, core.CustomerPage]             = (*ListCustomersQuery)(nil)
	_ gocmd.Querier[GetPayoutMessage, core.Payout]                       = (*GetPayoutQuery)(nil)
	_ gocmd.Querier[GetDepositWalletMessage, core.DepositWallet]         = (*GetDepositWalletQuery)(nil)
	_ gocmd.Querier[GetPayoutHistoryMessage, core.PayoutPage]            = (*GetPayoutHistoryQuery)(nil)
	_ gocmd.Querier[ListProvidersMessage, []core.ProviderInfo]           = (*ListProvidersQuery)(nil)
	_ gocmd.Querier[GetProviderMessage, core.ProviderInfo]               = (*GetProviderQuery)(nil)
	_ gocmd.Querier[SearchProvidersMessage, []core.ProviderInfo]         = (*SearchProvidersQuery)(nil)
	_ gocmd.Querier[CheckProviderHealthMessage, core.HealthStatus]       = (*CheckProviderHealthQuery)(nil)
	_ gocmd.Querier[CheckAllProvidersMessage, []core.HealthStatus]       = (*CheckAllProvidersQuery)(nil)
	_ gocmd.Querier[GetQuoteMessage, core.Quote]                         = (*GetQuoteQuery)(nil)
	_ gocmd.Querier[CompareQuotesMessage, []core.QuoteComparison]        = (*CompareQuotesQuery)(nil)
	_ gocmd.Querier[GetVerificationStatusMessage, core.VerificationInfo] = (*GetVerificationStatusQuery)(nil)
	_ gocmd.Querier[ListDocumentsMessage, []core.VerificationDocument]   = (*ListDocumentsQuery)(nil)
)
