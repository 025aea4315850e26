package gocommand

import (
	"fmt"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	payouts "github.com/goliatone/go-payouts"
	payoutscommand "github.com/goliatone/go-payouts/command"
	"github.com/goliatone/go-payouts/core"
	payoutsquery "github.com/goliatone/go-payouts/query"
)

type mountStep func(*Bus) (commanddispatcher.Subscription, error)

func commandStep[T any](cmd command.Commander[T]) mountStep {
	return func(b *Bus) (commanddispatcher.Subscription, error) {
		return mountCommand(b, cmd)
	}
}

func queryStep[T any, R any](qry command.Querier[T, R]) mountStep {
	return func(b *Bus) (commanddispatcher.Subscription, error) {
		return mountQuery(b, qry)
	}
}

// MountFacade registers and subscribes every payout command and query of
// facade. A failed step releases the subscriptions made before it.
func (b *Bus) MountFacade(facade *payouts.Facade) error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if facade == nil {
		return fmt.Errorf("gocommand: payouts facade is required")
	}
	commands := facade.Commands()
	queries := facade.Queries()

	steps := []mountStep{
		commandStep[payoutscommand.CreateCustomerMessage](commands.CreateCustomer),
		commandStep[payoutscommand.UpdateCustomerMessage](commands.UpdateCustomer),
		commandStep[payoutscommand.AddBankAccountMessage](commands.AddBankAccount),
		commandStep[payoutscommand.CreatePayoutMessage](commands.CreatePayout),
		commandStep[payoutscommand.CancelPayoutMessage](commands.CancelPayout),
		commandStep[payoutscommand.RefreshPayoutStatusMessage](commands.RefreshPayoutStatus),
		commandStep[payoutscommand.ApplyStatusUpdateMessage](commands.ApplyStatusUpdate),
		commandStep[payoutscommand.InitiateKYCMessage](commands.InitiateKYC),
		commandStep[payoutscommand.InitiateKYBMessage](commands.InitiateKYB),
		commandStep[payoutscommand.UploadDocumentMessage](commands.UploadDocument),
		commandStep[payoutscommand.SubmitVerificationMessage](commands.SubmitVerification),
		commandStep[payoutscommand.ProcessWebhookMessage](commands.ProcessWebhook),
		queryStep[payoutsquery.GetCustomerMessage, core.Customer](queries.GetCustomer),
		queryStep[payoutsquery.GetCustomerByExternalIDMessage, core.Customer](queries.GetCustomerByExternalID),
		queryStep[payoutsquery.ListCustomersMessage, core.CustomerPage](queries.ListCustomers),
		queryStep[payoutsquery.GetPayoutMessage, core.Payout](queries.GetPayout),
		queryStep[payoutsquery.GetDepositWalletMessage, core.DepositWallet](queries.GetDepositWallet),
		queryStep[payoutsquery.GetPayoutHistoryMessage, core.PayoutPage](queries.GetPayoutHistory),
		queryStep[payoutsquery.ListProvidersMessage, []core.ProviderInfo](queries.ListProviders),
		queryStep[payoutsquery.GetProviderMessage, core.ProviderInfo](queries.GetProvider),
		queryStep[payoutsquery.SearchProvidersMessage, []core.ProviderInfo](queries.SearchProviders),
		queryStep[payoutsquery.CheckProviderHealthMessage, core.HealthStatus](queries.CheckProviderHealth),
		queryStep[payoutsquery.CheckAllProvidersMessage, []core.HealthStatus](queries.CheckAllProviders),
		queryStep[payoutsquery.GetQuoteMessage, core.Quote](queries.GetQuote),
		queryStep[payoutsquery.CompareQuotesMessage, []core.QuoteComparison](queries.CompareQuotes),
		queryStep[payoutsquery.GetVerificationStatusMessage, core.VerificationInfo](queries.GetVerificationStatus),
		queryStep[payoutsquery.ListDocumentsMessage, []core.VerificationDocument](queries.ListDocuments),
	}

	mounted := make([]commanddispatcher.Subscription, 0, len(steps))
	for _, step := range steps {
		subscription, err := step(b)
		if err != nil {
			unsubscribe(mounted)
			return err
		}
		mounted = append(mounted, subscription)
	}
	b.keep(mounted)
	return nil
}
