package devkit

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-payouts/core"
)

// ValidateDescriptorConformance checks the identity and support matrix every
// adapter must expose.
func ValidateDescriptorConformance(provider core.ProviderDescriptor) error {
	if provider == nil {
		return fmt.Errorf("devkit: provider is required")
	}
	id := provider.ID()
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("devkit: provider id is required")
	}
	if id != strings.ToLower(strings.TrimSpace(id)) {
		return fmt.Errorf("devkit: provider id %q must be lowercase and trimmed", id)
	}
	info := provider.Info()
	if info.ID != id {
		return fmt.Errorf("devkit: info id %q does not match provider id %q", info.ID, id)
	}
	if len(info.Capabilities.Stablecoins) == 0 {
		return fmt.Errorf("devkit: provider %s declares no stablecoins", id)
	}
	if len(info.Capabilities.FiatCurrencies) == 0 {
		return fmt.Errorf("devkit: provider %s declares no fiat currencies", id)
	}
	if len(info.Capabilities.Networks) == 0 {
		return fmt.Errorf("devkit: provider %s declares no networks", id)
	}
	return nil
}

// ValidatePayoutStatusTable checks that every canonical payout status is
// reachable and that unknown strings resolve to processing.
func ValidatePayoutStatusTable(table core.StatusTable[core.PayoutStatus]) error {
	if missing := table.Missing(core.PayoutStatuses); len(missing) > 0 {
		return fmt.Errorf("devkit: no provider status maps to %v", missing)
	}
	if got := table.Map("devkit_unknown_status"); got != core.PayoutStatusProcessing {
		return fmt.Errorf("devkit: unknown payout status should map to processing, got %q", got)
	}
	return nil
}

// ValidateVerificationStatusTable requires only the not_started fallback;
// providers commonly omit some intermediate verification states.
func ValidateVerificationStatusTable(table core.StatusTable[core.VerificationStatus]) error {
	if got := table.Map("devkit_unknown_status"); got != core.VerificationStatusNotStarted {
		return fmt.Errorf("devkit: unknown verification status should map to not_started, got %q", got)
	}
	for _, status := range []core.VerificationStatus{core.VerificationStatusApproved, core.VerificationStatusRejected} {
		found := false
		for _, missing := range table.Missing(core.VerificationStatuses) {
			if missing == status {
				found = true
			}
		}
		if found {
			return fmt.Errorf("devkit: no provider status maps to %s", status)
		}
	}
	return nil
}

// ValidateWebhookConformance runs a signed delivery through the adapter's
// webhook capability: the genuine signature verifies, a tampered payload does
// not, and parsing yields an update attributed to the provider.
func ValidateWebhookConformance(provider core.Provider, payload []byte, signature string) error {
	if provider == nil {
		return fmt.Errorf("devkit: provider is required")
	}
	if !provider.ValidateWebhookSignature(payload, signature) {
		return fmt.Errorf("devkit: provider %s rejected a valid signature", provider.ID())
	}
	tampered := append(append([]byte(nil), payload...), ' ')
	if provider.ValidateWebhookSignature(tampered, signature) {
		return fmt.Errorf("devkit: provider %s accepted a tampered payload", provider.ID())
	}
	if provider.ValidateWebhookSignature(payload, "") {
		return fmt.Errorf("devkit: provider %s accepted an empty signature", provider.ID())
	}
	update, err := provider.ParseWebhook(payload)
	if err != nil {
		return fmt.Errorf("devkit: parse webhook: %w", err)
	}
	if update.ProviderID != provider.ID() {
		return fmt.Errorf("devkit: update provider %q does not match %q", update.ProviderID, provider.ID())
	}
	if strings.TrimSpace(update.PayoutID) == "" && strings.TrimSpace(update.ProviderOrderID) == "" {
		return fmt.Errorf("devkit: update carries no payout reference")
	}
	if update.Status == "" {
		return fmt.Errorf("devkit: update has no canonical status")
	}
	if update.Timestamp.IsZero() {
		return fmt.Errorf("devkit: update has no timestamp")
	}
	if _, err := provider.ParseWebhook([]byte("{not json")); err == nil {
		return fmt.Errorf("devkit: provider %s parsed a malformed payload", provider.ID())
	} else if !core.HasTextCode(err, core.ErrorWebhookPayloadInvalid) {
		return fmt.Errorf("devkit: malformed payload should be a webhook payload error, got %v", err)
	}
	return nil
}
