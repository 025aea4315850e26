package core

import (
	"context"
	"fmt"
	"strings"
)

// WebhookResult reports what an inbound webhook did. Matched is false when
// the update referenced a payout this service does not know; such webhooks
// are acknowledged without any change.
type WebhookResult struct {
	ProviderID string
	Update     PayoutStatusUpdate
	Matched    bool
	Changed    bool
	Payout     *Payout
}

// ProcessWebhook verifies and normalizes a provider webhook and applies the
// resulting status update. Redelivered events are applied again; the merge
// is idempotent for every payout field.
func (s *Service) ProcessWebhook(ctx context.Context, providerID string, payload []byte, signature string) (result WebhookResult, err error) {
	startedAt := s.now()
	fields := map[string]any{"provider_id": providerID}
	defer func() {
		err = s.mapError(err)
		fields["matched"] = result.Matched
		if result.Payout != nil {
			fields["payout_id"] = result.Payout.ID
			fields["payout_status"] = string(result.Payout.Status)
		}
		s.observeOperation(ctx, startedAt, "process_webhook", err, fields)
	}()

	provider, err := s.selector.Get(providerID)
	if err != nil {
		return WebhookResult{}, err
	}
	result.ProviderID = provider.ID()

	if strings.TrimSpace(signature) == "" {
		if !s.config.Webhooks.AllowUnsigned {
			return result, WebhookSignatureError(provider.ID(), "webhook signature is missing")
		}
		s.logWarn(ctx, "processing unsigned webhook", map[string]any{"provider_id": provider.ID()})
	} else if !provider.ValidateWebhookSignature(payload, signature) {
		return result, WebhookSignatureError(provider.ID(), "webhook signature is invalid")
	}

	update, err := parseWebhook(provider, payload)
	if err != nil {
		return result, err
	}
	if update.ProviderID == "" {
		update.ProviderID = provider.ID()
	}
	result.Update = update

	target, found, err := s.locateWebhookPayout(ctx, provider.ID(), update)
	if err != nil {
		return result, err
	}
	if !found {
		s.logWarn(ctx, "webhook references unknown payout", map[string]any{
			"provider_id":       provider.ID(),
			"payout_id":         update.PayoutID,
			"provider_order_id": update.ProviderOrderID,
		})
		return result, nil
	}

	updated, changed, err := s.applyStatusUpdate(ctx, target.ID, update)
	if err != nil {
		return result, err
	}
	result.Matched = true
	result.Changed = changed
	result.Payout = &updated
	return result, nil
}

func parseWebhook(provider Provider, payload []byte) (update PayoutStatusUpdate, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = WebhookPayloadError(provider.ID(), fmt.Errorf("parse panicked: %v", recovered))
		}
	}()
	update, err = provider.ParseWebhook(payload)
	if err != nil {
		if HasTextCode(err, ErrorWebhookPayloadInvalid) {
			return PayoutStatusUpdate{}, err
		}
		return PayoutStatusUpdate{}, WebhookPayloadError(provider.ID(), err)
	}
	return update, nil
}

// locateWebhookPayout resolves the canonical payout by provider order id
// first, then by canonical id, then by external id.
func (s *Service) locateWebhookPayout(ctx context.Context, providerID string, update PayoutStatusUpdate) (Payout, bool, error) {
	if orderID := strings.TrimSpace(update.ProviderOrderID); orderID != "" {
		payout, err := s.payouts.GetByProviderOrder(ctx, providerID, orderID)
		if err == nil {
			return payout, true, nil
		}
		if !HasTextCode(err, ErrorPayoutNotFound) {
			return Payout{}, false, err
		}
	}
	payoutID := strings.TrimSpace(update.PayoutID)
	if payoutID == "" {
		return Payout{}, false, nil
	}
	payout, err := s.payouts.Get(ctx, payoutID)
	if err == nil && payout.ProviderID == providerID {
		return payout, true, nil
	}
	if err != nil && !HasTextCode(err, ErrorPayoutNotFound) {
		return Payout{}, false, err
	}
	// External ids are not unique; the newest payout wins.
	page, err := s.payouts.List(ctx, PayoutHistoryFilter{ProviderID: providerID, ExternalID: payoutID, PerPage: 1})
	if err != nil {
		return Payout{}, false, err
	}
	if len(page.Items) == 0 {
		return Payout{}, false, nil
	}
	return page.Items[0], true, nil
}
