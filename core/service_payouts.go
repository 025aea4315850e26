package core

import (
	"context"
	"strings"
	"time"
)

func validateCreatePayout(req CreatePayoutRequest) error {
	if strings.TrimSpace(req.SourceCurrency) == "" {
		return ValidationError("source_currency", "source currency is required")
	}
	if strings.TrimSpace(req.TargetCurrency) == "" {
		return ValidationError("target_currency", "target currency is required")
	}
	if req.SourceAmount <= 0 && req.TargetAmount <= 0 {
		return ValidationError("source_amount", "source or target amount must be positive")
	}
	if req.SourceAmount < 0 || req.TargetAmount < 0 {
		return ValidationError("source_amount", "amounts must not be negative")
	}
	if req.Beneficiary.BankAccount == nil {
		return ValidationError("beneficiary.bank_account", "beneficiary bank account is required")
	}
	if strings.TrimSpace(req.Criteria().DestinationCountry) == "" {
		return ValidationError("beneficiary.bank_account.country", "beneficiary bank account country is required")
	}
	return nil
}

// CreatePayout routes the payout to the best provider for its currency pair,
// network and destination country and records the canonical payout. The
// external id is not deduplicated.
func (s *Service) CreatePayout(ctx context.Context, req CreatePayoutRequest) (payout Payout, err error) {
	startedAt := s.now()
	fields := req.Criteria().fields()
	fields["external_id"] = req.ExternalID
	defer func() {
		err = s.mapError(err)
		if payout.ID != "" {
			fields["payout_id"] = payout.ID
			fields["payout_status"] = string(payout.Status)
		}
		s.observeOperation(ctx, startedAt, "create_payout", err, fields)
	}()

	if err = validateCreatePayout(req); err != nil {
		return Payout{}, err
	}

	preferred := req.PreferredProvider
	var quote *Quote
	if quoteID := strings.TrimSpace(req.QuoteID); quoteID != "" {
		stored, quoteErr := s.quotes.Get(ctx, quoteID)
		if quoteErr != nil {
			return Payout{}, quoteErr
		}
		quote = &stored
		if strings.TrimSpace(preferred) == "" {
			preferred = stored.ProviderID
		}
	}

	criteria := req.Criteria()
	selection, err := s.selector.SelectBest(ctx, preferred, criteria)
	if err != nil {
		return Payout{}, s.selector.selectionError(err, criteria)
	}
	provider := selection.Provider
	fields["provider_id"] = provider.ID()
	fields["selection"] = selection.Reason

	providerReq := req
	providerReq.Metadata = copyAnyMap(req.Metadata)
	providerReq.QuoteID = ""
	if quote != nil && quote.ProviderID == provider.ID() {
		providerReq.QuoteID = quote.ProviderQuoteID
	}
	remote, err := provider.CreatePayout(ctx, providerReq)
	if err != nil {
		return Payout{}, providerError(provider.ID(), err)
	}

	now := s.now().UTC()
	status := remote.Status
	if status == "" {
		status = PayoutStatusCreated
	}
	record := Payout{
		ID:               s.newID(),
		ExternalID:       strings.TrimSpace(req.ExternalID),
		ProviderID:       provider.ID(),
		ProviderOrderID:  remote.ProviderOrderID,
		QuoteID:          req.QuoteID,
		Status:           status,
		ProviderStatus:   remote.ProviderStatus,
		SourceCurrency:   strings.ToUpper(req.SourceCurrency),
		SourceAmount:     valueOrFloat(remote.SourceAmount, req.SourceAmount),
		TargetCurrency:   strings.ToUpper(req.TargetCurrency),
		TargetAmount:     valueOrFloat(remote.TargetAmount, req.TargetAmount),
		ExchangeRate:     remote.ExchangeRate,
		Fee:              remote.Fee,
		FeeBreakdown:     remote.FeeBreakdown,
		Network:          strings.ToLower(req.Network),
		Sender:           req.Sender,
		Beneficiary:      req.Beneficiary,
		DepositWallet:    remote.DepositWallet,
		BlockchainTxHash: remote.BlockchainTxHash,
		BankReference:    remote.BankReference,
		FailureReason:    remote.FailureReason,
		Purpose:          req.Purpose,
		Reference:        req.Reference,
		Metadata:         copyAnyMap(req.Metadata),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if record.QuoteID == "" && remote.ProviderQuoteID != "" {
		record.Metadata["provider_quote_id"] = remote.ProviderQuoteID
	}
	if record.Status == PayoutStatusCompleted {
		record.CompletedAt = timePtr(now)
	}

	payout, err = s.payouts.Create(ctx, record.Clone())
	if err != nil {
		return Payout{}, err
	}
	s.publish(ctx, PayoutEvent{
		Type:       PayoutEventCreated,
		PayoutID:   payout.ID,
		ExternalID: payout.ExternalID,
		ProviderID: payout.ProviderID,
		Status:     payout.Status,
		Payout:     payout.Clone(),
	})
	if !payout.Status.IsTerminal() {
		s.scheduleStatusRefresh(ctx, payout)
	}
	return payout, nil
}

func valueOrFloat(value float64, fallback float64) float64 {
	if value == 0 {
		return fallback
	}
	return value
}

func (s *Service) GetPayout(ctx context.Context, payoutID string) (payout Payout, err error) {
	if strings.TrimSpace(payoutID) == "" {
		return Payout{}, s.mapError(ValidationError("payout_id", "payout id is required"))
	}
	payout, err = s.payouts.Get(ctx, payoutID)
	return payout, s.mapError(err)
}

// GetPayoutStatus queries the owning provider by provider order id and merges
// the reported state into the canonical payout.
func (s *Service) GetPayoutStatus(ctx context.Context, payoutID string) (payout Payout, err error) {
	startedAt := s.now()
	fields := map[string]any{"payout_id": payoutID}
	defer func() {
		err = s.mapError(err)
		if payout.Status != "" {
			fields["payout_status"] = string(payout.Status)
		}
		s.observeOperation(ctx, startedAt, "get_payout_status", err, fields)
	}()

	current, err := s.payouts.Get(ctx, payoutID)
	if err != nil {
		return Payout{}, err
	}
	fields["provider_id"] = current.ProviderID
	provider, err := s.selector.Get(current.ProviderID)
	if err != nil {
		return Payout{}, err
	}
	update, err := provider.GetPayoutStatus(ctx, current.ProviderOrderID)
	if err != nil {
		return Payout{}, providerError(provider.ID(), err)
	}
	payout, _, err = s.applyStatusUpdate(ctx, current.ID, update)
	return payout, err
}

// GetDepositWallet returns the wallet the sender must fund. When the payout
// has none recorded yet, the provider is asked once and the answer stored.
func (s *Service) GetDepositWallet(ctx context.Context, payoutID string) (wallet DepositWallet, err error) {
	startedAt := s.now()
	fields := map[string]any{"payout_id": payoutID}
	defer func() {
		err = s.mapError(err)
		s.observeOperation(ctx, startedAt, "get_deposit_wallet", err, fields)
	}()

	current, err := s.payouts.Get(ctx, payoutID)
	if err != nil {
		return DepositWallet{}, err
	}
	fields["provider_id"] = current.ProviderID
	if current.DepositWallet != nil {
		return *current.Clone().DepositWallet, nil
	}

	provider, err := s.selector.Get(current.ProviderID)
	if err != nil {
		return DepositWallet{}, err
	}
	remote, err := provider.GetPayout(ctx, current.ProviderOrderID)
	if err != nil {
		return DepositWallet{}, providerError(provider.ID(), err)
	}
	if remote.DepositWallet == nil {
		return DepositWallet{}, DepositWalletNotFoundError(current.ID)
	}
	now := s.now().UTC()
	updated, err := s.payouts.Update(ctx, current.ID, func(existing Payout) (Payout, error) {
		next := existing.Clone()
		if next.DepositWallet == nil {
			wallet := *remote.DepositWallet
			next.DepositWallet = &wallet
			next.UpdatedAt = now
		}
		return next, nil
	})
	if err != nil {
		return DepositWallet{}, err
	}
	return *updated.DepositWallet, nil
}

// CancelPayout cancels a payout that has not progressed past the
// cancellable statuses. Other statuses fail without contacting the provider.
func (s *Service) CancelPayout(ctx context.Context, payoutID string) (payout Payout, err error) {
	startedAt := s.now()
	fields := map[string]any{"payout_id": payoutID}
	defer func() {
		err = s.mapError(err)
		s.observeOperation(ctx, startedAt, "cancel_payout", err, fields)
	}()

	current, err := s.payouts.Get(ctx, payoutID)
	if err != nil {
		return Payout{}, err
	}
	fields["provider_id"] = current.ProviderID
	fields["payout_status"] = string(current.Status)
	if !current.Status.IsCancellable() {
		return Payout{}, CancellationNotAllowedError(current.ID, current.Status)
	}
	provider, err := s.selector.Get(current.ProviderID)
	if err != nil {
		return Payout{}, err
	}
	if err = provider.CancelPayout(ctx, current.ProviderOrderID); err != nil {
		return Payout{}, providerError(provider.ID(), err)
	}

	now := s.now().UTC()
	var previous PayoutStatus
	payout, err = s.payouts.Update(ctx, current.ID, func(existing Payout) (Payout, error) {
		previous = existing.Status
		next := existing.Clone()
		if next.Status.IsTerminal() && next.Status != PayoutStatusCancelled {
			return Payout{}, CancellationNotAllowedError(existing.ID, existing.Status)
		}
		next.Status = PayoutStatusCancelled
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return Payout{}, err
	}
	s.publish(ctx, PayoutEvent{
		Type:           PayoutEventCancelled,
		PayoutID:       payout.ID,
		ExternalID:     payout.ExternalID,
		ProviderID:     payout.ProviderID,
		PreviousStatus: previous,
		Status:         payout.Status,
		Payout:         payout.Clone(),
	})
	return payout, nil
}

// GetPayoutHistory lists canonical payouts, newest first. The provider is
// never queried.
func (s *Service) GetPayoutHistory(ctx context.Context, filter PayoutHistoryFilter) (page PayoutPage, err error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return PayoutPage{}, s.mapError(ValidationError("from", "from must not be after to"))
	}
	page, err = s.payouts.List(ctx, filter)
	return page, s.mapError(err)
}

// ApplyStatusUpdate merges an externally observed status update into the
// payout identified by payoutID.
func (s *Service) ApplyStatusUpdate(ctx context.Context, payoutID string, update PayoutStatusUpdate) (Payout, error) {
	payout, _, err := s.applyStatusUpdate(ctx, payoutID, update)
	return payout, s.mapError(err)
}

func (s *Service) applyStatusUpdate(ctx context.Context, payoutID string, update PayoutStatusUpdate) (Payout, bool, error) {
	now := s.now().UTC()
	var previous PayoutStatus
	updated, err := s.payouts.Update(ctx, payoutID, func(existing Payout) (Payout, error) {
		previous = existing.Status
		return mergeStatusUpdate(existing, update, now), nil
	})
	if err != nil {
		return Payout{}, false, err
	}
	changed := previous != updated.Status
	if changed {
		s.publish(ctx, PayoutEvent{
			Type:           PayoutEventStatusChanged,
			PayoutID:       updated.ID,
			ExternalID:     updated.ExternalID,
			ProviderID:     updated.ProviderID,
			PreviousStatus: previous,
			Status:         updated.Status,
			Payout:         updated.Clone(),
		})
	}
	return updated, changed, nil
}

// mergeStatusUpdate folds update into current. The status only moves along
// PayoutStatus.CanTransitionTo, so stale or replayed updates keep the current
// status. Tx hash, bank reference and failure reason keep the latest
// non-empty value, and CompletedAt is set only on the first transition into
// Completed.
func mergeStatusUpdate(current Payout, update PayoutStatusUpdate, now time.Time) Payout {
	next := current.Clone()
	if current.Status.CanTransitionTo(update.Status) {
		next.Status = update.Status
	}
	if strings.TrimSpace(update.ProviderStatus) != "" {
		next.ProviderStatus = update.ProviderStatus
	}
	if strings.TrimSpace(update.BlockchainTxHash) != "" {
		next.BlockchainTxHash = update.BlockchainTxHash
	}
	if strings.TrimSpace(update.BankReference) != "" {
		next.BankReference = update.BankReference
	}
	if strings.TrimSpace(update.FailureReason) != "" {
		next.FailureReason = update.FailureReason
	}
	if next.Status == PayoutStatusCompleted && next.CompletedAt == nil {
		completedAt := now
		if !update.Timestamp.IsZero() {
			completedAt = update.Timestamp
		}
		next.CompletedAt = timePtr(completedAt)
	}
	next.UpdatedAt = now
	return next
}
