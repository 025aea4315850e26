package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func createPayout(t *testing.T, svc *Service, req CreatePayoutRequest) Payout {
	t.Helper()
	payout, err := svc.CreatePayout(context.Background(), req)
	if err != nil {
		t.Fatalf("create payout: %v", err)
	}
	return payout
}

func TestCreatePayout_RoutesAndRecordsPayout(t *testing.T) {
	rampa := newStubProvider("rampa")
	rampa.payout = ProviderPayout{
		TargetAmount:  92.5,
		ExchangeRate:  0.925,
		Fee:           1.5,
		DepositWallet: &DepositWallet{Address: "0xabc", Network: "polygon", Currency: "USDC"},
	}
	events := &captureEventPublisher{}
	jobs := &captureEnqueuer{}
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa},
		WithEventPublisher(events),
		WithJobEnqueuer(jobs),
	)

	req := payoutRequest("ES")
	req.ExternalID = "order-1"
	payout := createPayout(t, svc, req)

	if payout.ProviderID != "rampa" || payout.ProviderOrderID == "" {
		t.Fatalf("unexpected provider binding %+v", payout)
	}
	if payout.Status != PayoutStatusAwaitingFunds {
		t.Fatalf("expected awaiting funds, got %s", payout.Status)
	}
	if payout.TargetAmount != 92.5 || payout.SourceAmount != 100 {
		t.Fatalf("unexpected amounts %+v", payout)
	}
	if payout.DepositWallet == nil || payout.DepositWallet.Address != "0xabc" {
		t.Fatalf("expected deposit wallet to be recorded")
	}

	published := events.snapshot()
	if len(published) != 1 || published[0].Type != PayoutEventCreated || published[0].PayoutID != payout.ID {
		t.Fatalf("expected a created event, got %+v", published)
	}
	if published[0].OccurredAt.IsZero() {
		t.Fatalf("expected event timestamp")
	}
	if len(jobs.messages) != 1 || jobs.messages[0].JobID != JobIDPayoutStatusRefresh {
		t.Fatalf("expected one status refresh job, got %+v", jobs.messages)
	}
	if jobs.messages[0].Parameters["payout_id"] != payout.ID {
		t.Fatalf("expected refresh job for payout %s", payout.ID)
	}
}

func TestCreatePayout_RequiresBeneficiaryAccount(t *testing.T) {
	rampa := newStubProvider("rampa")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})

	req := payoutRequest("ES")
	req.Beneficiary.BankAccount = nil
	if _, err := svc.CreatePayout(context.Background(), req); !HasTextCode(err, ErrorBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
	if _, err := svc.CreatePayout(context.Background(), payoutRequest("")); !HasTextCode(err, ErrorBadInput) {
		t.Fatalf("expected bad input for missing country, got %v", err)
	}
	if rampa.callCount("CreatePayout") != 0 {
		t.Fatalf("expected invalid requests to never reach the provider")
	}
}

func TestCreatePayout_SelectionErrors(t *testing.T) {
	rampa := newStubProvider("rampa")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa", EnableFailover: true}, []*stubProvider{rampa})

	req := payoutRequest("ES")
	req.TargetCurrency = "BRL"
	if _, err := svc.CreatePayout(context.Background(), req); !HasTextCode(err, ErrorUnsupportedConfiguration) {
		t.Fatalf("expected unsupported configuration, got %v", err)
	}

	rampa.healthy = false
	if _, err := svc.CreatePayout(context.Background(), payoutRequest("ES")); !HasTextCode(err, ErrorAllProvidersUnavailable) {
		t.Fatalf("expected all providers unavailable, got %v", err)
	}
	if rampa.callCount("CreatePayout") != 0 {
		t.Fatalf("expected no payout call without a healthy provider")
	}
}

func TestCreatePayout_SkipsProviderOutsideAmountLimits(t *testing.T) {
	small := newStubProvider("small")
	small.capabilities.MaxSourceAmount = 50
	large := newStubProvider("large")
	large.capabilities.MinSourceAmount = 20
	svc := newTestService(t, RoutingConfig{DefaultProvider: "small", EnableFailover: true}, []*stubProvider{small, large})

	payout := createPayout(t, svc, payoutRequest("ES"))
	if payout.ProviderID != "large" {
		t.Fatalf("expected payout above the small provider limit to route to large, got %s", payout.ProviderID)
	}
	if small.callCount("HealthCheck") != 0 || small.callCount("CreatePayout") != 0 {
		t.Fatalf("expected provider outside its amount limits to be skipped")
	}

	req := payoutRequest("ES")
	req.SourceAmount = 5
	if payout = createPayout(t, svc, req); payout.ProviderID != "small" {
		t.Fatalf("expected payout below the large provider minimum to route to small, got %s", payout.ProviderID)
	}

	large.capabilities.MinSourceAmount = 500
	if _, err := svc.CreatePayout(context.Background(), payoutRequest("ES")); !HasTextCode(err, ErrorUnsupportedConfiguration) {
		t.Fatalf("expected unsupported configuration when no provider accepts the amount, got %v", err)
	}
}

func TestCreatePayout_UnknownPreferredProviderUsesDefault(t *testing.T) {
	rampa := newStubProvider("rampa")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})

	req := payoutRequest("ES")
	req.PreferredProvider = "retired"
	payout := createPayout(t, svc, req)
	if payout.ProviderID != "rampa" {
		t.Fatalf("expected default provider, got %s", payout.ProviderID)
	}
}

func TestCreatePayout_WrapsProviderFailures(t *testing.T) {
	rampa := newStubProvider("rampa")
	rampa.payoutErr = errors.New("upstream exploded")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})

	_, err := svc.CreatePayout(context.Background(), payoutRequest("ES"))
	if !HasTextCode(err, ErrorProviderAPI) {
		t.Fatalf("expected provider api error, got %v", err)
	}
	page, err := svc.GetPayoutHistory(context.Background(), PayoutHistoryFilter{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected no payout to be stored on provider failure")
	}
}

func TestCreatePayout_ConcurrentSameExternalIDCreatesDistinctPayouts(t *testing.T) {
	rampa := newStubProvider("rampa")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})

	req := payoutRequest("ES")
	req.ExternalID = "dup"
	var wg sync.WaitGroup
	ids := make([]string, 2)
	errs := make([]error, 2)
	for idx := range ids {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			payout, err := svc.CreatePayout(context.Background(), req)
			ids[idx] = payout.ID
			errs[idx] = err
		}(idx)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("create payout: %v", err)
		}
	}
	if ids[0] == ids[1] {
		t.Fatalf("expected distinct payout ids, got %v", ids)
	}
	page, err := svc.GetPayoutHistory(context.Background(), PayoutHistoryFilter{ExternalID: "dup"})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected two payouts for the same external id, got %d", page.Total)
	}
}

func TestCreatePayout_UsesStoredQuoteProvider(t *testing.T) {
	rampa := newStubProvider("rampa")
	corridor := newStubProvider("corridor")
	corridor.quote = Quote{ID: "cq-1", TargetAmount: 93}
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa, corridor})

	quote, err := svc.GetQuote(context.Background(), QuoteRequest{
		ProviderID:     "corridor",
		SourceCurrency: "USDC",
		SourceAmount:   100,
		TargetCurrency: "EUR",
		Network:        "polygon",
	})
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if quote.ProviderQuoteID != "cq-1" || quote.ID == "cq-1" {
		t.Fatalf("expected canonical quote id distinct from provider id, got %+v", quote)
	}

	req := payoutRequest("ES")
	req.QuoteID = quote.ID
	payout := createPayout(t, svc, req)
	if payout.ProviderID != "corridor" || payout.QuoteID != quote.ID {
		t.Fatalf("expected payout routed to quoting provider, got %+v", payout)
	}
	if rampa.callCount("CreatePayout") != 0 {
		t.Fatalf("expected default provider to be bypassed")
	}

	req.QuoteID = "missing"
	if _, err := svc.CreatePayout(context.Background(), req); !HasTextCode(err, ErrorQuoteNotFound) {
		t.Fatalf("expected quote not found, got %v", err)
	}
}

func TestCancelPayout_TerminalStatusNeverReachesProvider(t *testing.T) {
	rampa := newStubProvider("rampa")
	rampa.status = PayoutStatusUpdate{Status: PayoutStatusCompleted}
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})
	payout := createPayout(t, svc, payoutRequest("ES"))

	if _, err := svc.GetPayoutStatus(context.Background(), payout.ID); err != nil {
		t.Fatalf("get payout status: %v", err)
	}
	_, err := svc.CancelPayout(context.Background(), payout.ID)
	if !HasTextCode(err, ErrorCancellationNotAllowed) {
		t.Fatalf("expected cancellation not allowed, got %v", err)
	}
	if rampa.callCount("CancelPayout") != 0 {
		t.Fatalf("expected provider cancel to be skipped")
	}
}

func TestCancelPayout_CancelsAndPublishes(t *testing.T) {
	rampa := newStubProvider("rampa")
	events := &captureEventPublisher{}
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa}, WithEventPublisher(events))
	payout := createPayout(t, svc, payoutRequest("ES"))

	cancelled, err := svc.CancelPayout(context.Background(), payout.ID)
	if err != nil {
		t.Fatalf("cancel payout: %v", err)
	}
	if cancelled.Status != PayoutStatusCancelled || rampa.callCount("CancelPayout") != 1 {
		t.Fatalf("expected cancelled payout, got %s", cancelled.Status)
	}
	published := events.snapshot()
	last := published[len(published)-1]
	if last.Type != PayoutEventCancelled || last.PreviousStatus != PayoutStatusAwaitingFunds {
		t.Fatalf("unexpected cancel event %+v", last)
	}
}

func TestApplyStatusUpdate_KeepsKnownValuesAndTerminalStatus(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rampa := newStubProvider("rampa")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa},
		WithClock(func() time.Time { return fixed }),
	)
	payout := createPayout(t, svc, payoutRequest("ES"))
	ctx := context.Background()

	updated, err := svc.ApplyStatusUpdate(ctx, payout.ID, PayoutStatusUpdate{Status: PayoutStatusProcessing, BlockchainTxHash: "0xhash"})
	if err != nil {
		t.Fatalf("apply update: %v", err)
	}
	if updated.BlockchainTxHash != "0xhash" {
		t.Fatalf("expected tx hash, got %q", updated.BlockchainTxHash)
	}

	completedAt := fixed.Add(time.Hour)
	updated, err = svc.ApplyStatusUpdate(ctx, payout.ID, PayoutStatusUpdate{Status: PayoutStatusCompleted, Timestamp: completedAt})
	if err != nil {
		t.Fatalf("apply update: %v", err)
	}
	if updated.BlockchainTxHash != "0xhash" {
		t.Fatalf("expected empty tx hash to keep prior value, got %q", updated.BlockchainTxHash)
	}
	if updated.CompletedAt == nil || !updated.CompletedAt.Equal(completedAt) {
		t.Fatalf("expected completed at %v, got %v", completedAt, updated.CompletedAt)
	}

	updated, err = svc.ApplyStatusUpdate(ctx, payout.ID, PayoutStatusUpdate{
		Status:        PayoutStatusCompleted,
		BankReference: "SEPA-1",
		Timestamp:     completedAt.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("apply update: %v", err)
	}
	if !updated.CompletedAt.Equal(completedAt) {
		t.Fatalf("expected completed at to be set once, got %v", updated.CompletedAt)
	}
	if updated.BankReference != "SEPA-1" {
		t.Fatalf("expected bank reference to be recorded")
	}

	updated, err = svc.ApplyStatusUpdate(ctx, payout.ID, PayoutStatusUpdate{Status: PayoutStatusProcessing})
	if err != nil {
		t.Fatalf("apply update: %v", err)
	}
	if updated.Status != PayoutStatusCompleted {
		t.Fatalf("expected terminal status to be absorbing, got %s", updated.Status)
	}
}

func TestApplyStatusUpdate_IgnoresStaleProgress(t *testing.T) {
	rampa := newStubProvider("rampa")
	events := &captureEventPublisher{}
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa}, WithEventPublisher(events))
	payout := createPayout(t, svc, payoutRequest("ES"))
	ctx := context.Background()

	if _, err := svc.ApplyStatusUpdate(ctx, payout.ID, PayoutStatusUpdate{Status: PayoutStatusSentToBeneficiary}); err != nil {
		t.Fatalf("apply sent: %v", err)
	}
	stale, err := svc.ApplyStatusUpdate(ctx, payout.ID, PayoutStatusUpdate{
		Status:        PayoutStatusAwaitingFunds,
		BankReference: "SEPA-9",
	})
	if err != nil {
		t.Fatalf("apply stale update: %v", err)
	}
	if stale.Status != PayoutStatusSentToBeneficiary {
		t.Fatalf("expected status to stay sent_to_beneficiary, got %s", stale.Status)
	}
	if stale.BankReference != "SEPA-9" {
		t.Fatalf("expected stale update to still record bank reference, got %q", stale.BankReference)
	}

	// Unknown provider strings normalize to Processing and must not roll back either.
	polled, err := svc.ApplyStatusUpdate(ctx, payout.ID, PayoutStatusUpdate{Status: PayoutStatusProcessing})
	if err != nil {
		t.Fatalf("apply polled update: %v", err)
	}
	if polled.Status != PayoutStatusSentToBeneficiary {
		t.Fatalf("expected processing fallback to be ignored, got %s", polled.Status)
	}

	review, err := svc.ApplyStatusUpdate(ctx, payout.ID, PayoutStatusUpdate{Status: PayoutStatusPendingReview})
	if err != nil {
		t.Fatalf("apply review: %v", err)
	}
	if review.Status != PayoutStatusPendingReview {
		t.Fatalf("expected pending review, got %s", review.Status)
	}
	resumed, err := svc.ApplyStatusUpdate(ctx, payout.ID, PayoutStatusUpdate{Status: PayoutStatusProcessing})
	if err != nil {
		t.Fatalf("apply resume: %v", err)
	}
	if resumed.Status != PayoutStatusProcessing {
		t.Fatalf("expected payout to leave review, got %s", resumed.Status)
	}

	changes := 0
	for _, event := range events.snapshot() {
		if event.Type == PayoutEventStatusChanged {
			changes++
		}
	}
	if changes != 3 {
		t.Fatalf("expected 3 status change events, got %d", changes)
	}
}

func TestGetDepositWallet_FetchesOnceFromProvider(t *testing.T) {
	rampa := newStubProvider("rampa")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})
	payout := createPayout(t, svc, payoutRequest("ES"))

	if _, err := svc.GetDepositWallet(context.Background(), payout.ID); !HasTextCode(err, ErrorDepositWalletNotFound) {
		t.Fatalf("expected deposit wallet not found, got %v", err)
	}

	rampa.payout = ProviderPayout{DepositWallet: &DepositWallet{Address: "0xdef", Network: "polygon"}}
	wallet, err := svc.GetDepositWallet(context.Background(), payout.ID)
	if err != nil {
		t.Fatalf("get deposit wallet: %v", err)
	}
	if wallet.Address != "0xdef" {
		t.Fatalf("unexpected wallet %+v", wallet)
	}
	if _, err := svc.GetDepositWallet(context.Background(), payout.ID); err != nil {
		t.Fatalf("get deposit wallet again: %v", err)
	}
	if rampa.callCount("GetPayout") != 2 {
		t.Fatalf("expected stored wallet to be served without a provider call, got %d calls", rampa.callCount("GetPayout"))
	}
}

func TestGetPayoutHistory_RejectsInvertedRange(t *testing.T) {
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{newStubProvider("rampa")})
	from := time.Now()
	to := from.Add(-time.Hour)
	if _, err := svc.GetPayoutHistory(context.Background(), PayoutHistoryFilter{From: &from, To: &to}); !HasTextCode(err, ErrorBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
}

func TestCompareQuotes_ReturnsEntryPerSupportingProvider(t *testing.T) {
	a := newStubProvider("a")
	a.quote = Quote{TargetAmount: 91, Fee: 2}
	b := newStubProvider("b")
	b.quoteErr = errors.New("rate limited")
	c := newStubProvider("c")
	c.quoteErr = ProviderUnavailableError("c", "maintenance")
	unsupported := newStubProvider("d")
	unsupported.capabilities.FiatCurrencies = []string{"BRL"}
	svc := newTestService(t, RoutingConfig{DefaultProvider: "a"}, []*stubProvider{a, b, c, unsupported})

	results, err := svc.CompareQuotes(context.Background(), QuoteRequest{
		SourceCurrency: "USDC",
		SourceAmount:   100,
		TargetCurrency: "EUR",
		Network:        "polygon",
	})
	if err != nil {
		t.Fatalf("compare quotes: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(results))
	}
	if !results[0].Success || results[0].ProviderID != "a" || results[0].Quote == nil {
		t.Fatalf("expected the successful quote first, got %+v", results[0])
	}
	if results[1].ProviderID != "b" || results[1].Success || results[1].ErrorCode != ErrorProviderAPI {
		t.Fatalf("unexpected failure entry %+v", results[1])
	}
	if results[2].ProviderID != "c" || results[2].ErrorCode != ErrorProviderUnavailable {
		t.Fatalf("unexpected failure entry %+v", results[2])
	}
	if unsupported.callCount("CreateQuote") != 0 {
		t.Fatalf("expected unsupported provider to be skipped")
	}
}

func TestCompareQuotes_RanksByTargetAmountThenFee(t *testing.T) {
	a := newStubProvider("a")
	a.quote = Quote{TargetAmount: 90, Fee: 1}
	b := newStubProvider("b")
	b.quote = Quote{TargetAmount: 92, Fee: 3}
	c := newStubProvider("c")
	c.quote = Quote{TargetAmount: 92, Fee: 2}
	svc := newTestService(t, RoutingConfig{DefaultProvider: "a"}, []*stubProvider{a, b, c})

	results, err := svc.CompareQuotes(context.Background(), QuoteRequest{SourceCurrency: "USDC", SourceAmount: 100, TargetCurrency: "EUR"})
	if err != nil {
		t.Fatalf("compare quotes: %v", err)
	}
	got := []string{results[0].ProviderID, results[1].ProviderID, results[2].ProviderID}
	want := []string{"c", "b", "a"}
	for idx := range want {
		if got[idx] != want[idx] {
			t.Fatalf("expected ranking %v, got %v", want, got)
		}
	}
}

func TestCompareQuotes_FiltersByAmountLimits(t *testing.T) {
	a := newStubProvider("a")
	a.quote = Quote{TargetAmount: 90, Fee: 1}
	a.capabilities.MaxSourceAmount = 50
	b := newStubProvider("b")
	b.quote = Quote{TargetAmount: 89, Fee: 1}
	svc := newTestService(t, RoutingConfig{DefaultProvider: "a"}, []*stubProvider{a, b})

	results, err := svc.CompareQuotes(context.Background(), QuoteRequest{SourceCurrency: "USDC", SourceAmount: 100, TargetCurrency: "EUR"})
	if err != nil {
		t.Fatalf("compare quotes: %v", err)
	}
	if len(results) != 1 || results[0].ProviderID != "b" {
		t.Fatalf("expected only provider b to quote, got %+v", results)
	}
	if a.callCount("CreateQuote") != 0 {
		t.Fatalf("expected provider over its maximum to be skipped")
	}
}

func TestCompareQuotes_NoSupportingProvider(t *testing.T) {
	svc := newTestService(t, RoutingConfig{DefaultProvider: "a"}, []*stubProvider{newStubProvider("a")})
	_, err := svc.CompareQuotes(context.Background(), QuoteRequest{SourceCurrency: "DAI", SourceAmount: 1, TargetCurrency: "EUR"})
	if !HasTextCode(err, ErrorUnsupportedConfiguration) {
		t.Fatalf("expected unsupported configuration, got %v", err)
	}
}
