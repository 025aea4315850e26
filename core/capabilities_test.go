package core

import "testing"

func samplePayoutTable() StatusTable[PayoutStatus] {
	return NewStatusTable(PayoutStatusProcessing, map[string]PayoutStatus{
		"NEW":                PayoutStatusCreated,
		"awaiting-deposit":   PayoutStatusAwaitingFunds,
		"deposit received":   PayoutStatusFundsReceived,
		"in_progress":        PayoutStatusProcessing,
		"sent":               PayoutStatusSentToBeneficiary,
		"paid":               PayoutStatusCompleted,
		"failed":             PayoutStatusFailed,
		"canceled":           PayoutStatusCancelled,
		"expired":            PayoutStatusExpired,
		"compliance_hold":    PayoutStatusPendingReview,
		"returned_to_sender": PayoutStatusRefunded,
	})
}

func TestPayoutStatusTable_CoversEveryCanonicalStatus(t *testing.T) {
	if missing := samplePayoutTable().Missing(PayoutStatuses); len(missing) != 0 {
		t.Fatalf("expected a provider status mapping for %v", missing)
	}
}

func TestPayoutStatusTable_NormalizesKeys(t *testing.T) {
	table := samplePayoutTable()
	cases := map[string]PayoutStatus{
		"new":              PayoutStatusCreated,
		"AWAITING_DEPOSIT": PayoutStatusAwaitingFunds,
		"Deposit-Received": PayoutStatusFundsReceived,
		"  paid ":          PayoutStatusCompleted,
	}
	for raw, want := range cases {
		if got := table.Map(raw); got != want {
			t.Fatalf("map %q: expected %s, got %s", raw, want, got)
		}
	}
}

func TestStatusTables_UnknownValuesUseDefaults(t *testing.T) {
	payouts := samplePayoutTable()
	for _, raw := range []string{"", "banana", "SETTLING_V2", "\x00"} {
		if got := payouts.Map(raw); got != PayoutStatusProcessing {
			t.Fatalf("payout %q: expected processing default, got %s", raw, got)
		}
	}
	verification := NewStatusTable(VerificationStatusNotStarted, map[string]VerificationStatus{
		"approved": VerificationStatusApproved,
	})
	if got := verification.Map("under_manual_review_v3"); got != VerificationStatusNotStarted {
		t.Fatalf("expected not_started default, got %s", got)
	}
	if got := verification.Fallback(); got != VerificationStatusNotStarted {
		t.Fatalf("expected not_started fallback, got %s", got)
	}
}

func TestPayoutStatus_TerminalAndCancellableSets(t *testing.T) {
	terminal := map[PayoutStatus]bool{
		PayoutStatusCompleted: true,
		PayoutStatusFailed:    true,
		PayoutStatusCancelled: true,
		PayoutStatusExpired:   true,
		PayoutStatusRefunded:  true,
	}
	cancellable := map[PayoutStatus]bool{
		PayoutStatusCreated:       true,
		PayoutStatusAwaitingFunds: true,
		PayoutStatusPendingReview: true,
	}
	for _, status := range PayoutStatuses {
		if status.IsTerminal() != terminal[status] {
			t.Fatalf("unexpected terminal flag for %s", status)
		}
		if status.IsCancellable() != cancellable[status] {
			t.Fatalf("unexpected cancellable flag for %s", status)
		}
	}
}

func TestPayoutStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from PayoutStatus
		to   PayoutStatus
		want bool
	}{
		{PayoutStatusCreated, PayoutStatusAwaitingFunds, true},
		{PayoutStatusAwaitingFunds, PayoutStatusProcessing, true},
		{PayoutStatusSentToBeneficiary, PayoutStatusCompleted, true},
		{PayoutStatusProcessing, PayoutStatusProcessing, true},
		{PayoutStatusSentToBeneficiary, PayoutStatusAwaitingFunds, false},
		{PayoutStatusSentToBeneficiary, PayoutStatusProcessing, false},
		{PayoutStatusFundsReceived, PayoutStatusCreated, false},
		{PayoutStatusProcessing, PayoutStatusPendingReview, true},
		{PayoutStatusPendingReview, PayoutStatusAwaitingFunds, true},
		{PayoutStatusPendingReview, PayoutStatusFailed, true},
		{PayoutStatusAwaitingFunds, PayoutStatusExpired, true},
		{PayoutStatusCompleted, PayoutStatusRefunded, false},
		{PayoutStatusFailed, PayoutStatusProcessing, false},
		{PayoutStatusProcessing, "", false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %q: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}
