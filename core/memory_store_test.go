package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryPayoutStore_ConcurrentUpdatesAreNotLost(t *testing.T) {
	store := NewMemoryPayoutStore()
	ctx := context.Background()
	if _, err := store.Create(ctx, Payout{ID: "p1", ProviderID: "rampa", ProviderOrderID: "o1", Metadata: map[string]any{}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	const writers = 50
	var wg sync.WaitGroup
	for idx := 0; idx < writers; idx++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := store.Update(ctx, "p1", func(current Payout) (Payout, error) {
				next := current.Clone()
				next.Metadata[fmt.Sprintf("writer_%d", idx)] = true
				return next, nil
			})
			if err != nil {
				t.Errorf("update %d: %v", idx, err)
			}
		}(idx)
	}
	wg.Wait()

	stored, err := store.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.Metadata) != writers {
		t.Fatalf("expected %d metadata keys, got %d", writers, len(stored.Metadata))
	}
	if stored.Version != writers+1 {
		t.Fatalf("expected version %d, got %d", writers+1, stored.Version)
	}
}

func TestMemoryPayoutStore_UpdateKeepsIdentityAndAbortsOnError(t *testing.T) {
	store := NewMemoryPayoutStore()
	ctx := context.Background()
	if _, err := store.Create(ctx, Payout{ID: "p1", ProviderID: "rampa", ProviderOrderID: "o1", Status: PayoutStatusCreated}); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := store.Update(ctx, "p1", func(current Payout) (Payout, error) {
		current.ID = "other"
		current.ProviderID = "corridor"
		current.Status = PayoutStatusProcessing
		return current, nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != "p1" || updated.ProviderID != "rampa" {
		t.Fatalf("expected identity to be preserved, got %+v", updated)
	}

	boom := errors.New("boom")
	if _, err := store.Update(ctx, "p1", func(Payout) (Payout, error) { return Payout{}, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected update error, got %v", err)
	}
	stored, err := store.GetByProviderOrder(ctx, "rampa", "o1")
	if err != nil {
		t.Fatalf("get by provider order: %v", err)
	}
	if stored.Status != PayoutStatusProcessing || stored.Version != 2 {
		t.Fatalf("expected aborted update to leave record untouched, got %+v", stored)
	}
	if _, err := store.GetByProviderOrder(ctx, "corridor", "o1"); !HasTextCode(err, ErrorPayoutNotFound) {
		t.Fatalf("expected order ids to be scoped by provider, got %v", err)
	}
}

func TestMemoryPayoutStore_ListFiltersNewestFirst(t *testing.T) {
	store := NewMemoryPayoutStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for idx, status := range []PayoutStatus{PayoutStatusCompleted, PayoutStatusFailed, PayoutStatusCompleted} {
		_, err := store.Create(ctx, Payout{
			ID:              fmt.Sprintf("p%d", idx),
			ProviderID:      "rampa",
			ProviderOrderID: fmt.Sprintf("o%d", idx),
			Status:          status,
			Sender:          PayoutParty{CustomerID: "s1"},
			CreatedAt:       base.Add(time.Duration(idx) * time.Hour),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := store.List(ctx, PayoutHistoryFilter{Status: PayoutStatusCompleted, SenderID: "s1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || page.Items[0].ID != "p2" || page.Items[1].ID != "p0" {
		t.Fatalf("unexpected page %+v", page)
	}

	from := base.Add(time.Hour)
	to := base.Add(2 * time.Hour)
	page, err = store.List(ctx, PayoutHistoryFilter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected inclusive range to match 2 payouts, got %d", page.Total)
	}
}

func TestMemoryCustomerStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryCustomerStore()
	ctx := context.Background()
	created, err := store.Create(ctx, Customer{ID: "c1", ProviderIDs: map[string]string{"rampa": "r1"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created.ProviderIDs["corridor"] = "x"

	stored, err := store.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.ProviderIDs) != 1 {
		t.Fatalf("expected stored record to be isolated from caller mutation, got %v", stored.ProviderIDs)
	}
}

func TestMemoryQuoteStore_ExpiredQuotesAreNotFound(t *testing.T) {
	store := NewMemoryQuoteStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, Quote{ID: "q1", ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Get(ctx, "q1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "q1"); !HasTextCode(err, ErrorQuoteNotFound) {
		t.Fatalf("expected expired quote to be not found, got %v", err)
	}
}
