package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-payouts/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// QuoteStore keeps quotes until they expire. Expired rows are purged on every
// save and never returned.
type QuoteStore struct {
	db   *bun.DB
	repo repository.Repository[*quoteRecord]
	now  func() time.Time
}

func (s *QuoteStore) Save(ctx context.Context, quote core.Quote) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: quote store is not configured")
	}
	if strings.TrimSpace(quote.ID) == "" {
		return core.ValidationError("id", "quote id is required")
	}
	now := s.now().UTC()
	record := newQuoteRecord(quote)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*quoteRecord)(nil)).
			Where("expires_at IS NOT NULL").
			Where("expires_at <= ?", now).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(record).
			On("CONFLICT (id) DO UPDATE").
			Set("target_amount = EXCLUDED.target_amount").
			Set("exchange_rate = EXCLUDED.exchange_rate").
			Set("fee = EXCLUDED.fee").
			Set("fee_breakdown = EXCLUDED.fee_breakdown").
			Set("expires_at = EXCLUDED.expires_at").
			Exec(ctx)
		return err
	})
}

func (s *QuoteStore) Get(ctx context.Context, id string) (core.Quote, error) {
	if s == nil || s.db == nil {
		return core.Quote{}, fmt.Errorf("sqlstore: quote store is not configured")
	}
	id = strings.TrimSpace(id)
	record := &quoteRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Quote{}, core.QuoteNotFoundError(id)
		}
		return core.Quote{}, err
	}
	quote := record.toDomain()
	if quote.Expired(s.now()) {
		return core.Quote{}, core.QuoteNotFoundError(id)
	}
	return quote, nil
}

// ListByProvider returns the live quotes issued by one provider, newest first.
func (s *QuoteStore) ListByProvider(ctx context.Context, providerID string) ([]core.Quote, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: quote store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("provider_id", "=", strings.TrimSpace(providerID)),
		repository.SelectRawProcessor(newestFirst),
	)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]core.Quote, 0, len(records))
	for _, record := range records {
		if quote := record.toDomain(); !quote.Expired(now) {
			out = append(out, quote)
		}
	}
	return out, nil
}

var _ core.QuoteStore = (*QuoteStore)(nil)
