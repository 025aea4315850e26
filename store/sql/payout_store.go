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

// PayoutStore persists payouts. External ids are not unique: a client may
// reuse one across retries.
type PayoutStore struct {
	db      *bun.DB
	repo    repository.Repository[*payoutRecord]
	retries int
	now     func() time.Time
}

func (s *PayoutStore) Create(ctx context.Context, payout core.Payout) (core.Payout, error) {
	if s == nil || s.db == nil {
		return core.Payout{}, fmt.Errorf("sqlstore: payout store is not configured")
	}
	if strings.TrimSpace(payout.ID) == "" {
		return core.Payout{}, core.ValidationError("id", "payout id is required")
	}
	if payout.Version == 0 {
		payout.Version = 1
	}
	record := newPayoutRecord(payout)
	stampTimes(&record.CreatedAt, &record.UpdatedAt, s.now().UTC())

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return core.Payout{}, core.ErrDuplicateKey
		}
		return core.Payout{}, err
	}
	return record.toDomain(), nil
}

func (s *PayoutStore) Get(ctx context.Context, id string) (core.Payout, error) {
	if s == nil || s.db == nil {
		return core.Payout{}, fmt.Errorf("sqlstore: payout store is not configured")
	}
	id = strings.TrimSpace(id)
	record := &payoutRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Payout{}, core.PayoutNotFoundError(id)
		}
		return core.Payout{}, err
	}
	return record.toDomain(), nil
}

func (s *PayoutStore) GetByProviderOrder(ctx context.Context, providerID string, providerOrderID string) (core.Payout, error) {
	if s == nil || s.db == nil {
		return core.Payout{}, fmt.Errorf("sqlstore: payout store is not configured")
	}
	providerID = strings.TrimSpace(providerID)
	providerOrderID = strings.TrimSpace(providerOrderID)
	if providerOrderID == "" {
		return core.Payout{}, core.PayoutNotFoundError(providerOrderID)
	}
	record := &payoutRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.provider_id = ?", providerID).
		Where("?TableAlias.provider_order_id = ?", providerOrderID).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Payout{}, core.PayoutNotFoundError(providerOrderID)
		}
		return core.Payout{}, err
	}
	return record.toDomain(), nil
}

// Update applies fn under optimistic locking. The id and provider of a payout
// never change.
func (s *PayoutStore) Update(ctx context.Context, id string, fn core.UpdateFunc[core.Payout]) (core.Payout, error) {
	if s == nil || s.db == nil {
		return core.Payout{}, fmt.Errorf("sqlstore: payout store is not configured")
	}
	if fn == nil {
		return core.Payout{}, fmt.Errorf("sqlstore: update function is required")
	}
	id = strings.TrimSpace(id)
	return retryOnConflict(ctx, s.retries, func(ctx context.Context) (core.Payout, error) {
		current, err := s.Get(ctx, id)
		if err != nil {
			return core.Payout{}, err
		}
		next, err := fn(current.Clone())
		if err != nil {
			return core.Payout{}, err
		}
		next.ID = current.ID
		next.ProviderID = current.ProviderID
		next.Version = current.Version + 1
		next.CreatedAt = current.CreatedAt
		if next.UpdatedAt.IsZero() {
			next.UpdatedAt = s.now().UTC()
		}

		record := newPayoutRecord(next)
		result, err := s.db.NewUpdate().
			Model(record).
			ExcludeColumn("id", "created_at").
			Where("id = ?", current.ID).
			Where("version = ?", current.Version).
			Exec(ctx)
		if err != nil {
			return core.Payout{}, err
		}
		if err := expectOneRow(result, "payout", current.ID); err != nil {
			return core.Payout{}, err
		}
		return record.toDomain(), nil
	})
}

func (s *PayoutStore) List(ctx context.Context, filter core.PayoutHistoryFilter) (core.PayoutPage, error) {
	if s == nil || s.repo == nil {
		return core.PayoutPage{}, fmt.Errorf("sqlstore: payout store is not configured")
	}
	page, perPage := core.NormalizePage(filter.Page, filter.PerPage)
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.SelectRawProcessor(newestFirst),
		repository.SelectPaginate(perPage, offset),
	}
	columns := []struct {
		name  string
		value string
	}{
		{"external_id", filter.ExternalID},
		{"sender_id", filter.SenderID},
		{"beneficiary_id", filter.BeneficiaryID},
		{"provider_id", filter.ProviderID},
		{"status", string(filter.Status)},
	}
	for _, column := range columns {
		if value := strings.TrimSpace(column.value); value != "" {
			selectors = append(selectors, repository.SelectBy(column.name, "=", value))
		}
	}
	if filter.From != nil {
		selectors = append(selectors, repository.SelectByTimetz("created_at", ">=", filter.From.UTC()))
	}
	if filter.To != nil {
		selectors = append(selectors, repository.SelectByTimetz("created_at", "<=", filter.To.UTC()))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.PayoutPage{}, err
	}
	items := make([]core.Payout, 0, len(records))
	for _, record := range records {
		items = append(items, record.toDomain())
	}
	return core.PayoutPage{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

var _ core.PayoutStore = (*PayoutStore)(nil)
