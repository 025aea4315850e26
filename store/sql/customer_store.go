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

type CustomerStore struct {
	db      *bun.DB
	repo    repository.Repository[*customerRecord]
	retries int
	now     func() time.Time
}

func (s *CustomerStore) Create(ctx context.Context, customer core.Customer) (core.Customer, error) {
	if s == nil || s.db == nil {
		return core.Customer{}, fmt.Errorf("sqlstore: customer store is not configured")
	}
	if strings.TrimSpace(customer.ID) == "" {
		return core.Customer{}, core.ValidationError("id", "customer id is required")
	}
	if customer.Version == 0 {
		customer.Version = 1
	}
	record := newCustomerRecord(customer)
	stampTimes(&record.CreatedAt, &record.UpdatedAt, s.now().UTC())

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(strings.ToLower(err.Error()), "external_id") {
				return core.Customer{}, core.ConflictError("customer external id already exists: " + customer.ExternalID)
			}
			return core.Customer{}, core.ErrDuplicateKey
		}
		return core.Customer{}, err
	}
	return record.toDomain(), nil
}

func (s *CustomerStore) Get(ctx context.Context, id string) (core.Customer, error) {
	return s.findOne(ctx, "id", id)
}

func (s *CustomerStore) GetByExternalID(ctx context.Context, externalID string) (core.Customer, error) {
	return s.findOne(ctx, "external_id", externalID)
}

func (s *CustomerStore) findOne(ctx context.Context, column string, value string) (core.Customer, error) {
	if s == nil || s.db == nil {
		return core.Customer{}, fmt.Errorf("sqlstore: customer store is not configured")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return core.Customer{}, core.CustomerNotFoundError(value)
	}
	record := &customerRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Customer{}, core.CustomerNotFoundError(value)
		}
		return core.Customer{}, err
	}
	return record.toDomain(), nil
}

// Update applies fn to the stored customer and writes the result only when
// the version is unchanged since the read.
func (s *CustomerStore) Update(ctx context.Context, id string, fn core.UpdateFunc[core.Customer]) (core.Customer, error) {
	if s == nil || s.db == nil {
		return core.Customer{}, fmt.Errorf("sqlstore: customer store is not configured")
	}
	if fn == nil {
		return core.Customer{}, fmt.Errorf("sqlstore: update function is required")
	}
	id = strings.TrimSpace(id)
	return retryOnConflict(ctx, s.retries, func(ctx context.Context) (core.Customer, error) {
		current, err := s.Get(ctx, id)
		if err != nil {
			return core.Customer{}, err
		}
		next, err := fn(current.Clone())
		if err != nil {
			return core.Customer{}, err
		}
		next.ID = current.ID
		next.Version = current.Version + 1
		next.CreatedAt = current.CreatedAt
		if next.UpdatedAt.IsZero() {
			next.UpdatedAt = s.now().UTC()
		}

		record := newCustomerRecord(next)
		result, err := s.db.NewUpdate().
			Model(record).
			ExcludeColumn("id", "created_at").
			Where("id = ?", current.ID).
			Where("version = ?", current.Version).
			Exec(ctx)
		if err != nil {
			if isUniqueViolation(err) {
				return core.Customer{}, core.ConflictError("customer external id already exists: " + next.ExternalID)
			}
			return core.Customer{}, err
		}
		if err := expectOneRow(result, "customer", current.ID); err != nil {
			return core.Customer{}, err
		}
		return record.toDomain(), nil
	})
}

func (s *CustomerStore) List(ctx context.Context, filter core.CustomerFilter) (core.CustomerPage, error) {
	if s == nil || s.repo == nil {
		return core.CustomerPage{}, fmt.Errorf("sqlstore: customer store is not configured")
	}
	page, perPage := core.NormalizePage(filter.Page, filter.PerPage)
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.SelectRawProcessor(newestFirst),
		repository.SelectPaginate(perPage, offset),
	}
	if value := strings.TrimSpace(string(filter.Type)); value != "" {
		selectors = append(selectors, repository.SelectBy("type", "=", value))
	}
	if value := strings.TrimSpace(string(filter.Role)); value != "" {
		selectors = append(selectors, repository.SelectBy("role", "=", value))
	}
	if value := strings.TrimSpace(string(filter.Status)); value != "" {
		selectors = append(selectors, repository.SelectBy("status", "=", value))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.CustomerPage{}, err
	}
	items := make([]core.Customer, 0, len(records))
	for _, record := range records {
		items = append(items, record.toDomain())
	}
	return core.CustomerPage{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

func newestFirst(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("?TableAlias.created_at DESC").OrderExpr("?TableAlias.id DESC")
}

var _ core.CustomerStore = (*CustomerStore)(nil)
