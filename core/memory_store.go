package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// keyedMutex hands out one mutex per key so read-modify-write cycles on the
// same record are serialized while other keys proceed.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*sync.Mutex{}}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

type MemoryCustomerStore struct {
	mu         sync.RWMutex
	keys       *keyedMutex
	customers  map[string]Customer
	byExternal map[string]string
}

func NewMemoryCustomerStore() *MemoryCustomerStore {
	return &MemoryCustomerStore{
		keys:       newKeyedMutex(),
		customers:  map[string]Customer{},
		byExternal: map[string]string{},
	}
}

func (s *MemoryCustomerStore) Create(_ context.Context, customer Customer) (Customer, error) {
	if strings.TrimSpace(customer.ID) == "" {
		return Customer{}, ValidationError("id", "customer id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.customers[customer.ID]; exists {
		return Customer{}, ErrDuplicateKey
	}
	if external := strings.TrimSpace(customer.ExternalID); external != "" {
		if _, exists := s.byExternal[external]; exists {
			return Customer{}, ConflictError("customer external id already exists: " + external)
		}
		s.byExternal[external] = customer.ID
	}
	if customer.Version == 0 {
		customer.Version = 1
	}
	s.customers[customer.ID] = customer.Clone()
	return customer.Clone(), nil
}

func (s *MemoryCustomerStore) Get(_ context.Context, id string) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	customer, ok := s.customers[strings.TrimSpace(id)]
	if !ok {
		return Customer{}, CustomerNotFoundError(id)
	}
	return customer.Clone(), nil
}

func (s *MemoryCustomerStore) GetByExternalID(ctx context.Context, externalID string) (Customer, error) {
	s.mu.RLock()
	id, ok := s.byExternal[strings.TrimSpace(externalID)]
	s.mu.RUnlock()
	if !ok {
		return Customer{}, CustomerNotFoundError(externalID)
	}
	return s.Get(ctx, id)
}

func (s *MemoryCustomerStore) Update(ctx context.Context, id string, fn UpdateFunc[Customer]) (Customer, error) {
	id = strings.TrimSpace(id)
	unlock := s.keys.lock(id)
	defer unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	next, err := fn(current)
	if err != nil {
		return Customer{}, err
	}
	next.ID = current.ID
	next.Version = current.Version + 1

	s.mu.Lock()
	defer s.mu.Unlock()
	oldExternal := strings.TrimSpace(current.ExternalID)
	newExternal := strings.TrimSpace(next.ExternalID)
	if newExternal != oldExternal {
		if owner, exists := s.byExternal[newExternal]; newExternal != "" && exists && owner != id {
			return Customer{}, ConflictError("customer external id already exists: " + newExternal)
		}
		if oldExternal != "" {
			delete(s.byExternal, oldExternal)
		}
		if newExternal != "" {
			s.byExternal[newExternal] = id
		}
	}
	s.customers[id] = next.Clone()
	return next.Clone(), nil
}

func (s *MemoryCustomerStore) List(_ context.Context, filter CustomerFilter) (CustomerPage, error) {
	s.mu.RLock()
	matches := make([]Customer, 0, len(s.customers))
	for _, customer := range s.customers {
		if filter.Type != "" && customer.Type != filter.Type {
			continue
		}
		if filter.Role != "" && customer.Role != filter.Role {
			continue
		}
		if filter.Status != "" && customer.Status != filter.Status {
			continue
		}
		matches = append(matches, customer.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return newerFirst(matches[i].CreatedAt, matches[j].CreatedAt, matches[i].ID, matches[j].ID)
	})
	start, end, page, perPage := paginate(len(matches), filter.Page, filter.PerPage)
	return CustomerPage{
		Items:   matches[start:end],
		Total:   len(matches),
		Page:    page,
		PerPage: perPage,
	}, nil
}

// MemoryPayoutStore keeps payouts in memory. External ids are not indexed:
// two payouts may share one.
type MemoryPayoutStore struct {
	mu      sync.RWMutex
	keys    *keyedMutex
	payouts map[string]Payout
	byOrder map[string]string
}

func NewMemoryPayoutStore() *MemoryPayoutStore {
	return &MemoryPayoutStore{
		keys:    newKeyedMutex(),
		payouts: map[string]Payout{},
		byOrder: map[string]string{},
	}
}

func providerOrderKey(providerID string, providerOrderID string) string {
	return strings.TrimSpace(providerID) + "|" + strings.TrimSpace(providerOrderID)
}

func (s *MemoryPayoutStore) Create(_ context.Context, payout Payout) (Payout, error) {
	if strings.TrimSpace(payout.ID) == "" {
		return Payout{}, ValidationError("id", "payout id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payouts[payout.ID]; exists {
		return Payout{}, ErrDuplicateKey
	}
	if payout.Version == 0 {
		payout.Version = 1
	}
	if strings.TrimSpace(payout.ProviderOrderID) != "" {
		s.byOrder[providerOrderKey(payout.ProviderID, payout.ProviderOrderID)] = payout.ID
	}
	s.payouts[payout.ID] = payout.Clone()
	return payout.Clone(), nil
}

func (s *MemoryPayoutStore) Get(_ context.Context, id string) (Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payout, ok := s.payouts[strings.TrimSpace(id)]
	if !ok {
		return Payout{}, PayoutNotFoundError(id)
	}
	return payout.Clone(), nil
}

func (s *MemoryPayoutStore) GetByProviderOrder(ctx context.Context, providerID string, providerOrderID string) (Payout, error) {
	s.mu.RLock()
	id, ok := s.byOrder[providerOrderKey(providerID, providerOrderID)]
	s.mu.RUnlock()
	if !ok {
		return Payout{}, PayoutNotFoundError(providerOrderID)
	}
	return s.Get(ctx, id)
}

func (s *MemoryPayoutStore) Update(ctx context.Context, id string, fn UpdateFunc[Payout]) (Payout, error) {
	id = strings.TrimSpace(id)
	unlock := s.keys.lock(id)
	defer unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return Payout{}, err
	}
	next, err := fn(current)
	if err != nil {
		return Payout{}, err
	}
	next.ID = current.ID
	next.ProviderID = current.ProviderID
	next.Version = current.Version + 1

	s.mu.Lock()
	defer s.mu.Unlock()
	if next.ProviderOrderID != current.ProviderOrderID {
		delete(s.byOrder, providerOrderKey(current.ProviderID, current.ProviderOrderID))
		if strings.TrimSpace(next.ProviderOrderID) != "" {
			s.byOrder[providerOrderKey(next.ProviderID, next.ProviderOrderID)] = id
		}
	}
	s.payouts[id] = next.Clone()
	return next.Clone(), nil
}

func (s *MemoryPayoutStore) List(_ context.Context, filter PayoutHistoryFilter) (PayoutPage, error) {
	s.mu.RLock()
	matches := make([]Payout, 0, len(s.payouts))
	for _, payout := range s.payouts {
		if filter.Matches(payout) {
			matches = append(matches, payout.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return newerFirst(matches[i].CreatedAt, matches[j].CreatedAt, matches[i].ID, matches[j].ID)
	})
	start, end, page, perPage := paginate(len(matches), filter.Page, filter.PerPage)
	return PayoutPage{
		Items:   matches[start:end],
		Total:   len(matches),
		Page:    page,
		PerPage: perPage,
	}, nil
}

// Matches reports whether payout satisfies every set filter field. The date
// range is inclusive on both ends.
func (f PayoutHistoryFilter) Matches(payout Payout) bool {
	if f.ExternalID != "" && payout.ExternalID != f.ExternalID {
		return false
	}
	if f.SenderID != "" && payout.Sender.CustomerID != f.SenderID {
		return false
	}
	if f.BeneficiaryID != "" && payout.Beneficiary.CustomerID != f.BeneficiaryID {
		return false
	}
	if f.ProviderID != "" && payout.ProviderID != f.ProviderID {
		return false
	}
	if f.Status != "" && payout.Status != f.Status {
		return false
	}
	if f.From != nil && payout.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && payout.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func newerFirst(a time.Time, b time.Time, aID string, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

type MemoryQuoteStore struct {
	mu     sync.RWMutex
	quotes map[string]Quote
	now    func() time.Time
}

func NewMemoryQuoteStore() *MemoryQuoteStore {
	return &MemoryQuoteStore{quotes: map[string]Quote{}, now: time.Now}
}

// Save stores quote and drops every quote past its expiry.
func (s *MemoryQuoteStore) Save(_ context.Context, quote Quote) error {
	if strings.TrimSpace(quote.ID) == "" {
		return ValidationError("id", "quote id is required")
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.quotes {
		if existing.Expired(now) {
			delete(s.quotes, id)
		}
	}
	s.quotes[quote.ID] = quote
	return nil
}

func (s *MemoryQuoteStore) Get(_ context.Context, id string) (Quote, error) {
	s.mu.RLock()
	quote, ok := s.quotes[strings.TrimSpace(id)]
	s.mu.RUnlock()
	if !ok || quote.Expired(s.now()) {
		return Quote{}, QuoteNotFoundError(id)
	}
	return quote, nil
}

var (
	_ CustomerStore = (*MemoryCustomerStore)(nil)
	_ PayoutStore   = (*MemoryPayoutStore)(nil)
	_ QuoteStore    = (*MemoryQuoteStore)(nil)
)
