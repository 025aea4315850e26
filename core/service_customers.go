package core

import (
	"context"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func (s *Service) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (customer Customer, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"external_id":   req.ExternalID,
		"customer_type": string(req.Type),
	}
	defer func() {
		err = s.mapError(err)
		if customer.ID != "" {
			fields["customer_id"] = customer.ID
			fields["provider_id"] = customer.PrimaryProvider
		}
		s.observeOperation(ctx, startedAt, "create_customer", err, fields)
	}()

	if err = validateCreateCustomer(req); err != nil {
		return Customer{}, err
	}
	if req.Role == "" {
		req.Role = CustomerRoleBoth
	}
	if external := strings.TrimSpace(req.ExternalID); external != "" {
		if _, lookupErr := s.customers.GetByExternalID(ctx, external); lookupErr == nil {
			return Customer{}, ConflictError("customer external id already exists: " + external)
		} else if !HasTextCode(lookupErr, ErrorCustomerNotFound) {
			return Customer{}, lookupErr
		}
	}

	provider, err := s.customerProvider(req.PreferredProvider)
	if err != nil {
		return Customer{}, err
	}
	fields["provider_id"] = provider.ID()

	remote, err := provider.CreateCustomer(ctx, req)
	if err != nil {
		return Customer{}, providerError(provider.ID(), err)
	}

	now := s.now().UTC()
	status := remote.Status
	if status == "" {
		status = CustomerStatusPending
	}
	record := Customer{
		ID:              s.newID(),
		ExternalID:      strings.TrimSpace(req.ExternalID),
		Type:            req.Type,
		Role:            req.Role,
		Status:          status,
		Individual:      req.Individual,
		Business:        req.Business,
		Contact:         req.Contact,
		BankAccounts:    append([]BankAccount(nil), remote.BankAccounts...),
		ProviderIDs:     map[string]string{provider.ID(): remote.ProviderCustomerID},
		PrimaryProvider: provider.ID(),
		Verification: VerificationInfo{
			Status:        VerificationStatusNotStarted,
			TargetLevel:   VerificationLevelNone,
			AchievedLevel: VerificationLevelNone,
			SessionIDs:    map[string]string{},
		},
		Metadata:  copyAnyMap(req.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if remote.Verification != nil {
		record.Verification = mergeVerification(record.Verification, *remote.Verification)
	}
	return s.customers.Create(ctx, record.Clone())
}

func validateCreateCustomer(req CreateCustomerRequest) error {
	switch req.Type {
	case CustomerTypeIndividual:
		if req.Business != nil {
			return ValidationError("business", "individual customers cannot carry a business profile")
		}
	case CustomerTypeBusiness:
		if req.Individual != nil {
			return ValidationError("individual", "business customers cannot carry an individual profile")
		}
	default:
		return ValidationError("type", "customer type must be individual or business")
	}
	switch req.Role {
	case "", CustomerRoleSender, CustomerRoleBeneficiary, CustomerRoleBoth:
	default:
		return ValidationError("role", "customer role must be sender, beneficiary or both")
	}
	if strings.TrimSpace(req.Contact.Email) == "" {
		return ValidationError("contact.email", "email is required")
	}
	return nil
}

func (s *Service) GetCustomer(ctx context.Context, customerID string) (customer Customer, err error) {
	if strings.TrimSpace(customerID) == "" {
		return Customer{}, s.mapError(ValidationError("customer_id", "customer id is required"))
	}
	customer, err = s.customers.Get(ctx, customerID)
	return customer, s.mapError(err)
}

func (s *Service) GetCustomerByExternalID(ctx context.Context, externalID string) (customer Customer, err error) {
	if strings.TrimSpace(externalID) == "" {
		return Customer{}, s.mapError(ValidationError("external_id", "external id is required"))
	}
	customer, err = s.customers.GetByExternalID(ctx, externalID)
	return customer, s.mapError(err)
}

func (s *Service) ListCustomers(ctx context.Context, filter CustomerFilter) (page CustomerPage, err error) {
	page, err = s.customers.List(ctx, filter)
	return page, s.mapError(err)
}

// UpdateCustomer forwards the change to the customer's primary provider and
// then merges only the supplied fields into the canonical record.
func (s *Service) UpdateCustomer(ctx context.Context, customerID string, req UpdateCustomerRequest) (customer Customer, err error) {
	startedAt := s.now()
	fields := map[string]any{"customer_id": customerID}
	defer func() {
		err = s.mapError(err)
		s.observeOperation(ctx, startedAt, "update_customer", err, fields)
	}()

	if req.Status != nil && !validCustomerStatus(*req.Status) {
		return Customer{}, ValidationError("status", "unknown customer status")
	}
	if req.Role != nil && !validCustomerRole(*req.Role) {
		return Customer{}, ValidationError("role", "unknown customer role")
	}

	current, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return Customer{}, err
	}
	provider, providerCustomerID, err := s.primaryBinding(current)
	if err != nil {
		return Customer{}, err
	}
	fields["provider_id"] = provider.ID()

	if _, err = provider.UpdateCustomer(ctx, providerCustomerID, req); err != nil {
		return Customer{}, providerError(provider.ID(), err)
	}

	now := s.now().UTC()
	return s.customers.Update(ctx, current.ID, func(existing Customer) (Customer, error) {
		next := existing.Clone()
		applyCustomerUpdate(&next, req)
		next.UpdatedAt = now
		return next, nil
	})
}

func applyCustomerUpdate(customer *Customer, req UpdateCustomerRequest) {
	if req.Role != nil {
		customer.Role = *req.Role
	}
	if req.Status != nil {
		customer.Status = *req.Status
	}
	if req.Individual != nil && customer.Type == CustomerTypeIndividual {
		individual := *req.Individual
		customer.Individual = &individual
	}
	if req.Business != nil && customer.Type == CustomerTypeBusiness {
		business := *req.Business
		customer.Business = &business
	}
	if req.Email != nil {
		customer.Contact.Email = *req.Email
	}
	if req.Phone != nil {
		customer.Contact.Phone = *req.Phone
	}
	if req.Address != nil {
		address := *req.Address
		customer.Contact.Address = &address
	}
	if len(req.Metadata) > 0 {
		if customer.Metadata == nil {
			customer.Metadata = map[string]any{}
		}
		for key, value := range req.Metadata {
			customer.Metadata[key] = value
		}
	}
}

func (s *Service) AddBankAccount(ctx context.Context, customerID string, req AddBankAccountRequest) (account BankAccount, err error) {
	startedAt := s.now()
	fields := map[string]any{"customer_id": customerID}
	defer func() {
		err = s.mapError(err)
		s.observeOperation(ctx, startedAt, "add_bank_account", err, fields)
	}()

	if strings.TrimSpace(req.Account.AccountNumber) == "" && strings.TrimSpace(req.Account.IBAN) == "" {
		return BankAccount{}, ValidationError("account_number", "account number or iban is required")
	}
	if strings.TrimSpace(req.Account.Country) == "" {
		return BankAccount{}, ValidationError("country", "bank account country is required")
	}

	current, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return BankAccount{}, err
	}
	provider, providerCustomerID, err := s.primaryBinding(current)
	if err != nil {
		return BankAccount{}, err
	}
	fields["provider_id"] = provider.ID()

	account, err = provider.AddBankAccount(ctx, providerCustomerID, req)
	if err != nil {
		return BankAccount{}, providerError(provider.ID(), err)
	}
	account = mergeBankAccount(req.Account, account)
	if strings.TrimSpace(account.ID) == "" {
		account.ID = s.newID()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = s.now().UTC()
	}

	now := s.now().UTC()
	_, err = s.customers.Update(ctx, current.ID, func(existing Customer) (Customer, error) {
		next := existing.Clone()
		if len(next.BankAccounts) == 0 {
			account.IsPrimary = true
		}
		if account.IsPrimary {
			for idx := range next.BankAccounts {
				next.BankAccounts[idx].IsPrimary = false
			}
		}
		next.BankAccounts = append(next.BankAccounts, account)
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return BankAccount{}, err
	}
	return account, nil
}

// mergeBankAccount prefers provider supplied values and keeps the requested
// ones where the provider echoed nothing back.
func mergeBankAccount(requested BankAccount, remote BankAccount) BankAccount {
	out := requested
	out.ID = firstNonEmpty(remote.ID, requested.ID)
	out.AccountHolder = firstNonEmpty(remote.AccountHolder, requested.AccountHolder)
	out.AccountNumber = firstNonEmpty(remote.AccountNumber, requested.AccountNumber)
	out.IBAN = firstNonEmpty(remote.IBAN, requested.IBAN)
	out.RoutingNumber = firstNonEmpty(remote.RoutingNumber, requested.RoutingNumber)
	out.SwiftCode = firstNonEmpty(remote.SwiftCode, requested.SwiftCode)
	out.BankName = firstNonEmpty(remote.BankName, requested.BankName)
	out.BankCode = firstNonEmpty(remote.BankCode, requested.BankCode)
	out.Currency = strings.ToUpper(firstNonEmpty(remote.Currency, requested.Currency))
	out.Country = strings.ToUpper(firstNonEmpty(remote.Country, requested.Country))
	out.IsPrimary = requested.IsPrimary || remote.IsPrimary
	if !remote.CreatedAt.IsZero() {
		out.CreatedAt = remote.CreatedAt
	}
	return out
}

func (s *Service) customerProvider(preferred string) (Provider, error) {
	if id := strings.TrimSpace(preferred); id != "" {
		return s.selector.Get(id)
	}
	provider, ok := s.selector.Default()
	if !ok {
		return nil, ProviderNotFoundError(firstNonEmpty(s.config.Routing.DefaultProvider, "default"))
	}
	return provider, nil
}

func (s *Service) primaryBinding(customer Customer) (Provider, string, error) {
	providerID := customer.PrimaryProviderID()
	if providerID == "" {
		return nil, "", ConflictError("customer " + customer.ID + " has no provider binding")
	}
	provider, err := s.selector.Get(providerID)
	if err != nil {
		return nil, "", err
	}
	providerCustomerID, ok := customer.ProviderCustomerID(providerID)
	if !ok {
		return nil, "", ConflictError("customer " + customer.ID + " has no binding with provider " + providerID)
	}
	return provider, providerCustomerID, nil
}

// ensureBinding returns the customer's id at provider, creating the customer
// there first when no binding exists yet. New bindings are added to the
// canonical record; existing ones are never replaced.
func (s *Service) ensureBinding(ctx context.Context, customer Customer, provider Provider) (Customer, string, error) {
	if providerCustomerID, ok := customer.ProviderCustomerID(provider.ID()); ok {
		return customer, providerCustomerID, nil
	}
	remote, err := provider.CreateCustomer(ctx, CreateCustomerRequest{
		ExternalID: customer.ID,
		Type:       customer.Type,
		Role:       customer.Role,
		Individual: customer.Individual,
		Business:   customer.Business,
		Contact:    customer.Contact,
		Metadata:   copyAnyMap(customer.Metadata),
	})
	if err != nil {
		return Customer{}, "", providerError(provider.ID(), err)
	}
	now := s.now().UTC()
	updated, err := s.customers.Update(ctx, customer.ID, func(existing Customer) (Customer, error) {
		next := existing.Clone()
		if next.ProviderIDs == nil {
			next.ProviderIDs = map[string]string{}
		}
		if _, exists := next.ProviderCustomerID(provider.ID()); !exists {
			next.ProviderIDs[provider.ID()] = remote.ProviderCustomerID
		}
		if strings.TrimSpace(next.PrimaryProvider) == "" {
			next.PrimaryProvider = provider.ID()
		}
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return Customer{}, "", err
	}
	providerCustomerID, _ := updated.ProviderCustomerID(provider.ID())
	s.logInfo(ctx, "customer bridged to provider", map[string]any{
		"customer_id": customer.ID,
		"provider_id": provider.ID(),
	})
	return updated, providerCustomerID, nil
}

func validCustomerStatus(status CustomerStatus) bool {
	switch status {
	case CustomerStatusPending, CustomerStatusActive, CustomerStatusSuspended, CustomerStatusBlocked, CustomerStatusClosed:
		return true
	default:
		return false
	}
}

func validCustomerRole(role CustomerRole) bool {
	switch role {
	case CustomerRoleSender, CustomerRoleBeneficiary, CustomerRoleBoth:
		return true
	default:
		return false
	}
}

// providerError converts whatever an adapter returned into the error
// taxonomy. Structured errors pass through untouched.
func providerError(providerID string, err error) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	if isContextError(err) {
		return err
	}
	return ProviderAPIError(providerID, "", err.Error())
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func timePtr(value time.Time) *time.Time {
	value = value.UTC()
	return &value
}
