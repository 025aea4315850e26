package core

import (
	"context"
	"testing"
)

func TestCreateCustomer_BindsToDefaultProvider(t *testing.T) {
	rampa := newStubProvider("rampa")
	corridor := newStubProvider("corridor")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa, corridor})

	customer, err := svc.CreateCustomer(context.Background(), individualRequest("a@b.com"))
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if len(customer.ProviderIDs) != 1 {
		t.Fatalf("expected exactly one provider binding, got %v", customer.ProviderIDs)
	}
	if _, ok := customer.ProviderIDs["rampa"]; !ok {
		t.Fatalf("expected binding keyed by default provider, got %v", customer.ProviderIDs)
	}
	if customer.PrimaryProviderID() != "rampa" {
		t.Fatalf("expected primary provider rampa, got %q", customer.PrimaryProviderID())
	}
	if customer.Verification.Status != VerificationStatusNotStarted {
		t.Fatalf("expected verification not started, got %s", customer.Verification.Status)
	}
	if corridor.totalCalls() != 0 {
		t.Fatalf("expected non default provider to be untouched")
	}
}

func TestCreateCustomer_UsesPreferredProvider(t *testing.T) {
	rampa := newStubProvider("rampa")
	corridor := newStubProvider("corridor")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa, corridor})

	req := individualRequest("a@b.com")
	req.PreferredProvider = "corridor"
	customer, err := svc.CreateCustomer(context.Background(), req)
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if _, ok := customer.ProviderIDs["corridor"]; !ok || len(customer.ProviderIDs) != 1 {
		t.Fatalf("expected corridor binding, got %v", customer.ProviderIDs)
	}

	req.PreferredProvider = "unknown"
	req.Contact.Email = "c@d.com"
	if _, err := svc.CreateCustomer(context.Background(), req); !HasTextCode(err, ErrorProviderNotFound) {
		t.Fatalf("expected provider not found, got %v", err)
	}
}

func TestCreateCustomer_RejectsDuplicateExternalID(t *testing.T) {
	rampa := newStubProvider("rampa")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})

	req := individualRequest("a@b.com")
	req.ExternalID = "ext-1"
	if _, err := svc.CreateCustomer(context.Background(), req); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if _, err := svc.CreateCustomer(context.Background(), req); !HasTextCode(err, ErrorConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if rampa.callCount("CreateCustomer") != 1 {
		t.Fatalf("expected duplicate to be rejected before the provider call")
	}

	found, err := svc.GetCustomerByExternalID(context.Background(), "ext-1")
	if err != nil {
		t.Fatalf("get by external id: %v", err)
	}
	if found.ExternalID != "ext-1" {
		t.Fatalf("unexpected customer %+v", found)
	}
}

func TestCreateCustomer_ValidatesRequest(t *testing.T) {
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{newStubProvider("rampa")})

	req := individualRequest("a@b.com")
	req.Type = "robot"
	if _, err := svc.CreateCustomer(context.Background(), req); !HasTextCode(err, ErrorBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
	req = individualRequest("")
	if _, err := svc.CreateCustomer(context.Background(), req); !HasTextCode(err, ErrorBadInput) {
		t.Fatalf("expected bad input for missing email, got %v", err)
	}
}

func TestGetCustomer_NotFound(t *testing.T) {
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{newStubProvider("rampa")})
	if _, err := svc.GetCustomer(context.Background(), "missing"); !HasTextCode(err, ErrorCustomerNotFound) {
		t.Fatalf("expected customer not found, got %v", err)
	}
}

func TestUpdateCustomer_MergesOnlySuppliedFields(t *testing.T) {
	rampa := newStubProvider("rampa")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})

	req := individualRequest("a@b.com")
	req.Contact.Phone = "+34600000000"
	req.Metadata = map[string]any{"segment": "retail"}
	created, err := svc.CreateCustomer(context.Background(), req)
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	email := "new@b.com"
	updated, err := svc.UpdateCustomer(context.Background(), created.ID, UpdateCustomerRequest{
		Email:    &email,
		Metadata: map[string]any{"tier": "gold"},
	})
	if err != nil {
		t.Fatalf("update customer: %v", err)
	}
	if updated.Contact.Email != email {
		t.Fatalf("expected email update, got %q", updated.Contact.Email)
	}
	if updated.Contact.Phone != "+34600000000" {
		t.Fatalf("expected phone to be untouched, got %q", updated.Contact.Phone)
	}
	if updated.Metadata["segment"] != "retail" || updated.Metadata["tier"] != "gold" {
		t.Fatalf("expected merged metadata, got %v", updated.Metadata)
	}
	if updated.Individual == nil || updated.Individual.FirstName != "Ana" {
		t.Fatalf("expected profile to be untouched")
	}
	if rampa.callCount("UpdateCustomer") != 1 {
		t.Fatalf("expected update to be forwarded to primary provider")
	}
	if updated.Version <= created.Version {
		t.Fatalf("expected version bump, got %d -> %d", created.Version, updated.Version)
	}
}

func TestAddBankAccount_AppendsAndTracksPrimary(t *testing.T) {
	rampa := newStubProvider("rampa")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})
	created, err := svc.CreateCustomer(context.Background(), individualRequest("a@b.com"))
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	first, err := svc.AddBankAccount(context.Background(), created.ID, AddBankAccountRequest{
		Account: BankAccount{IBAN: "ES9121000418450200051332", Country: "es", Currency: "eur"},
	})
	if err != nil {
		t.Fatalf("add first account: %v", err)
	}
	if !first.IsPrimary || first.Country != "ES" || first.ID == "" {
		t.Fatalf("unexpected first account %+v", first)
	}
	if _, err := svc.AddBankAccount(context.Background(), created.ID, AddBankAccountRequest{
		Account: BankAccount{AccountNumber: "123", Country: "MX", IsPrimary: true},
	}); err != nil {
		t.Fatalf("add second account: %v", err)
	}

	customer, err := svc.GetCustomer(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if len(customer.BankAccounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(customer.BankAccounts))
	}
	if customer.BankAccounts[0].IsPrimary || !customer.BankAccounts[1].IsPrimary {
		t.Fatalf("expected primary flag to move to the new account")
	}

	if _, err := svc.AddBankAccount(context.Background(), created.ID, AddBankAccountRequest{}); !HasTextCode(err, ErrorBadInput) {
		t.Fatalf("expected bad input for empty account, got %v", err)
	}
}

func TestListCustomers_FiltersAndPaginates(t *testing.T) {
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{newStubProvider("rampa")})
	ctx := context.Background()
	for _, req := range []CreateCustomerRequest{
		individualRequest("a@x.com"),
		individualRequest("b@x.com"),
		businessRequest("c@x.com"),
	} {
		if _, err := svc.CreateCustomer(ctx, req); err != nil {
			t.Fatalf("create customer: %v", err)
		}
	}

	page, err := svc.ListCustomers(ctx, CustomerFilter{Type: CustomerTypeIndividual, PerPage: 1})
	if err != nil {
		t.Fatalf("list customers: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 1 || page.PerPage != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	page, err = svc.ListCustomers(ctx, CustomerFilter{Role: CustomerRoleBeneficiary})
	if err != nil {
		t.Fatalf("list customers: %v", err)
	}
	if page.Total != 1 || page.Items[0].Type != CustomerTypeBusiness {
		t.Fatalf("expected only the business beneficiary, got %+v", page)
	}
}
