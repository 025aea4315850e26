package core

import (
	"strings"
	"time"
)

type CustomerType string

const (
	CustomerTypeIndividual CustomerType = "individual"
	CustomerTypeBusiness   CustomerType = "business"
)

type CustomerRole string

const (
	CustomerRoleSender      CustomerRole = "sender"
	CustomerRoleBeneficiary CustomerRole = "beneficiary"
	CustomerRoleBoth        CustomerRole = "both"
)

type CustomerStatus string

const (
	CustomerStatusPending   CustomerStatus = "pending"
	CustomerStatusActive    CustomerStatus = "active"
	CustomerStatusSuspended CustomerStatus = "suspended"
	CustomerStatusBlocked   CustomerStatus = "blocked"
	CustomerStatusClosed    CustomerStatus = "closed"
)

type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

type IndividualProfile struct {
	FirstName   string
	MiddleName  string
	LastName    string
	DateOfBirth *time.Time
	Nationality string
	TaxID       string
}

type BusinessProfile struct {
	LegalName          string
	TradingName        string
	RegistrationNumber string
	IncorporationDate  *time.Time
	Country            string
	TaxID              string
	Website            string
}

type ContactInfo struct {
	Email   string
	Phone   string
	Address *Address
}

type BankAccount struct {
	ID            string
	AccountHolder string
	AccountNumber string
	IBAN          string
	RoutingNumber string
	SwiftCode     string
	BankName      string
	BankCode      string
	Currency      string
	Country       string
	IsPrimary     bool
	CreatedAt     time.Time
}

// Customer is the canonical, provider independent identity. ProviderIDs maps
// a provider id to that provider's own customer id and only ever grows.
type Customer struct {
	ID           string
	ExternalID   string
	Type         CustomerType
	Role         CustomerRole
	Status       CustomerStatus
	Individual   *IndividualProfile
	Business     *BusinessProfile
	Contact      ContactInfo
	BankAccounts []BankAccount
	ProviderIDs  map[string]string
	// PrimaryProvider is the provider the customer was first created with.
	PrimaryProvider string
	Verification    VerificationInfo
	Metadata        map[string]any
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PrimaryProviderID resolves the provider used for provider specific
// operations on this customer.
func (c Customer) PrimaryProviderID() string {
	if primary := strings.TrimSpace(c.PrimaryProvider); primary != "" {
		return primary
	}
	keys := sortedKeys(c.ProviderIDs)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

func (c Customer) ProviderCustomerID(providerID string) (string, bool) {
	id, ok := c.ProviderIDs[providerID]
	return id, ok && strings.TrimSpace(id) != ""
}

// Clone returns a deep copy so stored records are never shared with callers.
func (c Customer) Clone() Customer {
	out := c
	if c.Individual != nil {
		individual := *c.Individual
		individual.DateOfBirth = cloneTime(c.Individual.DateOfBirth)
		out.Individual = &individual
	}
	if c.Business != nil {
		business := *c.Business
		business.IncorporationDate = cloneTime(c.Business.IncorporationDate)
		out.Business = &business
	}
	if c.Contact.Address != nil {
		address := *c.Contact.Address
		out.Contact.Address = &address
	}
	out.BankAccounts = append([]BankAccount(nil), c.BankAccounts...)
	out.ProviderIDs = copyStringMap(c.ProviderIDs)
	out.Verification = c.Verification.Clone()
	out.Metadata = copyAnyMap(c.Metadata)
	return out
}

func (c Customer) DisplayName() string {
	switch {
	case c.Business != nil && strings.TrimSpace(c.Business.LegalName) != "":
		return strings.TrimSpace(c.Business.LegalName)
	case c.Individual != nil:
		return strings.TrimSpace(strings.Join([]string{c.Individual.FirstName, c.Individual.LastName}, " "))
	default:
		return c.Contact.Email
	}
}

type VerificationStatus string

const (
	VerificationStatusNotStarted             VerificationStatus = "not_started"
	VerificationStatusPending                VerificationStatus = "pending"
	VerificationStatusInReview               VerificationStatus = "in_review"
	VerificationStatusAdditionalInfoRequired VerificationStatus = "additional_info_required"
	VerificationStatusApproved               VerificationStatus = "approved"
	VerificationStatusRejected               VerificationStatus = "rejected"
	VerificationStatusExpired                VerificationStatus = "expired"
)

type VerificationLevel string

const (
	VerificationLevelNone     VerificationLevel = "none"
	VerificationLevelBasic    VerificationLevel = "basic"
	VerificationLevelStandard VerificationLevel = "standard"
	VerificationLevelEnhanced VerificationLevel = "enhanced"
)

type DocumentType string

const (
	DocumentTypePassport              DocumentType = "passport"
	DocumentTypeNationalID            DocumentType = "national_id"
	DocumentTypeDriversLicense        DocumentType = "drivers_license"
	DocumentTypeProofOfAddress        DocumentType = "proof_of_address"
	DocumentTypeSelfie                DocumentType = "selfie"
	DocumentTypeCertificateOfIncorp   DocumentType = "certificate_of_incorporation"
	DocumentTypeArticlesOfAssociation DocumentType = "articles_of_association"
	DocumentTypeShareholderRegister   DocumentType = "shareholder_register"
	DocumentTypeBankStatement         DocumentType = "bank_statement"
	DocumentTypeOther                 DocumentType = "other"
)

type DocumentStatus string

const (
	DocumentStatusUploaded DocumentStatus = "uploaded"
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusVerified DocumentStatus = "verified"
	DocumentStatusRejected DocumentStatus = "rejected"
)

type VerificationDocument struct {
	ID              string
	Type            DocumentType
	Status          DocumentStatus
	FileName        string
	UploadedAt      time.Time
	ReviewedAt      *time.Time
	ExpiresAt       *time.Time
	RejectionReason string
}

type VerificationInfo struct {
	Status          VerificationStatus
	TargetLevel     VerificationLevel
	AchievedLevel   VerificationLevel
	SessionIDs      map[string]string
	RejectionReason string
	SubmittedAt     *time.Time
	CompletedAt     *time.Time
	ExpiresAt       *time.Time
	Documents       []VerificationDocument
}

func (v VerificationInfo) Clone() VerificationInfo {
	out := v
	out.SessionIDs = copyStringMap(v.SessionIDs)
	out.SubmittedAt = cloneTime(v.SubmittedAt)
	out.CompletedAt = cloneTime(v.CompletedAt)
	out.ExpiresAt = cloneTime(v.ExpiresAt)
	out.Documents = append([]VerificationDocument(nil), v.Documents...)
	return out
}

func (s VerificationStatus) IsFinal() bool {
	switch s {
	case VerificationStatusApproved, VerificationStatusRejected, VerificationStatusExpired:
		return true
	default:
		return false
	}
}

type CustomerFilter struct {
	Type    CustomerType
	Role    CustomerRole
	Status  CustomerStatus
	Page    int
	PerPage int
}

type CustomerPage struct {
	Items   []Customer
	Total   int
	Page    int
	PerPage int
}
