package rampa

import (
	"strings"

	"github.com/goliatone/go-payouts/core"
	"github.com/goliatone/go-payouts/providers"
)

type addressPayload struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type customerPayload struct {
	ExternalReference  string          `json:"external_reference,omitempty"`
	Type               string          `json:"type,omitempty"`
	Role               string          `json:"role,omitempty"`
	Status             string          `json:"status,omitempty"`
	FirstName          string          `json:"first_name,omitempty"`
	MiddleName         string          `json:"middle_name,omitempty"`
	LastName           string          `json:"last_name,omitempty"`
	DateOfBirth        string          `json:"date_of_birth,omitempty"`
	Nationality        string          `json:"nationality,omitempty"`
	BusinessName       string          `json:"business_name,omitempty"`
	TradingName        string          `json:"trading_name,omitempty"`
	RegistrationNumber string          `json:"registration_number,omitempty"`
	IncorporationDate  string          `json:"incorporation_date,omitempty"`
	Website            string          `json:"website,omitempty"`
	TaxID              string          `json:"tax_id,omitempty"`
	Email              string          `json:"email,omitempty"`
	Phone              string          `json:"phone,omitempty"`
	Address            *addressPayload `json:"address,omitempty"`
	Metadata           map[string]any  `json:"metadata,omitempty"`
}

type customerResponse struct {
	ID           string               `json:"id"`
	Status       string               `json:"status"`
	KYCStatus    string               `json:"kyc_status"`
	KYCLevel     string               `json:"kyc_level"`
	BankAccounts []bankAccountPayload `json:"bank_accounts"`
}

type bankAccountPayload struct {
	ID            string `json:"id,omitempty"`
	HolderName    string `json:"holder_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	RoutingNumber string `json:"routing_number,omitempty"`
	BIC           string `json:"bic,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	BankCode      string `json:"bank_code,omitempty"`
	Currency      string `json:"currency,omitempty"`
	Country       string `json:"country,omitempty"`
	Primary       bool   `json:"primary,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

type sessionPayload struct {
	Level       string         `json:"level,omitempty"`
	RedirectURL string         `json:"redirect_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}

type verificationResponse struct {
	Status          string             `json:"status"`
	Level           string             `json:"level"`
	RejectionReason string             `json:"rejection_reason"`
	SubmittedAt     string             `json:"submitted_at"`
	CompletedAt     string             `json:"completed_at"`
	ExpiresAt       string             `json:"expires_at"`
	Documents       []documentResponse `json:"documents"`
}

type documentPayload struct {
	Type        string `json:"type"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	Content     []byte `json:"content"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

type documentResponse struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Status          string `json:"status"`
	FileName        string `json:"file_name"`
	UploadedAt      string `json:"uploaded_at"`
	ReviewedAt      string `json:"reviewed_at"`
	ExpiresAt       string `json:"expires_at"`
	RejectionReason string `json:"rejection_reason"`
}

type submitPayload struct {
	DeclarationAccepted bool           `json:"declaration_accepted"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

type feesPayload struct {
	Network    float64 `json:"network"`
	Processing float64 `json:"processing"`
	Spread     float64 `json:"spread"`
	Bank       float64 `json:"bank"`
	Developer  float64 `json:"developer"`
}

type quotePayload struct {
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	FromAmount   float64 `json:"from_amount,omitempty"`
	ToAmount     float64 `json:"to_amount,omitempty"`
	Network      string  `json:"network,omitempty"`
	Country      string  `json:"country,omitempty"`
}

type quoteResponse struct {
	ID           string       `json:"id"`
	FromCurrency string       `json:"from_currency"`
	ToCurrency   string       `json:"to_currency"`
	FromAmount   float64      `json:"from_amount"`
	ToAmount     float64      `json:"to_amount"`
	Rate         float64      `json:"rate"`
	Fee          float64      `json:"fee"`
	Fees         *feesPayload `json:"fees"`
	Network      string       `json:"network"`
	ExpiresAt    string       `json:"expires_at"`
	CreatedAt    string       `json:"created_at"`
}

type partyPayload struct {
	CustomerReference string              `json:"customer_reference,omitempty"`
	Type              string              `json:"type,omitempty"`
	Name              string              `json:"name,omitempty"`
	Email             string              `json:"email,omitempty"`
	Phone             string              `json:"phone,omitempty"`
	Address           *addressPayload     `json:"address,omitempty"`
	BankAccount       *bankAccountPayload `json:"bank_account,omitempty"`
}

type orderPayload struct {
	ExternalReference string         `json:"external_reference,omitempty"`
	QuoteID           string         `json:"quote_id,omitempty"`
	FromCurrency      string         `json:"from_currency"`
	ToCurrency        string         `json:"to_currency"`
	FromAmount        float64        `json:"from_amount,omitempty"`
	ToAmount          float64        `json:"to_amount,omitempty"`
	Network           string         `json:"network,omitempty"`
	Sender            partyPayload   `json:"sender"`
	Beneficiary       partyPayload   `json:"beneficiary"`
	Purpose           string         `json:"purpose,omitempty"`
	Reference         string         `json:"reference,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

type depositPayload struct {
	Address   string  `json:"address"`
	Network   string  `json:"network"`
	Currency  string  `json:"currency"`
	Amount    float64 `json:"amount"`
	Memo      string  `json:"memo"`
	ExpiresAt string  `json:"expires_at"`
}

type orderResponse struct {
	ID                string          `json:"id"`
	QuoteID           string          `json:"quote_id"`
	ExternalReference string          `json:"external_reference"`
	Status            string          `json:"status"`
	FromAmount        float64         `json:"from_amount"`
	ToAmount          float64         `json:"to_amount"`
	Rate              float64         `json:"rate"`
	Fee               float64         `json:"fee"`
	Fees              *feesPayload    `json:"fees"`
	Deposit           *depositPayload `json:"deposit"`
	TxHash            string          `json:"tx_hash"`
	BankReference     string          `json:"bank_reference"`
	FailureReason     string          `json:"failure_reason"`
	UpdatedAt         string          `json:"updated_at"`
}

type orderStatusResponse struct {
	OrderID           string `json:"order_id"`
	ExternalReference string `json:"external_reference"`
	Status            string `json:"status"`
	TxHash            string `json:"tx_hash"`
	BankReference     string `json:"bank_reference"`
	FailureReason     string `json:"failure_reason"`
	UpdatedAt         string `json:"updated_at"`
}

type webhookEnvelope struct {
	Event string              `json:"event"`
	Data  orderStatusResponse `json:"data"`
}

func toAddressPayload(address *core.Address) *addressPayload {
	if address == nil {
		return nil
	}
	return &addressPayload{
		Line1:      address.Line1,
		Line2:      address.Line2,
		City:       address.City,
		State:      address.State,
		PostalCode: address.PostalCode,
		Country:    address.Country,
	}
}

func toBankAccountPayload(account core.BankAccount) bankAccountPayload {
	return bankAccountPayload{
		HolderName:    account.AccountHolder,
		AccountNumber: account.AccountNumber,
		IBAN:          account.IBAN,
		RoutingNumber: account.RoutingNumber,
		BIC:           account.SwiftCode,
		BankName:      account.BankName,
		BankCode:      account.BankCode,
		Currency:      strings.ToUpper(account.Currency),
		Country:       strings.ToUpper(account.Country),
		Primary:       account.IsPrimary,
	}
}

func toCustomerPayload(req core.CreateCustomerRequest) customerPayload {
	payload := customerPayload{
		ExternalReference: req.ExternalID,
		Type:              string(req.Type),
		Role:              string(req.Role),
		Email:             req.Contact.Email,
		Phone:             req.Contact.Phone,
		Address:           toAddressPayload(req.Contact.Address),
		Metadata:          req.Metadata,
	}
	applyIndividual(&payload, req.Individual)
	applyBusiness(&payload, req.Business)
	return payload
}

func applyIndividual(payload *customerPayload, individual *core.IndividualProfile) {
	if individual == nil {
		return
	}
	payload.FirstName = individual.FirstName
	payload.MiddleName = individual.MiddleName
	payload.LastName = individual.LastName
	payload.DateOfBirth = providers.FormatDate(individual.DateOfBirth)
	payload.Nationality = individual.Nationality
	payload.TaxID = individual.TaxID
}

func applyBusiness(payload *customerPayload, business *core.BusinessProfile) {
	if business == nil {
		return
	}
	payload.BusinessName = business.LegalName
	payload.TradingName = business.TradingName
	payload.RegistrationNumber = business.RegistrationNumber
	payload.IncorporationDate = providers.FormatDate(business.IncorporationDate)
	payload.Website = business.Website
	if payload.TaxID == "" {
		payload.TaxID = business.TaxID
	}
}

func toUpdatePayload(req core.UpdateCustomerRequest) customerPayload {
	payload := customerPayload{Metadata: req.Metadata}
	if req.Role != nil {
		payload.Role = string(*req.Role)
	}
	if req.Status != nil {
		payload.Status = string(*req.Status)
	}
	if req.Email != nil {
		payload.Email = *req.Email
	}
	if req.Phone != nil {
		payload.Phone = *req.Phone
	}
	payload.Address = toAddressPayload(req.Address)
	applyIndividual(&payload, req.Individual)
	applyBusiness(&payload, req.Business)
	return payload
}

func (r customerResponse) toCore() core.ProviderCustomer {
	out := core.ProviderCustomer{
		ProviderCustomerID: r.ID,
		Status:             customerStatuses.Map(r.Status),
		BankAccounts:       make([]core.BankAccount, 0, len(r.BankAccounts)),
		Metadata:           map[string]any{"provider_status": r.Status},
	}
	if strings.TrimSpace(r.KYCStatus) != "" {
		out.Verification = &core.VerificationStatusResult{
			Status:         VerificationStatuses.Map(r.KYCStatus),
			ProviderStatus: r.KYCStatus,
			Level:          verificationLevels.Map(r.KYCLevel),
		}
	}
	for _, account := range r.BankAccounts {
		out.BankAccounts = append(out.BankAccounts, account.toCore())
	}
	return out
}

func (b bankAccountPayload) toCore() core.BankAccount {
	account := core.BankAccount{
		ID:            b.ID,
		AccountHolder: b.HolderName,
		AccountNumber: b.AccountNumber,
		IBAN:          b.IBAN,
		RoutingNumber: b.RoutingNumber,
		SwiftCode:     b.BIC,
		BankName:      b.BankName,
		BankCode:      b.BankCode,
		Currency:      b.Currency,
		Country:       b.Country,
		IsPrimary:     b.Primary,
	}
	if created := providers.ParseTime(b.CreatedAt); created != nil {
		account.CreatedAt = *created
	}
	return account
}

func (r sessionResponse) toCore() core.VerificationSession {
	status := VerificationStatuses.Map(r.Status)
	if strings.TrimSpace(r.Status) == "" {
		status = core.VerificationStatusPending
	}
	return core.VerificationSession{
		SessionID:       r.SessionID,
		VerificationURL: r.URL,
		Status:          status,
		ExpiresAt:       providers.ParseTime(r.ExpiresAt),
	}
}

func (r verificationResponse) toCore() core.VerificationStatusResult {
	out := core.VerificationStatusResult{
		Status:          VerificationStatuses.Map(r.Status),
		ProviderStatus:  r.Status,
		Level:           verificationLevels.Map(r.Level),
		RejectionReason: r.RejectionReason,
		SubmittedAt:     providers.ParseTime(r.SubmittedAt),
		CompletedAt:     providers.ParseTime(r.CompletedAt),
		ExpiresAt:       providers.ParseTime(r.ExpiresAt),
		Documents:       make([]core.VerificationDocument, 0, len(r.Documents)),
	}
	for _, document := range r.Documents {
		out.Documents = append(out.Documents, document.toCore())
	}
	return out
}

func (d documentResponse) toCore() core.VerificationDocument {
	document := core.VerificationDocument{
		ID:              d.ID,
		Type:            core.DocumentType(strings.ToLower(d.Type)),
		Status:          documentStatuses.Map(d.Status),
		FileName:        d.FileName,
		ReviewedAt:      providers.ParseTime(d.ReviewedAt),
		ExpiresAt:       providers.ParseTime(d.ExpiresAt),
		RejectionReason: d.RejectionReason,
	}
	if uploaded := providers.ParseTime(d.UploadedAt); uploaded != nil {
		document.UploadedAt = *uploaded
	}
	return document
}

func (f *feesPayload) toCore() *core.FeeBreakdown {
	if f == nil {
		return nil
	}
	return &core.FeeBreakdown{
		NetworkFee:    f.Network,
		ProcessingFee: f.Processing,
		FXSpread:      f.Spread,
		BankFee:       f.Bank,
		DeveloperFee:  f.Developer,
	}
}

func toPartyPayload(party core.PayoutParty) partyPayload {
	out := partyPayload{
		CustomerReference: party.CustomerID,
		Type:              string(party.Type),
		Name:              party.Name,
		Email:             party.Email,
		Phone:             party.Phone,
		Address:           toAddressPayload(party.Address),
	}
	if party.BankAccount != nil {
		account := toBankAccountPayload(*party.BankAccount)
		out.BankAccount = &account
	}
	return out
}

func (r orderResponse) toCore() core.ProviderPayout {
	out := core.ProviderPayout{
		ProviderOrderID:  r.ID,
		ProviderQuoteID:  r.QuoteID,
		Status:           PayoutStatuses.Map(r.Status),
		ProviderStatus:   r.Status,
		SourceAmount:     r.FromAmount,
		TargetAmount:     r.ToAmount,
		ExchangeRate:     r.Rate,
		Fee:              r.Fee,
		FeeBreakdown:     r.Fees.toCore(),
		BlockchainTxHash: r.TxHash,
		BankReference:    r.BankReference,
		FailureReason:    r.FailureReason,
		ExternalID:       r.ExternalReference,
	}
	if updated := providers.ParseTime(r.UpdatedAt); updated != nil {
		out.UpdatedAt = *updated
	}
	if r.Deposit != nil && strings.TrimSpace(r.Deposit.Address) != "" {
		out.DepositWallet = &core.DepositWallet{
			Address:        r.Deposit.Address,
			Network:        strings.ToLower(r.Deposit.Network),
			Currency:       strings.ToUpper(r.Deposit.Currency),
			ExpectedAmount: r.Deposit.Amount,
			ExpiresAt:      providers.ParseTime(r.Deposit.ExpiresAt),
			Memo:           r.Deposit.Memo,
		}
	}
	return out
}

// toUpdate prefers the merchant's external reference as the payout id and
// falls back to the order id.
func (r orderStatusResponse) toUpdate(providerID string, fallback string) core.PayoutStatusUpdate {
	orderID := strings.TrimSpace(r.OrderID)
	if orderID == "" {
		orderID = fallback
	}
	payoutID := strings.TrimSpace(r.ExternalReference)
	if payoutID == "" {
		payoutID = orderID
	}
	update := core.PayoutStatusUpdate{
		PayoutID:         payoutID,
		ProviderOrderID:  orderID,
		ProviderID:       providerID,
		Status:           PayoutStatuses.Map(r.Status),
		ProviderStatus:   r.Status,
		BlockchainTxHash: r.TxHash,
		BankReference:    r.BankReference,
		FailureReason:    r.FailureReason,
	}
	if updated := providers.ParseTime(r.UpdatedAt); updated != nil {
		update.Timestamp = *updated
	}
	return update
}
