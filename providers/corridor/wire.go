package corridor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/goliatone/go-payouts/core"
	"github.com/goliatone/go-payouts/providers"
)

// amount is a decimal carried as a JSON string.
type amount float64

func (a amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatFloat(float64(a), 'f', -1, 64))
}

func (a *amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*a = 0
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*a = amount(value)
	return nil
}

type errorEnvelope struct {
	Errors []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// decodeError reads the {"errors":[{"code","detail"}]} envelope.
func decodeError(statusCode int, body []byte) (string, string) {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		if strings.TrimSpace(first.Code) != "" {
			return first.Code, first.Detail
		}
	}
	return strconv.Itoa(statusCode), strings.TrimSpace(string(body))
}

type location struct {
	Street     string `json:"street,omitempty"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postcode,omitempty"`
	Country    string `json:"country_code,omitempty"`
}

type person struct {
	GivenName  string `json:"given_name,omitempty"`
	MiddleName string `json:"middle_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	BirthDate  string `json:"birth_date,omitempty"`
	Citizen    string `json:"citizenship,omitempty"`
	TaxNumber  string `json:"tax_number,omitempty"`
}

type company struct {
	LegalName string `json:"legal_name,omitempty"`
	DBA       string `json:"dba,omitempty"`
	Registry  string `json:"registry_number,omitempty"`
	Founded   string `json:"founded,omitempty"`
	Country   string `json:"country_code,omitempty"`
	TaxNumber string `json:"tax_number,omitempty"`
	Website   string `json:"website,omitempty"`
}

type clientRequest struct {
	ClientReference string         `json:"client_reference,omitempty"`
	Kind            string         `json:"kind,omitempty"`
	Role            string         `json:"role,omitempty"`
	State           string         `json:"state,omitempty"`
	Person          *person        `json:"person,omitempty"`
	Company         *company       `json:"company,omitempty"`
	Email           string         `json:"email,omitempty"`
	Phone           string         `json:"phone,omitempty"`
	Location        *location      `json:"location,omitempty"`
	Tags            map[string]any `json:"tags,omitempty"`
}

type clientResponse struct {
	ClientID     string            `json:"client_id"`
	State        string            `json:"state"`
	Verification *verificationBody `json:"verification"`
	Accounts     []accountBody     `json:"accounts"`
}

type accountBody struct {
	AccountID string `json:"account_id,omitempty"`
	Holder    string `json:"holder,omitempty"`
	Number    string `json:"number,omitempty"`
	IBAN      string `json:"iban,omitempty"`
	Routing   string `json:"routing,omitempty"`
	SWIFT     string `json:"swift,omitempty"`
	Bank      string `json:"bank,omitempty"`
	BankCode  string `json:"bank_code,omitempty"`
	Currency  string `json:"currency,omitempty"`
	Country   string `json:"country_code,omitempty"`
	Default   bool   `json:"default,omitempty"`
	Created   string `json:"created,omitempty"`
}

type page[T any] struct {
	Items []T `json:"items"`
	Next  int `json:"next_page"`
}

type verificationRequest struct {
	Kind      string         `json:"kind"`
	Tier      int            `json:"tier"`
	ReturnURL string         `json:"return_url,omitempty"`
	Tags      map[string]any `json:"tags,omitempty"`
}

type verificationBody struct {
	VerificationID string         `json:"verification_id"`
	Link           string         `json:"link"`
	State          string         `json:"state"`
	Tier           json.Number    `json:"tier"`
	Reason         string         `json:"reason"`
	Submitted      string         `json:"submitted"`
	Decided        string         `json:"decided"`
	ValidUntil     string         `json:"valid_until"`
	Documents      []documentBody `json:"documents"`
}

type documentRequest struct {
	Category   string `json:"category"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type,omitempty"`
	Data       []byte `json:"data"`
	ValidUntil string `json:"valid_until,omitempty"`
}

type documentBody struct {
	DocumentID string `json:"document_id"`
	Category   string `json:"category"`
	State      string `json:"state"`
	Filename   string `json:"filename"`
	Stored     string `json:"stored"`
	Reviewed   string `json:"reviewed"`
	ValidUntil string `json:"valid_until"`
	Reason     string `json:"reason"`
}

type submitRequest struct {
	Attested bool           `json:"attested"`
	Tags     map[string]any `json:"tags,omitempty"`
}

type rateRequest struct {
	Sell        string `json:"sell"`
	Buy         string `json:"buy"`
	SellAmount  amount `json:"sell_amount,omitempty"`
	BuyAmount   amount `json:"buy_amount,omitempty"`
	Chain       string `json:"chain,omitempty"`
	Destination string `json:"destination_country,omitempty"`
}

type charges struct {
	Gas     amount `json:"gas"`
	Service amount `json:"service"`
	Spread  amount `json:"spread"`
	Bank    amount `json:"bank"`
	Partner amount `json:"partner"`
}

type rateResponse struct {
	RateID     string   `json:"rate_id"`
	Sell       string   `json:"sell"`
	Buy        string   `json:"buy"`
	SellAmount amount   `json:"sell_amount"`
	BuyAmount  amount   `json:"buy_amount"`
	Price      amount   `json:"price"`
	TotalFee   amount   `json:"total_fee"`
	Charges    *charges `json:"charges"`
	Chain      string   `json:"chain"`
	ValidUntil string   `json:"valid_until"`
	Issued     string   `json:"issued"`
}

type counterparty struct {
	ClientID string       `json:"client_id,omitempty"`
	Kind     string       `json:"kind,omitempty"`
	Name     string       `json:"name,omitempty"`
	Email    string       `json:"email,omitempty"`
	Phone    string       `json:"phone,omitempty"`
	Location *location    `json:"location,omitempty"`
	Account  *accountBody `json:"account,omitempty"`
}

type transferRequest struct {
	ClientReference string         `json:"client_reference,omitempty"`
	RateID          string         `json:"rate_id,omitempty"`
	Sell            string         `json:"sell"`
	Buy             string         `json:"buy"`
	SellAmount      amount         `json:"sell_amount,omitempty"`
	BuyAmount       amount         `json:"buy_amount,omitempty"`
	Chain           string         `json:"chain,omitempty"`
	Originator      counterparty   `json:"originator"`
	Recipient       counterparty   `json:"recipient"`
	Purpose         string         `json:"purpose_code,omitempty"`
	Memo            string         `json:"memo,omitempty"`
	Tags            map[string]any `json:"tags,omitempty"`
}

type fundingBody struct {
	Wallet     string `json:"wallet"`
	Chain      string `json:"chain"`
	Asset      string `json:"asset"`
	Amount     amount `json:"amount"`
	Tag        string `json:"tag"`
	ValidUntil string `json:"valid_until"`
}

type transferBody struct {
	TransferID      string       `json:"id"`
	ClientReference string       `json:"client_reference"`
	RateID          string       `json:"rate_id"`
	State           string       `json:"state"`
	SellAmount      amount       `json:"sell_amount"`
	BuyAmount       amount       `json:"buy_amount"`
	Price           amount       `json:"price"`
	TotalFee        amount       `json:"total_fee"`
	Charges         *charges     `json:"charges"`
	Funding         *fundingBody `json:"funding"`
	ChainTx         string       `json:"chain_tx"`
	BankRef         string       `json:"bank_ref"`
	Reason          string       `json:"reason"`
	At              string       `json:"at"`
}

type webhookEvent struct {
	Type     string       `json:"type"`
	Transfer transferBody `json:"transfer"`
}

func toLocation(address *core.Address) *location {
	if address == nil {
		return nil
	}
	return &location{
		Street:     address.Line1,
		Street2:    address.Line2,
		City:       address.City,
		Region:     address.State,
		PostalCode: address.PostalCode,
		Country:    strings.ToUpper(address.Country),
	}
}

func toPerson(profile *core.IndividualProfile) *person {
	if profile == nil {
		return nil
	}
	return &person{
		GivenName:  profile.FirstName,
		MiddleName: profile.MiddleName,
		FamilyName: profile.LastName,
		BirthDate:  providers.FormatDate(profile.DateOfBirth),
		Citizen:    strings.ToUpper(profile.Nationality),
		TaxNumber:  profile.TaxID,
	}
}

func toCompany(profile *core.BusinessProfile) *company {
	if profile == nil {
		return nil
	}
	return &company{
		LegalName: profile.LegalName,
		DBA:       profile.TradingName,
		Registry:  profile.RegistrationNumber,
		Founded:   providers.FormatDate(profile.IncorporationDate),
		Country:   strings.ToUpper(profile.Country),
		TaxNumber: profile.TaxID,
		Website:   profile.Website,
	}
}

func toAccount(account core.BankAccount) accountBody {
	return accountBody{
		Holder:   account.AccountHolder,
		Number:   account.AccountNumber,
		IBAN:     account.IBAN,
		Routing:  account.RoutingNumber,
		SWIFT:    account.SwiftCode,
		Bank:     account.BankName,
		BankCode: account.BankCode,
		Currency: strings.ToUpper(account.Currency),
		Country:  strings.ToUpper(account.Country),
		Default:  account.IsPrimary,
	}
}

func (a accountBody) toCore() core.BankAccount {
	account := core.BankAccount{
		ID:            a.AccountID,
		AccountHolder: a.Holder,
		AccountNumber: a.Number,
		IBAN:          a.IBAN,
		RoutingNumber: a.Routing,
		SwiftCode:     a.SWIFT,
		BankName:      a.Bank,
		BankCode:      a.BankCode,
		Currency:      a.Currency,
		Country:       a.Country,
		IsPrimary:     a.Default,
	}
	if created := providers.ParseTime(a.Created); created != nil {
		account.CreatedAt = *created
	}
	return account
}

func toClientRequest(req core.CreateCustomerRequest) clientRequest {
	return clientRequest{
		ClientReference: req.ExternalID,
		Kind:            strings.ToUpper(string(req.Type)),
		Role:            strings.ToUpper(string(req.Role)),
		Person:          toPerson(req.Individual),
		Company:         toCompany(req.Business),
		Email:           req.Contact.Email,
		Phone:           req.Contact.Phone,
		Location:        toLocation(req.Contact.Address),
		Tags:            req.Metadata,
	}
}

func toClientPatch(req core.UpdateCustomerRequest) clientRequest {
	patch := clientRequest{
		Person:   toPerson(req.Individual),
		Company:  toCompany(req.Business),
		Location: toLocation(req.Address),
		Tags:     req.Metadata,
	}
	if req.Role != nil {
		patch.Role = strings.ToUpper(string(*req.Role))
	}
	if req.Status != nil {
		patch.State = clientState(*req.Status)
	}
	if req.Email != nil {
		patch.Email = *req.Email
	}
	if req.Phone != nil {
		patch.Phone = *req.Phone
	}
	return patch
}

func clientState(status core.CustomerStatus) string {
	switch status {
	case core.CustomerStatusActive:
		return "ENABLED"
	case core.CustomerStatusSuspended:
		return "PAUSED"
	case core.CustomerStatusBlocked:
		return "BLOCKED"
	case core.CustomerStatusClosed:
		return "OFFBOARDED"
	default:
		return "ONBOARDING"
	}
}

func (r clientResponse) toCore() core.ProviderCustomer {
	out := core.ProviderCustomer{
		ProviderCustomerID: r.ClientID,
		Status:             clientStatuses.Map(r.State),
		BankAccounts:       make([]core.BankAccount, 0, len(r.Accounts)),
		Metadata:           map[string]any{"provider_status": r.State},
	}
	if r.Verification != nil {
		verification := r.Verification.toCore()
		out.Verification = &verification
	}
	for _, account := range r.Accounts {
		out.BankAccounts = append(out.BankAccounts, account.toCore())
	}
	return out
}

func (v verificationBody) toCore() core.VerificationStatusResult {
	out := core.VerificationStatusResult{
		Status:          VerificationStatuses.Map(v.State),
		ProviderStatus:  v.State,
		Level:           tiers.Map(v.Tier.String()),
		RejectionReason: v.Reason,
		SubmittedAt:     providers.ParseTime(v.Submitted),
		CompletedAt:     providers.ParseTime(v.Decided),
		ExpiresAt:       providers.ParseTime(v.ValidUntil),
		Documents:       make([]core.VerificationDocument, 0, len(v.Documents)),
	}
	for _, document := range v.Documents {
		out.Documents = append(out.Documents, document.toCore())
	}
	return out
}

func (v verificationBody) toSession() core.VerificationSession {
	status := VerificationStatuses.Map(v.State)
	if strings.TrimSpace(v.State) == "" {
		status = core.VerificationStatusPending
	}
	return core.VerificationSession{
		SessionID:       v.VerificationID,
		VerificationURL: v.Link,
		Status:          status,
		ExpiresAt:       providers.ParseTime(v.ValidUntil),
	}
}

func (d documentBody) toCore() core.VerificationDocument {
	document := core.VerificationDocument{
		ID:              d.DocumentID,
		Type:            core.DocumentType(strings.ToLower(d.Category)),
		Status:          documentStatuses.Map(d.State),
		FileName:        d.Filename,
		ReviewedAt:      providers.ParseTime(d.Reviewed),
		ExpiresAt:       providers.ParseTime(d.ValidUntil),
		RejectionReason: d.Reason,
	}
	if stored := providers.ParseTime(d.Stored); stored != nil {
		document.UploadedAt = *stored
	}
	return document
}

func (c *charges) toCore() *core.FeeBreakdown {
	if c == nil {
		return nil
	}
	return &core.FeeBreakdown{
		NetworkFee:    float64(c.Gas),
		ProcessingFee: float64(c.Service),
		FXSpread:      float64(c.Spread),
		BankFee:       float64(c.Bank),
		DeveloperFee:  float64(c.Partner),
	}
}

func toCounterparty(party core.PayoutParty) counterparty {
	out := counterparty{
		ClientID: party.CustomerID,
		Kind:     strings.ToUpper(string(party.Type)),
		Name:     party.Name,
		Email:    party.Email,
		Phone:    party.Phone,
		Location: toLocation(party.Address),
	}
	if party.BankAccount != nil {
		account := toAccount(*party.BankAccount)
		out.Account = &account
	}
	return out
}

func (t transferBody) toCore() core.ProviderPayout {
	out := core.ProviderPayout{
		ProviderOrderID:  t.TransferID,
		ProviderQuoteID:  t.RateID,
		Status:           PayoutStatuses.Map(t.State),
		ProviderStatus:   t.State,
		SourceAmount:     float64(t.SellAmount),
		TargetAmount:     float64(t.BuyAmount),
		ExchangeRate:     float64(t.Price),
		Fee:              float64(t.TotalFee),
		FeeBreakdown:     t.Charges.toCore(),
		BlockchainTxHash: t.ChainTx,
		BankReference:    t.BankRef,
		FailureReason:    t.Reason,
		ExternalID:       t.ClientReference,
	}
	if at := providers.ParseTime(t.At); at != nil {
		out.UpdatedAt = *at
	}
	if t.Funding != nil && strings.TrimSpace(t.Funding.Wallet) != "" {
		out.DepositWallet = &core.DepositWallet{
			Address:        t.Funding.Wallet,
			Network:        strings.ToLower(t.Funding.Chain),
			Currency:       strings.ToUpper(t.Funding.Asset),
			ExpectedAmount: float64(t.Funding.Amount),
			ExpiresAt:      providers.ParseTime(t.Funding.ValidUntil),
			Memo:           t.Funding.Tag,
		}
	}
	return out
}

// toUpdate keys the update by the client reference when one was sent with
// the transfer, else by the transfer id.
func (t transferBody) toUpdate(fallbackID string) core.PayoutStatusUpdate {
	orderID := firstNonEmpty(t.TransferID, fallbackID)
	update := core.PayoutStatusUpdate{
		PayoutID:         firstNonEmpty(t.ClientReference, orderID),
		ProviderOrderID:  orderID,
		ProviderID:       ProviderID,
		Status:           PayoutStatuses.Map(t.State),
		ProviderStatus:   t.State,
		BlockchainTxHash: t.ChainTx,
		BankReference:    t.BankRef,
		FailureReason:    t.Reason,
	}
	if at := providers.ParseTime(t.At); at != nil {
		update.Timestamp = *at
	}
	return update
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
