package corridor

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-payouts/core"
	"github.com/goliatone/go-payouts/providers/devkit"
	"github.com/goliatone/go-payouts/webhooks"
)

var fixedNow = time.Date(2026, 4, 10, 8, 30, 0, 0, time.UTC)

func newTestProvider(t *testing.T, scripts ...devkit.HTTPScript) (*Provider, *devkit.FakeHTTPDoer) {
	t.Helper()
	doer := devkit.NewFakeHTTPDoer(scripts...)
	provider, err := New(Config{
		APIKey:        "key-1",
		WebhookSecret: "corridor-secret",
		HTTPClient:    doer,
		Now:           func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return provider, doer
}

func decodeBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return out
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected missing api key to fail")
	}
}

func TestProvider_Conformance(t *testing.T) {
	provider, _ := newTestProvider(t)
	if err := devkit.ValidateDescriptorConformance(provider); err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	if err := devkit.ValidatePayoutStatusTable(PayoutStatuses); err != nil {
		t.Fatalf("payout statuses: %v", err)
	}
	if err := devkit.ValidateVerificationStatusTable(VerificationStatuses); err != nil {
		t.Fatalf("verification statuses: %v", err)
	}
	payload := []byte(`{"type":"transfer.status","transfer":{"id":"tr_1","client_reference":"po-1","state":"SENT","at":"2026-04-10T08:00:00Z"}}`)
	signature := SignaturePrefix + webhooks.HMACSignature("corridor-secret", payload)
	if err := devkit.ValidateWebhookConformance(provider, payload, signature); err != nil {
		t.Fatalf("webhook: %v", err)
	}
}

func TestProvider_SignatureAcceptsPrefixedAndBareHex(t *testing.T) {
	provider, _ := newTestProvider(t)
	payload := []byte(`{"type":"transfer.status"}`)
	digest := webhooks.HMACSignature("corridor-secret", payload)
	for _, signature := range []string{SignaturePrefix + digest, "SHA256=" + digest, digest} {
		if !provider.ValidateWebhookSignature(payload, signature) {
			t.Fatalf("expected signature %q to verify", signature)
		}
	}
	if provider.ValidateWebhookSignature(payload, SignaturePrefix+webhooks.HMACSignature("other", payload)) {
		t.Fatalf("expected foreign secret to fail")
	}
}

func TestProvider_SendsAPIKeyAndDecimalStrings(t *testing.T) {
	provider, doer := newTestProvider(t, devkit.HTTPScript{Body: `{
		"rate_id":"rt_1","sell":"USDC","buy":"EUR","sell_amount":"250.00","buy_amount":"229.75",
		"price":"0.925","total_fee":"1.5","charges":{"gas":"0.5","service":"1"},
		"chain":"BASE","valid_until":"2026-04-10T08:45:00Z"
	}`})

	req := devkit.QuoteRequest()
	req.SourceAmount = 250
	req.Network = "base"
	quote, err := provider.CreateQuote(context.Background(), req)
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	if quote.ProviderQuoteID != "rt_1" || quote.SourceAmount != 250 || quote.TargetAmount != 229.75 || quote.ExchangeRate != 0.925 {
		t.Fatalf("unexpected quote %+v", quote)
	}
	if quote.FeeBreakdown == nil || quote.FeeBreakdown.Total() != 1.5 {
		t.Fatalf("unexpected fee breakdown %+v", quote.FeeBreakdown)
	}
	if quote.Network != "base" || !quote.CreatedAt.Equal(fixedNow) || quote.ExpiresAt.IsZero() {
		t.Fatalf("unexpected quote metadata %+v", quote)
	}

	sent, ok := doer.LastRequest(http.MethodPost, "/v2/rates")
	if !ok {
		t.Fatalf("expected rates request, got %+v", doer.Requests())
	}
	if sent.Headers.Get(APIKeyHeader) != "key-1" {
		t.Fatalf("expected api key header, got %v", sent.Headers)
	}
	body := decodeBody(t, sent.Body)
	if body["sell_amount"] != "250" || body["sell"] != "USDC" || body["destination_country"] != "ES" {
		t.Fatalf("unexpected rate body %v", body)
	}
	if _, present := body["buy_amount"]; present {
		t.Fatalf("expected zero buy amount to be omitted, got %v", body)
	}
}

func TestProvider_CreatePayoutAndFunding(t *testing.T) {
	provider, doer := newTestProvider(t, devkit.HTTPScript{StatusCode: http.StatusCreated, Body: `{
		"id":"tr_9","client_reference":"po-9","state":"AWAITING_FUNDS",
		"sell_amount":"100","buy_amount":"92","price":"0.92","total_fee":"0",
		"funding":{"wallet":"GABC","chain":"STELLAR","asset":"usdc","amount":"100","tag":"88123","valid_until":"2026-04-10T09:30:00Z"}
	}`})

	req := devkit.PayoutRequest("cli_sender", "cli_benef")
	req.ExternalID = "po-9"
	req.Network = "stellar"
	payout, err := provider.CreatePayout(context.Background(), req)
	if err != nil {
		t.Fatalf("create payout: %v", err)
	}
	if payout.ProviderOrderID != "tr_9" || payout.Status != core.PayoutStatusAwaitingFunds || payout.ExternalID != "po-9" {
		t.Fatalf("unexpected payout %+v", payout)
	}
	wallet := payout.DepositWallet
	if wallet == nil || wallet.Memo != "88123" || wallet.Network != "stellar" || wallet.Currency != "USDC" {
		t.Fatalf("unexpected funding instructions %+v", wallet)
	}

	sent, _ := doer.LastRequest(http.MethodPost, "/v2/transfers")
	body := decodeBody(t, sent.Body)
	recipient, _ := body["recipient"].(map[string]any)
	account, _ := recipient["account"].(map[string]any)
	if recipient["kind"] != "INDIVIDUAL" || account["swift"] != "CAIXESBBXXX" || body["memo"] != "INV-1001" {
		t.Fatalf("unexpected transfer body %v", body)
	}
}

func TestProvider_CancelUsesDelete(t *testing.T) {
	provider, doer := newTestProvider(t, devkit.HTTPScript{StatusCode: http.StatusNoContent})
	if err := provider.CancelPayout(context.Background(), "tr_1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, ok := doer.LastRequest(http.MethodDelete, "/v2/transfers/tr_1"); !ok {
		t.Fatalf("expected DELETE on the transfer, got %+v", doer.Requests())
	}
}

func TestProvider_ErrorEnvelopeIsKeptVerbatim(t *testing.T) {
	provider, _ := newTestProvider(t, devkit.HTTPScript{
		StatusCode: http.StatusConflict,
		Body:       `{"errors":[{"code":"TRANSFER_LOCKED","detail":"funds already received"}]}`,
	})
	err := provider.CancelPayout(context.Background(), "tr_1")
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.ErrorProviderAPI {
		t.Fatalf("expected provider api error, got %v", err)
	}
	if rich.Metadata["provider_code"] != "TRANSFER_LOCKED" || rich.Metadata["provider_message"] != "funds already received" {
		t.Fatalf("unexpected metadata %v", rich.Metadata)
	}
}

func TestProvider_RejectedKeyIsAuthenticationError(t *testing.T) {
	provider, _ := newTestProvider(t, devkit.HTTPScript{StatusCode: http.StatusUnauthorized, Body: `{"errors":[{"code":"BAD_KEY"}]}`})
	if _, err := provider.GetPayout(context.Background(), "tr_1"); !core.HasTextCode(err, core.ErrorAuthenticationFailed) {
		t.Fatalf("expected authentication error, got %v", err)
	}
}

func TestProvider_ThrottlesBucketAfter429(t *testing.T) {
	provider, doer := newTestProvider(t,
		devkit.HTTPScript{StatusCode: http.StatusTooManyRequests, Headers: map[string]string{"Retry-After": "30"}},
		devkit.HTTPScript{StatusCode: http.StatusOK, Body: `{"id":"tr_1","state":"SENT"}`},
	)
	if _, err := provider.GetPayout(context.Background(), "tr_1"); !core.HasTextCode(err, core.ErrorProviderAPI) {
		t.Fatalf("expected provider api error for the 429, got %v", err)
	}
	if _, err := provider.GetPayout(context.Background(), "tr_1"); !core.HasTextCode(err, core.ErrorRateLimited) {
		t.Fatalf("expected local throttle, got %v", err)
	}
	if got := len(doer.Requests()); got != 1 {
		t.Fatalf("expected throttled call to stay local, requests=%d", got)
	}
	if err := provider.CancelPayout(context.Background(), "other"); err == nil {
		t.Fatalf("expected transfers bucket to stay throttled")
	}
}

func TestProvider_VerificationMapping(t *testing.T) {
	provider, doer := newTestProvider(t,
		devkit.HTTPScript{Body: `{"verification_id":"ver_1","link":"https://kyc.corridor.example/ver_1","state":"OPEN"}`},
		devkit.HTTPScript{Body: `{"verification_id":"ver_1","state":"PASSED","tier":2,"decided":"2026-04-10T08:00:00Z","documents":[{"document_id":"d1","category":"PASSPORT","state":"VALID"}]}`},
	)
	ctx := context.Background()

	session, err := provider.InitiateKYC(ctx, "cli_1", core.InitiateVerificationRequest{TargetLevel: core.VerificationLevelStandard})
	if err != nil {
		t.Fatalf("initiate kyc: %v", err)
	}
	if session.SessionID != "ver_1" || session.Status != core.VerificationStatusPending {
		t.Fatalf("unexpected session %+v", session)
	}
	opened, _ := doer.LastRequest(http.MethodPost, "/v2/clients/cli_1/verifications")
	body := decodeBody(t, opened.Body)
	if body["kind"] != "INDIVIDUAL" || body["tier"] != float64(2) {
		t.Fatalf("unexpected verification body %v", body)
	}

	result, err := provider.GetVerificationStatus(ctx, "cli_1")
	if err != nil {
		t.Fatalf("verification status: %v", err)
	}
	if result.Status != core.VerificationStatusApproved || result.Level != core.VerificationLevelStandard || result.CompletedAt == nil {
		t.Fatalf("unexpected verification %+v", result)
	}
	if len(result.Documents) != 1 || result.Documents[0].Type != core.DocumentTypePassport || result.Documents[0].Status != core.DocumentStatusVerified {
		t.Fatalf("unexpected documents %+v", result.Documents)
	}
}

func TestProvider_ListUsesLimitParameter(t *testing.T) {
	provider, doer := newTestProvider(t, devkit.HTTPScript{Body: `{"items":[{"id":"tr_1","state":"COMPLETE"},{"id":"tr_2","state":"SOMETHING_NEW"}]}`})
	payouts, err := provider.ListPayouts(context.Background(), 2, 50)
	if err != nil {
		t.Fatalf("list payouts: %v", err)
	}
	if len(payouts) != 2 || payouts[0].Status != core.PayoutStatusCompleted || payouts[1].Status != core.PayoutStatusProcessing {
		t.Fatalf("unexpected payouts %+v", payouts)
	}
	sent, _ := doer.LastRequest(http.MethodGet, "/v2/transfers")
	if sent.Query != "limit=50&page=2" {
		t.Fatalf("unexpected query %q", sent.Query)
	}
}

func TestProvider_ParseWebhook(t *testing.T) {
	provider, _ := newTestProvider(t)
	update, err := provider.ParseWebhook([]byte(`{"type":"transfer.status","transfer":{"id":"tr_3","state":"FAILED","reason":"beneficiary account closed"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if update.PayoutID != "tr_3" || update.Status != core.PayoutStatusFailed || update.FailureReason != "beneficiary account closed" {
		t.Fatalf("unexpected update %+v", update)
	}
	if !update.Timestamp.Equal(fixedNow) {
		t.Fatalf("expected clock timestamp, got %s", update.Timestamp)
	}
	for name, payload := range map[string]string{
		"other event": `{"type":"client.updated","transfer":{"id":"tr_3","state":"FAILED"}}`,
		"no state":    `{"type":"transfer.status","transfer":{"id":"tr_3"}}`,
		"no id":       `{"type":"transfer.status","transfer":{"state":"SENT"}}`,
	} {
		if _, err := provider.ParseWebhook([]byte(payload)); !core.HasTextCode(err, core.ErrorWebhookPayloadInvalid) {
			t.Fatalf("%s: expected payload error, got %v", name, err)
		}
	}
}
