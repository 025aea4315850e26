package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gocmd "github.com/goliatone/go-command"
	glog "github.com/goliatone/go-logger/glog"
	payouts "github.com/goliatone/go-payouts"
	payoutscommand "github.com/goliatone/go-payouts/command"
	"github.com/goliatone/go-payouts/core"
	payoutsquery "github.com/goliatone/go-payouts/query"
	"github.com/goliatone/go-payouts/webhooks"
)

const defaultRequestTimeout = 60 * time.Second

// Handlers exposes the payout facade over HTTP. Request bodies decode into
// the core request types; responses use the core.Result envelope.
type Handlers struct {
	facade    *payouts.Facade
	processor *webhooks.Processor
	logger    glog.Logger
	timeout   time.Duration
}

type Option func(*Handlers)

func WithLogger(logger glog.Logger) Option {
	return func(h *Handlers) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(h *Handlers) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

func NewHandlers(facade *payouts.Facade, processor *webhooks.Processor, opts ...Option) (*Handlers, error) {
	if facade == nil {
		return nil, fmt.Errorf("httpapi: payouts facade is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("httpapi: webhook processor is required")
	}
	h := &Handlers{
		facade:    facade,
		processor: processor,
		logger:    glog.Nop(),
		timeout:   defaultRequestTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Timeout(h.timeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhooks/{provider}", h.ReceiveWebhook)

	r.Route("/providers", func(r chi.Router) {
		r.Get("/", h.ListProviders)
		r.Get("/health", h.CheckAllProviders)
		r.Get("/search", h.SearchProviders)
		r.Get("/{provider}", h.GetProvider)
		r.Get("/{provider}/health", h.CheckProviderHealth)
	})

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.CreateCustomer)
		r.Get("/", h.ListCustomers)
		r.Get("/{id}", h.GetCustomer)
		r.Patch("/{id}", h.UpdateCustomer)
		r.Post("/{id}/bank-accounts", h.AddBankAccount)
		r.Post("/{id}/kyc", h.InitiateKYC)
		r.Post("/{id}/kyb", h.InitiateKYB)
		r.Get("/{id}/verification", h.GetVerificationStatus)
		r.Get("/{id}/documents", h.ListDocuments)
		r.Post("/{id}/documents", h.UploadDocument)
		r.Post("/{id}/verification/submit", h.SubmitVerification)
	})

	r.Route("/payouts", func(r chi.Router) {
		r.Post("/", h.CreatePayout)
		r.Get("/", h.GetPayoutHistory)
		r.Get("/{id}", h.GetPayout)
		r.Get("/{id}/status", h.RefreshPayoutStatus)
		r.Get("/{id}/deposit-wallet", h.GetDepositWallet)
		r.Post("/{id}/cancel", h.CancelPayout)
	})

	r.Post("/quotes", h.GetQuote)
	r.Post("/quotes/compare", h.CompareQuotes)

	return r
}

func (h *Handlers) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "provider")
	inbound, err := h.processor.FromHTTP(providerID, r)
	if err != nil {
		writeResult(w, core.ResultOf(webhooks.InboundResult{}, err), http.StatusOK)
		return
	}
	result, err := h.processor.Process(r.Context(), inbound)
	if err != nil {
		h.logger.Warn("webhook rejected", "provider_id", providerID, "error", err.Error())
	}
	writeResult(w, core.ResultOf(result, err), http.StatusOK)
}

func (h *Handlers) ListProviders(w http.ResponseWriter, r *http.Request) {
	out, err := h.facade.Queries().ListProviders.Query(r.Context(), payoutsquery.ListProvidersMessage{})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

// SearchProviders lists the providers supporting the source, target, network
// and country query parameters. Empty parameters match any provider.
func (h *Handlers) SearchProviders(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	amount, err := floatParam("amount", values.Get("amount"))
	if err != nil {
		writeResult(w, core.ResultOf([]core.ProviderInfo(nil), err), http.StatusOK)
		return
	}
	out, err := h.facade.Queries().SearchProviders.Query(r.Context(), payoutsquery.SearchProvidersMessage{
		Criteria: core.SupportCriteria{
			SourceCurrency:     values.Get("source"),
			TargetCurrency:     values.Get("target"),
			Network:            values.Get("network"),
			DestinationCountry: values.Get("country"),
			SourceAmount:       amount,
		},
	})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) GetProvider(w http.ResponseWriter, r *http.Request) {
	out, err := h.facade.Queries().GetProvider.Query(r.Context(), payoutsquery.GetProviderMessage{
		ProviderID: chi.URLParam(r, "provider"),
	})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) CheckProviderHealth(w http.ResponseWriter, r *http.Request) {
	out, err := h.facade.Queries().CheckProviderHealth.Query(r.Context(), payoutsquery.CheckProviderHealthMessage{
		ProviderID: chi.URLParam(r, "provider"),
	})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) CheckAllProviders(w http.ResponseWriter, r *http.Request) {
	out, err := h.facade.Queries().CheckAllProviders.Query(r.Context(), payoutsquery.CheckAllProvidersMessage{})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req core.CreateCustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := execute[payoutscommand.CreateCustomerMessage, core.Customer](
		r.Context(), h.facade.Commands().CreateCustomer, payoutscommand.CreateCustomerMessage{Request: req},
	)
	writeResult(w, core.ResultOf(out, err), http.StatusCreated)
}

func (h *Handlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	page, perPage, err := pageParams(values.Get("page"), values.Get("per_page"))
	if err != nil {
		writeResult(w, core.ResultOf(core.CustomerPage{}, err), http.StatusOK)
		return
	}
	out, err := h.facade.Queries().ListCustomers.Query(r.Context(), payoutsquery.ListCustomersMessage{
		Filter: core.CustomerFilter{
			Type:    core.CustomerType(values.Get("type")),
			Role:    core.CustomerRole(values.Get("role")),
			Status:  core.CustomerStatus(values.Get("status")),
			Page:    page,
			PerPage: perPage,
		},
	})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	out, err := h.facade.Queries().GetCustomer.Query(r.Context(), payoutsquery.GetCustomerMessage{
		CustomerID: chi.URLParam(r, "id"),
	})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req core.UpdateCustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := execute[payoutscommand.UpdateCustomerMessage, core.Customer](
		r.Context(), h.facade.Commands().UpdateCustomer,
		payoutscommand.UpdateCustomerMessage{CustomerID: chi.URLParam(r, "id"), Request: req},
	)
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) AddBankAccount(w http.ResponseWriter, r *http.Request) {
	var account core.BankAccount
	if !decodeBody(w, r, &account) {
		return
	}
	out, err := execute[payoutscommand.AddBankAccountMessage, core.BankAccount](
		r.Context(), h.facade.Commands().AddBankAccount,
		payoutscommand.AddBankAccountMessage{
			CustomerID: chi.URLParam(r, "id"),
			Request:    core.AddBankAccountRequest{Account: account},
		},
	)
	writeResult(w, core.ResultOf(out, err), http.StatusCreated)
}

func (h *Handlers) InitiateKYC(w http.ResponseWriter, r *http.Request) {
	var req core.InitiateVerificationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := execute[payoutscommand.InitiateKYCMessage, core.VerificationSession](
		r.Context(), h.facade.Commands().InitiateKYC,
		payoutscommand.InitiateKYCMessage{CustomerID: chi.URLParam(r, "id"), Request: req},
	)
	writeResult(w, core.ResultOf(out, err), http.StatusCreated)
}

func (h *Handlers) InitiateKYB(w http.ResponseWriter, r *http.Request) {
	var req core.InitiateVerificationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := execute[payoutscommand.InitiateKYBMessage, core.VerificationSession](
		r.Context(), h.facade.Commands().InitiateKYB,
		payoutscommand.InitiateKYBMessage{CustomerID: chi.URLParam(r, "id"), Request: req},
	)
	writeResult(w, core.ResultOf(out, err), http.StatusCreated)
}

// GetVerificationStatus reads KYB when ?kind=kyb, KYC otherwise.
func (h *Handlers) GetVerificationStatus(w http.ResponseWriter, r *http.Request) {
	out, err := h.facade.Queries().GetVerificationStatus.Query(r.Context(), payoutsquery.GetVerificationStatusMessage{
		CustomerID: chi.URLParam(r, "id"),
		Business:   strings.EqualFold(r.URL.Query().Get("kind"), "kyb"),
	})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	out, err := h.facade.Queries().ListDocuments.Query(r.Context(), payoutsquery.ListDocumentsMessage{
		CustomerID: chi.URLParam(r, "id"),
	})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) UploadDocument(w http.ResponseWriter, r *http.Request) {
	var req core.UploadDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := execute[payoutscommand.UploadDocumentMessage, core.VerificationDocument](
		r.Context(), h.facade.Commands().UploadDocument,
		payoutscommand.UploadDocumentMessage{CustomerID: chi.URLParam(r, "id"), Request: req},
	)
	writeResult(w, core.ResultOf(out, err), http.StatusCreated)
}

func (h *Handlers) SubmitVerification(w http.ResponseWriter, r *http.Request) {
	var req core.SubmitVerificationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := execute[payoutscommand.SubmitVerificationMessage, core.VerificationInfo](
		r.Context(), h.facade.Commands().SubmitVerification,
		payoutscommand.SubmitVerificationMessage{CustomerID: chi.URLParam(r, "id"), Request: req},
	)
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) CreatePayout(w http.ResponseWriter, r *http.Request) {
	var req core.CreatePayoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := execute[payoutscommand.CreatePayoutMessage, core.Payout](
		r.Context(), h.facade.Commands().CreatePayout, payoutscommand.CreatePayoutMessage{Request: req},
	)
	writeResult(w, core.ResultOf(out, err), http.StatusCreated)
}

func (h *Handlers) GetPayoutHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := historyFilter(r)
	if err != nil {
		writeResult(w, core.ResultOf(core.PayoutPage{}, err), http.StatusOK)
		return
	}
	out, err := h.facade.Queries().GetPayoutHistory.Query(r.Context(), payoutsquery.GetPayoutHistoryMessage{Filter: filter})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) GetPayout(w http.ResponseWriter, r *http.Request) {
	out, err := h.facade.Queries().GetPayout.Query(r.Context(), payoutsquery.GetPayoutMessage{
		PayoutID: chi.URLParam(r, "id"),
	})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) RefreshPayoutStatus(w http.ResponseWriter, r *http.Request) {
	out, err := execute[payoutscommand.RefreshPayoutStatusMessage, core.Payout](
		r.Context(), h.facade.Commands().RefreshPayoutStatus,
		payoutscommand.RefreshPayoutStatusMessage{PayoutID: chi.URLParam(r, "id")},
	)
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) GetDepositWallet(w http.ResponseWriter, r *http.Request) {
	out, err := h.facade.Queries().GetDepositWallet.Query(r.Context(), payoutsquery.GetDepositWalletMessage{
		PayoutID: chi.URLParam(r, "id"),
	})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) CancelPayout(w http.ResponseWriter, r *http.Request) {
	out, err := execute[payoutscommand.CancelPayoutMessage, core.Payout](
		r.Context(), h.facade.Commands().CancelPayout,
		payoutscommand.CancelPayoutMessage{PayoutID: chi.URLParam(r, "id")},
	)
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) GetQuote(w http.ResponseWriter, r *http.Request) {
	var req core.QuoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := h.facade.Queries().GetQuote.Query(r.Context(), payoutsquery.GetQuoteMessage{Request: req})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

func (h *Handlers) CompareQuotes(w http.ResponseWriter, r *http.Request) {
	var req core.QuoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := h.facade.Queries().CompareQuotes.Query(r.Context(), payoutsquery.CompareQuotesMessage{Request: req})
	writeResult(w, core.ResultOf(out, err), http.StatusOK)
}

// execute runs cmd and returns the value it stored in the result collector.
func execute[M any, T any](ctx context.Context, cmd gocmd.Commander[M], msg M) (T, error) {
	var zero T
	collector := gocmd.NewResult[T]()
	if err := cmd.Execute(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		return zero, err
	}
	out, ok := collector.Load()
	if !ok {
		return zero, fmt.Errorf("httpapi: command produced no result")
	}
	return out, nil
}

func historyFilter(r *http.Request) (core.PayoutHistoryFilter, error) {
	values := r.URL.Query()
	page, perPage, err := pageParams(values.Get("page"), values.Get("per_page"))
	if err != nil {
		return core.PayoutHistoryFilter{}, err
	}
	filter := core.PayoutHistoryFilter{
		ExternalID:    values.Get("external_id"),
		SenderID:      values.Get("sender_id"),
		BeneficiaryID: values.Get("beneficiary_id"),
		ProviderID:    values.Get("provider_id"),
		Status:        core.PayoutStatus(values.Get("status")),
		Page:          page,
		PerPage:       perPage,
	}
	if filter.From, err = timeParam("from", values.Get("from")); err != nil {
		return core.PayoutHistoryFilter{}, err
	}
	if filter.To, err = timeParam("to", values.Get("to")); err != nil {
		return core.PayoutHistoryFilter{}, err
	}
	return filter, nil
}

func pageParams(rawPage string, rawPerPage string) (int, int, error) {
	page, err := intParam("page", rawPage)
	if err != nil {
		return 0, 0, err
	}
	perPage, err := intParam("per_page", rawPerPage)
	if err != nil {
		return 0, 0, err
	}
	return page, perPage, nil
}

func intParam(field string, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.ValidationError(field, "must be an integer")
	}
	return value, nil
}

func floatParam(field string, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, core.ValidationError(field, "must be a number")
	}
	return value, nil
}

func timeParam(field string, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, core.ValidationError(field, "must be an RFC3339 timestamp")
	}
	return &value, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(out); err != nil {
		writeResult(w, core.ResultOf(struct{}{}, core.ValidationError("body", "invalid JSON body")), http.StatusOK)
		return false
	}
	return true
}

func writeResult[T any](w http.ResponseWriter, result core.Result[T], successStatus int) {
	status := result.HTTPStatus
	if result.Success {
		status = successStatus
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestLogger(logger glog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startedAt := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(startedAt).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
