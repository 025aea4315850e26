package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// QuoteComparison is one provider's entry in a quote fan-out.
type QuoteComparison struct {
	ProviderID string
	Success    bool
	Quote      *Quote
	ErrorCode  string
	Message    string
}

func validateQuoteRequest(req QuoteRequest) error {
	if strings.TrimSpace(req.SourceCurrency) == "" {
		return ValidationError("source_currency", "source currency is required")
	}
	if strings.TrimSpace(req.TargetCurrency) == "" {
		return ValidationError("target_currency", "target currency is required")
	}
	if req.SourceAmount <= 0 && req.TargetAmount <= 0 {
		return ValidationError("source_amount", "source or target amount must be positive")
	}
	if req.SourceAmount < 0 || req.TargetAmount < 0 {
		return ValidationError("source_amount", "amounts must not be negative")
	}
	return nil
}

// GetQuote prices a request at one provider: the requested one when set,
// otherwise the best available provider.
func (s *Service) GetQuote(ctx context.Context, req QuoteRequest) (quote Quote, err error) {
	startedAt := s.now()
	fields := req.Criteria().fields()
	defer func() {
		err = s.mapError(err)
		if quote.ProviderID != "" {
			fields["provider_id"] = quote.ProviderID
			fields["quote_id"] = quote.ID
		}
		s.observeOperation(ctx, startedAt, "get_quote", err, fields)
	}()

	if err = validateQuoteRequest(req); err != nil {
		return Quote{}, err
	}

	var provider Provider
	if id := strings.TrimSpace(req.ProviderID); id != "" {
		provider, err = s.selector.Get(id)
		if err != nil {
			return Quote{}, err
		}
		if !provider.Info().Capabilities.Supports(req.Criteria()) {
			return Quote{}, UnsupportedConfigurationError(req.Criteria())
		}
	} else {
		selection, selectErr := s.selector.SelectBest(ctx, "", req.Criteria())
		if selectErr != nil {
			return Quote{}, s.selector.selectionError(selectErr, req.Criteria())
		}
		provider = selection.Provider
	}

	quote, err = s.quoteFrom(ctx, provider, req)
	if err != nil {
		return Quote{}, err
	}
	return quote, nil
}

func (s *Service) quoteFrom(ctx context.Context, provider Provider, req QuoteRequest) (quote Quote, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = ProviderAPIError(provider.ID(), "panic", fmt.Sprint(recovered))
		}
	}()
	req.ProviderID = provider.ID()
	quote, err = provider.CreateQuote(ctx, req)
	if err != nil {
		return Quote{}, providerError(provider.ID(), err)
	}
	quote.ProviderID = provider.ID()
	if quote.ProviderQuoteID == "" {
		quote.ProviderQuoteID = quote.ID
	}
	quote.ID = s.newID()
	if quote.CreatedAt.IsZero() {
		quote.CreatedAt = s.now().UTC()
	}
	if quote.SourceCurrency == "" {
		quote.SourceCurrency = strings.ToUpper(req.SourceCurrency)
	}
	if quote.TargetCurrency == "" {
		quote.TargetCurrency = strings.ToUpper(req.TargetCurrency)
	}
	if quote.Network == "" {
		quote.Network = strings.ToLower(req.Network)
	}
	if err := s.quotes.Save(ctx, quote); err != nil {
		return Quote{}, err
	}
	return quote, nil
}

// CompareQuotes asks every provider supporting the request for a quote in
// parallel. The result has exactly one entry per supporting provider:
// successes first, ranked by highest target amount, then lowest fee, then
// provider id; failures after them by provider id.
func (s *Service) CompareQuotes(ctx context.Context, req QuoteRequest) (results []QuoteComparison, err error) {
	startedAt := s.now()
	fields := req.Criteria().fields()
	defer func() {
		err = s.mapError(err)
		fields["providers"] = len(results)
		s.observeOperation(ctx, startedAt, "compare_quotes", err, fields)
	}()

	if err = validateQuoteRequest(req); err != nil {
		return nil, err
	}
	providers := s.selector.Supporting(req.Criteria())
	if len(providers) == 0 {
		return nil, UnsupportedConfigurationError(req.Criteria())
	}

	fanoutCtx := ctx
	if timeout := s.config.Quotes.FanoutTimeout; timeout > 0 {
		var cancel context.CancelFunc
		fanoutCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	results = make([]QuoteComparison, len(providers))
	var wg sync.WaitGroup
	for idx, provider := range providers {
		wg.Add(1)
		go func(idx int, provider Provider) {
			defer wg.Done()
			entry := QuoteComparison{ProviderID: provider.ID()}
			quote, quoteErr := s.quoteFrom(fanoutCtx, provider, req)
			if quoteErr != nil {
				mapped := errorMapper(quoteErr)
				entry.ErrorCode = mapped.TextCode
				entry.Message = mapped.Message
			} else {
				entry.Success = true
				entry.Quote = &quote
			}
			results[idx] = entry
		}(idx, provider)
	}
	wg.Wait()

	rankQuoteComparisons(results)
	return results, nil
}

func rankQuoteComparisons(results []QuoteComparison) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Success != b.Success {
			return a.Success
		}
		if !a.Success {
			return a.ProviderID < b.ProviderID
		}
		if a.Quote.TargetAmount != b.Quote.TargetAmount {
			return a.Quote.TargetAmount > b.Quote.TargetAmount
		}
		if a.Quote.Fee != b.Quote.Fee {
			return a.Quote.Fee < b.Quote.Fee
		}
		return a.ProviderID < b.ProviderID
	})
}
