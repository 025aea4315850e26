package core

import (
	"strings"
)

const (
	FeatureKYC          = "kyc"
	FeatureKYB          = "kyb"
	FeatureQuotes       = "quotes"
	FeatureCancellation = "cancellation"
	FeatureWebhooks     = "webhooks"
)

// Capabilities is the static support matrix of a provider. An empty country
// list means every destination country is accepted.
type Capabilities struct {
	Stablecoins     []string
	FiatCurrencies  []string
	Networks        []string
	Countries       []string
	Features        []string
	MinSourceAmount float64
	MaxSourceAmount float64
}

func (c Capabilities) Supports(criteria SupportCriteria) bool {
	criteria = criteria.normalized()
	if criteria.SourceCurrency != "" && !containsFold(c.Stablecoins, criteria.SourceCurrency) {
		return false
	}
	if criteria.TargetCurrency != "" && !containsFold(c.FiatCurrencies, criteria.TargetCurrency) {
		return false
	}
	if criteria.Network != "" && !containsFold(c.Networks, criteria.Network) {
		return false
	}
	if criteria.DestinationCountry != "" && len(c.Countries) > 0 && !containsFold(c.Countries, criteria.DestinationCountry) {
		return false
	}
	return c.AcceptsAmount(criteria.SourceAmount)
}

// AcceptsAmount checks amount against MinSourceAmount and MaxSourceAmount.
// Zero limits and a non-positive amount are not checked.
func (c Capabilities) AcceptsAmount(amount float64) bool {
	if amount <= 0 {
		return true
	}
	if c.MinSourceAmount > 0 && amount < c.MinSourceAmount {
		return false
	}
	if c.MaxSourceAmount > 0 && amount > c.MaxSourceAmount {
		return false
	}
	return true
}

func (c Capabilities) HasFeature(feature string) bool {
	return containsFold(c.Features, feature)
}

func (c Capabilities) Clone() Capabilities {
	out := c
	out.Stablecoins = append([]string(nil), c.Stablecoins...)
	out.FiatCurrencies = append([]string(nil), c.FiatCurrencies...)
	out.Networks = append([]string(nil), c.Networks...)
	out.Countries = append([]string(nil), c.Countries...)
	out.Features = append([]string(nil), c.Features...)
	return out
}

func containsFold(values []string, target string) bool {
	target = strings.TrimSpace(target)
	for _, value := range values {
		if strings.EqualFold(strings.TrimSpace(value), target) {
			return true
		}
	}
	return false
}
