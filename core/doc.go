// Package core contains the canonical payout domain: customers, verification,
// quotes and payouts, the provider capability contract every adapter
// implements, the provider registry with its selection algorithm, and the
// orchestration service that keeps canonical records in sync with providers.
//
// Provider adapters depend on this package; core never depends on a concrete
// provider, transport, or storage implementation.
package core
