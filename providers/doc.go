// Package providers contains the shared plumbing of the built-in payout
// provider adapters. Each adapter lives in its own subpackage and only
// translates that provider's wire format into the core contract.
package providers
