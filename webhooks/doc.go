// Package webhooks verifies provider webhook signatures and hands inbound
// deliveries to the payout service.
//
// Deliveries are not deduplicated: a redelivered event is applied again and
// the status merge keeps the result stable.
package webhooks
