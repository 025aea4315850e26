package rampa

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-payouts/core"
)

// ParseWebhook decodes an order event. The signature is checked separately
// by ValidateWebhookSignature over the same raw bytes.
func (p *Provider) ParseWebhook(payload []byte) (core.PayoutStatusUpdate, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return core.PayoutStatusUpdate{}, core.WebhookPayloadError(ProviderID, err)
	}
	if event := strings.TrimSpace(envelope.Event); event != "" && !strings.HasPrefix(event, "order.") {
		return core.PayoutStatusUpdate{}, core.WebhookPayloadError(ProviderID, fmt.Errorf("unsupported event %q", event))
	}
	if strings.TrimSpace(envelope.Data.OrderID) == "" && strings.TrimSpace(envelope.Data.ExternalReference) == "" {
		return core.PayoutStatusUpdate{}, core.WebhookPayloadError(ProviderID, fmt.Errorf("event has no order reference"))
	}
	update := envelope.Data.toUpdate(ProviderID, "")
	if update.Timestamp.IsZero() {
		update.Timestamp = p.Now()
	}
	return update, nil
}
