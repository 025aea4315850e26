package corridor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-payouts/core"
)

const transferStatusEvent = "transfer.status"

func (p *Provider) ParseWebhook(payload []byte) (core.PayoutStatusUpdate, error) {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return core.PayoutStatusUpdate{}, core.WebhookPayloadError(ProviderID, err)
	}
	if !strings.EqualFold(strings.TrimSpace(event.Type), transferStatusEvent) {
		return core.PayoutStatusUpdate{}, core.WebhookPayloadError(ProviderID, fmt.Errorf("unsupported event type %q", event.Type))
	}
	if strings.TrimSpace(event.Transfer.TransferID) == "" && strings.TrimSpace(event.Transfer.ClientReference) == "" {
		return core.PayoutStatusUpdate{}, core.WebhookPayloadError(ProviderID, fmt.Errorf("transfer has no id"))
	}
	if strings.TrimSpace(event.Transfer.State) == "" {
		return core.PayoutStatusUpdate{}, core.WebhookPayloadError(ProviderID, fmt.Errorf("transfer has no state"))
	}
	update := event.Transfer.toUpdate("")
	if update.Timestamp.IsZero() {
		update.Timestamp = p.Now()
	}
	return update, nil
}
