package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-payouts/core"
	"github.com/google/uuid"
	amqp091 "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange    = "payouts"
	RoutingKeyPrefix   = "payouts."
	defaultDialTimeout = 10 * time.Second
)

// Channel is the subset of *amqp091.Channel used for publishing.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type Config struct {
	URL         string
	Exchange    string
	DialTimeout time.Duration
}

// Publisher publishes payout lifecycle events as JSON to a durable topic
// exchange. The routing key is payouts.<status>.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  Channel
	exchange string
	declared bool
	logger   glog.Logger
	now      func() time.Time
}

type Option func(*Publisher)

func WithLogger(logger glog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// Dial connects to the broker and opens a publishing channel.
func Dial(cfg Config, opts ...Option) (*Publisher, error) {
	cleanURL, err := sanitizeURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(timeout)})
	if err != nil {
		return nil, fmt.Errorf("amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}
	publisher, err := NewPublisher(ch, cfg.Exchange, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	publisher.conn = conn
	return publisher, nil
}

func NewPublisher(channel Channel, exchange string, opts ...Option) (*Publisher, error) {
	if channel == nil {
		return nil, fmt.Errorf("amqp: channel is required")
	}
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{
		channel:  channel,
		exchange: exchange,
		logger:   glog.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// RoutingKey maps an event to payouts.<status>, falling back to the event
// type when no status is set.
func RoutingKey(event core.PayoutEvent) string {
	status := strings.ToLower(strings.TrimSpace(string(event.Status)))
	if status == "" {
		status = strings.TrimPrefix(strings.ToLower(string(event.Type)), "payout.")
	}
	return RoutingKeyPrefix + status
}

func (p *Publisher) Publish(ctx context.Context, event core.PayoutEvent) error {
	if p == nil || p.channel == nil {
		return fmt.Errorf("amqp: publisher is not configured")
	}
	body, err := json.Marshal(newEventMessage(event))
	if err != nil {
		return fmt.Errorf("amqp: encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.declareExchange(); err != nil {
		return err
	}
	key := RoutingKey(event)
	err = p.channel.PublishWithContext(ctx, p.exchange, key, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    p.now(),
		Type:         string(event.Type),
		Headers: amqp091.Table{
			"payout_id":   event.PayoutID,
			"provider_id": event.ProviderID,
		},
		Body: body,
	})
	if err != nil {
		p.declared = false
		p.logger.Warn("payout event publish failed", "exchange", p.exchange, "routing_key", key, "payout_id", event.PayoutID, "error", err.Error())
		return fmt.Errorf("amqp: publish %s: %w", key, err)
	}
	return nil
}

func (p *Publisher) declareExchange() error {
	if p.declared {
		return nil
	}
	if err := p.channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp: declare exchange %s: %w", p.exchange, err)
	}
	p.declared = true
	return nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type eventMessage struct {
	Type           string     `json:"type"`
	PayoutID       string     `json:"payout_id"`
	ExternalID     string     `json:"external_id,omitempty"`
	ProviderID     string     `json:"provider_id"`
	PreviousStatus string     `json:"previous_status,omitempty"`
	Status         string     `json:"status"`
	OccurredAt     time.Time  `json:"occurred_at"`
	Payout         payoutBody `json:"payout"`
}

type payoutBody struct {
	ProviderOrderID  string  `json:"provider_order_id,omitempty"`
	SourceCurrency   string  `json:"source_currency"`
	SourceAmount     float64 `json:"source_amount"`
	TargetCurrency   string  `json:"target_currency"`
	TargetAmount     float64 `json:"target_amount"`
	Fee              float64 `json:"fee"`
	Network          string  `json:"network,omitempty"`
	SenderID         string  `json:"sender_id,omitempty"`
	BeneficiaryID    string  `json:"beneficiary_id,omitempty"`
	BlockchainTxHash string  `json:"blockchain_tx_hash,omitempty"`
	BankReference    string  `json:"bank_reference,omitempty"`
	FailureReason    string  `json:"failure_reason,omitempty"`
	Reference        string  `json:"reference,omitempty"`
}

func newEventMessage(event core.PayoutEvent) eventMessage {
	payout := event.Payout
	return eventMessage{
		Type:           string(event.Type),
		PayoutID:       event.PayoutID,
		ExternalID:     event.ExternalID,
		ProviderID:     event.ProviderID,
		PreviousStatus: string(event.PreviousStatus),
		Status:         string(event.Status),
		OccurredAt:     event.OccurredAt,
		Payout: payoutBody{
			ProviderOrderID:  payout.ProviderOrderID,
			SourceCurrency:   payout.SourceCurrency,
			SourceAmount:     payout.SourceAmount,
			TargetCurrency:   payout.TargetCurrency,
			TargetAmount:     payout.TargetAmount,
			Fee:              payout.Fee,
			Network:          payout.Network,
			SenderID:         payout.Sender.CustomerID,
			BeneficiaryID:    payout.Beneficiary.CustomerID,
			BlockchainTxHash: payout.BlockchainTxHash,
			BankReference:    payout.BankReference,
			FailureReason:    payout.FailureReason,
			Reference:        payout.Reference,
		},
	}
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if clean == "" {
		return "", fmt.Errorf("amqp: url is required")
	}
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("amqp: parse url: %w", err)
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", fmt.Errorf("amqp: url scheme must be amqp or amqps")
	}
	return clean, nil
}

var (
	_ core.EventPublisher = (*Publisher)(nil)
	_ Channel             = (*amqp091.Channel)(nil)
)
