package gocommand

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
)

// MessageNamespace prefixes every message type the bus accepts.
const MessageNamespace = "payouts."

// ValidateMessageContract checks the message Type() namespace and runs its
// optional Validate().
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	return checkNamespace(m.Type())
}

func checkNamespace(messageType string) error {
	messageType = strings.TrimSpace(messageType)
	if messageType == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	if !strings.HasPrefix(messageType, MessageNamespace) {
		return fmt.Errorf("gocommand: message type %q is outside the %q namespace", messageType, MessageNamespace)
	}
	return nil
}

// messageTypeOf reads the message type from the zero value of T.
func messageTypeOf[T any]() (string, error) {
	var zero T
	m, ok := any(zero).(command.Message)
	if !ok {
		return "", fmt.Errorf("gocommand: %T must implement Type() string", zero)
	}
	return m.Type(), checkNamespace(m.Type())
}

// Bus registers payout handlers on a go-command registry and keeps their
// dispatcher subscriptions until Close.
type Bus struct {
	mu            sync.Mutex
	registry      *command.Registry
	runnerOpts    []runner.Option
	subscriptions []commanddispatcher.Subscription
}

func NewBus(registry *command.Registry, runnerOpts ...runner.Option) *Bus {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &Bus{registry: registry, runnerOpts: runnerOpts}
}

func (b *Bus) Registry() *command.Registry {
	if b == nil {
		return nil
	}
	return b.registry
}

// Initialize freezes the registry. Handlers cannot be added afterwards.
func (b *Bus) Initialize() error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return b.registry.Initialize()
}

// Len reports the number of live subscriptions.
func (b *Bus) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscriptions)
}

// Close unsubscribes every handler mounted on the bus.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	subscriptions := b.subscriptions
	b.subscriptions = nil
	b.mu.Unlock()
	unsubscribe(subscriptions)
}

func (b *Bus) keep(subscriptions []commanddispatcher.Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = append(b.subscriptions, subscriptions...)
}

func unsubscribe(subscriptions []commanddispatcher.Subscription) {
	for _, subscription := range subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

func mountCommand[T any](b *Bus, cmd command.Commander[T]) (commanddispatcher.Subscription, error) {
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	if _, err := messageTypeOf[T](); err != nil {
		return nil, err
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, b.runnerOpts...)
	if err := b.registry.RegisterCommand(cmd); err != nil {
		unsubscribe([]commanddispatcher.Subscription{subscription})
		return nil, err
	}
	return subscription, nil
}

func mountQuery[T any, R any](b *Bus, qry command.Querier[T, R]) (commanddispatcher.Subscription, error) {
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	if _, err := messageTypeOf[T](); err != nil {
		return nil, err
	}
	subscription := commanddispatcher.SubscribeQuery(qry, b.runnerOpts...)
	if err := b.registry.RegisterCommand(qry); err != nil {
		unsubscribe([]commanddispatcher.Subscription{subscription})
		return nil, err
	}
	return subscription, nil
}

// Dispatch sends a payout command to its subscribed handlers.
func Dispatch[T any](ctx context.Context, msg T) error {
	if err := ValidateMessageContract(msg); err != nil {
		return err
	}
	return commanddispatcher.Dispatch(ctx, msg)
}

// Query runs the single subscribed handler for a payout query.
func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	if err := ValidateMessageContract(msg); err != nil {
		var zero R
		return zero, err
	}
	return commanddispatcher.Query[T, R](ctx, msg)
}
