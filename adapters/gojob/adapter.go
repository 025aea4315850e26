package gojob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/idempotency"
	"github.com/goliatone/go-payouts/core"
)

const (
	JobIDStatusRefresh = core.JobIDPayoutStatusRefresh

	defaultDedupTTL = 24 * time.Hour
)

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
// Once attempt reaches MaxAttempts the message is never requeued.
func (p RetryPolicy) NormalizeAttempt(opts core.JobNackOptions, attempt int) core.JobNackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
		return out
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		out.DeadLetter = p.DeadLetterOnMax
		if out.Reason == "" {
			out.Reason = "max attempts reached"
		}
		return out
	}
	if !out.Requeue {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage maps a payouts job message to go-job.
func ToExecutionMessage(msg *core.JobExecutionMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

// FromExecutionMessage maps a go-job message into the payouts contract.
func FromExecutionMessage(msg *job.ExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	return &core.JobExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

// ToNackOptions maps payouts nack options onto a go-job disposition.
// Dead letter wins over requeue; neither marks the message failed.
func ToNackOptions(opts core.JobNackOptions) queue.NackOptions {
	out := queue.NackOptions{Reason: opts.Reason}
	switch {
	case opts.DeadLetter:
		out.Disposition = queue.NackDispositionDeadLetter
	case opts.Requeue:
		out.Disposition = queue.NackDispositionRetry
		out.Delay = opts.Delay
	default:
		out.Disposition = queue.NackDispositionFailed
	}
	return out
}

// FromNackOptions maps go-job nack options to payouts.
func FromNackOptions(opts queue.NackOptions) core.JobNackOptions {
	out := core.JobNackOptions{Reason: opts.Reason}
	switch opts.Disposition {
	case queue.NackDispositionRetry:
		out.Requeue = true
		out.Delay = opts.Delay
	case queue.NackDispositionDeadLetter:
		out.DeadLetter = true
	}
	return out
}

type Option func(*options)

type options struct {
	keys     idempotency.Store
	dedupTTL time.Duration
}

// WithDedupStore drops enqueues whose idempotency key is still held by a
// message in the queue. Only messages with the drop dedup policy take a key.
func WithDedupStore(store idempotency.Store, ttl time.Duration) Option {
	return func(o *options) {
		o.keys = store
		if ttl > 0 {
			o.dedupTTL = ttl
		}
	}
}

func buildOptions(opts []Option) options {
	out := options{dedupTTL: defaultDedupTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}

func (o options) holdsKey(msg *job.ExecutionMessage) bool {
	return o.keys != nil && msg != nil && msg.IdempotencyKey != "" && msg.DedupPolicy == job.DedupPolicyDrop
}

func (o options) acquire(ctx context.Context, msg *job.ExecutionMessage) (bool, error) {
	if !o.holdsKey(msg) {
		return true, nil
	}
	_, acquired, err := o.keys.Acquire(ctx, msg.IdempotencyKey, o.dedupTTL)
	return acquired, err
}

func (o options) release(ctx context.Context, msg *job.ExecutionMessage) error {
	if !o.holdsKey(msg) {
		return nil
	}
	if err := o.keys.Delete(ctx, msg.IdempotencyKey); err != nil && !errors.Is(err, idempotency.ErrNotFound) {
		return err
	}
	return nil
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
	options  options
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer, opts ...Option) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer, options: buildOptions(opts)}
}

// Enqueue hands msg to go-job. A message whose dedup key is already held is
// dropped without error.
func (a *EnqueuerAdapter) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	execMsg := ToExecutionMessage(msg)
	if err := queue.ValidateRequiredMessage(execMsg); err != nil {
		return err
	}
	acquired, err := a.options.acquire(ctx, execMsg)
	if err != nil {
		return fmt.Errorf("gojob: acquire dedup key: %w", err)
	}
	if !acquired {
		return nil
	}
	if _, err := a.enqueuer.Enqueue(ctx, execMsg); err != nil {
		if releaseErr := a.options.release(ctx, execMsg); releaseErr != nil {
			return errors.Join(err, releaseErr)
		}
		return err
	}
	return nil
}

type DeliveryAdapter struct {
	delivery queue.Delivery
	policy   RetryPolicy
	options  options
}

func NewDeliveryAdapter(delivery queue.Delivery, policy RetryPolicy, opts ...Option) *DeliveryAdapter {
	return &DeliveryAdapter{delivery: delivery, policy: policy, options: buildOptions(opts)}
}

func (d *DeliveryAdapter) Message() *core.JobExecutionMessage {
	if d == nil || d.delivery == nil {
		return nil
	}
	return FromExecutionMessage(d.delivery.Message())
}

// Attempts reports the delivery count kept by the queue storage, one when
// the underlying delivery does not track it.
func (d *DeliveryAdapter) Attempts() int {
	if d == nil || d.delivery == nil {
		return 0
	}
	if counted, ok := d.delivery.(interface{ Attempts() int }); ok {
		return counted.Attempts()
	}
	return 1
}

// Ack completes the delivery and frees its dedup key.
func (d *DeliveryAdapter) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	if err := d.delivery.Ack(ctx); err != nil {
		return err
	}
	return d.options.release(ctx, d.delivery.Message())
}

// Nack applies the retry policy for the current attempt. The dedup key is
// freed once the message leaves the queue.
func (d *DeliveryAdapter) Nack(ctx context.Context, opts core.JobNackOptions) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	normalized := d.policy.NormalizeAttempt(opts, d.Attempts())
	if err := d.delivery.Nack(ctx, ToNackOptions(normalized)); err != nil {
		return err
	}
	if normalized.Requeue {
		return nil
	}
	return d.options.release(ctx, d.delivery.Message())
}

type DequeuerAdapter struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy
	opts     []Option
}

func NewDequeuerAdapter(dequeuer queue.Dequeuer, policy RetryPolicy, opts ...Option) *DequeuerAdapter {
	return &DequeuerAdapter{dequeuer: dequeuer, policy: policy, opts: opts}
}

// Dequeue returns nil, nil when the queue is empty.
func (a *DequeuerAdapter) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if a == nil || a.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := a.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, nil
	}
	return NewDeliveryAdapter(delivery, a.policy, a.opts...), nil
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.JobEnqueuer = (*EnqueuerAdapter)(nil)
	_ core.JobDelivery = (*DeliveryAdapter)(nil)
	_ core.JobDequeuer = (*DequeuerAdapter)(nil)
)
