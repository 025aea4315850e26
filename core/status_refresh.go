package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	JobIDPayoutStatusRefresh = "payouts.status.refresh"

	defaultStatusPollInterval = 30 * time.Second
	defaultStatusRetryDelay   = 5 * time.Second
	defaultStatusIdleDelay    = time.Second
)

// scheduleStatusRefresh enqueues a status poll for payout when a job
// enqueuer is configured. Enqueue failures are logged and never fail the
// caller.
func (s *Service) scheduleStatusRefresh(ctx context.Context, payout Payout) {
	if s == nil || s.jobs == nil {
		return
	}
	err := s.jobs.Enqueue(ctx, StatusRefreshMessage(payout.ID))
	if err != nil {
		s.logWarn(ctx, "payout status refresh enqueue failed", map[string]any{
			"payout_id":   payout.ID,
			"provider_id": payout.ProviderID,
			"error":       err.Error(),
		})
	}
}

func StatusRefreshMessage(payoutID string) *JobExecutionMessage {
	return &JobExecutionMessage{
		JobID:          JobIDPayoutStatusRefresh,
		Parameters:     map[string]any{"payout_id": payoutID},
		IdempotencyKey: JobIDPayoutStatusRefresh + ":" + payoutID,
		DedupPolicy:    "drop",
	}
}

// StatusRefreshRunner consumes payout status refresh jobs. Payouts that are
// still in flight are requeued after PollInterval; terminal payouts are
// acked.
type StatusRefreshRunner struct {
	Service      *Service
	PollInterval time.Duration
	RetryDelay   time.Duration
	// IdleDelay is how long Run waits after the dequeuer reports an empty queue.
	IdleDelay time.Duration
	Hooks     []JobWorkerHook
}

func NewStatusRefreshRunner(service *Service, hooks ...JobWorkerHook) *StatusRefreshRunner {
	return &StatusRefreshRunner{
		Service:      service,
		PollInterval: defaultStatusPollInterval,
		RetryDelay:   defaultStatusRetryDelay,
		IdleDelay:    defaultStatusIdleDelay,
		Hooks:        hooks,
	}
}

func (r *StatusRefreshRunner) Handle(ctx context.Context, delivery JobDelivery) error {
	if r == nil || r.Service == nil {
		return fmt.Errorf("core: status refresh runner is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("core: job delivery is required")
	}
	msg := delivery.Message()
	if msg == nil || strings.TrimSpace(msg.JobID) != JobIDPayoutStatusRefresh {
		return delivery.Nack(ctx, JobNackOptions{DeadLetter: true, Reason: "unexpected job"})
	}
	payoutID := strings.TrimSpace(fmt.Sprint(msg.Parameters["payout_id"]))
	if payoutID == "" || payoutID == "<nil>" {
		return delivery.Nack(ctx, JobNackOptions{DeadLetter: true, Reason: "payout_id parameter is required"})
	}

	payout, err := r.Service.GetPayoutStatus(ctx, payoutID)
	if err != nil {
		if HasTextCode(err, ErrorPayoutNotFound) || HasTextCode(err, ErrorProviderNotFound) {
			return delivery.Nack(ctx, JobNackOptions{DeadLetter: true, Reason: err.Error()})
		}
		if nackErr := delivery.Nack(ctx, JobNackOptions{
			Requeue: true,
			Delay:   r.retryDelay(),
			Reason:  err.Error(),
		}); nackErr != nil {
			return nackErr
		}
		return err
	}
	if payout.Status.IsTerminal() {
		return delivery.Ack(ctx)
	}
	return delivery.Nack(ctx, JobNackOptions{
		Requeue: true,
		Delay:   r.pollInterval(),
		Reason:  "payout " + string(payout.Status),
	})
}

func (r *StatusRefreshRunner) pollInterval() time.Duration {
	if r.PollInterval > 0 {
		return r.PollInterval
	}
	return defaultStatusPollInterval
}

func (r *StatusRefreshRunner) retryDelay() time.Duration {
	if r.RetryDelay > 0 {
		return r.RetryDelay
	}
	return defaultStatusRetryDelay
}

func (r *StatusRefreshRunner) idleDelay() time.Duration {
	if r.IdleDelay > 0 {
		return r.IdleDelay
	}
	return defaultStatusIdleDelay
}

// Run dequeues and handles jobs until ctx is cancelled or the dequeuer fails.
// A nil delivery means the queue is empty.
func (r *StatusRefreshRunner) Run(ctx context.Context, dequeuer JobDequeuer) error {
	if r == nil || r.Service == nil {
		return fmt.Errorf("core: status refresh runner is not configured")
	}
	if dequeuer == nil {
		return fmt.Errorf("core: job dequeuer is required")
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		delivery, err := dequeuer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if delivery == nil {
			timer := time.NewTimer(r.idleDelay())
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
			continue
		}
		r.process(ctx, delivery)
	}
}

// process runs Handle and reports the outcome to Hooks. A requeue after a
// failed refresh is a retry; a requeue of an in-flight payout is a success.
func (r *StatusRefreshRunner) process(ctx context.Context, delivery JobDelivery) {
	observed := &observedDelivery{JobDelivery: delivery}
	event := JobWorkerEvent{
		Message:   delivery.Message(),
		Attempt:   deliveryAttempt(delivery),
		StartedAt: r.Service.now(),
	}
	r.emit(func(hook JobWorkerHook) { hook.OnStart(ctx, event) })

	err := r.Handle(ctx, observed)
	event.Duration = r.Service.now().Sub(event.StartedAt)
	event.Delay = observed.opts.Delay
	event.Err = err

	switch {
	case err != nil && observed.opts.Requeue:
		r.emit(func(hook JobWorkerHook) { hook.OnRetry(ctx, event) })
	case err == nil && (observed.acked || observed.opts.Requeue):
		r.emit(func(hook JobWorkerHook) { hook.OnSuccess(ctx, event) })
	default:
		if event.Err == nil && observed.opts.Reason != "" {
			event.Err = errors.New(observed.opts.Reason)
		}
		r.emit(func(hook JobWorkerHook) { hook.OnFailure(ctx, event) })
	}

	if err != nil {
		r.Service.logWarn(ctx, "payout status refresh failed", map[string]any{
			"attempt": event.Attempt,
			"error":   err.Error(),
		})
	}
}

func (r *StatusRefreshRunner) emit(fn func(JobWorkerHook)) {
	for _, hook := range r.Hooks {
		if hook != nil {
			fn(hook)
		}
	}
}

// deliveryAttempt reads the queue attempt counter when the delivery exposes one.
func deliveryAttempt(delivery JobDelivery) int {
	if counted, ok := delivery.(interface{ Attempts() int }); ok {
		return counted.Attempts()
	}
	return 0
}

type observedDelivery struct {
	JobDelivery
	acked bool
	opts  JobNackOptions
}

func (d *observedDelivery) Ack(ctx context.Context) error {
	if err := d.JobDelivery.Ack(ctx); err != nil {
		return err
	}
	d.acked = true
	return nil
}

func (d *observedDelivery) Nack(ctx context.Context, opts JobNackOptions) error {
	d.opts = opts
	return d.JobDelivery.Nack(ctx, opts)
}

func (d *observedDelivery) Attempts() int {
	return deliveryAttempt(d.JobDelivery)
}
