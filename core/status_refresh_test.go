package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingDelivery struct {
	msg    *JobExecutionMessage
	acked  bool
	nacked bool
	opts   JobNackOptions
}

func (d *recordingDelivery) Message() *JobExecutionMessage { return d.msg }

func (d *recordingDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *recordingDelivery) Nack(_ context.Context, opts JobNackOptions) error {
	d.nacked = true
	d.opts = opts
	return nil
}

func TestStatusRefreshRunner_RequeuesInFlightPayout(t *testing.T) {
	rampa := newStubProvider("rampa")
	rampa.status = PayoutStatusUpdate{Status: PayoutStatusProcessing}
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})
	payout := createPayout(t, svc, payoutRequest("ES"))

	runner := NewStatusRefreshRunner(svc)
	runner.PollInterval = time.Minute
	delivery := &recordingDelivery{msg: StatusRefreshMessage(payout.ID)}
	if err := runner.Handle(context.Background(), delivery); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !delivery.nacked || !delivery.opts.Requeue || delivery.opts.Delay != time.Minute {
		t.Fatalf("expected requeue after poll interval, got %+v", delivery.opts)
	}
	stored, err := svc.GetPayout(context.Background(), payout.ID)
	if err != nil {
		t.Fatalf("get payout: %v", err)
	}
	if stored.Status != PayoutStatusProcessing {
		t.Fatalf("expected refreshed status, got %s", stored.Status)
	}
}

func TestStatusRefreshRunner_AcksTerminalPayout(t *testing.T) {
	rampa := newStubProvider("rampa")
	rampa.status = PayoutStatusUpdate{Status: PayoutStatusCompleted}
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})
	payout := createPayout(t, svc, payoutRequest("ES"))

	delivery := &recordingDelivery{msg: StatusRefreshMessage(payout.ID)}
	if err := NewStatusRefreshRunner(svc).Handle(context.Background(), delivery); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !delivery.acked || delivery.nacked {
		t.Fatalf("expected terminal payout to be acked")
	}
}

func TestStatusRefreshRunner_RetriesProviderFailure(t *testing.T) {
	rampa := newStubProvider("rampa")
	rampa.statusErr = errors.New("gateway timeout")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})
	payout := createPayout(t, svc, payoutRequest("ES"))

	delivery := &recordingDelivery{msg: StatusRefreshMessage(payout.ID)}
	err := NewStatusRefreshRunner(svc).Handle(context.Background(), delivery)
	if !HasTextCode(err, ErrorProviderAPI) {
		t.Fatalf("expected provider error to be returned, got %v", err)
	}
	if !delivery.opts.Requeue || delivery.opts.Delay != defaultStatusRetryDelay || delivery.opts.DeadLetter {
		t.Fatalf("expected retry requeue, got %+v", delivery.opts)
	}
}

func TestStatusRefreshRunner_DeadLettersBadJobs(t *testing.T) {
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{newStubProvider("rampa")})
	runner := NewStatusRefreshRunner(svc)

	cases := []*JobExecutionMessage{
		{JobID: "something.else"},
		{JobID: JobIDPayoutStatusRefresh},
		StatusRefreshMessage("missing"),
	}
	for _, msg := range cases {
		delivery := &recordingDelivery{msg: msg}
		if err := runner.Handle(context.Background(), delivery); err != nil {
			t.Fatalf("handle %+v: %v", msg, err)
		}
		if !delivery.opts.DeadLetter {
			t.Fatalf("expected %+v to be dead lettered, got %+v", msg, delivery.opts)
		}
	}
}

type queueDequeuer struct {
	items []JobDelivery
}

func (q *queueDequeuer) Dequeue(ctx context.Context) (JobDelivery, error) {
	if len(q.items) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	next := q.items[0]
	q.items = q.items[1:]
	return next, nil
}

func TestStatusRefreshRunner_RunDrainsUntilCancelled(t *testing.T) {
	rampa := newStubProvider("rampa")
	rampa.status = PayoutStatusUpdate{Status: PayoutStatusCompleted}
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})
	payout := createPayout(t, svc, payoutRequest("ES"))

	delivery := &recordingDelivery{msg: StatusRefreshMessage(payout.ID)}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := NewStatusRefreshRunner(svc).Run(ctx, &queueDequeuer{items: []JobDelivery{delivery}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !delivery.acked {
		t.Fatalf("expected queued delivery to be handled")
	}
}

type countedDelivery struct {
	recordingDelivery
	attempts int
}

func (d *countedDelivery) Attempts() int { return d.attempts }

type recordingHook struct {
	mu     sync.Mutex
	events map[string][]JobWorkerEvent
}

func (h *recordingHook) record(kind string, event JobWorkerEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.events == nil {
		h.events = map[string][]JobWorkerEvent{}
	}
	h.events[kind] = append(h.events[kind], event)
}

func (h *recordingHook) OnStart(_ context.Context, event JobWorkerEvent)   { h.record("start", event) }
func (h *recordingHook) OnSuccess(_ context.Context, event JobWorkerEvent) { h.record("success", event) }
func (h *recordingHook) OnFailure(_ context.Context, event JobWorkerEvent) { h.record("failure", event) }
func (h *recordingHook) OnRetry(_ context.Context, event JobWorkerEvent)   { h.record("retry", event) }

func (h *recordingHook) count(kind string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events[kind])
}

func TestStatusRefreshRunner_ReportsOutcomesToHooks(t *testing.T) {
	rampa := newStubProvider("rampa")
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{rampa})
	payout := createPayout(t, svc, payoutRequest("ES"))
	hook := &recordingHook{}
	runner := NewStatusRefreshRunner(svc, hook)

	rampa.status = PayoutStatusUpdate{Status: PayoutStatusProcessing}
	runner.process(context.Background(), &countedDelivery{recordingDelivery: recordingDelivery{msg: StatusRefreshMessage(payout.ID)}, attempts: 3})
	rampa.statusErr = errors.New("gateway timeout")
	runner.process(context.Background(), &recordingDelivery{msg: StatusRefreshMessage(payout.ID)})
	runner.process(context.Background(), &recordingDelivery{msg: &JobExecutionMessage{JobID: "something.else"}})

	if hook.count("start") != 3 || hook.count("success") != 1 || hook.count("retry") != 1 || hook.count("failure") != 1 {
		t.Fatalf("unexpected hook events %+v", hook.events)
	}
	success := hook.events["success"][0]
	if success.Attempt != 3 || success.Delay != defaultStatusPollInterval || success.Err != nil {
		t.Fatalf("unexpected success event %+v", success)
	}
	if retry := hook.events["retry"][0]; !HasTextCode(retry.Err, ErrorProviderAPI) || retry.Delay != defaultStatusRetryDelay {
		t.Fatalf("unexpected retry event %+v", retry)
	}
	if failure := hook.events["failure"][0]; failure.Err == nil || failure.Err.Error() != "unexpected job" {
		t.Fatalf("expected dead letter reason on failure event, got %+v", failure)
	}
}

type emptyDequeuer struct {
	mu    sync.Mutex
	calls int
}

func (q *emptyDequeuer) Dequeue(context.Context) (JobDelivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	return nil, nil
}

func TestStatusRefreshRunner_RunWaitsWhileQueueIsEmpty(t *testing.T) {
	svc := newTestService(t, RoutingConfig{DefaultProvider: "rampa"}, []*stubProvider{newStubProvider("rampa")})
	runner := NewStatusRefreshRunner(svc)
	runner.IdleDelay = 40 * time.Millisecond

	dequeuer := &emptyDequeuer{}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := runner.Run(ctx, dequeuer); err != nil {
		t.Fatalf("run: %v", err)
	}
	if dequeuer.calls < 1 || dequeuer.calls > 4 {
		t.Fatalf("expected idle delay between empty dequeues, got %d calls", dequeuer.calls)
	}
}
