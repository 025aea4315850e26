package gologger

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-payouts/core"
)

const DefaultLoggerName = "payouts"

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	if name == "" {
		name = DefaultLoggerName
	}
	return glog.Resolve(name, provider, logger)
}

// JobHook logs payout job worker lifecycle events.
type JobHook struct {
	logger glog.Logger
}

func NewJobHook(logger glog.Logger) *JobHook {
	if logger == nil {
		logger = glog.Nop()
	}
	return &JobHook{logger: logger}
}

func (h *JobHook) OnStart(ctx context.Context, event core.JobWorkerEvent) {
	h.log(ctx, "debug", "payout job started", event)
}

func (h *JobHook) OnSuccess(ctx context.Context, event core.JobWorkerEvent) {
	h.log(ctx, "info", "payout job succeeded", event)
}

func (h *JobHook) OnFailure(ctx context.Context, event core.JobWorkerEvent) {
	h.log(ctx, "error", "payout job failed", event)
}

func (h *JobHook) OnRetry(ctx context.Context, event core.JobWorkerEvent) {
	h.log(ctx, "warn", "payout job retrying", event)
}

func (h *JobHook) log(ctx context.Context, level string, message string, event core.JobWorkerEvent) {
	if h == nil || h.logger == nil {
		return
	}
	args := eventArgs(event)
	logger := h.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	switch level {
	case "debug":
		logger.Debug(message, args...)
	case "warn":
		logger.Warn(message, args...)
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func eventArgs(event core.JobWorkerEvent) []any {
	args := []any{"attempt", event.Attempt}
	if event.Message != nil {
		args = append(args, "job_id", event.Message.JobID)
		if payoutID, ok := event.Message.Parameters["payout_id"]; ok {
			args = append(args, "payout_id", payoutID)
		}
	}
	if event.Delay > 0 {
		args = append(args, "delay", event.Delay.String())
	}
	if event.Duration > 0 {
		args = append(args, "duration_ms", event.Duration.Milliseconds())
	}
	if event.Err != nil {
		args = append(args, "error", event.Err.Error())
	}
	return args
}

var _ core.JobWorkerHook = (*JobHook)(nil)
