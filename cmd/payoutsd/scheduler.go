package main

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-payouts/core"
	"github.com/robfig/cron/v3"
)

const defaultHealthSweep = "@every 1m"

type healthChecker interface {
	CheckAllProviders(ctx context.Context) []core.HealthStatus
}

// healthSweep probes every provider on a cron schedule so routing decisions
// read a warm health cache.
type healthSweep struct {
	cron    *cron.Cron
	checker healthChecker
	logger  glog.Logger
	timeout time.Duration
}

func newHealthSweep(schedule string, checker healthChecker, logger glog.Logger, timeout time.Duration) (*healthSweep, error) {
	logger = glog.Ensure(logger)
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{logger: logger})))
	sweep := &healthSweep{cron: c, checker: checker, logger: logger, timeout: timeout}
	if _, err := c.AddFunc(schedule, sweep.run); err != nil {
		return nil, err
	}
	return sweep, nil
}

func (s *healthSweep) run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	statuses := s.checker.CheckAllProviders(ctx)
	for _, status := range statuses {
		if !status.Healthy {
			s.logger.Warn("provider unhealthy", "provider_id", status.ProviderID, "status", status.Status, "message", status.Message)
		}
	}
	s.logger.Debug("provider health sweep", "providers", len(statuses))
}

func (s *healthSweep) Start() {
	s.cron.Start()
}

func (s *healthSweep) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger routes cron's own logging through glog.
type cronLogger struct {
	logger glog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

var _ cron.Logger = cronLogger{}
