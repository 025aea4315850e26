package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu      *sync.Mutex
	records *[]capturedLog
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return l
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := map[string]any{}
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]capturedLog, len(*l.records))
	copy(out, *l.records)
	return out
}

func newObservedService(t *testing.T, providers ...*stubProvider) (*Service, *captureMetricsRecorder, *captureLogger) {
	t.Helper()
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	registry := NewProviderRegistry()
	for _, provider := range providers {
		if err := registry.Register(provider); err != nil {
			t.Fatalf("register provider: %v", err)
		}
	}
	cfg := DefaultConfig()
	cfg.Routing.DefaultProvider = "rampa"
	svc, err := NewService(cfg,
		WithRegistry(registry),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, metrics, logger
}

func TestServiceObservability_CreatePayoutSuccess(t *testing.T) {
	svc, metrics, logger := newObservedService(t, newStubProvider("rampa"))

	if _, err := svc.CreatePayout(context.Background(), payoutRequest("ES")); err != nil {
		t.Fatalf("create payout: %v", err)
	}

	counter, ok := findCounter(metrics.counters, "payouts.create_payout.total", "success")
	if !ok {
		t.Fatalf("expected payouts.create_payout.total success counter")
	}
	if counter.tags["provider_id"] != "rampa" {
		t.Fatalf("expected provider_id tag, got %v", counter.tags)
	}
	if !hasHistogram(metrics.histograms, "payouts.create_payout.duration_ms", "success") {
		t.Fatalf("expected payouts.create_payout.duration_ms histogram")
	}
	if !hasLog(logger.snapshot(), "info", "create_payout succeeded", "create_payout") {
		t.Fatalf("expected create_payout succeeded structured log")
	}
}

func TestServiceObservability_FailureCarriesTextCode(t *testing.T) {
	svc, metrics, logger := newObservedService(t, newStubProvider("rampa"))

	if _, err := svc.CancelPayout(context.Background(), "missing"); err == nil {
		t.Fatalf("expected cancel of unknown payout to fail")
	}

	counter, ok := findCounter(metrics.counters, "payouts.cancel_payout.total", "failure")
	if !ok {
		t.Fatalf("expected cancel_payout failure counter")
	}
	if counter.tags["error_text_code"] != ErrorPayoutNotFound {
		t.Fatalf("expected error_text_code tag, got %v", counter.tags)
	}
	records := logger.snapshot()
	if !hasLog(records, "error", "cancel_payout failed", "cancel_payout") {
		t.Fatalf("expected cancel_payout failure log")
	}
	last := records[len(records)-1]
	if last.fields["error_category"] != fmt.Sprint(goerrors.CategoryNotFound) {
		t.Fatalf("expected not found category, got %#v", last.fields["error_category"])
	}
}

func TestServiceObservability_DurationFromStart(t *testing.T) {
	svc, metrics, _ := newObservedService(t)
	svc.observeOperation(context.Background(), time.Now().Add(-50*time.Millisecond), "Check Health", nil, nil)

	for _, item := range metrics.histograms {
		if item.name == "payouts.check_health.duration_ms" {
			if item.value < 50 {
				t.Fatalf("expected duration of at least 50ms, got %v", item.value)
			}
			return
		}
	}
	t.Fatalf("expected normalized operation histogram")
}

func findCounter(items []capturedCounter, name string, status string) (capturedCounter, bool) {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return item, true
		}
	}
	return capturedCounter{}, false
}

func hasHistogram(items []capturedHistogram, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasLog(items []capturedLog, level string, message string, eventType string) bool {
	for _, item := range items {
		if item.level != level || item.msg != message {
			continue
		}
		if item.fields["event_type"] == eventType {
			return true
		}
	}
	return false
}
