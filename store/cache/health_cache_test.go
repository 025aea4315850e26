package cachestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-payouts/core"
)

func TestHealthCache_MissProbeThenHit(t *testing.T) {
	cache := newTestHealthCache(t)
	calls := 0
	probe := func(context.Context) (core.HealthStatus, error) {
		calls++
		return core.HealthStatus{ProviderID: "rampa", Healthy: true, Status: "ok"}, nil
	}

	first, err := cache.GetOrProbe(context.Background(), "rampa", probe)
	if err != nil {
		t.Fatalf("first probe: %v", err)
	}
	if !first.Healthy || calls != 1 {
		t.Fatalf("expected one healthy probe, got %+v calls=%d", first, calls)
	}

	if _, err := cache.GetOrProbe(context.Background(), "RAMPA", probe); err != nil {
		t.Fatalf("second probe: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected cached result for normalized key, probe calls=%d", calls)
	}
}

func TestHealthCache_InvalidateForcesReprobe(t *testing.T) {
	cache := newTestHealthCache(t)
	calls := 0
	probe := func(context.Context) (core.HealthStatus, error) {
		calls++
		return core.HealthStatus{ProviderID: "corridor", Healthy: calls > 1}, nil
	}

	if _, err := cache.GetOrProbe(context.Background(), "corridor", probe); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if err := cache.Invalidate(context.Background(), "corridor"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	status, err := cache.GetOrProbe(context.Background(), "corridor", probe)
	if err != nil {
		t.Fatalf("reprobe: %v", err)
	}
	if calls != 2 || !status.Healthy {
		t.Fatalf("expected fresh probe after invalidate, got %+v calls=%d", status, calls)
	}
}

func TestHealthCache_ProbeErrorIsReturned(t *testing.T) {
	cache := newTestHealthCache(t)
	boom := errors.New("boom")
	_, err := cache.GetOrProbe(context.Background(), "rampa", func(context.Context) (core.HealthStatus, error) {
		return core.HealthStatus{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected probe error, got %v", err)
	}
}

func TestHealthCacheKey(t *testing.T) {
	key, err := HealthCacheKey(" Rampa/EU ")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if key != "go-payouts::provider_health::v1::rampa%2Feu" {
		t.Fatalf("unexpected key %q", key)
	}
	if _, err := HealthCacheKey(" "); err == nil {
		t.Fatalf("expected empty provider id to fail")
	}
}

func newTestHealthCache(t *testing.T) *HealthCache {
	t.Helper()
	cache, err := NewHealthCacheWithTTL(time.Minute)
	if err != nil {
		t.Fatalf("new health cache: %v", err)
	}
	return cache
}

func TestNewHealthCacheWithTTL_ZeroDisablesCaching(t *testing.T) {
	cache, err := NewHealthCacheWithTTL(0)
	if err != nil {
		t.Fatalf("new health cache: %v", err)
	}
	if cache != nil {
		t.Fatalf("expected zero ttl to return no cache")
	}

	calls := 0
	probe := func(context.Context) (core.HealthStatus, error) {
		calls++
		return core.HealthStatus{ProviderID: "rampa", Healthy: calls == 1}, nil
	}
	first, err := cache.GetOrProbe(context.Background(), "rampa", probe)
	if err != nil {
		t.Fatalf("first probe: %v", err)
	}
	second, err := cache.GetOrProbe(context.Background(), "rampa", probe)
	if err != nil {
		t.Fatalf("second probe: %v", err)
	}
	if calls != 2 || !first.Healthy || second.Healthy {
		t.Fatalf("expected every call to probe, calls=%d first=%+v second=%+v", calls, first, second)
	}
	if err := cache.Invalidate(context.Background(), "rampa"); err != nil {
		t.Fatalf("invalidate on disabled cache: %v", err)
	}
}
