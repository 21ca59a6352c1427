// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/courier/internal/job"
)

func testConfig(period time.Duration) Config {
	return Config{
		Period:              period,
		MaxPeriod:           8 * period,
		Multiplier:          2,
		RandomizationFactor: 0,
	}
}

func startScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"zero period", func(c *Config) { c.Period = 0 }, true},
		{"max below period", func(c *Config) { c.MaxPeriod = time.Minute }, true},
		{"multiplier below one", func(c *Config) { c.Multiplier = 0.5 }, true},
		{"randomization too large", func(c *Config) { c.RandomizationFactor = 1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("error %T is not *ConfigError", err)
				}
			}
		})
	}
}

func TestScheduler_EnableDisableIdempotent(t *testing.T) {
	s := New(testConfig(time.Hour))

	if s.IsEnabled() {
		t.Fatal("new scheduler should be disabled")
	}

	s.EnableIfDisabled()
	s.EnableIfDisabled()
	s.Enable()
	if !s.IsEnabled() {
		t.Fatal("scheduler should be enabled")
	}

	s.Disable()
	s.Disable()
	if s.IsEnabled() {
		t.Fatal("scheduler should be disabled")
	}
}

func TestScheduler_FiresOnlyWhileEnabled(t *testing.T) {
	s := New(testConfig(20 * time.Millisecond))
	var fires atomic.Int32
	s.SetFireFunc(func(context.Context) { fires.Add(1) })
	startScheduler(t, s)

	time.Sleep(80 * time.Millisecond)
	if got := fires.Load(); got != 0 {
		t.Fatalf("disabled scheduler fired %d times", got)
	}

	s.Enable()
	waitFor(t, time.Second, func() bool { return fires.Load() >= 2 })

	s.Disable()
	// A firing already in flight may land; nothing after that.
	time.Sleep(30 * time.Millisecond)
	settled := fires.Load()
	time.Sleep(100 * time.Millisecond)
	if got := fires.Load(); got != settled {
		t.Errorf("disabled scheduler kept firing: %d -> %d", settled, got)
	}
}

func TestScheduler_AtMostOncePerPeriod(t *testing.T) {
	period := 50 * time.Millisecond
	s := New(testConfig(period))
	var fires atomic.Int32
	s.SetFireFunc(func(context.Context) { fires.Add(1) })
	startScheduler(t, s)

	s.Enable()
	// Repeated arming must not reset or accelerate the timer.
	for i := 0; i < 10; i++ {
		s.EnableIfDisabled()
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(5*period - 50*time.Millisecond)

	if got := fires.Load(); got > 5 {
		t.Errorf("fired %d times in ~5 periods", got)
	}
	if got := fires.Load(); got == 0 {
		t.Error("scheduler never fired")
	}
}

func TestScheduler_ObserveResultBacksOff(t *testing.T) {
	base := time.Minute
	s := New(testConfig(base))

	if got := s.Period(); got != base {
		t.Fatalf("initial period = %v, want %v", got, base)
	}

	s.ObserveResult(job.FailedToSendReceipts)
	first := s.Period()
	if first <= base {
		t.Errorf("first failure kept period at %v", first)
	}
	s.ObserveResult(job.FailedToSendReceipts)
	second := s.Period()
	if second <= first {
		t.Errorf("period did not grow: %v -> %v", first, second)
	}

	for i := 0; i < 20; i++ {
		s.ObserveResult(job.FailedToSendReceipts)
	}
	if got := s.Period(); got != 8*base {
		t.Errorf("period = %v, want cap %v", got, 8*base)
	}

	s.ObserveResult(job.Interrupted)
	if got := s.Period(); got != 8*base {
		t.Errorf("Interrupted changed period to %v", got)
	}

	s.ObserveResult(job.Success)
	if got := s.Period(); got != base {
		t.Errorf("period after success = %v, want %v", got, base)
	}

	s.ObserveResult(job.FailedToSendReceipts)
	s.ObserveResult(job.NoWorkToDo)
	if got := s.Period(); got != base {
		t.Errorf("period after no work = %v, want %v", got, base)
	}
}

func TestScheduler_String(t *testing.T) {
	if got := New(DefaultConfig()).String(); got != "wake-scheduler" {
		t.Errorf("String() = %q", got)
	}
}
