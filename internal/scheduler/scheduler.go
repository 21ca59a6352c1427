// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tomtom215/courier/internal/job"
	"github.com/tomtom215/courier/internal/logging"
	"github.com/tomtom215/courier/internal/metrics"
)

// Config controls the firing period.
type Config struct {
	// Period is the base interval between firings.
	Period time.Duration

	// MaxPeriod caps the backed-off interval.
	MaxPeriod time.Duration

	// Multiplier grows the interval after each failed delivery.
	Multiplier float64

	// RandomizationFactor jitters backed-off intervals.
	RandomizationFactor float64
}

// DefaultConfig returns a 15 minute period that backs off to 6 hours.
func DefaultConfig() Config {
	return Config{
		Period:              15 * time.Minute,
		MaxPeriod:           6 * time.Hour,
		Multiplier:          2,
		RandomizationFactor: 0.2,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Period <= 0 {
		return &ConfigError{Field: "Period", Message: "must be positive"}
	}
	if c.MaxPeriod < c.Period {
		return &ConfigError{Field: "MaxPeriod", Message: "must not be shorter than Period"}
	}
	if c.Multiplier < 1 {
		return &ConfigError{Field: "Multiplier", Message: "must be at least 1"}
	}
	if c.RandomizationFactor < 0 || c.RandomizationFactor >= 1 {
		return &ConfigError{Field: "RandomizationFactor", Message: "must be in [0, 1)"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "scheduler config error: " + e.Field + ": " + e.Message
}

// FireFunc is invoked on each firing.
type FireFunc func(ctx context.Context)

// Scheduler is the wake scheduler.
type Scheduler struct {
	config Config

	mu       sync.Mutex
	fire     FireFunc
	enabled  bool
	armedAt  time.Time
	lastFire time.Time
	period   time.Duration
	backoff  *backoff.ExponentialBackOff

	changed chan struct{}
	now     func() time.Time
}

// New creates a disabled scheduler.
func New(cfg Config) *Scheduler {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.Period
	b.MaxInterval = cfg.MaxPeriod
	b.Multiplier = cfg.Multiplier
	b.RandomizationFactor = cfg.RandomizationFactor

	s := &Scheduler{
		config:  cfg,
		period:  cfg.Period,
		backoff: b,
		changed: make(chan struct{}, 1),
		now:     time.Now,
	}
	s.resetBackoffLocked()
	return s
}

// resetBackoffLocked restarts the backoff sequence. The first interval equals
// the base period, so it is consumed here and the first failure already
// stretches the period.
func (s *Scheduler) resetBackoffLocked() {
	s.backoff.Reset()
	s.backoff.NextBackOff()
	s.period = s.config.Period
}

// SetFireFunc installs the function called on each firing.
func (s *Scheduler) SetFireFunc(fn FireFunc) {
	s.mu.Lock()
	s.fire = fn
	s.mu.Unlock()
}

// Enable arms the scheduler.
func (s *Scheduler) Enable() {
	s.mu.Lock()
	if !s.enabled {
		s.enabled = true
		s.armedAt = s.now()
		logging.Debug().Dur("period", s.period).Msg("Wake scheduler enabled")
	}
	s.mu.Unlock()

	metrics.UpdateSchedulerEnabled(true)
	s.notify()
}

// EnableIfDisabled arms the scheduler unless it is already armed.
func (s *Scheduler) EnableIfDisabled() {
	if s.IsEnabled() {
		return
	}
	s.Enable()
}

// Disable disarms the scheduler.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	if s.enabled {
		s.enabled = false
		logging.Debug().Msg("Wake scheduler disabled")
	}
	s.mu.Unlock()

	metrics.UpdateSchedulerEnabled(false)
	s.notify()
}

// IsEnabled reports whether the scheduler is armed.
func (s *Scheduler) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Period returns the interval currently in effect.
func (s *Scheduler) Period() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

// ObserveResult adjusts the period from a Send result. Failed deliveries back
// off; successful or empty ones reset to the base period.
func (s *Scheduler) ObserveResult(r job.Result) {
	s.mu.Lock()
	switch r {
	case job.FailedToSendReceipts:
		next := s.backoff.NextBackOff()
		if next == backoff.Stop || next > s.config.MaxPeriod {
			next = s.config.MaxPeriod
		}
		s.period = next
		logging.Info().Dur("period", next).Msg("Delivery failed, backing off wake period")
	case job.Success, job.NoWorkToDo:
		s.resetBackoffLocked()
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Scheduler) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// nextFireLocked returns when the armed scheduler should fire next.
func (s *Scheduler) nextFireLocked() time.Time {
	from := s.armedAt
	if s.lastFire.After(from) {
		from = s.lastFire
	}
	return from.Add(s.period)
}

// Serve fires the installed FireFunc while armed, until ctx is cancelled.
func (s *Scheduler) Serve(ctx context.Context) error {
	logging.Info().Dur("period", s.Period()).Msg("Wake scheduler started")

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		s.mu.Lock()
		enabled := s.enabled
		wait := s.nextFireLocked().Sub(s.now())
		s.mu.Unlock()

		if !enabled {
			select {
			case <-ctx.Done():
				logging.Info().Msg("Wake scheduler stopped")
				return ctx.Err()
			case <-s.changed:
				continue
			}
		}

		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			logging.Info().Msg("Wake scheduler stopped")
			return ctx.Err()
		case <-s.changed:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
			s.fireNow(ctx)
		}
	}
}

func (s *Scheduler) fireNow(ctx context.Context) {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	s.lastFire = s.now()
	fire := s.fire
	period := s.period
	s.mu.Unlock()

	metrics.RecordSchedulerFire(period)
	if fire == nil {
		logging.Warn().Msg("Wake scheduler fired without a handler")
		return
	}
	fire(ctx)
}

// String implements fmt.Stringer for suture logging.
func (s *Scheduler) String() string {
	return "wake-scheduler"
}
