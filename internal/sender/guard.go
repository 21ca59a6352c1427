// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package sender

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/courier/internal/event"
	"github.com/tomtom215/courier/internal/logging"
	"github.com/tomtom215/courier/internal/metrics"
)

// ErrCircuitOpen is returned when the breaker refuses a batch.
var ErrCircuitOpen = errors.New("sender: circuit open")

// guarded wraps a transport with a per-call timeout, an optional rate
// limiter and an optional circuit breaker.
type guarded struct {
	next    Sender
	timeout time.Duration
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[struct{}]
}

// Guard applies the timeout, rate limit and breaker settings of cfg to s.
func Guard(s Sender, cfg Config) Sender {
	g := &guarded{next: s, timeout: cfg.Timeout}

	if cfg.RateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	if cfg.Breaker.Enabled {
		name := s.Name() + "-collector"
		threshold := cfg.Breaker.FailureThreshold
		metrics.RecordCircuitBreakerTransition(name, int(gobreaker.StateClosed), "init", stateToString(gobreaker.StateClosed))

		g.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.Breaker.MaxRequests,
			Interval:    cfg.Breaker.Interval,
			Timeout:     cfg.Breaker.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				trip := counts.ConsecutiveFailures >= threshold
				if trip {
					logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Str("breaker", name).Msg("[CIRCUIT BREAKER] Opening circuit")
				}
				return trip
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Info().Str("breaker", name).Str("from", stateToString(from)).Str("to", stateToString(to)).Msg("[CIRCUIT BREAKER] State transition")
				metrics.RecordCircuitBreakerTransition(name, int(to), stateToString(from), stateToString(to))
			},
		})
	}

	return g
}

func (g *guarded) Name() string { return g.next.Name() }

func (g *guarded) Close() error { return g.next.Close() }

// Send waits for the limiter, then delivers through the breaker.
func (g *guarded) Send(ctx context.Context, batch []event.Payload) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			metrics.RecordSendRejected(g.Name(), "rate_limited")
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if g.cb == nil {
		return g.next.Send(ctx, batch)
	}

	_, err := g.cb.Execute(func() (struct{}, error) {
		return struct{}{}, g.next.Send(ctx, batch)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordSendRejected(g.Name(), "circuit_open")
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return err
}

// State returns the breaker state name, or "disabled".
func (g *guarded) State() string {
	if g.cb == nil {
		return "disabled"
	}
	return stateToString(g.cb.State())
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
