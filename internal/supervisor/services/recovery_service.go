// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/courier/internal/job"
)

// Recoverer runs startup recovery and reports its result.
type Recoverer interface {
	RunRecovery(ctx context.Context) job.Result
}

// RecoveryService runs startup recovery once. Until recovery succeeds the
// service fails and suture retries it; afterwards it asks not to be restarted.
type RecoveryService struct {
	recoverer Recoverer
	name      string
}

// NewRecoveryService wraps r.
func NewRecoveryService(r Recoverer) *RecoveryService {
	return &RecoveryService{recoverer: r, name: "startup-recovery"}
}

// Serve implements suture.Service.
func (s *RecoveryService) Serve(ctx context.Context) error {
	result := s.recoverer.RunRecovery(ctx)
	switch {
	case result == job.Success:
		return suture.ErrDoNotRestart
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("startup recovery failed: %s", result)
	}
}

// String implements fmt.Stringer for suture logging.
func (s *RecoveryService) String() string {
	return s.name
}
