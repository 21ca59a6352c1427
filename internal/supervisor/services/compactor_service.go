// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package services

import (
	"context"
	"fmt"
)

// StartStopper matches the store compactor lifecycle.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// CompactorService runs the store compactor under supervision.
//
// It adapts the Start/Stop lifecycle to suture's Serve:
//  1. Start(ctx) launches the compaction loop
//  2. Serve waits for cancellation
//  3. Stop() waits for the loop to exit
type CompactorService struct {
	compactor StartStopper
	name      string
}

// NewCompactorService wraps compactor.
func NewCompactorService(compactor StartStopper) *CompactorService {
	return &CompactorService{
		compactor: compactor,
		name:      "store-compactor",
	}
}

// Serve implements suture.Service. A failed Start is returned so suture
// restarts the service with backoff.
func (s *CompactorService) Serve(ctx context.Context) error {
	if err := s.compactor.Start(ctx); err != nil {
		return fmt.Errorf("store compactor start failed: %w", err)
	}

	<-ctx.Done()
	s.compactor.Stop()

	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (s *CompactorService) String() string {
	return s.name
}
