// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package store

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/courier/internal/logging"
)

// Compactor periodically runs Badger value log GC so space freed by delivered
// and evicted records is reclaimed, and refreshes the size gauges.
type Compactor struct {
	handle   *Handle
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	lastRun time.Time
	lastErr error
}

// NewCompactor creates a compactor that works through handle.
func NewCompactor(handle *Handle) *Compactor {
	return &Compactor{
		handle:   handle,
		interval: handle.config.GCInterval,
	}
}

// Start begins the background compaction loop.
func (c *Compactor) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run()

	logging.Info().Dur("interval", c.interval).Msg("Store compactor started")
	return nil
}

// Stop gracefully stops the compaction loop.
func (c *Compactor) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.running = false
	c.mu.Unlock()

	c.wg.Wait()
	logging.Info().Msg("Store compactor stopped")
}

// IsRunning returns whether the loop is active.
func (c *Compactor) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Compactor) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = c.RunNow(c.ctx)
		}
	}
}

// RunNow performs one GC pass immediately.
func (c *Compactor) RunNow(ctx context.Context) error {
	s, err := c.handle.Acquire()
	if err != nil {
		c.record(err)
		logging.Error().Err(err).Msg("Store compaction could not open store")
		return err
	}
	defer func() {
		if relErr := c.handle.Release(); relErr != nil {
			logging.Warn().Err(relErr).Msg("Store compaction release failed")
		}
	}()

	start := time.Now()
	err = s.RunGC()
	if err != nil {
		logging.Error().Err(err).Msg("Store compaction GC error")
	}
	if _, statsErr := s.Stats(ctx); statsErr != nil && err == nil {
		err = statsErr
	}
	c.record(err)

	logging.Debug().Dur("duration", time.Since(start)).Msg("Store compaction finished")
	return err
}

func (c *Compactor) record(err error) {
	c.mu.Lock()
	c.lastRun = time.Now()
	c.lastErr = err
	c.mu.Unlock()
}

// CompactorStats contains statistics about compaction.
type CompactorStats struct {
	LastRun time.Time
	LastErr error
}

// GetStats returns compaction statistics.
func (c *Compactor) GetStats() CompactorStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CompactorStats{LastRun: c.lastRun, LastErr: c.lastErr}
}
