// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package store

import (
	"errors"
	"sync"

	"github.com/tomtom215/courier/internal/logging"
)

// ErrNotAcquired is returned by Release when the handle has no users.
var ErrNotAcquired = errors.New("store handle released more times than acquired")

// Handle owns the process-wide Store. The database is opened on the first
// Acquire and, when the config sets ReleaseWhenIdle, closed again once the
// last user releases it. One mutex guards open and close; individual reads and
// writes go straight to the Store.
type Handle struct {
	config Config
	open   func(*Config) (*Store, error)

	mu    sync.Mutex
	store *Store
	refs  int
}

// NewHandle returns a Handle that opens a Store with cfg on demand.
func NewHandle(cfg Config) *Handle {
	return &Handle{config: cfg, open: Open}
}

// Acquire returns the shared Store, opening it if needed. Every successful
// Acquire must be paired with Release.
func (h *Handle) Acquire() (*Store, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store == nil {
		cfg := h.config
		s, err := h.open(&cfg)
		if err != nil {
			return nil, err
		}
		h.store = s
	}
	h.refs++
	return h.store, nil
}

// Release drops one reference.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.refs == 0 {
		return ErrNotAcquired
	}
	h.refs--
	if h.refs > 0 || !h.config.ReleaseWhenIdle || h.store == nil {
		return nil
	}

	logging.Debug().Msg("Event store idle, closing")
	err := h.store.Close()
	h.store = nil
	return err
}

// IsOpen reports whether the database is currently open.
func (h *Handle) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store != nil
}

// Refs returns the number of outstanding Acquire calls.
func (h *Handle) Refs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs
}

// Close closes the database regardless of outstanding references.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store == nil {
		return nil
	}
	err := h.store.Close()
	h.store = nil
	h.refs = 0
	return err
}
