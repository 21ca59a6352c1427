// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

// Package scheduler provides the wake scheduler: a periodic trigger that is
// armed only while delivery work is pending.
//
// Enable, EnableIfDisabled and Disable are idempotent. While armed, Serve
// calls the fire function at most once per period. After a failed delivery
// the period stretches with exponential backoff; a successful or empty
// delivery resets it.
package scheduler
