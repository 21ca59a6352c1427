// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

// Package metrics holds the Prometheus instrumentation for the delivery
// pipeline: job results, executor queue, wake scheduler, collector senders and
// the HTTP API. Store-level metrics live with the store package.
//
// All collectors register with the default registry through promauto and are
// served by promhttp on /metrics.
package metrics
