// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

// Package sender delivers event batches to the remote collector.
//
// Every implementation is synchronous and bounded by Config.Timeout. A nil
// error means the collector acknowledged the whole batch; anything else is
// treated as a failed delivery and the batch is retried later.
//
// Available transports:
//   - http: POST of a JSON envelope to a collector URL
//   - nats: JetStream publish with a deduplicating message id
//   - kafka: one record per batch via franz-go
//   - log: development sink that only logs
//
// Network transports are wrapped in a circuit breaker and an optional rate
// limiter (see guard.go). Each batch carries a deterministic key derived from
// the identity of its events, so a batch resent after a crash has the same id
// and the collector can drop the duplicate.
package sender
