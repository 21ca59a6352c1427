// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

// Package pipeline is the entry point producers and the HTTP API use.
//
// It ties the store handle, the job executor, the wake scheduler and the
// collector sender together:
//
//   - Enqueue validates a record and queues an Enqueue job
//   - RunRecovery repairs state left by a previous process and must complete
//     before the scheduler may start sending
//   - each scheduler firing queues Cleanup followed by Send
//   - Flush does the same on demand and waits for the Send result
//
// The store is acquired when the executor starts an activation and released
// when its queue drains.
package pipeline
