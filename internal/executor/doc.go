// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

// Package executor runs pipeline jobs one at a time on a single worker.
//
// Submit appends to an unbounded FIFO queue and never blocks. The worker
// (Serve, a suture.Service) builds its collaborators through a ResourceFactory
// when the first job of a burst arrives and closes them once the queue is
// empty, so an idle pipeline holds no store handle.
//
// Cancelling Serve's context interrupts the running job and reports
// job.Interrupted for every job still queued.
package executor
