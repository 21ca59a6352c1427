// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

// Package job implements the four pipeline jobs as one closed variant.
//
//   - Enqueue persists a record and arms the scheduler.
//   - Send marks every NotPosted record Posting, delivers the batch, then
//     deletes it on success or marks it PostingError on failure.
//   - Recover returns Posting records to NotPosted, drops leftover Posted
//     records and arms or disarms the scheduler to match pending work.
//   - Cleanup returns Posting and PostingError records to NotPosted.
//
// Jobs are not safe to run concurrently against the same store. The executor
// package runs them one at a time.
//
// Nothing below this package escapes as an error: every Run ends in a Result.
package job
