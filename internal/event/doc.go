// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

// Package event defines the persisted unit of delivery work.
//
// A Record wraps a producer Payload with a store-assigned ID and a delivery
// Status. Records move NotPosted -> Posting -> (deleted | PostingError); a
// record found in Posting at start-up belongs to a send that never finished
// and is returned to NotPosted by recovery.
package event
