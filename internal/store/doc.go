// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

// Package store provides the durable, capacity-bounded event table backed by
// BadgerDB.
//
// Records are partitioned by kind. Each record lives under
//
//	rec:<kind>:<id big-endian>  -> JSON record
//	idx:<id big-endian>         -> kind
//
// Ids come from a Badger sequence and only grow, so key order inside a
// partition is insertion order. That ordering is what eviction relies on:
// when an insert would exceed MaxRecords or MaxBytes, the oldest half of the
// largest partition is deleted in one transaction and the insert is retried
// once. A second miss is reported as ErrStoreFull.
//
// The store knows nothing about delivery semantics. Status transitions are
// driven by the job package, one job at a time.
package store
