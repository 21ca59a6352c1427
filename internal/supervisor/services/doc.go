// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

// Package services adapts Courier components to suture.Service.
//
// The executor and scheduler implement Serve themselves and are added to the
// tree directly. The wrappers here cover components with other lifecycles:
//
//   - CompactorService: Start/Stop background loops
//   - HTTPServerService: binds a listener, then http.Server Serve/Shutdown
//   - RecoveryService: one-shot startup recovery that is retried until it
//     succeeds and then never restarted
package services
