// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

/*
Package api provides the HTTP surface of Courier using the Chi router.

Endpoints:

	POST /api/v1/events        enqueue one event (rate limited per client IP)
	POST /api/v1/flush         run Cleanup and Send now, return the Send result
	GET  /api/v1/stats         store, executor and scheduler state
	GET  /api/v1/health/live   liveness
	GET  /api/v1/health/ready  ready once startup recovery has succeeded
	GET  /metrics              Prometheus metrics

Responses use a common envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
	{"status": "error", "error": {"code": "VALIDATION_ERROR", "message": "..."}}
*/
package api
