// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

// Package logging provides centralized zerolog-based structured logging for Courier.
//
// The package wraps a single global zerolog logger so every component (store,
// jobs, executor, scheduler, senders, HTTP surface) emits the same JSON shape.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("kind", "send").Msg("Job finished")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Batch rejected")
//
// # Correlation
//
// Each job submitted to the executor runs under a context carrying a short
// correlation ID (see ContextWithNewCorrelationID). Ctx(ctx) adds the ID and
// the job kind to every event logged through that context.
//
// # Suture Integration
//
// Suture v4 reports supervisor events through slog. NewSlogLogger returns an
// *slog.Logger backed by the global zerolog logger for use with sutureslog.
package logging
