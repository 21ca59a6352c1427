// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Loggers travel in the context through zerolog's own WithContext/Ctx.
// Correlation ids and job kinds are fields on that logger.

// GenerateCorrelationID returns a short random id for tying log lines of one
// request or job activation together.
func GenerateCorrelationID() string {
	return uuid.NewString()[:8]
}

// ContextWithLogger stores logger in ctx.
//
//nolint:gocritic // zerolog.Logger is passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// LoggerFromContext returns the logger stored in ctx, or the global logger.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil {
		return *l
	}
	return Logger()
}

// Ctx returns the context logger for chained calls.
//
//	logging.Ctx(ctx).Info().Int("batch", len(ids)).Msg("Batch delivered")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := LoggerFromContext(ctx)
	return &l
}

func withField(ctx context.Context, key, value string) context.Context {
	l := LoggerFromContext(ctx).With().Str(key, value).Logger()
	return ContextWithLogger(ctx, l)
}

// ContextWithCorrelationID adds a correlation_id field to the context logger.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withField(ctx, "correlation_id", id)
}

// ContextWithNewCorrelationID adds a freshly generated correlation_id.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// ContextWithJobKind adds a job field naming the running job.
func ContextWithJobKind(ctx context.Context, kind string) context.Context {
	return withField(ctx, "job", kind)
}
