// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package job

import (
	"context"

	"github.com/tomtom215/courier/internal/event"
	"github.com/tomtom215/courier/internal/logging"
	"github.com/tomtom215/courier/internal/metrics"
)

// runCleanup returns records wedged in Posting or PostingError to NotPosted.
// It never touches Posted records and never calls the scheduler.
func runCleanup(ctx context.Context, env Env) Result {
	var ids []event.ID
	for _, status := range []event.Status{event.Posting, event.PostingError} {
		found, err := env.Store.EventsWithStatus(ctx, status)
		if err != nil {
			return failure(ctx, err, "Cleanup could not list events")
		}
		ids = append(ids, found...)
	}
	if len(ids) == 0 {
		return NoWorkToDo
	}

	if ctx.Err() != nil {
		return Interrupted
	}
	if _, err := env.Store.SetStatusBatch(ctx, ids, event.NotPosted); err != nil {
		return failure(ctx, err, "Cleanup could not reset events")
	}

	metrics.RecordRepaired(KindCleanup.String(), len(ids))
	logging.Ctx(ctx).Info().Int("reset", len(ids)).Msg("Returned stuck events to not_posted")
	return Success
}
