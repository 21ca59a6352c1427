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

// runEnqueue saves rec and arms the scheduler whether or not the save
// succeeded.
func runEnqueue(ctx context.Context, env Env, rec *event.Record) Result {
	defer env.Scheduler.EnableIfDisabled()

	id, err := env.Store.Save(ctx, rec)
	if err != nil {
		if ctx.Err() != nil {
			return Interrupted
		}
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("kind", string(rec.Kind())).
			Msg("Could not save event")
		return CouldNotSave
	}

	metrics.RecordEnqueued(string(rec.Kind()))
	logging.Ctx(ctx).Debug().
		Uint64("id", uint64(id)).
		Str("kind", string(rec.Kind())).
		Msg("Event enqueued")
	return Success
}
