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

// runRecover repairs state left by a process that died mid-send. Running it
// twice in a row changes nothing the second time.
func runRecover(ctx context.Context, env Env) Result {
	log := logging.Ctx(ctx)

	posting, err := env.Store.EventsWithStatus(ctx, event.Posting)
	if err != nil {
		return failure(ctx, err, "Recover could not list posting events")
	}
	if ctx.Err() != nil {
		return Interrupted
	}
	if _, err := env.Store.SetStatusBatch(ctx, posting, event.NotPosted); err != nil {
		return failure(ctx, err, "Recover could not reset posting events")
	}

	posted, err := env.Store.EventsWithStatus(ctx, event.Posted)
	if err != nil {
		return failure(ctx, err, "Recover could not list posted events")
	}
	if ctx.Err() != nil {
		return Interrupted
	}
	if err := env.Store.DeleteBatch(ctx, posted); err != nil {
		return failure(ctx, err, "Recover could not delete posted events")
	}

	pending, err := hasPendingWork(ctx, env.Store)
	if err != nil {
		return failure(ctx, err, "Recover could not count pending events")
	}
	if pending {
		env.Scheduler.EnableIfDisabled()
	} else {
		env.Scheduler.Disable()
	}

	metrics.RecordRepaired(KindRecover.String(), len(posting))
	if len(posting) > 0 || len(posted) > 0 {
		log.Info().
			Int("reset_posting", len(posting)).
			Int("deleted_posted", len(posted)).
			Bool("pending", pending).
			Msg("Recovered interrupted deliveries")
	}
	return Success
}
