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

// runSend delivers every NotPosted record as one batch.
//
// The batch is marked Posting before any network activity, so a crash from
// that point on leaves records Recover can find. After a successful send the
// delete is committed even if ctx is cancelled meanwhile; a record is never
// dropped without an acknowledged delivery.
func runSend(ctx context.Context, env Env) Result {
	log := logging.Ctx(ctx)

	ids, err := env.Store.EventsWithStatus(ctx, event.NotPosted)
	if err != nil {
		return failure(ctx, err, "Send could not list pending events")
	}
	if len(ids) == 0 {
		return NoWorkToDo
	}

	if ctx.Err() != nil {
		return Interrupted
	}
	if _, err := env.Store.SetStatusBatch(ctx, ids, event.Posting); err != nil {
		return failure(ctx, err, "Send could not mark batch posting")
	}

	records := make([]*event.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := env.Store.Read(ctx, id)
		if err != nil {
			res := failure(ctx, err, "Send could not read batch record")
			if res == StorageError {
				// Records stay Posting; the next cycle's cleanup returns them.
				env.Scheduler.EnableIfDisabled()
			}
			return res
		}
		records = append(records, rec)
	}
	batch := event.Payloads(records)

	if ctx.Err() != nil {
		return Interrupted
	}

	sendErr := env.Sender.Send(ctx, batch)

	// From here on the outcome is committed regardless of cancellation.
	commitCtx := context.WithoutCancel(ctx)

	if sendErr != nil {
		if ctx.Err() != nil {
			log.Info().Err(sendErr).Int("batch", len(ids)).Msg("Send interrupted, batch left posting for recovery")
			return Interrupted
		}
		log.Warn().Err(sendErr).Int("batch", len(ids)).Msg("Batch delivery failed")
		if _, err := env.Store.SetStatusBatch(commitCtx, ids, event.PostingError); err != nil {
			env.Scheduler.EnableIfDisabled()
			return failure(commitCtx, err, "Send could not mark batch failed")
		}
		syncScheduler(commitCtx, env)
		return FailedToSendReceipts
	}

	if err := env.Store.DeleteBatch(commitCtx, ids); err != nil {
		env.Scheduler.EnableIfDisabled()
		return failure(commitCtx, err, "Send could not delete delivered batch")
	}
	metrics.RecordDelivered(len(ids))
	log.Info().Int("batch", len(ids)).Msg("Batch delivered")

	syncScheduler(commitCtx, env)
	return Success
}
