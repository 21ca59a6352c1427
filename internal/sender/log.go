// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package sender

import (
	"context"
	"time"

	"github.com/tomtom215/courier/internal/event"
	"github.com/tomtom215/courier/internal/logging"
	"github.com/tomtom215/courier/internal/metrics"
)

// LogSender logs each batch and reports success. For development only.
type LogSender struct{}

// NewLogSender creates a LogSender.
func NewLogSender() *LogSender { return &LogSender{} }

// Name implements Sender.
func (*LogSender) Name() string { return TypeLog }

// Close implements Sender.
func (*LogSender) Close() error { return nil }

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, batch []event.Payload) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	start := time.Now()
	logging.Ctx(ctx).Info().
		Str("batch_id", BatchKey(batch).String()).
		Int("events", len(batch)).
		Msg("Delivered batch to log sink")
	metrics.RecordSend(s.Name(), len(batch), time.Since(start), nil)
	return nil
}
