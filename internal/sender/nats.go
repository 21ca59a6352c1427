// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/courier/internal/event"
	"github.com/tomtom215/courier/internal/logging"
	"github.com/tomtom215/courier/internal/metrics"
)

// NATSSender publishes batches to a JetStream subject. The message id is the
// batch key so JetStream drops a resend inside the duplicate window.
type NATSSender struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSSender connects to NATS and, when configured, ensures the stream.
func NewNATSSender(ctx context.Context, cfg Config) (*NATSSender, error) {
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("courier"),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	if cfg.NATS.CreateStream {
		if err := ensureStream(ctx, js, cfg); err != nil {
			nc.Close()
			return nil, err
		}
	}

	return &NATSSender{nc: nc, js: js, subject: cfg.NATS.Subject}, nil
}

// ensureStream creates or updates the stream capturing the subject.
func ensureStream(ctx context.Context, js jetstream.JetStream, cfg Config) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.NATS.Stream,
		Subjects:    []string{cfg.NATS.Subject},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		Discard:     jetstream.DiscardOld,
		Duplicates:  cfg.NATS.DuplicateWindow,
		Description: "Courier event batches",
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", cfg.NATS.Stream, err)
	}
	return nil
}

// Name implements Sender.
func (*NATSSender) Name() string { return TypeNATS }

// Close drains the connection.
func (s *NATSSender) Close() error {
	if err := s.nc.Drain(); err != nil {
		s.nc.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}

// Send implements Sender. It returns once JetStream acknowledges the batch.
func (s *NATSSender) Send(ctx context.Context, batch []event.Payload) (err error) {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	if s.nc.IsClosed() || s.nc.IsDraining() {
		return ErrClosed
	}

	start := time.Now()
	defer func() { metrics.RecordSend(s.Name(), len(batch), time.Since(start), err) }()

	env := NewBatch(batch)
	data, err := env.Encode()
	if err != nil {
		return err
	}

	msg := nats.NewMsg(s.subject)
	msg.Data = data
	msg.Header.Set(HeaderBatchID, env.ID)

	ack, err := s.js.PublishMsg(ctx, msg, jetstream.WithMsgID(env.ID))
	if err != nil {
		return fmt.Errorf("publish batch: %w", err)
	}
	if ack.Duplicate {
		logging.Ctx(ctx).Info().Str("batch_id", env.ID).Msg("Collector already had batch")
	}
	return nil
}
