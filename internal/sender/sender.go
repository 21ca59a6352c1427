// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package sender

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/courier/internal/event"
)

var (
	// ErrEmptyBatch is returned when Send is called without events.
	ErrEmptyBatch = errors.New("sender: empty batch")

	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("sender: closed")
)

// batchNamespace scopes deterministic batch keys.
var batchNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/tomtom215/courier/batch"))

// Sender delivers batches to the collector.
type Sender interface {
	Send(ctx context.Context, batch []event.Payload) error
	Name() string
	Close() error
}

// Batch is the envelope written to the collector.
type Batch struct {
	ID     string          `json:"batch_id"`
	SentAt time.Time       `json:"sent_at"`
	Count  int             `json:"count"`
	Events []event.Payload `json:"events"`
}

// NewBatch wraps payloads in an envelope keyed by BatchKey.
func NewBatch(payloads []event.Payload) Batch {
	return Batch{
		ID:     BatchKey(payloads).String(),
		SentAt: time.Now().UTC(),
		Count:  len(payloads),
		Events: payloads,
	}
}

// Encode returns the JSON form of the envelope.
func (b Batch) Encode() ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	return data, nil
}

// BatchKey derives a stable id from the identity of each event in order. The
// same events always produce the same key.
func BatchKey(payloads []event.Payload) uuid.UUID {
	buf := make([]byte, 0, 64*len(payloads))
	for _, p := range payloads {
		buf = append(buf, string(p.Kind)...)
		buf = append(buf, 0)
		buf = append(buf, p.ReceiptID...)
		buf = append(buf, 0)
		buf = append(buf, p.DeviceID...)
		buf = append(buf, 0)
		buf = append(buf, p.EventType...)
		buf = append(buf, 0)
		buf = strconv.AppendInt(buf, p.Timestamp.UnixNano(), 10)
		buf = append(buf, '\n')
	}
	return uuid.NewSHA1(batchNamespace, buf)
}

// New builds the transport selected by cfg.Type. Network transports are
// guarded by the breaker and rate limiter.
func New(ctx context.Context, cfg Config) (Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		s   Sender
		err error
	)
	switch cfg.Type {
	case TypeHTTP:
		s = NewHTTPSender(cfg)
	case TypeNATS:
		s, err = NewNATSSender(ctx, cfg)
	case TypeKafka:
		s, err = NewKafkaSender(cfg)
	case TypeLog:
		return NewLogSender(), nil
	}
	if err != nil {
		return nil, err
	}
	return Guard(s, cfg), nil
}
