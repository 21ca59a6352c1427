// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/courier/internal/validation"
)

// Sentinel errors for record construction.
var (
	ErrInvalidStatus  = errors.New("invalid event status")
	ErrInvalidPayload = errors.New("invalid event payload")
)

// ID is the store-assigned identity of a record. Zero means "not yet persisted".
type ID uint64

// Status is the delivery state of a record.
type Status string

const (
	NotPosted    Status = "not_posted"
	Posting      Status = "posting"
	Posted       Status = "posted"
	PostingError Status = "posting_error"
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{NotPosted, Posting, Posted, PostingError}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case NotPosted, Posting, Posted, PostingError:
		return true
	}
	return false
}

// Pending reports whether a record in this status still needs delivery.
func (s Status) Pending() bool {
	return s == NotPosted || s == PostingError
}

// ParseStatus converts a wire/status string to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Kind is the record partition. Eviction works per kind.
type Kind string

const (
	KindReceipt   Kind = "receipt"
	KindAnalytics Kind = "analytics"
)

// Kinds lists every partition.
var Kinds = []Kind{KindReceipt, KindAnalytics}

// Payload is the producer-supplied body delivered to the collector.
type Payload struct {
	Kind      Kind              `json:"kind" validate:"required,oneof=receipt analytics"`
	ReceiptID string            `json:"receipt_id,omitempty" validate:"required_if=Kind receipt,max=128"`
	DeviceID  string            `json:"device_id" validate:"required,max=128"`
	EventType string            `json:"event_type" validate:"required,max=128"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty" validate:"max=64,dive,keys,max=128,endkeys,max=4096"`
}

// Validate checks the payload against its field rules.
func (p *Payload) Validate() error {
	if verr := validation.ValidateStruct(p); verr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, verr)
	}
	return nil
}

// Record is one persisted unit of outbound data.
type Record struct {
	ID        ID        `json:"id"`
	Status    Status    `json:"status"`
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// New builds an unsaved record. It fails with ErrInvalidStatus for an unknown
// status and ErrInvalidPayload when the payload does not validate. A zero
// payload timestamp is set to the current time.
func New(status Status, p Payload) (*Record, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Record{Status: status, Payload: p}, nil
}

// NewPending builds an unsaved NotPosted record.
func NewPending(p Payload) (*Record, error) {
	return New(NotPosted, p)
}

// Kind returns the record's partition.
func (r *Record) Kind() Kind {
	return r.Payload.Kind
}

// Validate checks status and payload of an existing record.
func (r *Record) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}
	return r.Payload.Validate()
}

// Marshal encodes the record in its stored form.
func (r *Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal decodes a stored record and rejects unknown statuses.
func Unmarshal(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	st, err := ParseStatus(string(r.Status))
	if err != nil {
		return nil, fmt.Errorf("decode record %d: %w", r.ID, err)
	}
	r.Status = st
	return &r, nil
}

// Payloads extracts the payloads of records, preserving order.
func Payloads(records []*Record) []Payload {
	out := make([]Payload, len(records))
	for i, r := range records {
		out[i] = r.Payload
	}
	return out
}
