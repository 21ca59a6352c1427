// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package event

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func receipt(id string) Payload {
	return Payload{
		Kind:      KindReceipt,
		ReceiptID: id,
		DeviceID:  "device-1",
		EventType: "opened",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNew_RejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	_, err := New(Status("delivered"), receipt("r1"))
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestNew_ValidatesPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Payload
	}{
		{"receipt without id", Payload{Kind: KindReceipt, DeviceID: "d", EventType: "opened"}},
		{"unknown kind", Payload{Kind: "push", DeviceID: "d", EventType: "opened"}},
		{"missing event type", Payload{Kind: KindAnalytics, DeviceID: "d"}},
		{"missing device", Payload{Kind: KindAnalytics, EventType: "view"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(NotPosted, tt.p); !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("expected ErrInvalidPayload, got %v", err)
			}
		})
	}
}

func TestNew_AnalyticsWithoutReceiptID(t *testing.T) {
	t.Parallel()

	rec, err := NewPending(Payload{Kind: KindAnalytics, DeviceID: "d", EventType: "view"})
	if err != nil {
		t.Fatalf("NewPending failed: %v", err)
	}
	if rec.Payload.Timestamp.IsZero() {
		t.Error("expected timestamp to be defaulted")
	}
	if rec.Kind() != KindAnalytics || rec.Status != NotPosted || rec.ID != 0 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestRecord_MarshalRoundTrip(t *testing.T) {
	t.Parallel()

	rec, err := New(PostingError, receipt("r9"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rec.ID = 42
	rec.Payload.Data = map[string]string{"campaign": "spring"}
	rec.CreatedAt = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	data, err := rec.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, rec)
	}
}

func TestUnmarshal_RejectsCorruptStatus(t *testing.T) {
	t.Parallel()

	_, err := Unmarshal([]byte(`{"id":3,"status":"lost","payload":{}}`))
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestStatus_Pending(t *testing.T) {
	t.Parallel()

	want := map[Status]bool{NotPosted: true, Posting: false, Posted: false, PostingError: true}
	for s, pending := range want {
		if s.Pending() != pending {
			t.Errorf("%s.Pending() = %v", s, s.Pending())
		}
	}
	if _, err := ParseStatus("posting"); err != nil {
		t.Errorf("ParseStatus failed: %v", err)
	}
}
