// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package sender

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestKafkaRecord(t *testing.T) {
	payloads := testPayloads("r1", "r2")
	b := NewBatch(payloads)

	rec, err := kafkaRecord("courier-events", b)
	if err != nil {
		t.Fatalf("kafkaRecord() error = %v", err)
	}
	if rec.Topic != "courier-events" {
		t.Errorf("topic = %q", rec.Topic)
	}
	if string(rec.Key) != b.ID {
		t.Errorf("key = %q, want batch id %q", rec.Key, b.ID)
	}

	var decoded Batch
	if err := json.Unmarshal(rec.Value, &decoded); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if decoded.Count != 2 {
		t.Errorf("count = %d", decoded.Count)
	}

	found := false
	for _, h := range rec.Headers {
		if h.Key == "batch_id" && string(h.Value) == b.ID {
			found = true
		}
	}
	if !found {
		t.Error("batch_id header missing")
	}
}

func TestNewKafkaSender_LazyConnect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Type = TypeKafka
	cfg.Timeout = time.Second
	cfg.Kafka.Brokers = []string{"127.0.0.1:1"}

	s, err := NewKafkaSender(cfg)
	if err != nil {
		t.Fatalf("NewKafkaSender() error = %v", err)
	}
	if s.Name() != TypeKafka {
		t.Errorf("Name() = %q", s.Name())
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
