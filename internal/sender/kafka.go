// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/tomtom215/courier/internal/event"
	"github.com/tomtom215/courier/internal/metrics"
)

// KafkaSender produces one record per batch.
type KafkaSender struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSender creates a franz-go client for the configured brokers. The
// client connects lazily on first produce.
func NewKafkaSender(cfg Config) (*KafkaSender, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Kafka.Brokers...),
		kgo.ClientID(cfg.Kafka.ClientID),
		kgo.DefaultProduceTopic(cfg.Kafka.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordDeliveryTimeout(cfg.Timeout),
		kgo.RecordRetries(5),
		kgo.RetryBackoffFn(func(n int) time.Duration {
			return time.Duration(n*100) * time.Millisecond
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSender{client: client, topic: cfg.Kafka.Topic}, nil
}

// Name implements Sender.
func (*KafkaSender) Name() string { return TypeKafka }

// Close implements Sender.
func (s *KafkaSender) Close() error {
	s.client.Close()
	return nil
}

// Send implements Sender. It returns once the brokers acknowledge the record.
func (s *KafkaSender) Send(ctx context.Context, batch []event.Payload) (err error) {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}

	start := time.Now()
	defer func() { metrics.RecordSend(s.Name(), len(batch), time.Since(start), err) }()

	rec, err := kafkaRecord(s.topic, NewBatch(batch))
	if err != nil {
		return err
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce batch: %w", err)
	}
	return nil
}

// kafkaRecord keys the record by batch id so resends land on one partition.
func kafkaRecord(topic string, b Batch) (*kgo.Record, error) {
	data, err := b.Encode()
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(b.ID),
		Value: data,
		Headers: []kgo.RecordHeader{
			{Key: "batch_id", Value: []byte(b.ID)},
			{Key: "content_type", Value: []byte("application/json")},
		},
	}, nil
}
