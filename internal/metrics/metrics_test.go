// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordJob(t *testing.T) {
	before := testutil.ToFloat64(JobsTotal.WithLabelValues("send", "success"))
	RecordJob("send", "success", 15*time.Millisecond)
	after := testutil.ToFloat64(JobsTotal.WithLabelValues("send", "success"))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, grew by %v", after-before)
	}
}

func TestRecordSend(t *testing.T) {
	okBefore := testutil.ToFloat64(SenderBatches.WithLabelValues("test", "success"))
	failBefore := testutil.ToFloat64(SenderBatches.WithLabelValues("test", "failure"))

	RecordSend("test", 10, time.Millisecond, nil)
	RecordSend("test", 10, time.Millisecond, errors.New("collector down"))

	if got := testutil.ToFloat64(SenderBatches.WithLabelValues("test", "success")) - okBefore; got != 1 {
		t.Errorf("success delta = %v", got)
	}
	if got := testutil.ToFloat64(SenderBatches.WithLabelValues("test", "failure")) - failBefore; got != 1 {
		t.Errorf("failure delta = %v", got)
	}
}

func TestGauges(t *testing.T) {
	UpdateSchedulerEnabled(true)
	if v := testutil.ToFloat64(SchedulerEnabled); v != 1 {
		t.Errorf("scheduler enabled gauge = %v", v)
	}
	UpdateSchedulerEnabled(false)
	if v := testutil.ToFloat64(SchedulerEnabled); v != 0 {
		t.Errorf("scheduler enabled gauge = %v", v)
	}

	UpdateQueueDepth(3)
	if v := testutil.ToFloat64(ExecutorQueueDepth); v != 3 {
		t.Errorf("queue depth = %v", v)
	}

	RecordCircuitBreakerTransition("collector", 2, "closed", "open")
	if v := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("collector")); v != 2 {
		t.Errorf("breaker state = %v", v)
	}
}

func TestMetricsLint(t *testing.T) {
	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("GatherAndLint failed: %v", err)
	}
	for _, p := range problems {
		t.Errorf("metric %s: %s", p.Metric, p.Text)
	}
}
