// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Job Metrics
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_jobs_total",
			Help: "Total number of pipeline jobs by kind and result",
		},
		[]string{"kind", "result"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courier_job_duration_seconds",
			Help:    "Pipeline job run time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	EventsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_events_enqueued_total",
			Help: "Total number of events accepted for delivery by kind",
		},
		[]string{"kind"},
	)

	EventsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_events_delivered_total",
			Help: "Total number of events acknowledged by the collector",
		},
	)

	EventsRepaired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_events_repaired_total",
			Help: "Total number of records returned to not_posted by recovery or cleanup",
		},
		[]string{"job"},
	)

	// Executor Metrics
	ExecutorQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "courier_executor_queue_depth",
			Help: "Jobs waiting for the executor worker",
		},
	)

	ExecutorActivations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_executor_activations_total",
			Help: "Times the executor built its resources for a burst of jobs",
		},
	)

	ExecutorResourcesOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "courier_executor_resources_open",
			Help: "1 while the executor holds store, scheduler and sender resources",
		},
	)

	// Scheduler Metrics
	SchedulerEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "courier_scheduler_enabled",
			Help: "1 while the wake scheduler is armed",
		},
	)

	SchedulerFires = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_scheduler_fires_total",
			Help: "Total number of scheduler firings",
		},
	)

	SchedulerPeriod = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "courier_scheduler_period_seconds",
			Help: "Current wake period including backoff",
		},
	)

	// Sender Metrics
	SenderBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_sender_batches_total",
			Help: "Total number of batches handed to a collector sender by outcome",
		},
		[]string{"sender", "outcome"},
	)

	SenderBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courier_sender_batch_size",
			Help:    "Events per delivered batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"sender"},
	)

	SenderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courier_sender_latency_seconds",
			Help:    "Collector send latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sender"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "courier_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courier_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordJob records a finished job.
func RecordJob(kind, result string, duration time.Duration) {
	JobsTotal.WithLabelValues(kind, result).Inc()
	JobDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordEnqueued counts an accepted event.
func RecordEnqueued(kind string) {
	EventsEnqueued.WithLabelValues(kind).Inc()
}

// RecordDelivered counts events removed after a successful send.
func RecordDelivered(n int) {
	EventsDelivered.Add(float64(n))
}

// RecordRepaired counts records a job moved back to not_posted.
func RecordRepaired(job string, n int) {
	if n > 0 {
		EventsRepaired.WithLabelValues(job).Add(float64(n))
	}
}

// UpdateQueueDepth publishes the executor queue length.
func UpdateQueueDepth(n int) {
	ExecutorQueueDepth.Set(float64(n))
}

// RecordActivation marks the executor acquiring or releasing its resources.
func RecordActivation(open bool) {
	if open {
		ExecutorActivations.Inc()
		ExecutorResourcesOpen.Set(1)
		return
	}
	ExecutorResourcesOpen.Set(0)
}

// UpdateSchedulerEnabled publishes whether the scheduler is armed.
func UpdateSchedulerEnabled(enabled bool) {
	if enabled {
		SchedulerEnabled.Set(1)
		return
	}
	SchedulerEnabled.Set(0)
}

// RecordSchedulerFire counts a firing and publishes the period now in effect.
func RecordSchedulerFire(period time.Duration) {
	SchedulerFires.Inc()
	SchedulerPeriod.Set(period.Seconds())
}

// RecordSend records one batch handed to a sender.
func RecordSend(sender string, size int, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	SenderBatches.WithLabelValues(sender, outcome).Inc()
	SenderLatency.WithLabelValues(sender).Observe(duration.Seconds())
	if err == nil {
		SenderBatchSize.WithLabelValues(sender).Observe(float64(size))
	}
}

// RecordSendRejected counts a batch refused before reaching the collector
// (open circuit, rate limit).
func RecordSendRejected(sender, reason string) {
	SenderBatches.WithLabelValues(sender, "rejected_"+reason).Inc()
}

// RecordCircuitBreakerTransition publishes a breaker state change.
// States follow gobreaker's ordering: 0 closed, 1 half-open, 2 open.
func RecordCircuitBreakerTransition(name string, to int, fromName, toName string) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	CircuitBreakerTransitions.WithLabelValues(name, fromName, toName).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
