// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/courier/internal/event"
)

// Prometheus metrics for store operations
var (
	storeSavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_store_saves_total",
		Help: "Total number of records persisted",
	})

	storeSaveFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_store_save_failures_total",
		Help: "Total number of failed record inserts by reason",
	}, []string{"reason"})

	storeEvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_store_evictions_total",
		Help: "Total number of eviction passes by partition",
	}, []string{"kind"})

	storeEvictedRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_store_evicted_records_total",
		Help: "Total number of records removed by eviction",
	}, []string{"kind"})

	storeRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "courier_store_records",
		Help: "Current number of resident records by partition",
	}, []string{"kind"})

	storeRecordBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "courier_store_record_bytes",
		Help: "Summed encoded size of resident records",
	})

	storeDBSizeBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "courier_store_db_size_bytes",
		Help: "BadgerDB on-disk size by component (lsm, vlog)",
	}, []string{"component"})

	storeWriteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "courier_store_write_latency_seconds",
		Help:    "Store write transaction latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	storeUndecodableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_store_undecodable_records_total",
		Help: "Total number of stored rows skipped because they could not be decoded",
	})

	storeGCRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_store_gc_runs_total",
		Help: "Total number of value log GC passes",
	})

	storeGCLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "courier_store_gc_latency_seconds",
		Help:    "Value log GC latency in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})
)

// RecordSave increments the saved records counter.
func RecordSave() {
	storeSavesTotal.Inc()
}

// RecordSaveFailure increments the failed insert counter for reason.
func RecordSaveFailure(reason string) {
	storeSaveFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordEviction records one eviction pass over kind that removed n records.
func RecordEviction(kind event.Kind, n int) {
	storeEvictionsTotal.WithLabelValues(string(kind)).Inc()
	storeEvictedRecordsTotal.WithLabelValues(string(kind)).Add(float64(n))
}

// UpdateRecordGauges publishes per-partition row counts and the byte total.
func UpdateRecordGauges(rows map[event.Kind]int, bytes int64) {
	for _, k := range event.Kinds {
		storeRecords.WithLabelValues(string(k)).Set(float64(rows[k]))
	}
	storeRecordBytes.Set(float64(bytes))
}

// UpdateDBSize publishes Badger's LSM and value log sizes.
func UpdateDBSize(lsm, vlog int64) {
	storeDBSizeBytes.WithLabelValues("lsm").Set(float64(lsm))
	storeDBSizeBytes.WithLabelValues("vlog").Set(float64(vlog))
}

// RecordWriteLatency observes a write transaction duration.
func RecordWriteLatency(seconds float64) {
	storeWriteLatency.Observe(seconds)
}

// RecordGCRun records one value log GC pass.
func RecordGCRun(seconds float64) {
	storeGCRunsTotal.Inc()
	storeGCLatency.Observe(seconds)
}

// RecordUndecodable counts one stored row that could not be decoded.
func RecordUndecodable() {
	storeUndecodableTotal.Inc()
}
