// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Call ingestion pipeline (webhook to broadcast)
// - Database query performance (DuckDB)
// - API endpoint latency and throughput
// - Stream subscriber counts and delivery
// - Enrichment circuit breaker

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets, // 0.005s, 0.01s, 0.025s, 0.05s, 0.1s, 0.25s, 0.5s, 1s, 2.5s, 5s, 10s
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Call Pipeline Metrics
	CallsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calls_ingested_total",
			Help: "Total number of call events accepted from the PBX webhook",
		},
		[]string{"status"}, // ringing, answered, missed, rejected
	)

	CallsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calls_rejected_total",
			Help: "Total number of webhook deliveries rejected",
		},
		[]string{"reason"}, // "invalid_secret", "missing_phone", "bad_payload"
	)

	CallPersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "call_persist_failures_total",
			Help: "Total number of call events that failed to persist (still broadcast)",
		},
	)

	CallIngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "call_ingest_duration_seconds",
			Help:    "End-to-end duration of webhook ingestion (validate to broadcast)",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// Enrichment Metrics
	EnrichDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "enrich_duration_seconds",
			Help:    "Duration of directory enrichment lookups",
			Buckets: prometheus.DefBuckets,
		},
	)

	EnrichFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_failures_total",
			Help: "Total number of enrichment lookups that failed (event still delivered)",
		},
		[]string{"lookup"}, // "person", "segment", "no_show"
	)

	EnrichBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "enrich_breaker_state",
			Help: "Enrichment circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Stream Metrics
	StreamSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stream_subscribers",
			Help: "Current number of connected stream subscribers",
		},
		[]string{"transport"}, // "sse", "websocket"
	)

	StreamFramesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_frames_sent_total",
			Help: "Total number of event frames written to subscribers",
		},
		[]string{"transport"},
	)

	StreamHeartbeatsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_heartbeats_sent_total",
			Help: "Total number of heartbeat frames written to subscribers",
		},
	)

	StreamSubscribersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_subscribers_dropped_total",
			Help: "Total number of subscribers disconnected for falling behind",
		},
	)

	// Audit Metrics
	AuditWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Total number of audit log entries that failed to persist",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordIngest records an accepted call event and its pipeline duration
func RecordIngest(status string, duration time.Duration) {
	CallsIngested.WithLabelValues(status).Inc()
	CallIngestDuration.Observe(duration.Seconds())
}

// RecordEnrich records the outcome of an enrichment lookup pass.
// failedLookup is empty when every lookup succeeded.
func RecordEnrich(duration time.Duration, failedLookup string) {
	EnrichDuration.Observe(duration.Seconds())
	if failedLookup != "" {
		EnrichFailures.WithLabelValues(failedLookup).Inc()
	}
}
