// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package instruments the call distribution pipeline using the Prometheus
client library, exposing metrics for monitoring throughput, errors, and system
health.

# Overview

The package provides metrics for:
  - Call ingestion (accepted, rejected, persist failures, pipeline latency)
  - Directory enrichment lookups and circuit breaker state
  - Stream delivery (subscriber counts, frames, heartbeats, slow-client drops)
  - HTTP endpoint latency and throughput
  - DuckDB query performance

All metrics are registered with the default Prometheus registry via promauto
at package init, and served on GET /metrics by the HTTP server.

# Usage

Record helpers wrap the common multi-metric updates:

	start := time.Now()
	rows, err := db.Query(ctx, query)
	metrics.RecordDBQuery("SELECT", "incoming_calls", time.Since(start), err)

Individual metrics are exported for call sites that need direct access:

	metrics.StreamSubscribers.WithLabelValues("sse").Inc()
	defer metrics.StreamSubscribers.WithLabelValues("sse").Dec()

# Cardinality

Label values are drawn from small closed sets (call status, transport,
rejection reason, route pattern). Never use raw request input (phone numbers,
tokens, arbitrary paths) as a label value.
*/
package metrics
