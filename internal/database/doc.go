// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

/*
Package database provides the DuckDB persistence layer.

It owns the embedded DuckDB connection, creates the schema at startup, and
exposes typed data access methods for the rest of the application:

  - incoming call persistence with storage-assigned identifiers
    (sequence + RETURNING id)
  - recent-call reads for the call log and the history warm load,
    backfilling caller identity from the people directory
  - directory lookups used by the enricher (person by phone digits,
    name by id, no-show count, last traveled segment)
  - read-mostly passthrough queries for the driver mobile app
    (routes, route stations, price lists)

All persistence of call events is best-effort from the pipeline's point of
view: callers log insert failures and continue. The package records query
durations and errors as Prometheus metrics.
*/
package database
