// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

/*
schema.go - Database Schema Management

This file manages the DuckDB database schema: table creation and index
management.

Tables:
  - incoming_calls: every call event accepted from the PBX webhook,
    keyed by a sequence-assigned identifier
  - people: caller directory (name, phone) used for enrichment
  - reservations, stations: source of the "last traveled segment" lookup
  - no_shows: per-person no-show records, counted during enrichment
  - routes, route_stations, price_lists: read-mostly passthrough data
    served to the driver mobile app
  - audit_logs: best-effort business audit side-channel

Schema Strategy:
All columns are defined in the initial CREATE TABLE statements. DuckDB
sequences provide storage-assigned identifiers; inserts use RETURNING id.
*/

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// tableCreationQueries returns the table creation SQL statements
func tableCreationQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS incoming_calls_id_seq START 1`,

		`CREATE TABLE IF NOT EXISTS incoming_calls (
			id BIGINT PRIMARY KEY DEFAULT nextval('incoming_calls_id_seq'),
			phone TEXT NOT NULL,
			digits TEXT NOT NULL,
			extension TEXT,
			source TEXT,
			status TEXT NOT NULL,
			note TEXT,
			caller_name TEXT,
			person_id BIGINT,
			received_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS people (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS stations (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS reservations (
			id BIGINT PRIMARY KEY,
			person_id BIGINT NOT NULL,
			board_station_id BIGINT,
			exit_station_id BIGINT
		)`,

		`CREATE TABLE IF NOT EXISTS no_shows (
			id BIGINT PRIMARY KEY,
			person_id BIGINT NOT NULL
		)`,

		// order_index and visible_for_drivers are nullable integers to
		// match the upstream dispatch dataset this schema is loaded from.
		`CREATE TABLE IF NOT EXISTS routes (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			order_index BIGINT,
			visible_for_drivers BIGINT
		)`,

		`CREATE TABLE IF NOT EXISTS route_stations (
			id BIGINT PRIMARY KEY,
			route_id BIGINT NOT NULL,
			station_id BIGINT NOT NULL,
			order_index BIGINT
		)`,

		`CREATE TABLE IF NOT EXISTS price_lists (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			route_id BIGINT
		)`,

		`CREATE SEQUENCE IF NOT EXISTS audit_logs_id_seq START 1`,

		`CREATE TABLE IF NOT EXISTS audit_logs (
			id BIGINT PRIMARY KEY DEFAULT nextval('audit_logs_id_seq'),
			entity TEXT NOT NULL,
			action TEXT NOT NULL,
			entity_id TEXT,
			actor TEXT,
			detail TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
}

// createIndexes creates indexes for common query patterns
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		// Enrichment lookup strips formatting from people.phone at query
		// time; this index still covers the common exact-digit match.
		`CREATE INDEX IF NOT EXISTS idx_people_phone ON people(phone)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_received_at ON incoming_calls(received_at)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_digits ON incoming_calls(digits)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_person ON reservations(person_id)`,
		`CREATE INDEX IF NOT EXISTS idx_no_shows_person ON no_shows(person_id)`,
		`CREATE INDEX IF NOT EXISTS idx_route_stations_route ON route_stations(route_id)`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}
