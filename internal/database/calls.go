// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/tomtom215/dispecer/internal/metrics"
	"github.com/tomtom215/dispecer/internal/models"
	"github.com/tomtom215/dispecer/internal/phone"
)

// InsertCall persists a call event and returns its storage-assigned
// identifier. The caller owns the decision of what to do on failure; the
// ingest pipeline treats persistence as best-effort.
func (db *DB) InsertCall(ctx context.Context, event *models.CallEvent) (int64, error) {
	query := `INSERT INTO incoming_calls
		(phone, digits, extension, source, status, note, caller_name, person_id, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	start := time.Now()
	var id int64
	err := db.conn.QueryRowContext(ctx, query,
		event.Phone,
		event.Digits,
		nullString(event.Extension),
		nullString(event.Source),
		string(event.Status),
		nullString(event.Note),
		nullString(event.Meta.CallerName),
		event.Meta.PersonID,
		event.ReceivedAt,
	).Scan(&id)
	metrics.RecordDBQuery("INSERT", "incoming_calls", time.Since(start), err)

	if err != nil {
		return 0, fmt.Errorf("failed to insert call: %w", err)
	}
	return id, nil
}

// RecentCalls returns up to limit call events ordered by identifier
// descending (newest first). Rows missing a caller name are backfilled
// from the people directory by digit match.
func (db *DB) RecentCalls(ctx context.Context, limit int) ([]models.CallEvent, error) {
	query := `SELECT
			c.id, c.phone, c.digits, c.extension, c.source, c.status, c.note,
			COALESCE(c.caller_name, p.name) AS caller_name,
			COALESCE(c.person_id, p.id) AS person_id,
			c.received_at
		FROM incoming_calls c
		LEFT JOIN people p ON regexp_replace(p.phone, '[^0-9]', '', 'g') = c.digits
		ORDER BY c.id DESC
		LIMIT ?`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, limit)
	metrics.RecordDBQuery("SELECT", "incoming_calls", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent calls: %w", err)
	}
	defer closeRows(rows)

	var events []models.CallEvent
	for rows.Next() {
		event, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recent calls: %w", err)
	}
	return events, nil
}

// scanCall maps one incoming_calls row onto a CallEvent.
func scanCall(rows *sql.Rows) (models.CallEvent, error) {
	var (
		event      models.CallEvent
		id         int64
		extension  sql.NullString
		source     sql.NullString
		status     string
		note       sql.NullString
		callerName sql.NullString
		personID   sql.NullInt64
	)

	err := rows.Scan(&id, &event.Phone, &event.Digits, &extension, &source,
		&status, &note, &callerName, &personID, &event.ReceivedAt)
	if err != nil {
		return models.CallEvent{}, fmt.Errorf("failed to scan call row: %w", err)
	}

	event.ID = strconv.FormatInt(id, 10)
	event.Extension = extension.String
	event.Source = source.String
	// Stored rows may predate the current status vocabulary; normalize on
	// every read so consumers only ever see canonical statuses.
	event.Status = phone.NormalizeStatus(status)
	event.Note = note.String
	event.Meta.CallerName = callerName.String
	if personID.Valid {
		pid := personID.Int64
		event.Meta.PersonID = &pid
	}
	return event, nil
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
