// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

// Package audit writes business audit records as a best-effort side
// channel. An audit write failure is logged at warn and never propagates:
// losing an audit row must not lose a call.
package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dispecer/internal/logging"
	"github.com/tomtom215/dispecer/internal/metrics"
)

// Entry is one audit record. Detail, if set, is serialized to JSON.
type Entry struct {
	Entity   string
	Action   string
	EntityID string
	Actor    string
	Detail   any
}

// Recorder persists audit entries to the audit_logs table.
type Recorder struct {
	conn *sql.DB
}

// NewRecorder creates a Recorder on an open database connection.
func NewRecorder(conn *sql.DB) *Recorder {
	return &Recorder{conn: conn}
}

// Record writes one audit entry. Failures are logged and counted, never
// returned.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	var detail sql.NullString
	if entry.Detail != nil {
		if data, err := json.Marshal(entry.Detail); err == nil {
			detail = sql.NullString{String: string(data), Valid: true}
		}
	}

	query := `INSERT INTO audit_logs (entity, action, entity_id, actor, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.conn.ExecContext(ctx, query,
		entry.Entity,
		entry.Action,
		nullString(entry.EntityID),
		nullString(entry.Actor),
		detail,
		time.Now().UTC(),
	)
	if err != nil {
		metrics.AuditWriteFailures.Inc()
		logging.Warn().Err(err).
			Str("entity", entry.Entity).
			Str("action", entry.Action).
			Msg("Audit write failed")
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
