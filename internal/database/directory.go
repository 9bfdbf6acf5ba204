// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/dispecer/internal/metrics"
	"github.com/tomtom215/dispecer/internal/models"
)

// FindPersonByPhone looks up a directory entry whose phone number, reduced
// to digits, matches the given canonical digits. Returns (nil, nil) when
// no entry matches.
func (db *DB) FindPersonByPhone(ctx context.Context, digits string) (*models.Person, error) {
	if digits == "" {
		return nil, nil
	}

	query := `SELECT id, name, phone FROM people
		WHERE regexp_replace(phone, '[^0-9]', '', 'g') = ?
		LIMIT 1`

	start := time.Now()
	var person models.Person
	err := db.conn.QueryRowContext(ctx, query, digits).Scan(&person.ID, &person.Name, &person.Phone)
	metrics.RecordDBQuery("SELECT", "people", time.Since(start), ignoreNoRows(err))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find person by phone: %w", err)
	}
	return &person, nil
}

// PersonNameByID returns the directory name for a person identifier, or
// empty string when the identifier is unknown.
func (db *DB) PersonNameByID(ctx context.Context, personID int64) (string, error) {
	query := `SELECT name FROM people WHERE id = ?`

	start := time.Now()
	var name string
	err := db.conn.QueryRowContext(ctx, query, personID).Scan(&name)
	metrics.RecordDBQuery("SELECT", "people", time.Since(start), ignoreNoRows(err))

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch person name: %w", err)
	}
	return name, nil
}

// CountNoShows returns how many times a person failed to show up for a
// reservation.
func (db *DB) CountNoShows(ctx context.Context, personID int64) (int, error) {
	query := `SELECT COUNT(*) FROM no_shows WHERE person_id = ?`

	start := time.Now()
	var count int
	err := db.conn.QueryRowContext(ctx, query, personID).Scan(&count)
	metrics.RecordDBQuery("SELECT", "no_shows", time.Since(start), err)

	if err != nil {
		return 0, fmt.Errorf("failed to count no-shows: %w", err)
	}
	return count, nil
}

// LastSegment returns the board/exit station names of the person's latest
// reservation. Only the most recent reservation is considered: when either
// of its stations is missing or unnamed the segment is (nil, nil), never an
// older reservation.
func (db *DB) LastSegment(ctx context.Context, personID int64) (*models.Segment, error) {
	query := `SELECT bs.name, es.name
		FROM reservations r
		LEFT JOIN stations bs ON bs.id = r.board_station_id
		LEFT JOIN stations es ON es.id = r.exit_station_id
		WHERE r.person_id = ?
		ORDER BY r.id DESC
		LIMIT 1`

	start := time.Now()
	var board, exit sql.NullString
	err := db.conn.QueryRowContext(ctx, query, personID).Scan(&board, &exit)
	metrics.RecordDBQuery("SELECT", "reservations", time.Since(start), ignoreNoRows(err))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch last segment: %w", err)
	}
	if !board.Valid || board.String == "" || !exit.Valid || exit.String == "" {
		return nil, nil
	}
	return &models.Segment{Board: board.String, Exit: exit.String}, nil
}

// ignoreNoRows filters sql.ErrNoRows so empty lookups are not counted as
// query errors in metrics.
func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
