// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/dispecer/internal/config"
	"github.com/tomtom215/dispecer/internal/models"
)

// setupTestDB creates an in-memory test database.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "512MB",
		Threads:   2,
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func testEvent(phone, digits string) *models.CallEvent {
	return &models.CallEvent{
		Phone:      phone,
		Digits:     digits,
		Status:     models.StatusRinging,
		ReceivedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestInsertCallAssignsMonotonicIDs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first, err := db.InsertCall(ctx, testEvent("+40721111222", "40721111222"))
	if err != nil {
		t.Fatalf("InsertCall() error = %v", err)
	}
	second, err := db.InsertCall(ctx, testEvent("+40721111333", "40721111333"))
	if err != nil {
		t.Fatalf("InsertCall() error = %v", err)
	}

	if first <= 0 {
		t.Errorf("first id = %d, want > 0", first)
	}
	if second <= first {
		t.Errorf("second id = %d, want > %d", second, first)
	}
}

func TestInsertCallPreservesOptionalFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	pid := int64(7)
	event := testEvent("0721111222", "0721111222")
	event.Extension = "104"
	event.Source = "pbx-main"
	event.Status = models.StatusAnswered
	event.Note = "regular"
	event.Meta.CallerName = "Ion Popescu"
	event.Meta.PersonID = &pid

	if _, err := db.InsertCall(ctx, event); err != nil {
		t.Fatalf("InsertCall() error = %v", err)
	}

	events, err := db.RecentCalls(ctx, 10)
	if err != nil {
		t.Fatalf("RecentCalls() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("RecentCalls() returned %d events, want 1", len(events))
	}

	got := events[0]
	if got.Extension != "104" || got.Source != "pbx-main" || got.Note != "regular" {
		t.Errorf("optional fields lost: %+v", got)
	}
	if got.Status != models.StatusAnswered {
		t.Errorf("Status = %q, want answered", got.Status)
	}
	if got.Meta.CallerName != "Ion Popescu" {
		t.Errorf("CallerName = %q, want Ion Popescu", got.Meta.CallerName)
	}
	if got.Meta.PersonID == nil || *got.Meta.PersonID != 7 {
		t.Errorf("PersonID = %v, want 7", got.Meta.PersonID)
	}
}

func TestRecentCallsOrderAndLimit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := db.InsertCall(ctx, testEvent("0721000000", "0721000000")); err != nil {
			t.Fatalf("InsertCall() error = %v", err)
		}
	}

	events, err := db.RecentCalls(ctx, 3)
	if err != nil {
		t.Fatalf("RecentCalls() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("RecentCalls(3) returned %d events", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i-1].ID <= events[i].ID && len(events[i-1].ID) == len(events[i].ID) {
			t.Errorf("events not in descending id order: %s before %s", events[i-1].ID, events[i].ID)
		}
	}
}

func TestRecentCallsNormalizesStoredStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Rows written by older builds may carry status text outside the
	// current vocabulary; reads must map them onto canonical statuses.
	mustExec(t, db, `INSERT INTO incoming_calls (id, phone, digits, status, received_at) VALUES
		(1, '0721000111', '0721000111', 'NO_ANSWER', CURRENT_TIMESTAMP),
		(2, '0721000222', '0721000222', 'weird-pbx-code', CURRENT_TIMESTAMP),
		(3, '0721000333', '0721000333', 'Answered', CURRENT_TIMESTAMP)`)

	events, err := db.RecentCalls(ctx, 10)
	if err != nil {
		t.Fatalf("RecentCalls() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("RecentCalls() returned %d events, want 3", len(events))
	}

	// Newest first: row 3, 2, 1.
	if events[0].Status != models.StatusAnswered {
		t.Errorf("events[0].Status = %q, want answered", events[0].Status)
	}
	if events[1].Status != models.StatusRinging {
		t.Errorf("events[1].Status = %q, want ringing", events[1].Status)
	}
	if events[2].Status != models.StatusMissed {
		t.Errorf("events[2].Status = %q, want missed", events[2].Status)
	}
}

func TestRecentCallsBackfillsCallerFromDirectory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO people (id, name, phone) VALUES (3, 'Maria Ionescu', '+40 721 111 222')`)

	// Row persisted without identity; the directory join should backfill it.
	if _, err := db.InsertCall(ctx, testEvent("+40721111222", "40721111222")); err != nil {
		t.Fatalf("InsertCall() error = %v", err)
	}

	events, err := db.RecentCalls(ctx, 1)
	if err != nil {
		t.Fatalf("RecentCalls() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("RecentCalls() returned %d events", len(events))
	}
	if events[0].Meta.CallerName != "Maria Ionescu" {
		t.Errorf("CallerName = %q, want Maria Ionescu", events[0].Meta.CallerName)
	}
	if events[0].Meta.PersonID == nil || *events[0].Meta.PersonID != 3 {
		t.Errorf("PersonID = %v, want 3", events[0].Meta.PersonID)
	}
}

func TestFindPersonByPhone(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO people (id, name, phone) VALUES (1, 'Ion Popescu', '0721-111-222')`)

	t.Run("digit match ignores formatting", func(t *testing.T) {
		person, err := db.FindPersonByPhone(ctx, "0721111222")
		if err != nil {
			t.Fatalf("FindPersonByPhone() error = %v", err)
		}
		if person == nil {
			t.Fatal("FindPersonByPhone() = nil, want match")
		}
		if person.ID != 1 || person.Name != "Ion Popescu" {
			t.Errorf("person = %+v", person)
		}
	})

	t.Run("no match returns nil without error", func(t *testing.T) {
		person, err := db.FindPersonByPhone(ctx, "0799999999")
		if err != nil {
			t.Fatalf("FindPersonByPhone() error = %v", err)
		}
		if person != nil {
			t.Errorf("FindPersonByPhone() = %+v, want nil", person)
		}
	})

	t.Run("empty digits short-circuits", func(t *testing.T) {
		person, err := db.FindPersonByPhone(ctx, "")
		if err != nil {
			t.Fatalf("FindPersonByPhone() error = %v", err)
		}
		if person != nil {
			t.Errorf("FindPersonByPhone(\"\") = %+v, want nil", person)
		}
	})
}

func TestPersonNameByID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO people (id, name, phone) VALUES (5, 'Elena Radu', '0722333444')`)

	name, err := db.PersonNameByID(ctx, 5)
	if err != nil {
		t.Fatalf("PersonNameByID() error = %v", err)
	}
	if name != "Elena Radu" {
		t.Errorf("name = %q, want Elena Radu", name)
	}

	name, err = db.PersonNameByID(ctx, 999)
	if err != nil {
		t.Fatalf("PersonNameByID(unknown) error = %v", err)
	}
	if name != "" {
		t.Errorf("name for unknown id = %q, want empty", name)
	}
}

func TestCountNoShows(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO no_shows (id, person_id) VALUES (1, 4), (2, 4), (3, 9)`)

	count, err := db.CountNoShows(ctx, 4)
	if err != nil {
		t.Fatalf("CountNoShows() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	count, err = db.CountNoShows(ctx, 123)
	if err != nil {
		t.Fatalf("CountNoShows(unknown) error = %v", err)
	}
	if count != 0 {
		t.Errorf("count for unknown person = %d, want 0", count)
	}
}

func TestLastSegment(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO stations (id, name) VALUES (1, 'Cluj'), (2, 'Turda'), (3, 'Alba Iulia')`)
	mustExec(t, db, `INSERT INTO reservations (id, person_id, board_station_id, exit_station_id) VALUES
		(1, 8, 1, 2),
		(2, 8, 2, 3),
		(3, 8, 1, NULL)`)

	t.Run("only the latest reservation counts", func(t *testing.T) {
		// Person 8's latest reservation (3) has no exit station. Older
		// complete reservations must not be used as a fallback.
		seg, err := db.LastSegment(ctx, 8)
		if err != nil {
			t.Fatalf("LastSegment() error = %v", err)
		}
		if seg != nil {
			t.Errorf("LastSegment() = %+v, want nil for incomplete latest reservation", seg)
		}
	})

	t.Run("complete latest reservation returns its segment", func(t *testing.T) {
		mustExec(t, db, `INSERT INTO reservations (id, person_id, board_station_id, exit_station_id) VALUES (4, 8, 1, 2)`)

		seg, err := db.LastSegment(ctx, 8)
		if err != nil {
			t.Fatalf("LastSegment() error = %v", err)
		}
		if seg == nil {
			t.Fatal("LastSegment() = nil, want segment")
		}
		if seg.Board != "Cluj" || seg.Exit != "Turda" {
			t.Errorf("segment = %+v, want Cluj -> Turda", seg)
		}
	})

	t.Run("unknown station reference yields nil", func(t *testing.T) {
		mustExec(t, db, `INSERT INTO reservations (id, person_id, board_station_id, exit_station_id) VALUES (5, 9, 1, 99)`)

		seg, err := db.LastSegment(ctx, 9)
		if err != nil {
			t.Fatalf("LastSegment() error = %v", err)
		}
		if seg != nil {
			t.Errorf("LastSegment() = %+v, want nil for dangling station id", seg)
		}
	})

	t.Run("no reservations returns nil", func(t *testing.T) {
		seg, err := db.LastSegment(ctx, 777)
		if err != nil {
			t.Fatalf("LastSegment() error = %v", err)
		}
		if seg != nil {
			t.Errorf("LastSegment() = %+v, want nil", seg)
		}
	})
}

func TestPassthroughQueries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO routes (id, name, order_index, visible_for_drivers) VALUES
		(1, 'Cluj - Turda', 2, 1),
		(2, 'Cluj - Dej', 1, 1),
		(3, 'Internal shuttle', 3, 0),
		(4, 'Cluj - Gherla', NULL, NULL)`)
	mustExec(t, db, `INSERT INTO stations (id, name) VALUES (10, 'Cluj'), (11, 'Turda')`)
	mustExec(t, db, `INSERT INTO route_stations (id, route_id, station_id, order_index) VALUES
		(1, 1, 11, 2),
		(2, 1, 10, 1)`)
	mustExec(t, db, `INSERT INTO price_lists (id, name, route_id) VALUES (1, 'Standard', 1), (2, 'Weekend', NULL)`)

	t.Run("routes hide invisible and sort by order", func(t *testing.T) {
		routes, err := db.ListRoutes(ctx)
		if err != nil {
			t.Fatalf("ListRoutes() error = %v", err)
		}
		// Route 4 has no visibility flag set, which counts as visible;
		// only an explicit 0 hides a route. Its missing order_index
		// sorts it after every indexed route.
		if len(routes) != 3 {
			t.Fatalf("ListRoutes() returned %d routes, want 3", len(routes))
		}
		if routes[0].Name != "Cluj - Dej" || routes[1].Name != "Cluj - Turda" || routes[2].Name != "Cluj - Gherla" {
			t.Errorf("route order = %q, %q, %q", routes[0].Name, routes[1].Name, routes[2].Name)
		}
	})

	t.Run("route stations joined and ordered", func(t *testing.T) {
		stations, err := db.ListRouteStations(ctx, 1)
		if err != nil {
			t.Fatalf("ListRouteStations() error = %v", err)
		}
		if len(stations) != 2 {
			t.Fatalf("ListRouteStations() returned %d stations, want 2", len(stations))
		}
		if stations[0].StationName != "Cluj" || stations[1].StationName != "Turda" {
			t.Errorf("station order = %q, %q", stations[0].StationName, stations[1].StationName)
		}
	})

	t.Run("price lists include null route refs", func(t *testing.T) {
		lists, err := db.ListPriceLists(ctx)
		if err != nil {
			t.Fatalf("ListPriceLists() error = %v", err)
		}
		if len(lists) != 2 {
			t.Fatalf("ListPriceLists() returned %d lists, want 2", len(lists))
		}
		if lists[1].RouteID != nil {
			t.Errorf("lists[1].RouteID = %v, want nil", lists[1].RouteID)
		}
	})
}

func mustExec(t *testing.T, db *DB, query string) {
	t.Helper()
	if _, err := db.conn.Exec(query); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
