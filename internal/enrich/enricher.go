// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

// Package enrich resolves caller identity and travel-history context for
// incoming call events from the directory store. Enrichment is strictly
// best-effort: a failed or unavailable lookup produces an unenriched (or
// partially enriched) event, never an error.
package enrich

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/dispecer/internal/logging"
	"github.com/tomtom215/dispecer/internal/metrics"
	"github.com/tomtom215/dispecer/internal/models"
)

// DirectoryStore is the read-only directory surface the enricher needs.
// *database.DB satisfies it.
type DirectoryStore interface {
	FindPersonByPhone(ctx context.Context, digits string) (*models.Person, error)
	PersonNameByID(ctx context.Context, personID int64) (string, error)
	CountNoShows(ctx context.Context, personID int64) (int, error)
	LastSegment(ctx context.Context, personID int64) (*models.Segment, error)
}

// Enricher attaches caller name, person identifier, last traveled segment
// and no-show count to call events. Directory lookups go through a circuit
// breaker so a degraded database stops delaying ingestion; a rejected or
// failed lookup behaves exactly like a miss.
type Enricher struct {
	store DirectoryStore
	cb    *gobreaker.CircuitBreaker[any]
}

// New creates an Enricher around the given directory store.
// Circuit breaker configuration:
// - Opens after 60% failure rate with minimum 10 requests
// - 1 minute measurement window
// - 30 second timeout before attempting recovery
func New(store DirectoryStore) *Enricher {
	metrics.EnrichBreakerState.Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "directory-lookup",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Enrichment circuit breaker state change")
			metrics.EnrichBreakerState.Set(stateToFloat(to))
		},
	})

	return &Enricher{store: store, cb: cb}
}

// Enrich resolves identity metadata for an event and returns the enriched
// copy. It never returns an error: every lookup failure is logged, counted,
// and treated as a miss, so the event always reaches history and
// subscribers.
//
// Resolution order:
//  1. an already-resolved person identifier is kept as-is
//  2. otherwise the directory is searched by the event's digits; a match
//     contributes its identifier and, if the event has no name, its name
//  3. with an identifier known but the name still missing, the name is
//     fetched by identifier
//
// Independently of identity resolution, the no-show count and the latest
// reserved travel segment are fetched for the resolved person.
func (e *Enricher) Enrich(ctx context.Context, event models.CallEvent) models.CallEvent {
	start := time.Now()
	failed := ""

	if event.Meta.PersonID == nil && event.Digits != "" {
		person, err := lookup(e.cb, func() (*models.Person, error) {
			return e.store.FindPersonByPhone(ctx, event.Digits)
		})
		if err != nil {
			logging.Warn().Err(err).Str("call_id", event.ID).Msg("Caller lookup failed")
			failed = "person"
		} else if person != nil {
			pid := person.ID
			event.Meta.PersonID = &pid
			if event.Meta.CallerName == "" {
				event.Meta.CallerName = person.Name
			}
		}
	}

	if event.Meta.PersonID != nil && event.Meta.CallerName == "" {
		name, err := lookup(e.cb, func() (string, error) {
			return e.store.PersonNameByID(ctx, *event.Meta.PersonID)
		})
		if err != nil {
			logging.Warn().Err(err).Str("call_id", event.ID).Msg("Caller name lookup failed")
			failed = "person"
		} else {
			event.Meta.CallerName = name
		}
	}

	if event.Meta.PersonID != nil {
		pid := *event.Meta.PersonID

		count, err := lookup(e.cb, func() (int, error) {
			return e.store.CountNoShows(ctx, pid)
		})
		if err != nil {
			logging.Warn().Err(err).Str("call_id", event.ID).Msg("No-show count lookup failed")
			failed = "no_show"
		} else {
			event.Meta.NoShowCount = count
		}

		segment, err := lookup(e.cb, func() (*models.Segment, error) {
			return e.store.LastSegment(ctx, pid)
		})
		if err != nil {
			logging.Warn().Err(err).Str("call_id", event.ID).Msg("Last segment lookup failed")
			failed = "segment"
		} else if segment != nil {
			event.Meta.LastSeg = segment
		}
	}

	metrics.RecordEnrich(time.Since(start), failed)
	return event
}

// lookup routes one typed directory call through the shared breaker.
func lookup[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	result, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
