// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

// Package dispatch owns the call distribution pipeline and its shared
// mutable state: the bounded most-recent-first history, the last-event
// pointer, the identifier watermark, and the one-time history warm-load
// latch. All of it is guarded by a single mutex; no lock is ever held
// across a database wait.
package dispatch

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/tomtom215/dispecer/internal/logging"
	"github.com/tomtom215/dispecer/internal/metrics"
	"github.com/tomtom215/dispecer/internal/models"
)

// ErrPhoneMissing reports that no usable phone number could be derived
// from a webhook payload.
var ErrPhoneMissing = errors.New("phone missing")

// CallStore is the persistence surface the service needs. *database.DB
// satisfies it.
type CallStore interface {
	InsertCall(ctx context.Context, event *models.CallEvent) (int64, error)
	RecentCalls(ctx context.Context, limit int) ([]models.CallEvent, error)
}

// Enricher resolves identity metadata for a call event. Implementations
// never fail; a lookup problem yields the event unchanged.
type Enricher interface {
	Enrich(ctx context.Context, event models.CallEvent) models.CallEvent
}

// Broadcaster fans a call event out to connected stream subscribers.
type Broadcaster interface {
	Broadcast(event models.CallEvent)
}

type warmState int

const (
	warmNotLoaded warmState = iota
	warmLoading
	warmLoaded
)

// Service runs the ingest pipeline and serves the query surface backed by
// the in-memory history.
type Service struct {
	store    CallStore
	enricher Enricher
	broker   Broadcaster
	capacity int

	mu        sync.Mutex
	history   []models.CallEvent // most-recent-first, len <= capacity
	lastCall  *models.CallEvent
	watermark int64
	warm      warmState
	warmDone  chan struct{}
}

// NewService creates a Service with the given history capacity.
func NewService(store CallStore, enricher Enricher, broker Broadcaster, capacity int) *Service {
	return &Service{
		store:    store,
		enricher: enricher,
		broker:   broker,
		capacity: capacity,
	}
}

// Ingest runs one webhook payload through the pipeline:
// validate, allocate an identifier, persist best-effort, enrich, update
// history, broadcast. The returned event is what subscribers observed.
//
// Persistence failure never fails the request: the identifier falls back
// to the local watermark and the event still reaches history and
// subscribers. Enrichment runs synchronously so subscribers and history
// always observe identity-resolved events.
func (s *Service) Ingest(ctx context.Context, event models.CallEvent) (models.CallEvent, error) {
	start := time.Now()

	if event.Digits == "" {
		return models.CallEvent{}, ErrPhoneMissing
	}
	if event.Status == "" {
		event.Status = models.StatusRinging
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	// Warm-load before allocating so historical identifiers are observed
	// by the watermark before any new one is minted.
	s.ensureHistoryLoaded(ctx)

	id, err := s.store.InsertCall(ctx, &event)
	if err != nil {
		logging.Warn().Err(err).Str("digits", event.Digits).Msg("Call persist failed, falling back to watermark id")
		metrics.CallPersistFailures.Inc()
		id = s.nextWatermarkID()
	} else {
		s.observeID(id)
	}
	event.ID = strconv.FormatInt(id, 10)

	event = s.enricher.Enrich(ctx, event)

	s.mu.Lock()
	s.storeInHistoryLocked(event)
	s.mu.Unlock()

	s.broker.Broadcast(event)

	metrics.RecordIngest(string(event.Status), time.Since(start))
	logging.Info().
		Str("call_id", event.ID).
		Str("status", string(event.Status)).
		Str("caller", event.Meta.CallerName).
		Msg("Incoming call distributed")
	return event, nil
}

// Last returns the most recently stored call event with freshly resolved
// metadata, or nil when no call has been observed. The refresh is
// non-destructive: identity and ordering never change, only the metadata
// bag is updated.
func (s *Service) Last(ctx context.Context) *models.CallEvent {
	s.ensureHistoryLoaded(ctx)

	s.mu.Lock()
	if s.lastCall == nil {
		s.mu.Unlock()
		return nil
	}
	current := *s.lastCall
	s.mu.Unlock()

	refreshed := s.enricher.Enrich(ctx, current)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Only fold the refresh back in if the event is still the latest;
	// a call that arrived during the lookups wins.
	if s.lastCall != nil && s.lastCall.ID == refreshed.ID {
		s.lastCall.Meta = refreshed.Meta
		for i := range s.history {
			if s.history[i].ID == refreshed.ID {
				s.history[i].Meta = refreshed.Meta
				break
			}
		}
	}
	return &refreshed
}

// LastEvent returns the current last event without re-enrichment, for the
// stream replay-on-connect frame.
func (s *Service) LastEvent(ctx context.Context) (models.CallEvent, bool) {
	s.ensureHistoryLoaded(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastCall == nil {
		return models.CallEvent{}, false
	}
	return *s.lastCall, true
}

// Log reads up to limit call events straight from persistent storage,
// newest first, independent of the in-memory history. limit is clamped to
// [1, capacity]; non-positive values select the default.
func (s *Service) Log(ctx context.Context, limit, defaultLimit int) ([]models.CallEvent, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > s.capacity {
		limit = s.capacity
	}
	if limit < 1 {
		limit = 1
	}
	return s.store.RecentCalls(ctx, limit)
}

// History returns a snapshot of the in-memory history, most recent first.
func (s *Service) History(ctx context.Context) []models.CallEvent {
	s.ensureHistoryLoaded(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]models.CallEvent, len(s.history))
	copy(snapshot, s.history)
	return snapshot
}

// storeInHistoryLocked inserts an event at the front of the history,
// replacing any existing entry with the same identifier and trimming the
// oldest entries past capacity. Caller holds s.mu.
func (s *Service) storeInHistoryLocked(event models.CallEvent) {
	for i := range s.history {
		if s.history[i].ID == event.ID {
			s.history = append(s.history[:i], s.history[i+1:]...)
			break
		}
	}
	s.history = append([]models.CallEvent{event}, s.history...)
	if len(s.history) > s.capacity {
		s.history = s.history[:s.capacity]
	}
	stored := s.history[0]
	s.lastCall = &stored
}

// nextWatermarkID mints a local identifier when storage could not assign
// one. The watermark never goes backwards, so fallback identifiers stay
// unique and increasing relative to everything already observed.
func (s *Service) nextWatermarkID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermark++
	return s.watermark
}

// observeID advances the watermark to at least id.
func (s *Service) observeID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id > s.watermark {
		s.watermark = id
	}
}

// ensureHistoryLoaded warm-loads the history from storage exactly once.
// Concurrent callers during the load wait for it to finish; a failed load
// resets the latch so the next access retries instead of permanently
// serving an empty cache.
func (s *Service) ensureHistoryLoaded(ctx context.Context) {
	s.mu.Lock()
	switch s.warm {
	case warmLoaded:
		s.mu.Unlock()
		return
	case warmLoading:
		done := s.warmDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	case warmNotLoaded:
		s.warm = warmLoading
		s.warmDone = make(chan struct{})
		s.mu.Unlock()
	}

	events, err := s.store.RecentCalls(ctx, s.capacity)
	if err == nil {
		// Enrich outside the lock, oldest first, so replay through
		// storeInHistoryLocked reproduces newest-first ordering.
		for i := len(events) - 1; i >= 0; i-- {
			events[i] = s.enricher.Enrich(ctx, events[i])
		}
	}

	s.mu.Lock()
	defer func() {
		close(s.warmDone)
		s.mu.Unlock()
	}()

	if err != nil {
		logging.Warn().Err(err).Msg("History warm load failed, will retry on next access")
		s.warm = warmNotLoaded
		return
	}

	for i := len(events) - 1; i >= 0; i-- {
		s.storeInHistoryLocked(events[i])
		if id, parseErr := strconv.ParseInt(events[i].ID, 10, 64); parseErr == nil && id > s.watermark {
			s.watermark = id
		}
	}
	s.warm = warmLoaded
	if len(events) > 0 {
		logging.Info().Int("count", len(events)).Msg("Call history warm-loaded")
	}
}
