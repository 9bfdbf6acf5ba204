// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dispecer/internal/logging"
	"github.com/tomtom215/dispecer/internal/metrics"
	"github.com/tomtom215/dispecer/internal/models"
)

// subscriberBuffer is the per-subscriber frame queue depth. A subscriber
// that falls this far behind the broadcast rate is dropped rather than
// allowed to stall the fan-out.
const subscriberBuffer = 64

// subscriberIDCounter generates unique, monotonically increasing subscriber
// identifiers so log lines can correlate a connection's lifecycle.
var subscriberIDCounter atomic.Uint64

// Frame is one broadcast unit: a call event serialized once, fanned out to
// every subscriber regardless of transport.
type Frame struct {
	ID   string
	Data []byte
}

// Subscriber is one connected stream consumer. Frames arrive on Events;
// Done is closed exactly once when the subscriber is deregistered, whether
// by its own disconnect, by falling behind, or by broker shutdown.
type Subscriber struct {
	id        uint64
	transport string
	events    chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

// Events returns the subscriber's frame channel.
func (s *Subscriber) Events() <-chan Frame {
	return s.events
}

// Done is closed when the subscriber has been deregistered.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// ID returns the subscriber's unique identifier.
func (s *Subscriber) ID() uint64 {
	return s.id
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Broker maintains the set of connected subscribers and fans out call
// events to all of them. Fan-out snapshots the subscriber set under lock,
// then delivers without holding it, so subscribe/unsubscribe during a
// broadcast cannot corrupt iteration.
type Broker struct {
	mu   sync.RWMutex
	subs map[uint64]*Subscriber
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[uint64]*Subscriber),
	}
}

// Subscribe registers a new stream consumer. transport is "sse" or
// "websocket", used only for metrics and logs.
func (b *Broker) Subscribe(transport string) *Subscriber {
	sub := &Subscriber{
		id:        subscriberIDCounter.Add(1),
		transport: transport,
		events:    make(chan Frame, subscriberBuffer),
		done:      make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	total := len(b.subs)
	b.mu.Unlock()

	metrics.StreamSubscribers.WithLabelValues(transport).Inc()
	logging.Info().
		Uint64("subscriber_id", sub.id).
		Str("transport", transport).
		Int("total_subscribers", total).
		Msg("Stream subscriber connected")
	return sub
}

// Unsubscribe deregisters a subscriber. Safe to call multiple times; only
// the first call has any effect.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	_, present := b.subs[sub.id]
	if present {
		delete(b.subs, sub.id)
	}
	total := len(b.subs)
	b.mu.Unlock()

	if !present {
		return
	}

	sub.close()
	metrics.StreamSubscribers.WithLabelValues(sub.transport).Dec()
	logging.Info().
		Uint64("subscriber_id", sub.id).
		Str("transport", sub.transport).
		Int("total_subscribers", total).
		Msg("Stream subscriber disconnected")
}

// Broadcast serializes the event once and delivers it to every current
// subscriber. A subscriber whose buffer is full is dropped: a dispatcher
// console that cannot keep up with call volume must reconnect rather than
// exert backpressure on ingestion.
func (b *Broker) Broadcast(event models.CallEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.Error().Err(err).Str("call_id", event.ID).Msg("Failed to serialize call event")
		return
	}
	frame := Frame{ID: event.ID, Data: data}

	b.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	for _, sub := range snapshot {
		select {
		case sub.events <- frame:
			metrics.StreamFramesSent.WithLabelValues(sub.transport).Inc()
		default:
			logging.Warn().
				Uint64("subscriber_id", sub.id).
				Str("transport", sub.transport).
				Msg("Dropping slow stream subscriber")
			metrics.StreamSubscribersDropped.Inc()
			b.Unsubscribe(sub)
		}
	}
}

// SubscriberCount returns the number of currently connected subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// CloseAll deregisters every subscriber. Used at shutdown so connected
// consoles observe the close and reconnect to the next instance.
func (b *Broker) CloseAll() {
	b.mu.Lock()
	subs := make([]*Subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[uint64]*Subscriber)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
		metrics.StreamSubscribers.WithLabelValues(sub.transport).Dec()
	}
	if len(subs) > 0 {
		logging.Info().Int("count", len(subs)).Msg("Closed all stream subscribers")
	}
}

// Serve blocks until the context is canceled, then closes every
// subscriber. It lets the broker sit in the supervision tree alongside the
// HTTP server.
func (b *Broker) Serve(ctx context.Context) error {
	<-ctx.Done()
	b.CloseAll()
	return ctx.Err()
}
