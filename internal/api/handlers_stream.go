// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/dispecer/internal/logging"
	"github.com/tomtom215/dispecer/internal/metrics"
	"github.com/tomtom215/dispecer/internal/stream"
)

const wsWriteTimeout = 10 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Cross-origin policy is enforced by the CORS middleware; the upgrader
	// accepts the handshake the middleware already allowed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// CallStream handles GET /incoming-calls/stream, a Server-Sent Events
// stream of call frames. On connect it sends the client retry directive,
// replays the most recent event if one exists, then alternates live frames
// and comment-only heartbeats until the client disconnects or the broker
// closes the subscriber.
func (h *Handler) CallStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondRaw(w, http.StatusInternalServerError, map[string]interface{}{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Subscribe before replaying so no event broadcast during connection
	// setup can fall between the replay frame and the live stream.
	sub := h.broker.Subscribe("sse")
	defer h.broker.Unsubscribe(sub)

	if _, err := w.Write(stream.RetryDirective(h.cfg.Stream.RetryMillis)); err != nil {
		return
	}

	// Replay frame: a console connecting right after an ingest sees that
	// call first, before any heartbeat. An event broadcast between Subscribe
	// and the replay read is queued on the subscriber too, so the first
	// matching live frame is dropped below to avoid delivering it twice.
	var replayed *stream.Frame
	if last, ok := h.service.LastEvent(r.Context()); ok {
		data, err := json.Marshal(last)
		if err == nil {
			frame := stream.Frame{ID: last.ID, Data: data}
			if _, err := w.Write(stream.EncodeSSE(frame)); err != nil {
				return
			}
			metrics.StreamFramesSent.WithLabelValues("sse").Inc()
			replayed = &frame
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(h.cfg.Stream.HeartbeatInterval)
	defer heartbeat.Stop()

	logging.Debug().Uint64("subscriber_id", sub.ID()).Msg("SSE subscriber connected")

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			return
		case frame, ok := <-sub.Events():
			if !ok {
				return
			}
			if duplicatesReplay(replayed, frame) {
				replayed = nil
				continue
			}
			replayed = nil
			if _, err := w.Write(stream.EncodeSSE(frame)); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := w.Write(stream.Heartbeat()); err != nil {
				return
			}
			flusher.Flush()
			metrics.StreamHeartbeatsSent.Inc()
		}
	}
}

// duplicatesReplay reports whether the first live frame repeats the frame
// already sent during replay. Only an exact match is a duplicate: a frame
// reusing the id with new data is a status update and must go through.
func duplicatesReplay(replayed *stream.Frame, frame stream.Frame) bool {
	return replayed != nil && frame.ID == replayed.ID && bytes.Equal(frame.Data, replayed.Data)
}

// CallWS handles GET /incoming-calls/ws, the WebSocket mirror of the call
// stream used by the driver app. Replay-then-live semantics match the SSE
// endpoint; keep-alive uses protocol-level pings instead of comment frames.
func (h *Handler) CallWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logging.Debug().Err(err).Msg("WebSocket close failed")
		}
	}()

	sub := h.broker.Subscribe("websocket")
	defer h.broker.Unsubscribe(sub)

	var replayed *stream.Frame
	if last, ok := h.service.LastEvent(r.Context()); ok {
		data, merr := json.Marshal(last)
		if merr == nil {
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			metrics.StreamFramesSent.WithLabelValues("websocket").Inc()
			replayed = &stream.Frame{ID: last.ID, Data: data}
		}
	}

	heartbeat := time.NewTicker(h.cfg.Stream.HeartbeatInterval)
	defer heartbeat.Stop()

	// Drain the read side so client close frames and pongs are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.broker.Unsubscribe(sub)
				return
			}
		}
	}()

	logging.Debug().Uint64("subscriber_id", sub.ID()).Msg("WebSocket subscriber connected")

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			return
		case frame, ok := <-sub.Events():
			if !ok {
				return
			}
			if duplicatesReplay(replayed, frame) {
				replayed = nil
				continue
			}
			replayed = nil
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame.Data); err != nil {
				return
			}
		case <-heartbeat.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			metrics.StreamHeartbeatsSent.Inc()
		}
	}
}
