// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package stream

import (
	"fmt"
)

// Server-sent event wire format. Every event frame carries the call
// identifier, the fixed event type "call", and the serialized event,
// terminated by a blank line. Heartbeats are comment-only frames that keep
// intermediaries from timing out the connection without reaching the
// client's event handler.

// EventType is the fixed SSE event name for call frames.
const EventType = "call"

// RetryDirective tells the client how long to wait before reconnecting
// after a dropped connection.
func RetryDirective(millis int) []byte {
	return []byte(fmt.Sprintf("retry: %d\n\n", millis))
}

// EncodeSSE renders one frame in SSE wire format.
func EncodeSSE(frame Frame) []byte {
	return []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", frame.ID, EventType, frame.Data))
}

// Heartbeat is the comment-only keep-alive frame.
func Heartbeat() []byte {
	return []byte(": keep-alive\n\n")
}
