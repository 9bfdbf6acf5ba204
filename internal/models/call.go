// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

// Package models defines the shared data structures for Dispecer:
// the call-event model distributed to dispatcher consoles, the directory
// entities it is enriched from, and the API response envelope.
package models

import "time"

// CallStatus is the canonical state of an incoming call.
type CallStatus string

// Canonical call statuses. Unrecognized PBX statuses normalize to
// StatusRinging; "no answer" variants normalize to StatusMissed.
const (
	StatusRinging  CallStatus = "ringing"
	StatusAnswered CallStatus = "answered"
	StatusMissed   CallStatus = "missed"
	StatusRejected CallStatus = "rejected"
)

// Segment is a board/exit station pair from a passenger's reservation.
type Segment struct {
	Board string `json:"board"`
	Exit  string `json:"exit"`
}

// CallMeta carries the identity and travel-history context attached to a
// call by the enricher. All fields default to their zero value when the
// caller cannot be resolved; NoShowCount is 0 rather than absent so the
// console can always render it.
type CallMeta struct {
	CallerName  string   `json:"callerName,omitempty"`
	PersonID    *int64   `json:"personId,omitempty"`
	LastSeg     *Segment `json:"lastSegment,omitempty"`
	NoShowCount int      `json:"noShowCount"`
}

// CallEvent is one incoming call as distributed to subscribers and kept in
// the bounded history. The identifier is a string-backed monotonic integer:
// storage-assigned when the insert succeeds, watermark-allocated otherwise.
//
// A CallEvent is created once at ingress and is immutable apart from its
// Meta, which may be refreshed by a later non-destructive re-enrichment.
type CallEvent struct {
	ID         string     `json:"id"`
	Phone      string     `json:"phone"`
	Digits     string     `json:"digits"`
	Extension  string     `json:"extension,omitempty"`
	Source     string     `json:"source,omitempty"`
	Status     CallStatus `json:"status"`
	Note       string     `json:"note,omitempty"`
	ReceivedAt time.Time  `json:"received_at"`
	Meta       CallMeta   `json:"meta"`
}

// Person is a directory entry matched against a call's digits.
type Person struct {
	ID    int64
	Name  string
	Phone string
}

// Route is a driver-visible transport route.
type Route struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	OrderIndex        *int64 `json:"order_index"`
	VisibleForDrivers *int64 `json:"visible_for_drivers"`
}

// RouteStation is one stop of a route, joined with its station name.
type RouteStation struct {
	ID          int64  `json:"id"`
	RouteID     int64  `json:"route_id"`
	StationID   int64  `json:"station_id"`
	OrderIndex  *int64 `json:"order_index"`
	StationName string `json:"station_name"`
}

// PriceList is a fare table attached to a route.
type PriceList struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	RouteID *int64 `json:"route_id"`
}
