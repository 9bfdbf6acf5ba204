// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

// Package api provides the HTTP surface of Dispecer using the Chi router:
// the PBX webhook ingress, the SSE and WebSocket call streams, the
// last/log query endpoints, the mobile passthrough reads and the
// authentication endpoints.
package api
