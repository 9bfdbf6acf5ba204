// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/dispecer/internal/models"
)

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Subscribers int    `json:"subscribers"`
	Uptime      string `json:"uptime"`
}

// Health handles GET /api/v1/health. Database reachability is checked live;
// a failed ping degrades the status without failing the endpoint, because
// the pipeline keeps delivering from in-memory state when storage is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbStatus := "up"
	status := "healthy"
	if err := h.db.Ping(r.Context()); err != nil {
		dbStatus = "down"
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: healthResponse{
			Status:      status,
			Database:    dbStatus,
			Subscribers: h.broker.SubscriberCount(),
			Uptime:      time.Since(h.start).Round(time.Second).String(),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}
