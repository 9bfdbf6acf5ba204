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

// mobileRouteStationsRequest validates the route-stations query.
type mobileRouteStationsRequest struct {
	RouteID int64 `validate:"required,gt=0"`
}

// MobileRoutes handles GET /api/v1/mobile/routes, returning the routes
// marked visible for drivers, in display order.
func (h *Handler) MobileRoutes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	routes, err := h.db.ListRoutes(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load routes", err)
		return
	}
	if routes == nil {
		routes = []models.Route{}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   routes,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// MobileRouteStations handles GET /api/v1/mobile/route-stations?route_id=N,
// returning the ordered stops of one route.
func (h *Handler) MobileRouteStations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := mobileRouteStationsRequest{
		RouteID: int64(getIntParam(r, "route_id", 0)),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, "route_id is required", nil)
		return
	}

	stations, err := h.db.ListRouteStations(r.Context(), req.RouteID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load route stations", err)
		return
	}
	if stations == nil {
		stations = []models.RouteStation{}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   stations,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// MobilePriceLists handles GET /api/v1/mobile/price-lists.
func (h *Handler) MobilePriceLists(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	lists, err := h.db.ListPriceLists(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load price lists", err)
		return
	}
	if lists == nil {
		lists = []models.PriceList{}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   lists,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
