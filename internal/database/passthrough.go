// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/dispecer/internal/metrics"
	"github.com/tomtom215/dispecer/internal/models"
)

// ListRoutes returns the driver-visible routes ordered by order_index then
// name. Routes with no visibility flag set are treated as visible, and
// routes without an order_index sort after every indexed route.
func (db *DB) ListRoutes(ctx context.Context) ([]models.Route, error) {
	query := `SELECT id, name, order_index, visible_for_drivers
		FROM routes
		WHERE visible_for_drivers = 1 OR visible_for_drivers IS NULL
		ORDER BY COALESCE(order_index, 999999), name`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query)
	metrics.RecordDBQuery("SELECT", "routes", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer closeRows(rows)

	routes := []models.Route{}
	for rows.Next() {
		var route models.Route
		if err := rows.Scan(&route.ID, &route.Name, &route.OrderIndex, &route.VisibleForDrivers); err != nil {
			return nil, fmt.Errorf("failed to scan route row: %w", err)
		}
		routes = append(routes, route)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate routes: %w", err)
	}
	return routes, nil
}

// ListRouteStations returns the stops of one route in travel order, each
// joined with its station name.
func (db *DB) ListRouteStations(ctx context.Context, routeID int64) ([]models.RouteStation, error) {
	query := `SELECT rs.id, rs.route_id, rs.station_id, rs.order_index, s.name
		FROM route_stations rs
		JOIN stations s ON rs.station_id = s.id
		WHERE rs.route_id = ?
		ORDER BY COALESCE(rs.order_index, 0), rs.id`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, routeID)
	metrics.RecordDBQuery("SELECT", "route_stations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query route stations: %w", err)
	}
	defer closeRows(rows)

	stations := []models.RouteStation{}
	for rows.Next() {
		var rs models.RouteStation
		if err := rows.Scan(&rs.ID, &rs.RouteID, &rs.StationID, &rs.OrderIndex, &rs.StationName); err != nil {
			return nil, fmt.Errorf("failed to scan route station row: %w", err)
		}
		stations = append(stations, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate route stations: %w", err)
	}
	return stations, nil
}

// ListPriceLists returns all fare tables ordered by id.
func (db *DB) ListPriceLists(ctx context.Context) ([]models.PriceList, error) {
	query := `SELECT id, name, route_id FROM price_lists ORDER BY id`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query)
	metrics.RecordDBQuery("SELECT", "price_lists", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query price lists: %w", err)
	}
	defer closeRows(rows)

	lists := []models.PriceList{}
	for rows.Next() {
		var pl models.PriceList
		if err := rows.Scan(&pl.ID, &pl.Name, &pl.RouteID); err != nil {
			return nil, fmt.Errorf("failed to scan price list row: %w", err)
		}
		lists = append(lists, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price lists: %w", err)
	}
	return lists, nil
}
