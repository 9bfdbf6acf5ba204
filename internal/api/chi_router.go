// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/dispecer/internal/metrics"
	"github.com/tomtom215/dispecer/internal/middleware"
)

// Login attempts are limited much harder than regular traffic.
const (
	loginRateLimit  = 5
	loginRateWindow = 5 * time.Minute
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so it can be used with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// NewRouter wires the complete HTTP surface onto a Chi router.
func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-PBX-Secret", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	r.Handle("/metrics", promhttp.Handler())

	// Pipeline endpoints keep the original wire bodies. The webhook checks
	// its own shared secret; the read endpoints require an authenticated
	// caller. The stream endpoints are long-lived and therefore skip the
	// request-duration instrumentation.
	r.Route("/incoming-calls", func(r chi.Router) {
		r.Use(h.rateLimit())

		r.With(chiMiddleware(middleware.PrometheusMetrics)).
			Post("/", h.IncomingCall)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware(h.Authenticate))
			r.Get("/stream", h.CallStream)
			r.Get("/ws", h.CallWS)
			r.With(chiMiddleware(middleware.PrometheusMetrics)).Get("/last", h.LastCall)
			r.With(chiMiddleware(middleware.PrometheusMetrics)).Get("/log", h.CallLog)
		})
	})

	// Driver mobile app passthrough reads, unauthenticated.
	r.Route("/api/v1/mobile", func(r chi.Router) {
		r.Use(h.rateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/routes", h.MobileRoutes)
		r.Get("/route-stations", h.MobileRouteStations)
		r.Get("/price-lists", h.MobilePriceLists)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.With(h.loginRateLimit()).Post("/login", h.Login)
	})

	r.With(h.rateLimit()).Get("/api/v1/health", h.Health)

	return r
}

// rateLimit returns the standard per-IP limiter, or a no-op when rate
// limiting is disabled in configuration.
func (h *Handler) rateLimit() func(http.Handler) http.Handler {
	if h.cfg.Security.RateLimitDisabled {
		return passthroughMiddleware
	}
	return httprate.Limit(
		h.cfg.Security.RateLimitReqs,
		h.cfg.Security.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

// loginRateLimit returns the stricter limiter for login attempts.
func (h *Handler) loginRateLimit() func(http.Handler) http.Handler {
	if h.cfg.Security.RateLimitDisabled {
		return passthroughMiddleware
	}
	return httprate.Limit(
		loginRateLimit,
		loginRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

func passthroughMiddleware(next http.Handler) http.Handler {
	return next
}

func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	metrics.APIRateLimitHits.WithLabelValues(r.URL.Path).Inc()
	respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", nil)
}
