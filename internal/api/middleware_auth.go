// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package api

import (
	"net/http"
	"strings"

	"github.com/tomtom215/dispecer/internal/logging"
)

// Authenticate guards the dispatcher-facing read endpoints. Tokens are
// accepted from the Authorization header or, because EventSource cannot set
// headers, from the token query parameter. With auth mode "none" every
// request passes.
func (h *Handler) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.Security.AuthMode == "none" || h.jwt == nil {
			next(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authentication token", nil)
			return
		}

		claims, err := h.jwt.ValidateToken(token)
		if err != nil {
			logging.Warn().Err(err).Msg("Token validation failed")
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", nil)
			return
		}

		logging.Debug().Str("username", sanitizeLogValue(claims.Username)).Msg("Request authenticated")
		next(w, r)
	}
}

// bearerToken extracts the JWT from the Authorization header, falling back
// to the token query parameter.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
