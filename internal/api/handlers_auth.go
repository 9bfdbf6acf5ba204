// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dispecer/internal/logging"
	"github.com/tomtom215/dispecer/internal/models"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /api/v1/auth/login for the dispatcher console.
// Credentials are checked against the configured admin account; a valid
// pair yields a signed JWT.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.jwt == nil || h.creds == nil {
		respondError(w, http.StatusServiceUnavailable, "AUTH_DISABLED", "Authentication is not enabled", nil)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err)
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if !h.creds.Validate(req.Username, req.Password) {
		logging.Warn().Str("username", sanitizeLogValue(req.Username)).Msg("Login rejected: invalid credentials")
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
		return
	}

	token, err := h.jwt.GenerateToken(req.Username, "admin")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to generate token", err)
		return
	}

	logging.Info().Str("username", sanitizeLogValue(req.Username)).Msg("Login succeeded")

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: loginResponse{
			Token:     token,
			ExpiresAt: time.Now().Add(h.cfg.Security.SessionTimeout),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}
