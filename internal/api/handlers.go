// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package api

import (
	"sync"
	"time"

	"github.com/tomtom215/dispecer/internal/audit"
	"github.com/tomtom215/dispecer/internal/auth"
	"github.com/tomtom215/dispecer/internal/config"
	"github.com/tomtom215/dispecer/internal/database"
	"github.com/tomtom215/dispecer/internal/dispatch"
	"github.com/tomtom215/dispecer/internal/stream"
)

// Handler holds the dependencies shared by all HTTP handlers. It is
// constructed once at startup and injected into the router; it owns no
// mutable pipeline state of its own beyond the one-time missing-secret
// warning flag.
type Handler struct {
	cfg      *config.Config
	service  *dispatch.Service
	db       *database.DB
	broker   *stream.Broker
	jwt      *auth.JWTManager
	creds    *auth.CredentialChecker
	audit    *audit.Recorder
	start    time.Time
	warnOnce sync.Once
}

// NewHandler creates the handler set. jwt and creds may be nil when the
// auth mode is "none"; the audit recorder is required but best-effort.
func NewHandler(
	cfg *config.Config,
	service *dispatch.Service,
	db *database.DB,
	broker *stream.Broker,
	jwtManager *auth.JWTManager,
	creds *auth.CredentialChecker,
	recorder *audit.Recorder,
) *Handler {
	return &Handler{
		cfg:     cfg,
		service: service,
		db:      db,
		broker:  broker,
		jwt:     jwtManager,
		creds:   creds,
		audit:   recorder,
		start:   time.Now(),
	}
}
