// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

// Package main is the entry point for the Dispecer server.
//
// Dispecer distributes incoming PBX call events to dispatcher consoles in
// real time. A PBX posts webhooks to /incoming-calls; each event is
// normalized, best-effort persisted to DuckDB, enriched with the caller's
// identity and travel history, and fanned out to connected consoles over
// SSE and WebSocket streams.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (defaults, config file, env)
//  2. Database: embedded DuckDB with the call and directory schema
//  3. Stream broker: subscriber registry for SSE/WebSocket fan-out
//  4. Enricher: directory lookups behind a circuit breaker
//  5. Dispatch service: history, watermark and the ingest pipeline
//  6. Authentication: JWT or no-auth mode
//  7. HTTP server: webhook ingress, streams, queries, mobile passthrough
//
// The stream broker and HTTP server run under a suture supervisor tree;
// SIGINT/SIGTERM cancel the root context, which drains subscribers and
// shuts the server down gracefully.
//
// # Configuration
//
// Commonly used environment variables:
//
//	SERVER_PORT        listen port (default 3090)
//	DATABASE_PATH      DuckDB file path (default /data/dispecer.duckdb)
//	PBX_WEBHOOK_SECRET shared secret for the webhook (plain or bcrypt hash)
//	AUTH_MODE          jwt (default) or none
//	JWT_SECRET         32+ character signing secret (jwt mode)
//	ADMIN_USERNAME     console account (jwt mode)
//	ADMIN_PASSWORD     console password, 8+ characters (jwt mode)
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/dispecer/internal/api"
	"github.com/tomtom215/dispecer/internal/audit"
	"github.com/tomtom215/dispecer/internal/auth"
	"github.com/tomtom215/dispecer/internal/config"
	"github.com/tomtom215/dispecer/internal/database"
	"github.com/tomtom215/dispecer/internal/dispatch"
	"github.com/tomtom215/dispecer/internal/enrich"
	"github.com/tomtom215/dispecer/internal/logging"
	"github.com/tomtom215/dispecer/internal/stream"
	"github.com/tomtom215/dispecer/internal/supervisor"
	"github.com/tomtom215/dispecer/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("webhook_secret_set", cfg.PBX.WebhookSecret != "").
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	var jwtManager *auth.JWTManager
	var creds *auth.CredentialChecker
	if cfg.Security.AuthMode == "jwt" {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		creds, err = auth.NewCredentialChecker(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize admin credentials")
		}
	} else {
		logging.Warn().Msg("Running without authentication (AUTH_MODE=none)")
	}

	broker := stream.NewBroker()
	enricher := enrich.New(db)
	service := dispatch.NewService(db, enricher, broker, cfg.Stream.HistorySize)
	recorder := audit.NewRecorder(db.Conn())

	handler := api.NewHandler(cfg, service, db, broker, jwtManager, creds, recorder)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler.NewRouter(),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(broker)
	tree.AddAPIService(services.NewHTTPServerService(server, supervisor.DefaultTreeConfig().ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting Dispecer")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Dispecer stopped gracefully")
}
