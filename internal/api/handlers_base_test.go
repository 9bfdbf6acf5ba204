// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dispecer/internal/audit"
	"github.com/tomtom215/dispecer/internal/auth"
	"github.com/tomtom215/dispecer/internal/config"
	"github.com/tomtom215/dispecer/internal/database"
	"github.com/tomtom215/dispecer/internal/dispatch"
	"github.com/tomtom215/dispecer/internal/enrich"
	"github.com/tomtom215/dispecer/internal/stream"
)

// testEnv bundles the wired pipeline for handler tests.
type testEnv struct {
	handler *Handler
	router  http.Handler
	db      *database.DB
	service *dispatch.Service
	broker  *stream.Broker
	cfg     *config.Config
}

type envOption func(*config.Config)

func withWebhookSecret(secret string) envOption {
	return func(cfg *config.Config) { cfg.PBX.WebhookSecret = secret }
}

func withJWTAuth() envOption {
	return func(cfg *config.Config) {
		cfg.Security.AuthMode = "jwt"
		cfg.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
		cfg.Security.AdminUsername = "dispatcher"
		cfg.Security.AdminPassword = "dispatch-password"
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Path = ":memory:"
	cfg.Database.MaxMemory = "512MB"
	cfg.Database.Threads = 2
	cfg.Security.AuthMode = "none"
	cfg.Security.RateLimitDisabled = true
	cfg.Security.CORSOrigins = []string{"*"}
	cfg.Security.SessionTimeout = time.Hour
	cfg.Stream.HeartbeatInterval = 25 * time.Second
	cfg.Stream.RetryMillis = 4000
	cfg.Stream.HistorySize = 500
	cfg.Stream.LogDefaultLimit = 100
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	broker := stream.NewBroker()
	t.Cleanup(broker.CloseAll)
	enricher := enrich.New(db)
	service := dispatch.NewService(db, enricher, broker, cfg.Stream.HistorySize)
	recorder := audit.NewRecorder(db.Conn())

	var jwtManager *auth.JWTManager
	var creds *auth.CredentialChecker
	if cfg.Security.AuthMode == "jwt" {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			t.Fatalf("failed to create JWT manager: %v", err)
		}
		creds, err = auth.NewCredentialChecker(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
		if err != nil {
			t.Fatalf("failed to create credential checker: %v", err)
		}
	}

	handler := NewHandler(cfg, service, db, broker, jwtManager, creds, recorder)
	return &testEnv{
		handler: handler,
		router:  handler.NewRouter(),
		db:      db,
		service: service,
		broker:  broker,
		cfg:     cfg,
	}
}

// postWebhook posts a JSON webhook body through the router.
func (env *testEnv) postWebhook(t *testing.T, body map[string]interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal webhook body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/incoming-calls", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) get(t *testing.T, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
	return body
}
