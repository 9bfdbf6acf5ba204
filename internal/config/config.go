// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

// Package config holds all application configuration, loaded via Koanf v2
// with layered sources (highest priority wins):
//
//  1. Environment variables (PBX_WEBHOOK_SECRET, JWT_SECRET, ...)
//  2. Config file (config.yaml)
//  3. Built-in defaults
//
// Config is immutable after Load() and safe for concurrent read access.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	PBX      PBXConfig      `koanf:"pbx"`
	Security SecurityConfig `koanf:"security"`
	Stream   StreamConfig   `koanf:"stream"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development or production
}

// DatabaseConfig configures the embedded DuckDB store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use runtime.NumCPU()
}

// PBXConfig configures the webhook ingress boundary.
type PBXConfig struct {
	// WebhookSecret authenticates PBX webhooks. Accepted via the
	// X-PBX-Secret header, the "secret" body field, or the "secret" query
	// parameter, in that order. A bcrypt hash ($2a$/$2b$ prefix) is
	// accepted in place of the plain secret. Empty disables the check and
	// logs a one-time warning.
	WebhookSecret string `koanf:"webhook_secret"`
}

// SecurityConfig configures authentication for the dispatcher console
// endpoints and the global rate limits.
type SecurityConfig struct {
	AuthMode       string        `koanf:"auth_mode"` // jwt or none
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	AdminUsername  string        `koanf:"admin_username"`
	// AdminPassword is the console login password, either plain or as a
	// bcrypt hash.
	AdminPassword string `koanf:"admin_password"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// StreamConfig configures the event stream and the in-memory history.
type StreamConfig struct {
	// HeartbeatInterval is the period between comment-only keep-alive
	// frames on each subscriber connection.
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`

	// RetryMillis is the client reconnect delay advertised on connect.
	RetryMillis int `koanf:"retry_millis"`

	// HistorySize bounds the in-memory call history and the log endpoint's
	// limit clamp.
	HistorySize int `koanf:"history_size"`

	// LogDefaultLimit is the log endpoint's default page size.
	LogDefaultLimit int `koanf:"log_default_limit"`
}

// LoggingConfig configures the zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. Defaults match
// the PBX integration contract: 25s heartbeats, 4000ms reconnect delay,
// 500-entry history.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        3090,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/dispecer.duckdb",
			MaxMemory: "512MB",
			Threads:   0,
		},
		PBX: PBXConfig{
			WebhookSecret: "",
		},
		Security: SecurityConfig{
			AuthMode:          "jwt",
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			AdminUsername:     "",
			AdminPassword:     "",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Stream: StreamConfig{
			HeartbeatInterval: 25 * time.Second,
			RetryMillis:       4000,
			HistorySize:       500,
			LogDefaultLimit:   100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateStream()
}

func (c *Config) validateSecurity() error {
	switch strings.ToLower(c.Security.AuthMode) {
	case "jwt":
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters when AUTH_MODE=jwt")
		}
		if c.Security.AdminUsername == "" || c.Security.AdminPassword == "" {
			return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD are required when AUTH_MODE=jwt")
		}
	case "none":
		if c.Server.Environment == "production" {
			return fmt.Errorf("AUTH_MODE=none is not allowed in production")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be jwt or none, got %q", c.Security.AuthMode)
	}

	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 {
			return fmt.Errorf("RATE_LIMIT_REQS must be positive, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.Security.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateStream() error {
	if c.Stream.HeartbeatInterval <= 0 {
		return fmt.Errorf("STREAM_HEARTBEAT_INTERVAL must be positive, got %s", c.Stream.HeartbeatInterval)
	}
	if c.Stream.RetryMillis <= 0 {
		return fmt.Errorf("STREAM_RETRY_MILLIS must be positive, got %d", c.Stream.RetryMillis)
	}
	if c.Stream.HistorySize <= 0 {
		return fmt.Errorf("STREAM_HISTORY_SIZE must be positive, got %d", c.Stream.HistorySize)
	}
	if c.Stream.LogDefaultLimit < 1 || c.Stream.LogDefaultLimit > c.Stream.HistorySize {
		return fmt.Errorf("STREAM_LOG_DEFAULT_LIMIT must be in [1, %d], got %d",
			c.Stream.HistorySize, c.Stream.LogDefaultLimit)
	}
	return nil
}
