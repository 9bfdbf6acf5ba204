// Dispecer - Real-Time Incoming Call Distribution for Transport Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dispecer

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	// Server defaults
	if cfg.Server.Port != 3090 {
		t.Errorf("Server.Port = %d, want 3090", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("Server.Environment = %q, want development", cfg.Server.Environment)
	}

	// Database defaults
	if cfg.Database.Path != "/data/dispecer.duckdb" {
		t.Errorf("Database.Path = %q, want /data/dispecer.duckdb", cfg.Database.Path)
	}
	if cfg.Database.MaxMemory != "512MB" {
		t.Errorf("Database.MaxMemory = %q, want 512MB", cfg.Database.MaxMemory)
	}

	// PBX defaults (empty - must be configured)
	if cfg.PBX.WebhookSecret != "" {
		t.Errorf("PBX.WebhookSecret should be empty by default, got %q", cfg.PBX.WebhookSecret)
	}

	// Security defaults
	if cfg.Security.AuthMode != "jwt" {
		t.Errorf("Security.AuthMode = %q, want jwt", cfg.Security.AuthMode)
	}
	if cfg.Security.RateLimitReqs != 100 {
		t.Errorf("Security.RateLimitReqs = %d, want 100", cfg.Security.RateLimitReqs)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "*" {
		t.Errorf("Security.CORSOrigins = %v, want [*]", cfg.Security.CORSOrigins)
	}

	// Stream defaults
	if cfg.Stream.HeartbeatInterval != 25*time.Second {
		t.Errorf("Stream.HeartbeatInterval = %v, want 25s", cfg.Stream.HeartbeatInterval)
	}
	if cfg.Stream.RetryMillis != 4000 {
		t.Errorf("Stream.RetryMillis = %d, want 4000", cfg.Stream.RetryMillis)
	}
	if cfg.Stream.HistorySize != 500 {
		t.Errorf("Stream.HistorySize = %d, want 500", cfg.Stream.HistorySize)
	}
	if cfg.Stream.LogDefaultLimit != 100 {
		t.Errorf("Stream.LogDefaultLimit = %d, want 100", cfg.Stream.LogDefaultLimit)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

// TestEnvTransformFunc verifies environment variable name transformations
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Server
		{"SERVER_PORT", "server.port"},
		{"SERVER_HOST", "server.host"},
		{"SERVER_TIMEOUT", "server.timeout"},
		{"ENVIRONMENT", "server.environment"},

		// Database
		{"DATABASE_PATH", "database.path"},
		{"DATABASE_MAX_MEMORY", "database.max_memory"},
		{"DATABASE_THREADS", "database.threads"},

		// PBX
		{"PBX_WEBHOOK_SECRET", "pbx.webhook_secret"},

		// Security
		{"AUTH_MODE", "security.auth_mode"},
		{"JWT_SECRET", "security.jwt_secret"},
		{"ADMIN_USERNAME", "security.admin_username"},
		{"ADMIN_PASSWORD", "security.admin_password"},
		{"RATE_LIMIT_REQS", "security.rate_limit_reqs"},
		{"RATE_LIMIT_DISABLED", "security.rate_limit_disabled"},
		{"CORS_ORIGINS", "security.cors_origins"},

		// Stream
		{"STREAM_HEARTBEAT_INTERVAL", "stream.heartbeat_interval"},
		{"STREAM_RETRY_MILLIS", "stream.retry_millis"},
		{"STREAM_HISTORY_SIZE", "stream.history_size"},
		{"STREAM_LOG_DEFAULT_LIMIT", "stream.log_default_limit"},

		// Logging
		{"LOG_LEVEL", "logging.level"},
		{"LOG_FORMAT", "logging.format"},

		// Unknown (should return empty)
		{"RANDOM_VAR", ""},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := envTransformFunc(tt.input)
			if result != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestFindConfigFile verifies config file discovery
func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	defer func() {
		if err := os.Chdir(origDir); err != nil {
			t.Errorf("Failed to restore working directory: %v", err)
		}
	}()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	t.Run("no config file exists", func(t *testing.T) {
		os.Unsetenv(ConfigPathEnvVar)
		result := findConfigFile()
		if result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("server:\n  port: 3090\n"), 0644); err != nil {
			t.Fatalf("Failed to create config file: %v", err)
		}
		defer os.Remove(configPath)

		os.Unsetenv(ConfigPathEnvVar)
		result := findConfigFile()
		if result != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", result)
		}
	})

	t.Run("CONFIG_PATH env var takes precedence", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom_config.yaml")
		if err := os.WriteFile(customPath, []byte("server:\n  port: 3090\n"), 0644); err != nil {
			t.Fatalf("Failed to create custom config file: %v", err)
		}
		defer os.Remove(customPath)

		os.Setenv(ConfigPathEnvVar, customPath)
		defer os.Unsetenv(ConfigPathEnvVar)

		result := findConfigFile()
		if result != customPath {
			t.Errorf("findConfigFile() = %q, want %q", result, customPath)
		}
	})

	t.Run("CONFIG_PATH env var with non-existent file", func(t *testing.T) {
		os.Setenv(ConfigPathEnvVar, "/non/existent/config.yaml")
		defer os.Unsetenv(ConfigPathEnvVar)

		result := findConfigFile()
		if result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})
}

// TestLoadEnvVars tests loading configuration from environment variables
func TestLoadEnvVars(t *testing.T) {
	os.Clearenv()

	os.Setenv("AUTH_MODE", "none")
	os.Setenv("SERVER_PORT", "9000")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("PBX_WEBHOOK_SECRET", "test-webhook-secret")
	os.Setenv("STREAM_HISTORY_SIZE", "50")
	os.Setenv("CORS_ORIGINS", "https://dispatch.example.com, https://admin.example.com")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.PBX.WebhookSecret != "test-webhook-secret" {
		t.Errorf("PBX.WebhookSecret = %q, want test-webhook-secret", cfg.PBX.WebhookSecret)
	}
	if cfg.Stream.HistorySize != 50 {
		t.Errorf("Stream.HistorySize = %d, want 50", cfg.Stream.HistorySize)
	}
	if len(cfg.Security.CORSOrigins) != 2 {
		t.Fatalf("Security.CORSOrigins = %v, want 2 entries", cfg.Security.CORSOrigins)
	}
	if cfg.Security.CORSOrigins[0] != "https://dispatch.example.com" {
		t.Errorf("CORSOrigins[0] = %q, want https://dispatch.example.com", cfg.Security.CORSOrigins[0])
	}
	if cfg.Security.CORSOrigins[1] != "https://admin.example.com" {
		t.Errorf("CORSOrigins[1] = %q, want https://admin.example.com", cfg.Security.CORSOrigins[1])
	}

	// Defaults survive for untouched keys
	if cfg.Stream.RetryMillis != 4000 {
		t.Errorf("Stream.RetryMillis = %d, want 4000", cfg.Stream.RetryMillis)
	}
}

// TestValidate exercises the validation rules
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults with auth disabled",
			mutate:  func(c *Config) { c.Security.AuthMode = "none" },
			wantErr: false,
		},
		{
			name: "jwt mode with valid secret",
			mutate: func(c *Config) {
				c.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
				c.Security.AdminUsername = "admin"
				c.Security.AdminPassword = "changeme"
			},
			wantErr: false,
		},
		{
			name:    "jwt mode without secret",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "jwt mode with short secret",
			mutate: func(c *Config) {
				c.Security.JWTSecret = "too-short"
			},
			wantErr: true,
		},
		{
			name: "auth disabled in production",
			mutate: func(c *Config) {
				c.Security.AuthMode = "none"
				c.Server.Environment = "production"
			},
			wantErr: true,
		},
		{
			name: "unknown auth mode",
			mutate: func(c *Config) {
				c.Security.AuthMode = "basic"
			},
			wantErr: true,
		},
		{
			name: "invalid port",
			mutate: func(c *Config) {
				c.Security.AuthMode = "none"
				c.Server.Port = 0
			},
			wantErr: true,
		},
		{
			name: "zero history size",
			mutate: func(c *Config) {
				c.Security.AuthMode = "none"
				c.Stream.HistorySize = 0
			},
			wantErr: true,
		},
		{
			name: "negative retry",
			mutate: func(c *Config) {
				c.Security.AuthMode = "none"
				c.Stream.RetryMillis = -1
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
