package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.StorageBackend != BackendMemory {
		t.Errorf("StorageBackend = %q, want %q", cfg.StorageBackend, BackendMemory)
	}
	if !cfg.ReseedOnCorrupt {
		t.Error("ReseedOnCorrupt = false, want true")
	}
	if cfg.AuthRequireValidEmail {
		t.Error("AuthRequireValidEmail = true, want false")
	}
	if cfg.WorkspaceIdleTTL != 30*time.Minute {
		t.Errorf("WorkspaceIdleTTL = %v, want %v", cfg.WorkspaceIdleTTL, 30*time.Minute)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want %v", cfg.SweepInterval, 5*time.Minute)
	}
	if cfg.StorageRetention != 180*24*time.Hour {
		t.Errorf("StorageRetention = %v, want %v", cfg.StorageRetention, 180*24*time.Hour)
	}
	if cfg.CleanupInterval != 24*time.Hour {
		t.Errorf("CleanupInterval = %v, want %v", cfg.CleanupInterval, 24*time.Hour)
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want %d", cfg.RateLimitGeneral, 120)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.CORSAllowedOrigin != "http://localhost:3000" {
		t.Errorf("CORSAllowedOrigin = %q, want %q", cfg.CORSAllowedOrigin, "http://localhost:3000")
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure = true, want false for http BASE_URL")
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel() = %v, want %v", cfg.SlogLevel(), slog.LevelInfo)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/taskmaster.db")
	t.Setenv("RESEED_ON_CORRUPT", "false")
	t.Setenv("AUTH_REQUIRE_VALID_EMAIL", "true")
	t.Setenv("WORKSPACE_IDLE_TTL", "1h")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("STORAGE_RETENTION", "0")
	t.Setenv("RATE_LIMIT_GENERAL", "60")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BASE_URL", "https://tasks.example.com")
	t.Setenv("CORS_ALLOWED_ORIGIN", "https://app.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.StorageBackend != BackendSQLite {
		t.Errorf("StorageBackend = %q, want %q", cfg.StorageBackend, BackendSQLite)
	}
	if cfg.SQLitePath != "/tmp/taskmaster.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
	if cfg.ReseedOnCorrupt {
		t.Error("ReseedOnCorrupt = true, want false")
	}
	if !cfg.AuthRequireValidEmail {
		t.Error("AuthRequireValidEmail = false, want true")
	}
	if cfg.WorkspaceIdleTTL != time.Hour {
		t.Errorf("WorkspaceIdleTTL = %v, want %v", cfg.WorkspaceIdleTTL, time.Hour)
	}
	if cfg.SweepInterval != 30*time.Second {
		t.Errorf("SweepInterval = %v, want %v", cfg.SweepInterval, 30*time.Second)
	}
	if cfg.StorageRetention != 0 {
		t.Errorf("StorageRetention = %v, want 0 (disabled)", cfg.StorageRetention)
	}
	if cfg.RateLimitGeneral != 60 {
		t.Errorf("RateLimitGeneral = %d, want 60", cfg.RateLimitGeneral)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want %v", cfg.SlogLevel(), slog.LevelDebug)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "9090")
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure = false, want true for https BASE_URL")
	}
	if cfg.CORSAllowedOrigin != "https://app.example.com" {
		t.Errorf("CORSAllowedOrigin = %q", cfg.CORSAllowedOrigin)
	}
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "postgres")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error should mention DATABASE_URL, got %q", err.Error())
	}
}

func TestLoad_SQLiteRequiresPath(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "sqlite")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "SQLITE_PATH") {
		t.Errorf("error should mention SQLITE_PATH, got %q", err.Error())
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown backend", "STORAGE_BACKEND", "redis"},
		{"non-numeric rate limit", "RATE_LIMIT_GENERAL", "abc"},
		{"zero rate limit", "RATE_LIMIT_GENERAL", "0"},
		{"bad duration", "WORKSPACE_IDLE_TTL", "soon"},
		{"zero sweep interval", "SWEEP_INTERVAL", "0s"},
		{"bad bool", "RESEED_ON_CORRUPT", "maybe"},
		{"negative retention", "STORAGE_RETENTION", "-1h"},
		{"zero cleanup interval", "CLEANUP_INTERVAL", "0s"},
		{"bad log level", "LOG_LEVEL", "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q, got nil", tt.key, tt.value)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{" error ", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLogLevel(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
