package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "STATLITE_PORT", "LISTEN_ADDR", "DATABASE_PATH", "STATLITE_DATA",
		"GIN_MODE", "STATLITE_CORS_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
		"STATLITE_DEDUP_WINDOW_MS", "STATLITE_RATE_LIMIT", "STATLITE_RATE_WINDOW_MS",
		"STATLITE_ANOMALY_MULTIPLIER", "STATLITE_WRITE_BATCH_SIZE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ListenAddr != ":8787" {
		t.Fatalf("expected default listen addr :8787, got %q", cfg.ListenAddr)
	}
	if cfg.DatabasePath != filepath.Join("data", "statlite.sqlite") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("expected release gin mode, got %q", cfg.GinMode)
	}
	if len(cfg.CORSOrigins) != 0 {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSOrigins)
	}
	if cfg.DedupWindow != 30*time.Second {
		t.Fatalf("expected 30s dedup window, got %v", cfg.DedupWindow)
	}
	if cfg.RateLimit != 60 || cfg.RateWindow != time.Minute {
		t.Fatalf("unexpected rate limit %d/%v", cfg.RateLimit, cfg.RateWindow)
	}
	if cfg.AnomalyMultiplier != 5 {
		t.Fatalf("expected anomaly multiplier 5, got %d", cfg.AnomalyMultiplier)
	}
	if cfg.WriteBatchSize != 64 {
		t.Fatalf("expected batch size 64, got %d", cfg.WriteBatchSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STATLITE_PORT", "9090")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("STATLITE_DATA", "/var/lib/statlite")
	t.Setenv("STATLITE_CORS_ORIGINS", " https://a.com, ,https://b.com ")
	t.Setenv("STATLITE_DEDUP_WINDOW_MS", "5000")
	t.Setenv("STATLITE_RATE_LIMIT", "10")
	t.Setenv("STATLITE_WRITE_BATCH_SIZE", "not-a-number")

	cfg := Load()

	if cfg.ListenAddr != ":9090" {
		t.Fatalf("expected :9090, got %q", cfg.ListenAddr)
	}
	if cfg.DatabasePath != filepath.Join("/var/lib/statlite", "statlite.sqlite") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://a.com" || cfg.CORSOrigins[1] != "https://b.com" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.DedupWindow != 5*time.Second {
		t.Fatalf("expected 5s dedup window, got %v", cfg.DedupWindow)
	}
	if cfg.RateLimit != 10 {
		t.Fatalf("expected rate limit 10, got %d", cfg.RateLimit)
	}
	if cfg.WriteBatchSize != 64 {
		t.Fatalf("malformed batch size should fall back to 64, got %d", cfg.WriteBatchSize)
	}
}

func TestValidateRejectsZeroValues(t *testing.T) {
	cfg := Load()
	cfg.WriteBatchSize = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero batch size")
	}
}
