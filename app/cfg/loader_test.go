package cfg

import (
	"testing"

	"github.com/jessevdk/go-flags"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	// Test that version is at least "dev" or "unknown"
	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestDefaults(t *testing.T) {
	var raw rawCfg

	// Only the required URLs have no default.
	args := []string{
		"--graph-api-url=https://graph.example.com",
		"--body-api-url=https://body.example.com",
	}
	if _, err := flags.NewParser(&raw, flags.None).ParseArgs(args); err != nil {
		t.Fatalf("Expected defaults to parse, got %v", err)
	}

	if raw.SyncDelta != 300 {
		t.Errorf("Expected sync delta default 300, got %d", raw.SyncDelta)
	}
	if raw.CleanupDelta != 600 {
		t.Errorf("Expected cleanup delta default 600, got %d", raw.CleanupDelta)
	}
	if raw.SyncConcurrency != 4 {
		t.Errorf("Expected sync concurrency default 4, got %d", raw.SyncConcurrency)
	}
	if raw.CacheTTL != 300 {
		t.Errorf("Expected cache TTL default 300, got %d", raw.CacheTTL)
	}
	if raw.CacheFallbackTTL != 86400 {
		t.Errorf("Expected fallback TTL default 86400, got %d", raw.CacheFallbackTTL)
	}
	if raw.CacheDedup {
		t.Error("Expected cache dedup to default to off")
	}
	if raw.ScratchMaxAge != 1800 {
		t.Errorf("Expected scratch max age default 1800, got %d", raw.ScratchMaxAge)
	}
	if raw.NotifyChannel != "tagsync:changes" {
		t.Errorf("Expected notify channel 'tagsync:changes', got '%s'", raw.NotifyChannel)
	}
	if raw.BlobBucket != "images" {
		t.Errorf("Expected blob bucket 'images', got '%s'", raw.BlobBucket)
	}
}

func TestRequiredFlags(t *testing.T) {
	var raw rawCfg

	// The upstream URLs are required and have no defaults.
	if _, err := flags.NewParser(&raw, flags.None).ParseArgs(nil); err == nil {
		t.Error("Expected parse to fail without the required upstream URLs")
	}
}

func TestConfigFields(t *testing.T) {
	// Create a config instance to test field access
	cfg := &Cfg{
		Port:              "8080",
		GraphAPIURL:       "https://graph.example.com",
		BodyAPIURL:        "https://body.example.com",
		UserAgent:         "Test Agent",
		WorkerCount:       5,
		SchedulerInterval: 30,
		APIAccessKey:      "test-key",
		Version:           "test-version",
		PresetsDir:        "./presets",
		DBHost:            "localhost",
		DBPort:            "5432",
		DBUser:            "test_user",
		DBPassword:        "test_password",
		DBName:            "test_db",
		RedisAddr:         "localhost:6379",
		Timezone:          "UTC",
		Debug:             true,
	}

	// Test direct field access
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.GraphAPIURL != "https://graph.example.com" {
		t.Errorf("Expected graph API URL 'https://graph.example.com', got '%s'", cfg.GraphAPIURL)
	}
	if cfg.BodyAPIURL != "https://body.example.com" {
		t.Errorf("Expected body API URL 'https://body.example.com', got '%s'", cfg.BodyAPIURL)
	}
	if cfg.UserAgent != "Test Agent" {
		t.Errorf("Expected user agent 'Test Agent', got '%s'", cfg.UserAgent)
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("Expected worker count 5, got %d", cfg.WorkerCount)
	}
	if cfg.SchedulerInterval != 30 {
		t.Errorf("Expected scheduler interval 30, got %d", cfg.SchedulerInterval)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if cfg.Version != "test-version" {
		t.Errorf("Expected version 'test-version', got '%s'", cfg.Version)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("Expected redis addr 'localhost:6379', got '%s'", cfg.RedisAddr)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("Expected DB host 'localhost', got '%s'", cfg.DBHost)
	}
	if cfg.DBName != "test_db" {
		t.Errorf("Expected DB name 'test_db', got '%s'", cfg.DBName)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Expected timezone 'UTC', got '%s'", cfg.Timezone)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}
