package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DEPSCOUT_MONGO_URI", "DEPSCOUT_MONGO_DATABASE", "DEPSCOUT_DISCOVERY_URL",
		"DEPSCOUT_REDIS_ADDR", "DEPSCOUT_CACHE_DIR", "DEPSCOUT_CACHE_TTL",
		"DEPSCOUT_LISTEN_ADDR", "DEPSCOUT_LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.MongoURI != "" {
		t.Errorf("MongoURI = %q, want empty (memory store)", cfg.MongoURI)
	}
	if cfg.MongoDatabase != "depscout" {
		t.Errorf("MongoDatabase = %q, want depscout", cfg.MongoDatabase)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Errorf("CacheTTL = %v, want 24h", cfg.CacheTTL)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEPSCOUT_MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("DEPSCOUT_DISCOVERY_URL", "http://localhost:9100/mcp")
	t.Setenv("DEPSCOUT_LISTEN_ADDR", ":9999")
	t.Setenv("DEPSCOUT_CACHE_TTL", "1h")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.MongoURI != "mongodb://localhost:27017" {
		t.Errorf("MongoURI = %q", cfg.MongoURI)
	}
	if cfg.DiscoveryURL != "http://localhost:9100/mcp" {
		t.Errorf("DiscoveryURL = %q", cfg.DiscoveryURL)
	}
	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h", cfg.CacheTTL)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "depscout.yaml")
	content := "mongo_database: licensedb\nlisten_addr: \":7070\"\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MongoDatabase != "licensedb" {
		t.Errorf("MongoDatabase = %q, want licensedb", cfg.MongoDatabase)
	}
	if cfg.ListenAddr != ":7070" {
		t.Errorf("ListenAddr = %q, want :7070", cfg.ListenAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEPSCOUT_LISTEN_ADDR", ":6060")

	path := filepath.Join(t.TempDir(), "depscout.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: \":7070\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != ":6060" {
		t.Errorf("ListenAddr = %q, want env value :6060", cfg.ListenAddr)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() with a missing explicit file should fail")
	}
	if !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("error code = %q, want %q", apperrors.GetCode(err), apperrors.ErrCodeInvalidInput)
	}
}
