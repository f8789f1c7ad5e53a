package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.App.Name != "privacyguard-lab" {
		t.Errorf("app name = %q", cfg.App.Name)
	}
	if cfg.Analysis.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Analysis.Workers)
	}
	if cfg.Analysis.CacheTTL != 24*time.Hour {
		t.Errorf("cache ttl = %v", cfg.Analysis.CacheTTL)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  environment: production
server:
  http_port: 18090
analysis:
  batch_max: 25
  cache_ttl: 30m
database:
  user: pg
  password: secret
  host: db
  port: 5433
  dbname: risk
  sslmode: require
  schema: privacy
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Environment != "production" {
		t.Errorf("environment = %q", cfg.App.Environment)
	}
	if cfg.Server.HTTPPort != 18090 {
		t.Errorf("http port = %d", cfg.Server.HTTPPort)
	}
	if cfg.Analysis.BatchMax != 25 {
		t.Errorf("batch max = %d", cfg.Analysis.BatchMax)
	}
	if cfg.Analysis.CacheTTL != 30*time.Minute {
		t.Errorf("cache ttl = %v", cfg.Analysis.CacheTTL)
	}
	// untouched keys keep their defaults
	if cfg.Analysis.Workers != 8 {
		t.Errorf("workers = %d, want default 8", cfg.Analysis.Workers)
	}

	want := "postgres://pg:secret@db:5433/risk?sslmode=require&search_path=privacy"
	if got := cfg.Database.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
