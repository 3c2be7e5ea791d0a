package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.Threshold != 0.3 {
		t.Errorf("expected Threshold=0.3, got %f", cfg.Retrieve.Threshold)
	}
	if cfg.Retrieve.DedupJaccard != 0.8 {
		t.Errorf("expected syndicated-copy dedup on by default, got %f", cfg.Retrieve.DedupJaccard)
	}
	if cfg.History.MaxMessages != 50 {
		t.Errorf("expected MaxMessages=50, got %d", cfg.History.MaxMessages)
	}
	if cfg.History.TTL != time.Hour {
		t.Errorf("expected history TTL=1h, got %s", cfg.History.TTL)
	}
	if cfg.Embedding.CacheTTL != 24*time.Hour {
		t.Errorf("expected cache TTL=24h, got %s", cfg.Embedding.CacheTTL)
	}
	if cfg.Ingest.BatchSize != 5 {
		t.Errorf("expected BatchSize=5, got %d", cfg.Ingest.BatchSize)
	}
	if cfg.Generation.Temperature != 0.7 {
		t.Errorf("expected Temperature=0.7, got %f", cfg.Generation.Temperature)
	}
	if len(cfg.Ingest.Sources) != 5 {
		t.Errorf("expected 5 default feeds, got %d", len(cfg.Ingest.Sources))
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "newsrag.yaml")

	content := `
store:
  backend: bolt
retrieve:
  top_k: 10
  threshold: 0.5
history:
  ttl: 30m
ingest:
  sources:
    - name: Example
      url: https://example.com/feed.xml
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store.Backend != "bolt" {
		t.Errorf("expected backend=bolt, got %s", cfg.Store.Backend)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.Threshold != 0.5 {
		t.Errorf("expected Threshold=0.5, got %f", cfg.Retrieve.Threshold)
	}
	if cfg.History.TTL != 30*time.Minute {
		t.Errorf("expected TTL=30m, got %s", cfg.History.TTL)
	}
	if len(cfg.Ingest.Sources) != 1 || cfg.Ingest.Sources[0].Name != "Example" {
		t.Errorf("expected single Example source, got %+v", cfg.Ingest.Sources)
	}
	// untouched sections keep their defaults
	if cfg.History.MaxMessages != 50 {
		t.Errorf("expected MaxMessages=50, got %d", cfg.History.MaxMessages)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".newsrag"), 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".newsrag", "config.yaml")

	content := `
ingest:
  batch_size: 8
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Ingest.BatchSize != 8 {
		t.Errorf("expected BatchSize=8, got %d", cfg.Ingest.BatchSize)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6380/2")
	t.Setenv("CHAT_HISTORY_TTL", "120")
	t.Setenv("EMBEDDINGS_CACHE_TTL", "not-a-number")
	t.Setenv("PORT", "8080")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Store.RedisURL != "redis://cache:6380/2" {
		t.Errorf("expected REDIS_URL override, got %s", cfg.Store.RedisURL)
	}
	if cfg.History.TTL != 2*time.Minute {
		t.Errorf("expected history TTL=2m, got %s", cfg.History.TTL)
	}
	if cfg.Embedding.CacheTTL != 24*time.Hour {
		t.Errorf("invalid EMBEDDINGS_CACHE_TTL must keep default, got %s", cfg.Embedding.CacheTTL)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected addr :8080, got %s", cfg.Server.Addr)
	}
}

func TestLoadDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("NEWSRAG_TEST_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEWSRAG_TEST_DOTENV", "")
	os.Unsetenv("NEWSRAG_TEST_DOTENV")

	if err := LoadDotEnv(tmpDir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("NEWSRAG_TEST_DOTENV"); got != "loaded" {
		t.Errorf("expected value from .env, got %q", got)
	}

	if err := LoadDotEnv(t.TempDir()); err != nil {
		t.Errorf("missing .env must not fail, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsrag.yaml")
	cfg := DefaultConfig()
	cfg.Store.Backend = "memory"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Store.Backend != "memory" {
		t.Errorf("expected backend=memory, got %s", loaded.Store.Backend)
	}
}
