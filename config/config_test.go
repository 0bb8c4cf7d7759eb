package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Index.ChunkSize != 900 {
		t.Errorf("expected ChunkSize=900, got %d", cfg.Index.ChunkSize)
	}
	if cfg.Index.HardMax() != 1300 {
		t.Errorf("expected HardMax=1300, got %d", cfg.Index.HardMax())
	}
	if cfg.Index.MinChunkLen != 80 {
		t.Errorf("expected MinChunkLen=80, got %d", cfg.Index.MinChunkLen)
	}
	if cfg.Index.K1 != 1.2 {
		t.Errorf("expected K1=1.2, got %f", cfg.Index.K1)
	}
	if cfg.Index.B != 0.75 {
		t.Errorf("expected B=0.75, got %f", cfg.Index.B)
	}
	if cfg.Retrieve.WDense != 0.65 || cfg.Retrieve.WLexical != 0.35 {
		t.Errorf("expected weights 0.65/0.35, got %f/%f", cfg.Retrieve.WDense, cfg.Retrieve.WLexical)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
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
	configPath := filepath.Join(tmpDir, "docrag.yaml")

	content := `
index:
  chunk_size: 400
  index_type: flat
  stemming: false
retrieve:
  top_k: 10
  max_per_file: 1
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Index.ChunkSize != 400 {
		t.Errorf("expected ChunkSize=400, got %d", cfg.Index.ChunkSize)
	}
	if cfg.Index.HardMax() != 800 {
		t.Errorf("expected HardMax=800, got %d", cfg.Index.HardMax())
	}
	if cfg.Index.IndexType != "flat" {
		t.Errorf("expected IndexType=flat, got %s", cfg.Index.IndexType)
	}
	if cfg.Index.Stemming != false {
		t.Errorf("expected Stemming=false, got %v", cfg.Index.Stemming)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.CandidateK != 50 {
		t.Errorf("unset fields should keep defaults, got CandidateK=%d", cfg.Retrieve.CandidateK)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docrag.yaml")
	if err := os.WriteFile(path, []byte("index: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "docrag.yaml")

	content := `
retrieve:
  candidate_k: 80
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Retrieve.CandidateK != 80 {
		t.Errorf("expected CandidateK=80, got %d", cfg.Retrieve.CandidateK)
	}
	if cfg.EfSearch() != 80 {
		t.Errorf("ef search should be raised to candidate_k, got %d", cfg.EfSearch())
	}
}

func TestLoadFromDir_HiddenConfig(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".docrag"), 0755); err != nil {
		t.Fatal(err)
	}
	content := "logging:\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(tmpDir, ".docrag", "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected Level=debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadFromDir_NoConfig(t *testing.T) {
	cfg, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Retrieve.TopK != 6 {
		t.Errorf("expected default TopK=6, got %d", cfg.Retrieve.TopK)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "docrag.yaml")

	cfg := DefaultConfig()
	cfg.Index.ChunkSize = 1200
	cfg.Retrieve.Alpha = 0.4

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if loaded.Index.ChunkSize != 1200 {
		t.Errorf("expected ChunkSize=1200, got %d", loaded.Index.ChunkSize)
	}
	if loaded.Retrieve.Alpha != 0.4 {
		t.Errorf("expected Alpha=0.4, got %f", loaded.Retrieve.Alpha)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"bad index type", func(c *Config) { c.Index.IndexType = "ivf" }, "index_type"},
		{"hard max below size", func(c *Config) { c.Index.ChunkHardMax = 10 }, "chunk_hard_max"},
		{"zero weights", func(c *Config) { c.Retrieve.WDense, c.Retrieve.WLexical = 0, 0 }, "weights"},
		{"alpha out of range", func(c *Config) { c.Retrieve.Alpha = 1.5 }, "alpha"},
		{"hash without dimension", func(c *Config) { c.Embedding.Provider = "hash" }, "dimension"},
		{"unknown embedder", func(c *Config) { c.Embedding.Provider = "voyage" }, "embedding provider"},
		{"unknown reranker", func(c *Config) { c.Rerank.Provider = "magic" }, "rerank provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("expected error containing %q, got %v", tt.errSub, err)
			}
		})
	}
}

func TestExtensionAllowed(t *testing.T) {
	idx := DefaultConfig().Index
	if !idx.ExtensionAllowed("/a/B.TXT") {
		t.Error("extension match should be case-insensitive")
	}
	if idx.ExtensionAllowed("/a/b.exe") {
		t.Error("exe should not be allowed")
	}
}

func TestLockPath(t *testing.T) {
	if got := LockPath("/data/store/"); got != "/data/store.lock" {
		t.Errorf("unexpected lock path %s", got)
	}
}
