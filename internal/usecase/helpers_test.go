package usecase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"docrag/config"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/extract"
)

const (
	fileAText = "1. SCOPE\nCovers boiler startup.\n\n2. LIMITS\nMax pressure 110%."
	fileBText = "ok"
)

// smallConfig packs each short block into its own chunk.
func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Index.ChunkSize = 20
	cfg.Index.ChunkHardMax = 60
	cfg.Index.MinChunkLen = 5
	cfg.Index.IndexType = "flat"
	cfg.Index.CPUThreads = 2
	cfg.Index.BatchSize = 4
	cfg.Embedding.Provider = "hash"
	cfg.Embedding.Dimension = 64
	cfg.Rerank.Provider = "none"
	return cfg
}

func writeCorpusFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// buildScenarioStore builds a store from fileA and fileB and returns the
// corpus and store directories.
func buildScenarioStore(t *testing.T, cfg *config.Config) (corpus, storeDir string) {
	t.Helper()
	corpus = t.TempDir()
	storeDir = filepath.Join(t.TempDir(), "store")
	writeCorpusFile(t, corpus, "fileA.txt", fileAText)
	writeCorpusFile(t, corpus, "fileB.txt", fileBText)

	b := NewBuilder(cfg, extract.NewRegistry(), embedding.NewHashEmbedder(cfg.Embedding.Dimension), nil, nil)
	_, err := b.Build(t.Context(), BuildRequest{Root: corpus, OutDir: storeDir})
	require.NoError(t, err)
	return corpus, storeDir
}

// snapshot reads every file in dir.
func snapshot(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		out[e.Name()] = data
	}
	return out
}
