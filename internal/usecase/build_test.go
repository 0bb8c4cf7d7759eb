package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/extract"
	"docrag/internal/adapter/store"
	"docrag/internal/adapter/vectorindex"
	ragerr "docrag/internal/errors"
	"docrag/internal/port"
)

func TestBuild_SectionsAndShortFiles(t *testing.T) {
	cfg := smallConfig()
	corpus, storeDir := buildScenarioStore(t, cfg)

	st, err := store.Open(storeDir, vectorindex.Options{})
	require.NoError(t, err)

	records := st.Records()
	require.Len(t, records, 2)
	assert.Equal(t, st.Len(), st.Index().Len())

	for i, r := range records {
		assert.Equal(t, i, r.ID)
		assert.Equal(t, "fileA.txt", r.FileName)
		assert.Equal(t, "txt", r.FileType)
		assert.Equal(t, filepath.Join(corpus, "fileA.txt"), r.AbsPath)
		assert.Equal(t, "fileA.txt", r.RelPath)
		assert.Equal(t, filepath.Base(corpus), r.SourceFolder)
		assert.Equal(t, i, r.ChunkID)
	}
	assert.Equal(t, "1. SCOPE", records[0].Section)
	assert.Equal(t, "2. LIMITS", records[1].Section)
	assert.Contains(t, records[1].Text, "110%")

	assert.Equal(t, corpus, st.BasePath())
	c := st.Contract()
	assert.Equal(t, "hash-64", c.ModelName)
	assert.Equal(t, 64, c.Dim)
	assert.Equal(t, 20, c.ChunkSize)
	assert.Equal(t, 5, c.MinChunkLen)
	assert.True(t, c.NormalizeEmbeddings)

	_, err = os.Stat(filepath.Join(storeDir, store.ManifestFile))
	assert.True(t, os.IsNotExist(err), "build must not write a manifest")
}

func TestBuild_ContiguousIDsAcrossFiles(t *testing.T) {
	cfg := smallConfig()
	corpus := t.TempDir()
	writeCorpusFile(t, corpus, "b/second.md", "1. INTRO\nSecond document text.\n\n2. MORE\nAnother section here.")
	writeCorpusFile(t, corpus, "a/first.txt", fileAText)

	out := filepath.Join(t.TempDir(), "s")
	b := NewBuilder(cfg, extract.NewRegistry(), embedding.NewHashEmbedder(64), nil, nil)
	res, err := b.Build(t.Context(), BuildRequest{Root: corpus, OutDir: out})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Chunks)
	assert.Equal(t, 2, res.FilesIndexed)

	st, err := store.Open(out, vectorindex.Options{})
	require.NoError(t, err)
	records := st.Records()
	require.Len(t, records, 4)
	for i, r := range records {
		assert.Equal(t, i, r.ID)
	}
	// Files are visited in path order.
	assert.Equal(t, "a/first.txt", filepath.ToSlash(records[0].RelPath))
	assert.Equal(t, "b/second.md", filepath.ToSlash(records[3].RelPath))
	assert.Equal(t, "md", records[3].FileType)
}

func TestBuild_HNSW(t *testing.T) {
	cfg := smallConfig()
	cfg.Index.IndexType = "hnsw"
	_, storeDir := buildScenarioStore(t, cfg)

	st, err := store.Open(storeDir, vectorindex.Options{})
	require.NoError(t, err)
	assert.Equal(t, vectorindex.KindHNSW, st.Contract().IndexType)
	assert.Equal(t, 2, st.Index().Len())
}

func TestBuild_NoSupportedFiles(t *testing.T) {
	cfg := smallConfig()
	corpus := t.TempDir()
	writeCorpusFile(t, corpus, "tool.exe", "binary")

	b := NewBuilder(cfg, extract.NewRegistry(), embedding.NewHashEmbedder(64), nil, nil)
	_, err := b.Build(t.Context(), BuildRequest{Root: corpus, OutDir: filepath.Join(t.TempDir(), "s")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ragerr.ErrNoSupportedFiles)
	assert.Equal(t, ragerr.KindNotFound, ragerr.KindOf(err))
}

func TestBuild_NoChunks(t *testing.T) {
	cfg := smallConfig()
	corpus := t.TempDir()
	writeCorpusFile(t, corpus, "fileB.txt", fileBText)
	out := filepath.Join(t.TempDir(), "s")

	b := NewBuilder(cfg, extract.NewRegistry(), embedding.NewHashEmbedder(64), nil, nil)
	_, err := b.Build(t.Context(), BuildRequest{Root: corpus, OutDir: out})
	require.Error(t, err)
	assert.ErrorIs(t, err, ragerr.ErrNoChunks)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "a failed build writes nothing")
}

func TestBuild_ExtractionFailureSkipsFile(t *testing.T) {
	cfg := smallConfig()
	corpus := t.TempDir()
	writeCorpusFile(t, corpus, "fileA.txt", fileAText)
	writeCorpusFile(t, corpus, "broken.json", `{"a":`)

	b := NewBuilder(cfg, extract.NewRegistry(), embedding.NewHashEmbedder(64), nil, nil)
	res, err := b.Build(t.Context(), BuildRequest{Root: corpus, OutDir: filepath.Join(t.TempDir(), "s")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesSkipped)
	assert.Equal(t, 1, res.FilesIndexed)
	assert.Equal(t, 2, res.Chunks)
	assert.Len(t, res.Errors, 1)
}

func TestBuild_ProgressMonotonic(t *testing.T) {
	cfg := smallConfig()
	corpus := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		writeCorpusFile(t, corpus, name, fileAText)
	}

	var seen []int
	b := NewBuilder(cfg, extract.NewRegistry(), embedding.NewHashEmbedder(64), nil, nil)
	_, err := b.Build(t.Context(), BuildRequest{
		Root:     corpus,
		OutDir:   filepath.Join(t.TempDir(), "s"),
		Progress: func(p int) { seen = append(seen, p) },
	})
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	assert.Equal(t, 0, seen[0])
	assert.Equal(t, 100, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1])
	}
	assert.Contains(t, seen, 60)
	assert.Contains(t, seen, 85)
}

func TestBuild_RebuildDropsManifest(t *testing.T) {
	cfg := smallConfig()
	corpus, storeDir := buildScenarioStore(t, cfg)
	require.NoError(t, os.WriteFile(filepath.Join(storeDir, store.ManifestFile), []byte(`{"files":[]}`), 0o644))

	b := NewBuilder(cfg, extract.NewRegistry(), embedding.NewHashEmbedder(64), nil, nil)
	_, err := b.Build(t.Context(), BuildRequest{Root: corpus, OutDir: storeDir})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(storeDir, store.ManifestFile))
	assert.True(t, os.IsNotExist(err))
}

func TestBuild_AnyExtractorFailureSkipsFile(t *testing.T) {
	cfg := smallConfig()
	corpus := t.TempDir()
	writeCorpusFile(t, corpus, "fileA.txt", fileAText)
	writeCorpusFile(t, corpus, "locked.txt", "1. SECRET\nNot readable by this user.")
	out := filepath.Join(t.TempDir(), "s")

	registry := extract.NewRegistry()
	extractor := port.ExtractorFunc(func(ctx context.Context, path string) (string, error) {
		if filepath.Base(path) == "locked.txt" {
			return "", errors.New("permission denied")
		}
		return registry.Extract(ctx, path)
	})
	b := NewBuilder(cfg, extractor, embedding.NewHashEmbedder(64), nil, nil)
	res, err := b.Build(t.Context(), BuildRequest{Root: corpus, OutDir: out})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesSkipped)
	assert.Equal(t, 1, res.FilesIndexed)
	assert.Equal(t, 2, res.Chunks)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "permission denied")
	assert.Contains(t, res.Errors[0], ragerr.CodeExtractFailed)
}

func TestBuild_CancelledContextAborts(t *testing.T) {
	cfg := smallConfig()
	corpus := t.TempDir()
	writeCorpusFile(t, corpus, "fileA.txt", fileAText)
	out := filepath.Join(t.TempDir(), "s")

	ctx, cancel := context.WithCancel(t.Context())
	extractor := port.ExtractorFunc(func(context.Context, string) (string, error) {
		cancel()
		return "", context.Canceled
	})
	b := NewBuilder(cfg, extractor, embedding.NewHashEmbedder(64), nil, nil)
	_, err := b.Build(ctx, BuildRequest{Root: corpus, OutDir: out})
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}
