package usecase

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/extract"
	"docrag/internal/domain"
	"docrag/internal/port"
)

func TestProgressReporter(t *testing.T) {
	var got []int
	p := newProgressReporter(func(v int) { got = append(got, v) })

	p.report(0)
	p.report(0)
	p.span(0, 60, 1, 3)
	p.span(0, 60, 1, 3)
	p.report(10)
	p.span(60, 85, 4, 4)
	p.report(150)
	p.report(-5)

	assert.Equal(t, []int{0, 20, 85, 100}, got)

	// A nil callback is allowed.
	newProgressReporter(nil).report(50)
}

func TestRecordFactory(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "docs", "manuals")
	created := time.Unix(1700000000, 500000000)
	f := newRecordFactory(base, created)

	cf := chunkedFile{
		file: port.FileInfo{
			Path:    filepath.Join(base, "boiler", "Guide.TXT"),
			Size:    4096,
			ModTime: 1699999999.75,
		},
		blocks: []domain.Block{
			{Text: "1. SCOPE\nCovers boiler startup.", Section: "1. SCOPE"},
			{Text: "Zürich office notes", Section: "1. SCOPE", Subsection: "1.1 Sites"},
		},
		chunkIDs: []int{0, 2},
	}

	records := f.records(cf, 10)
	require.Len(t, records, 2)

	r := records[1]
	assert.Equal(t, 11, r.ID)
	assert.Equal(t, "Guide.TXT", r.FileName)
	assert.Equal(t, filepath.Join("boiler", "Guide.TXT"), r.RelPath)
	assert.Equal(t, cf.file.Path, r.AbsPath)
	assert.Equal(t, "txt", r.FileType)
	assert.Equal(t, "manuals", r.SourceFolder)
	assert.Equal(t, 2, r.ChunkID)
	assert.Equal(t, 19, r.ChunkLen)
	assert.Equal(t, 1699999999.75, r.Mtime)
	assert.Equal(t, int64(4), r.SizeKB)
	assert.InDelta(t, 1700000000.5, r.CreatedAt, 1e-6)
	assert.Equal(t, "1.1 Sites", r.Subsection)
}

func TestChunkFile_DropsShortChunks(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpusFile(t, dir, "a.txt", "ok\n\n"+fileAText)

	p := &documentPipeline{
		extractor: extract.NewRegistry(),
		chunker:   newChunker(20, 32, 0, nil),
		minLen:    5,
	}
	cf, err := p.chunkFile(t.Context(), port.FileInfo{Path: path})
	require.NoError(t, err)
	require.Len(t, cf.blocks, 2)
	assert.Equal(t, []int{1, 2}, cf.chunkIDs)
	assert.Equal(t, "1. SCOPE", cf.blocks[0].Section)
}

func TestChunkHashes(t *testing.T) {
	h := newChunkHashes([]domain.ChunkRecord{{Text: "Covers  Boiler\nstartup."}})

	cf := chunkedFile{
		blocks: []domain.Block{
			{Text: "covers boiler startup."},
			{Text: "covers boiler startup!"},
			{Text: "Covers boiler startup!"},
		},
		chunkIDs: []int{0, 1, 2},
	}
	ratio, skip := h.filter(&cf, 0.8)
	assert.False(t, skip)
	assert.InDelta(t, 2.0/3.0, ratio, 1e-9)
	require.Len(t, cf.blocks, 1)
	assert.Equal(t, []int{1}, cf.chunkIDs)
	assert.Len(t, h, 2)
}

func TestChunkHashes_RejectedFileLeavesSetUntouched(t *testing.T) {
	h := newChunkHashes([]domain.ChunkRecord{{Text: "known one"}, {Text: "known two"}})

	cf := chunkedFile{
		blocks:   []domain.Block{{Text: "known one"}, {Text: "known two"}, {Text: "brand new"}},
		chunkIDs: []int{0, 1, 2},
	}
	ratio, skip := h.filter(&cf, 0.6)
	assert.True(t, skip)
	assert.InDelta(t, 2.0/3.0, ratio, 1e-9)
	assert.Len(t, cf.blocks, 3, "a rejected file keeps its chunks")
	assert.Len(t, h, 2)
	_, ok := h[hashChunk("brand new")]
	assert.False(t, ok)
}

func TestChunkHashes_ZeroRatioNeverSkipsCleanFiles(t *testing.T) {
	h := newChunkHashes(nil)
	cf := chunkedFile{blocks: []domain.Block{{Text: "alpha"}}, chunkIDs: []int{0}}
	_, skip := h.filter(&cf, 0)
	assert.False(t, skip)
	assert.Len(t, cf.blocks, 1)
}
