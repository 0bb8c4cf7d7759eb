package usecase

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/textnorm"
	"docrag/internal/domain"
	ragerr "docrag/internal/errors"
	"docrag/internal/port"
)

// chunkedFile holds the surviving chunks of one document. ChunkIDs are the
// chunk positions before short chunks were dropped.
type chunkedFile struct {
	file     port.FileInfo
	blocks   []domain.Block
	chunkIDs []int
}

// documentPipeline turns one file into normalized, packed chunks.
type documentPipeline struct {
	extractor port.Extractor
	chunker   *chunker.StructuralChunker
	minLen    int
	logger    *slog.Logger
}

// chunkFile extracts, normalizes and chunks file, dropping chunks shorter
// than minLen runes. Any extraction error is returned for the caller to
// log and skip; it never aborts a batch.
func (p *documentPipeline) chunkFile(ctx context.Context, file port.FileInfo) (chunkedFile, error) {
	out := chunkedFile{file: file}

	raw, err := p.extractor.Extract(ctx, file.Path)
	if err != nil {
		if !ragerr.IsExtraction(err) {
			err = ragerr.Wrap(ragerr.CodeExtractFailed, err).WithDetail("path", file.Path)
		}
		return out, err
	}
	text := textnorm.Normalize(raw)
	if text == "" {
		return out, nil
	}

	for cid, block := range p.chunker.Chunk(text) {
		block.Text = strings.TrimSpace(block.Text)
		if utf8.RuneCountInString(block.Text) < p.minLen {
			continue
		}
		out.blocks = append(out.blocks, block)
		out.chunkIDs = append(out.chunkIDs, cid)
	}
	return out, nil
}

// recordFactory stamps chunk records for files under one corpus root.
type recordFactory struct {
	basePath     string
	sourceFolder string
	createdAt    float64
}

func newRecordFactory(basePath string, createdAt time.Time) recordFactory {
	folder := ""
	if basePath != "" {
		folder = filepath.Base(strings.TrimRight(basePath, string(os.PathSeparator)))
	}
	return recordFactory{
		basePath:     basePath,
		sourceFolder: folder,
		createdAt:    unixSeconds(createdAt),
	}
}

// records assigns ids starting at nextID to the chunks of cf.
func (f recordFactory) records(cf chunkedFile, nextID int) []domain.ChunkRecord {
	name := filepath.Base(cf.file.Path)
	relPath := name
	if f.basePath != "" {
		if rel, err := filepath.Rel(f.basePath, cf.file.Path); err == nil {
			relPath = rel
		}
	}
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(cf.file.Path)), ".")

	out := make([]domain.ChunkRecord, len(cf.blocks))
	for i, b := range cf.blocks {
		out[i] = domain.ChunkRecord{
			ID:           nextID + i,
			FileName:     name,
			RelPath:      relPath,
			AbsPath:      cf.file.Path,
			FileType:     fileType,
			SourceFolder: f.sourceFolder,
			ChunkID:      cf.chunkIDs[i],
			ChunkLen:     utf8.RuneCountInString(b.Text),
			Mtime:        cf.file.ModTime,
			SizeKB:       cf.file.Size / 1024,
			CreatedAt:    f.createdAt,
			Section:      b.Section,
			Subsection:   b.Subsection,
			Text:         b.Text,
		}
	}
	return out
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// progressReporter forwards strictly increasing percentages in [0,100].
type progressReporter struct {
	fn   port.ProgressFunc
	last int
}

func newProgressReporter(fn port.ProgressFunc) *progressReporter {
	return &progressReporter{fn: fn, last: -1}
}

func (p *progressReporter) report(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if p.fn == nil || percent <= p.last {
		return
	}
	p.last = percent
	p.fn(percent)
}

// span maps done/total onto [from, to].
func (p *progressReporter) span(from, to, done, total int) {
	if total <= 0 {
		p.report(to)
		return
	}
	p.report(from + (to-from)*done/total)
}

func newChunker(chunkSize, hardMax, overlap int, headings port.HeadingDetector) *chunker.StructuralChunker {
	return chunker.NewStructuralChunker(chunkSize, hardMax, overlap, headings)
}
