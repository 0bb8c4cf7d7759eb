package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"docrag/config"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/fs"
	"docrag/internal/adapter/store"
	"docrag/internal/adapter/vectorindex"
	"docrag/internal/domain"
	ragerr "docrag/internal/errors"
	"docrag/internal/logging"
	"docrag/internal/port"
)

// Builder creates a store from every eligible file under a folder.
type Builder struct {
	cfg       *config.Config
	walker    *fs.Walker
	extractor port.Extractor
	embedder  port.Embedder
	headings  port.HeadingDetector
	logger    *slog.Logger
}

// NewBuilder creates a builder. A nil headings detector selects the
// numbered/uppercase heuristic.
func NewBuilder(cfg *config.Config, extractor port.Extractor, embedder port.Embedder, headings port.HeadingDetector, logger *slog.Logger) *Builder {
	return &Builder{
		cfg:       cfg,
		walker:    fs.NewWalker(cfg.Index.Includes, cfg.Index.Excludes, cfg.Index.Extensions),
		extractor: extractor,
		embedder:  embedder,
		headings:  headings,
		logger:    logging.OrDefault(logger),
	}
}

// BuildRequest names the corpus folder and the store directory.
type BuildRequest struct {
	Root     string
	OutDir   string
	Progress port.ProgressFunc
}

// BuildResult contains the results of a build.
type BuildResult struct {
	FilesFound   int
	FilesIndexed int
	FilesSkipped int
	Chunks       int
	Dim          int
	IndexType    string
	Errors       []string
	Duration     time.Duration
}

// Build replaces the store in req.OutDir with a fresh one. Ids run from 0
// in file-path then chunk order. A failure before the final save leaves a
// previous store untouched.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	start := time.Now()
	progress := newProgressReporter(req.Progress)
	progress.report(0)

	root, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, ragerr.New(ragerr.CodeInvalidInput, "resolve corpus folder", err)
	}

	files, err := b.walker.Walk(root)
	if err != nil {
		return nil, ragerr.New(ragerr.CodeInvalidInput, fmt.Sprintf("failed to walk %s", root), err)
	}
	if len(files) == 0 {
		return nil, ragerr.Newf(ragerr.CodeNoSupportedFiles, "no supported files found under %s", root)
	}

	result := &BuildResult{FilesFound: len(files)}
	pipeline := b.pipeline(b.cfg.Index.ChunkSize, b.cfg.Index.HardMax(), b.cfg.Index.MinChunkLen)
	factory := newRecordFactory(root, start)

	var records []domain.ChunkRecord
	for i, file := range files {
		cf, err := pipeline.chunkFile(ctx, file)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			b.logger.Warn("skipping file", "path", file.Path, "code", ragerr.CodeOf(err), "error", err)
			result.FilesSkipped++
			result.Errors = append(result.Errors, err.Error())
		} else if len(cf.blocks) > 0 {
			records = append(records, factory.records(cf, len(records))...)
			result.FilesIndexed++
		} else {
			b.logger.Debug("no chunks in file", "path", file.Path)
		}
		progress.span(0, 60, i+1, len(files))
	}

	if len(records) == 0 {
		return nil, ragerr.Newf(ragerr.CodeNoChunks, "no chunks created from %d files under %s", len(files), root)
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	vectors, err := embedding.EncodeAll(ctx, b.embedder, texts, b.cfg.Index.BatchSize, b.cfg.Index.Threads(), func(done, total int) {
		progress.span(60, 85, done, total)
	})
	if err != nil {
		return nil, ragerr.New(ragerr.CodeEmbeddingFailed, "failed to embed chunks", err)
	}
	dim := len(vectors[0])

	contract := store.Contract{
		ModelName:           b.embedder.ModelName(),
		NormalizeEmbeddings: true,
		IndexType:           b.cfg.Index.IndexType,
		Dim:                 dim,
		ChunkSize:           b.cfg.Index.ChunkSize,
		Overlap:             b.cfg.Index.Overlap,
		BatchSize:           b.cfg.Index.BatchSize,
		CPUThreads:          b.cfg.Index.Threads(),
		CreatedAt:           unixSeconds(start),
		MinChunkLen:         b.cfg.Index.MinChunkLen,
	}
	st, err := store.Create(req.OutDir, contract, root, b.indexOptions())
	if err != nil {
		return nil, err
	}
	if err := st.Extend(records, vectors); err != nil {
		return nil, err
	}
	progress.report(85)

	if err := st.Save(); err != nil {
		return nil, err
	}
	if err := store.RemoveManifest(req.OutDir); err != nil {
		b.logger.Warn("failed to remove stale manifest", "dir", req.OutDir, "error", err)
	}
	progress.report(100)

	result.Chunks = st.Len()
	result.Dim = dim
	result.IndexType = st.Contract().IndexType
	result.Duration = time.Since(start)

	b.logger.Info("build complete",
		"root", root,
		"store", req.OutDir,
		"files", result.FilesIndexed,
		"skipped", result.FilesSkipped,
		"chunks", result.Chunks,
		"dim", dim,
		"duration", result.Duration)
	return result, nil
}

func (b *Builder) pipeline(chunkSize, hardMax, minLen int) *documentPipeline {
	return &documentPipeline{
		extractor: b.extractor,
		chunker:   newChunker(chunkSize, hardMax, b.cfg.Index.Overlap, b.headings),
		minLen:    minLen,
		logger:    b.logger,
	}
}

func (b *Builder) indexOptions() vectorindex.Options {
	return vectorindex.Options{M: b.cfg.Index.HNSWM, EfSearch: b.cfg.EfSearch()}
}
