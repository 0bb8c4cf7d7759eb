package usecase

import (
	"context"
	"log/slog"
	"math"
	"os"
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

// Appender adds new files to an existing store without rebuilding it.
type Appender struct {
	cfg       *config.Config
	walker    *fs.Walker
	extractor port.Extractor
	embedder  port.Embedder
	headings  port.HeadingDetector
	logger    *slog.Logger
}

// NewAppender creates an appender.
func NewAppender(cfg *config.Config, extractor port.Extractor, embedder port.Embedder, headings port.HeadingDetector, logger *slog.Logger) *Appender {
	return &Appender{
		cfg:       cfg,
		walker:    fs.NewWalker(cfg.Index.Includes, cfg.Index.Excludes, cfg.Index.Extensions),
		extractor: extractor,
		embedder:  embedder,
		headings:  headings,
		logger:    logging.OrDefault(logger),
	}
}

// AppendRequest lists candidate files or folders for one store.
type AppendRequest struct {
	StoreDir string
	Paths    []string
	Progress port.ProgressFunc
}

// AppendResult reports what an append did. Added is the number of chunks
// written; 0 is a normal outcome.
type AppendResult struct {
	Added          int
	FilesAdded     int
	FilesUnchanged int
	FilesFailed    int
	DupChunks      int
	DupFiles       int
	Errors         []string
}

// Append embeds and stores the chunks of every candidate file not yet
// ingested. A file version counts as ingested when the manifest lists its
// (path, mtime, size) or a stored record carries the same path, mtime and
// size in KiB. The embedder dimension is checked before anything is read
// or written.
func (a *Appender) Append(ctx context.Context, req AppendRequest) (*AppendResult, error) {
	progress := newProgressReporter(req.Progress)
	progress.report(0)

	st, err := store.Open(req.StoreDir, a.indexOptions())
	if err != nil {
		return nil, err
	}

	dim, err := embedding.ProbeDimension(ctx, a.embedder)
	if err != nil {
		return nil, ragerr.New(ragerr.CodeEmbeddingFailed, "failed to probe embedding dimension", err)
	}
	if err := st.Contract().CheckDimension(dim); err != nil {
		return nil, err
	}

	result := &AppendResult{}
	manifest := store.LoadManifest(req.StoreDir)
	stored := storedVersions(st.Records())

	var candidates []port.FileInfo
	seen := make(map[string]struct{})
	for _, file := range a.expand(req.Paths) {
		if _, dup := seen[file.Path]; dup {
			continue
		}
		seen[file.Path] = struct{}{}

		key := store.ManifestKey(file.Path, file.ModTime, file.Size)
		version := storedVersion{file.Path, int64(math.Trunc(file.ModTime)), file.Size / 1024}
		if _, ok := stored[version]; ok || manifest.Has(key) {
			result.FilesUnchanged++
			continue
		}
		candidates = append(candidates, file)
	}

	if len(candidates) == 0 {
		progress.report(100)
		a.logger.Info("nothing to append", "store", req.StoreDir, "unchanged", result.FilesUnchanged)
		return result, nil
	}

	contract := st.Contract()
	hardMax := contract.ChunkSize + 400
	if a.cfg.Index.ChunkHardMax >= contract.ChunkSize {
		hardMax = a.cfg.Index.ChunkHardMax
	}
	minLen := contract.MinChunkLen
	if minLen <= 0 {
		minLen = a.cfg.Index.MinChunkLen
	}
	if a.cfg.Index.ChunkSize != contract.ChunkSize || a.cfg.Index.Overlap != contract.Overlap || a.cfg.Index.HardMax() != hardMax {
		a.logger.Warn("chunking config differs from the store contract, using contract values",
			"store", req.StoreDir,
			"contract_chunk_size", contract.ChunkSize,
			"config_chunk_size", a.cfg.Index.ChunkSize,
			"contract_overlap", contract.Overlap,
			"config_overlap", a.cfg.Index.Overlap,
			"config_hard_max", a.cfg.Index.HardMax(),
			"hard_max", hardMax)
	}
	pipeline := &documentPipeline{
		extractor: a.extractor,
		chunker:   newChunker(contract.ChunkSize, hardMax, contract.Overlap, a.headings),
		minLen:    minLen,
		logger:    a.logger,
	}
	factory := newRecordFactory(st.BasePath(), time.Now())

	var hashes chunkHashes
	if a.cfg.Index.DedupChunks {
		hashes = newChunkHashes(st.Records())
	}

	var records []domain.ChunkRecord
	var contributed []domain.ManifestEntry
	nextID := st.NextID()
	for i, file := range candidates {
		progress.span(0, 60, i, len(candidates))

		cf, err := pipeline.chunkFile(ctx, file)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			a.logger.Warn("skipping file", "path", file.Path, "code", ragerr.CodeOf(err), "error", err)
			result.FilesFailed++
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		if hashes != nil && len(cf.blocks) > 0 {
			before := len(cf.blocks)
			ratio, skip := hashes.filter(&cf, a.cfg.Index.DupSkipRatio)
			if skip {
				a.logger.Info("skipping near-duplicate file", "path", file.Path, "dup_ratio", ratio)
				result.DupFiles++
				result.DupChunks += before
				continue
			}
			result.DupChunks += before - len(cf.blocks)
		}
		if len(cf.blocks) == 0 {
			continue
		}

		fileRecords := factory.records(cf, nextID)
		nextID += len(fileRecords)
		records = append(records, fileRecords...)
		contributed = append(contributed, store.ManifestKey(file.Path, file.ModTime, file.Size))
		result.FilesAdded++
	}
	progress.report(60)

	if len(records) == 0 {
		progress.report(100)
		return result, nil
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	vectors, err := embedding.EncodeAll(ctx, a.embedder, texts, contract.BatchSize, a.cfg.Index.Threads(), func(done, total int) {
		progress.span(60, 85, done, total)
	})
	if err != nil {
		return nil, ragerr.New(ragerr.CodeEmbeddingFailed, "failed to embed chunks", err)
	}

	if err := st.Extend(records, vectors); err != nil {
		return nil, err
	}
	if err := st.Save(); err != nil {
		return nil, err
	}
	result.Added = len(records)
	progress.report(90)

	for _, key := range contributed {
		manifest.Add(key)
	}
	if err := manifest.Save(req.StoreDir); err != nil {
		return result, ragerr.New(ragerr.CodePersistFailed, "write manifest", err)
	}
	progress.report(100)

	a.logger.Info("append complete",
		"store", req.StoreDir,
		"files", result.FilesAdded,
		"chunks", result.Added,
		"unchanged", result.FilesUnchanged,
		"failed", result.FilesFailed)
	return result, nil
}

// expand resolves paths to allow-listed regular files. Folders are walked;
// missing or unsupported paths are dropped.
func (a *Appender) expand(paths []string) []port.FileInfo {
	var out []port.FileInfo
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			a.logger.Debug("ignoring missing path", "path", abs)
			continue
		}
		if info.IsDir() {
			files, err := a.walker.Walk(abs)
			if err != nil {
				a.logger.Warn("failed to walk folder", "path", abs, "error", err)
				continue
			}
			out = append(out, files...)
			continue
		}
		if file, ok := a.walker.Stat(abs); ok {
			out = append(out, file)
		}
	}
	return out
}

func (a *Appender) indexOptions() vectorindex.Options {
	return vectorindex.Options{M: a.cfg.Index.HNSWM, EfSearch: a.cfg.EfSearch()}
}
