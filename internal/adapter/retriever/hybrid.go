package retriever

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/store"
	"docrag/internal/domain"
	ragerr "docrag/internal/errors"
	"docrag/internal/logging"
	"docrag/internal/port"
)

// Options controls one hybrid retriever.
type Options struct {
	TopK       int
	CandidateK int
	MinScore   float64
	MaxPerFile int
	WDense     float64
	WLexical   float64
	Rerank     bool
	RerankTopN int
	Alpha      float64
	K1         float64
	B          float64
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		TopK:       6,
		CandidateK: 50,
		MaxPerFile: 2,
		WDense:     0.65,
		WLexical:   0.35,
		Rerank:     true,
		RerankTopN: 20,
		Alpha:      0.6,
		K1:         1.2,
		B:          0.75,
	}
}

// HybridRetriever ranks the records of one store by fusing dense and BM25
// scores, optionally reranking the head, and capping results per file.
// It is safe for concurrent searches.
type HybridRetriever struct {
	store    *store.Store
	dense    *DenseRetriever
	lexical  *BM25Retriever
	reranker port.Reranker
	opts     Options
	logger   *slog.Logger
}

// NewHybridRetriever wires the generators over st. Reranker availability
// is checked here, once; an unavailable reranker is dropped and every
// result keeps final = fused.
func NewHybridRetriever(ctx context.Context, st *store.Store, embedder port.Embedder, tokenizer port.Tokenizer, reranker port.Reranker, opts Options, logger *slog.Logger) (*HybridRetriever, error) {
	logger = logging.OrDefault(logger)

	dim, err := embedding.ProbeDimension(ctx, embedder)
	if err != nil {
		return nil, ragerr.New(ragerr.CodeEmbeddingFailed, "failed to probe embedding dimension", err)
	}
	if err := st.Contract().CheckDimension(dim); err != nil {
		return nil, err
	}

	if opts.TopK <= 0 {
		opts.TopK = 6
	}
	if opts.CandidateK < opts.TopK {
		opts.CandidateK = opts.TopK
	}

	texts := func() []string {
		records := st.Records()
		out := make([]string, len(records))
		for i, r := range records {
			out[i] = r.Text
		}
		return out
	}

	r := &HybridRetriever{
		store:   st,
		dense:   NewDenseRetriever(st.Index(), embedder),
		lexical: NewBM25Retriever(texts, tokenizer, opts.K1, opts.B),
		opts:    opts,
		logger:  logger,
	}

	if opts.Rerank && reranker != nil {
		if reranker.Available(ctx) {
			r.reranker = reranker
			logger.Debug("reranker enabled", "model", reranker.ModelName())
		} else {
			logger.Warn("reranker unavailable, using fused scores",
				"model", reranker.ModelName(),
				"code", ragerr.CodeRerankUnavailable)
		}
	}
	return r, nil
}

// RerankEnabled reports whether a reranker passed the availability check.
func (r *HybridRetriever) RerankEnabled() bool { return r.reranker != nil }

// WarmUp builds the lexical index ahead of the first query.
func (r *HybridRetriever) WarmUp() { r.lexical.Index() }

// Search returns at most TopK results ordered by final score.
func (r *HybridRetriever) Search(ctx context.Context, query string) ([]domain.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ragerr.Newf(ragerr.CodeInvalidInput, "query is empty")
	}
	if r.store.Len() == 0 {
		return nil, nil
	}

	denseHits, err := r.dense.Search(ctx, query, r.opts.CandidateK)
	if err != nil {
		return nil, err
	}
	lexHits := r.lexical.Search(query, r.opts.CandidateK)

	cands := Fuse(denseHits, lexHits, r.opts.WDense, r.opts.WLexical)

	if r.reranker != nil {
		err := RerankHead(ctx, r.reranker, query, cands, r.text, r.opts.RerankTopN, r.opts.Alpha)
		if err != nil {
			r.logger.Warn("rerank failed, using fused scores", "error", err)
			for i := range cands {
				cands[i].Rerank = nil
				cands[i].Final = cands[i].Fused
			}
		}
	}

	selected := Diversify(cands, r.fileName, r.opts.MinScore, r.opts.MaxPerFile, r.opts.TopK)

	results := make([]domain.QueryResult, 0, len(selected))
	for _, c := range selected {
		rec, ok := r.store.Record(c.Pos)
		if !ok {
			continue
		}
		results = append(results, r.toResult(c, rec))
	}

	r.logger.Debug("search complete",
		"dense", len(denseHits),
		"lexical", len(lexHits),
		"fused", len(cands),
		"returned", len(results))
	return results, nil
}

func (r *HybridRetriever) text(pos int) string {
	rec, _ := r.store.Record(pos)
	return rec.Text
}

func (r *HybridRetriever) fileName(pos int) string {
	rec, _ := r.store.Record(pos)
	return rec.FileName
}

func (r *HybridRetriever) toResult(c domain.Candidate, rec domain.ChunkRecord) domain.QueryResult {
	absPath := rec.AbsPath
	if absPath == "" && rec.RelPath != "" && r.store.BasePath() != "" {
		absPath = filepath.Join(r.store.BasePath(), filepath.FromSlash(rec.RelPath))
	}
	return domain.QueryResult{
		FinalScore:   c.Final,
		FusedScore:   c.Fused,
		DenseScore:   c.Dense,
		LexicalScore: c.Lexical,
		RerankScore:  c.Rerank,
		ID:           rec.ID,
		Text:         rec.Text,
		FileName:     rec.FileName,
		RelPath:      rec.RelPath,
		AbsPath:      absPath,
		ChunkID:      rec.ChunkID,
		FileType:     rec.FileType,
		Mtime:        rec.Mtime,
		SizeKB:       rec.SizeKB,
		Section:      rec.Section,
		Subsection:   rec.Subsection,
	}
}

var _ port.Retriever = (*HybridRetriever)(nil)
