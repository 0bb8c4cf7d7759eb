package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"docrag/config"
	"docrag/internal/adapter/analyzer"
	"docrag/internal/adapter/cache"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/retriever"
	"docrag/internal/adapter/store"
	"docrag/internal/adapter/vectorindex"
	"docrag/internal/domain"
	"docrag/internal/logging"
	"docrag/internal/port"
)

// RetrieveUseCase answers queries against one opened store.
type RetrieveUseCase struct {
	store     *store.Store
	retriever *retriever.HybridRetriever
	results   *cache.QueryCache
	logger    *slog.Logger
}

// OpenRetrieveUseCase opens the store in dir and prepares the hybrid
// retriever. Query vectors and ranked results are cached in memory. Fails
// when the store is missing or was built with a different dimension.
func OpenRetrieveUseCase(ctx context.Context, dir string, cfg *config.Config, embedder port.Embedder, reranker port.Reranker, logger *slog.Logger) (*RetrieveUseCase, error) {
	logger = logging.OrDefault(logger)

	st, err := store.Open(dir, vectorindex.Options{M: cfg.Index.HNSWM, EfSearch: cfg.EfSearch()})
	if err != nil {
		return nil, err
	}

	cached := embedding.NewCachedEmbedder(embedder, cfg.Retrieve.QueryCacheSize)
	hybrid, err := retriever.NewHybridRetriever(ctx, st, cached, analyzer.NewTokenizer(cfg.Index.Stemming), reranker, RetrieveOptions(cfg), logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("store opened",
		"dir", dir,
		"chunks", st.Len(),
		"index", st.Contract().IndexType,
		"rerank", hybrid.RerankEnabled())
	return &RetrieveUseCase{
		store:     st,
		retriever: hybrid,
		results:   cache.NewQueryCache(cfg.Retrieve.QueryCacheSize, 0),
		logger:    logger,
	}, nil
}

// RetrieveOptions maps configuration onto retriever options.
func RetrieveOptions(cfg *config.Config) retriever.Options {
	return retriever.Options{
		TopK:       cfg.Retrieve.TopK,
		CandidateK: cfg.Retrieve.CandidateK,
		MinScore:   cfg.Retrieve.MinScore,
		MaxPerFile: cfg.Retrieve.MaxPerFile,
		WDense:     cfg.Retrieve.WDense,
		WLexical:   cfg.Retrieve.WLexical,
		Rerank:     cfg.Retrieve.Rerank,
		RerankTopN: cfg.Retrieve.RerankTopN,
		Alpha:      cfg.Retrieve.Alpha,
		K1:         cfg.Index.K1,
		B:          cfg.Index.B,
	}
}

// NewReranker builds the configured reranker, or nil when reranking is
// off. Availability is decided later, once, by the retriever.
func NewReranker(cfg config.RerankConfig, stemming bool) port.Reranker {
	switch strings.ToLower(cfg.Provider) {
	case "http":
		return retriever.NewHTTPReranker(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, time.Duration(cfg.TimeoutSeconds)*time.Second)
	case "overlap":
		return retriever.NewOverlapReranker(analyzer.NewTokenizer(stemming))
	default:
		return nil
	}
}

// Retrieve returns ranked results for query.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string) ([]domain.QueryResult, error) {
	if cached, ok := u.results.Get(query); ok {
		return cached, nil
	}
	results, err := u.retriever.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	u.results.Put(query, results)
	return results, nil
}

// WarmUp builds the lexical index ahead of the first query.
func (u *RetrieveUseCase) WarmUp() { u.retriever.WarmUp() }

// Store exposes the opened store for inspection.
func (u *RetrieveUseCase) Store() *store.Store { return u.store }

// RerankEnabled reports whether reranking is active for this session.
func (u *RetrieveUseCase) RerankEnabled() bool { return u.retriever.RerankEnabled() }
