package port

import "context"

// Reranker scores query-document pairs for relevance.
type Reranker interface {
	// Rerank scores each text against the query. The result holds one
	// entry per input text; order is not significant.
	Rerank(ctx context.Context, query string, texts []string) ([]RerankedResult, error)

	// Available reports whether the reranker can serve requests. It is
	// checked once when a retriever is built.
	Available(ctx context.Context) bool

	// ModelName returns the name of the reranking model.
	ModelName() string
}

// RerankedResult represents a reranked document.
type RerankedResult struct {
	Index int     // Original index in the input slice
	Score float64 // Relevance score (higher is better)
}
