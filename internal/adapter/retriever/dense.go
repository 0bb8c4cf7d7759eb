package retriever

import (
	"context"
	"fmt"
	"math"

	"docrag/internal/adapter/vectorindex"
	ragerr "docrag/internal/errors"
	"docrag/internal/port"
)

// DenseRetriever runs nearest-neighbor search with the query embedding.
type DenseRetriever struct {
	index    port.VectorIndex
	embedder port.Embedder
}

func NewDenseRetriever(index port.VectorIndex, embedder port.Embedder) *DenseRetriever {
	return &DenseRetriever{
		index:    index,
		embedder: embedder,
	}
}

func (r *DenseRetriever) Search(ctx context.Context, query string, k int) ([]port.Hit, error) {
	if r.index == nil || r.embedder == nil {
		return nil, fmt.Errorf("dense search not available: embeddings not configured")
	}
	if r.index.Len() == 0 || k <= 0 {
		return nil, nil
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, ragerr.New(ragerr.CodeEmbeddingFailed, "failed to embed query", err)
	}
	if len(embeddings) == 0 {
		return nil, ragerr.Newf(ragerr.CodeEmbeddingFailed, "embedding returned empty result")
	}

	// Cached vectors are shared, so normalize a copy.
	q := make([]float32, len(embeddings[0]))
	copy(q, embeddings[0])
	vectorindex.Normalize(q)

	hits, err := r.index.Search(q, k)
	if err != nil {
		return nil, ragerr.New(ragerr.CodeSearchFailed, "vector search failed", err)
	}

	// A zero query vector yields NaN similarities.
	valid := hits[:0]
	for _, h := range hits {
		if !math.IsNaN(h.Score) {
			valid = append(valid, h)
		}
	}
	return valid, nil
}
