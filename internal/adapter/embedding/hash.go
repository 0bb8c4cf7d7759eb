package embedding

import (
	"context"
	"fmt"
	"hash/fnv"

	"docrag/internal/adapter/analyzer"
	"docrag/internal/adapter/vectorindex"
)

// HashEmbedder maps stemmed terms into a fixed number of signed buckets.
// It needs no model or network and is deterministic, which makes it the
// embedder for offline use and tests. Texts sharing vocabulary score high.
type HashEmbedder struct {
	dim       int
	tokenizer *analyzer.Tokenizer
}

// NewHashEmbedder creates a feature-hashing embedder of the given size.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{dim: dim, tokenizer: analyzer.NewTokenizer(true)}
}

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dim)
	for _, tok := range e.tokenizer.Tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dim))
		if sum>>63 == 1 {
			v[bucket]--
		} else {
			v[bucket]++
		}
	}
	vectorindex.Normalize(v)
	return v
}

func (e *HashEmbedder) Dimension() int { return e.dim }

func (e *HashEmbedder) ModelName() string { return fmt.Sprintf("hash-%d", e.dim) }
