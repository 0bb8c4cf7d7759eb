package port

import (
	"context"
	"io"
)

// Embedder generates unit-length vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension, or 0 when it is
	// only known after the first call.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorIndex is a nearest-neighbor index keyed by insertion position.
type VectorIndex interface {
	// Add appends vectors; the first gets position Len() before the call.
	Add(vectors [][]float32) error

	// Search returns up to k hits ordered by descending similarity.
	Search(query []float32, k int) ([]Hit, error)

	// Len returns the number of stored vectors.
	Len() int

	// Dim returns the vector dimension.
	Dim() int

	// Kind returns the persisted index type name.
	Kind() string

	// WriteTo serializes the index.
	WriteTo(w io.Writer) (int64, error)
}

// Hit is one nearest-neighbor match.
type Hit struct {
	Pos   int     // position in the index, equal to the record position
	Score float64 // cosine similarity, higher is better
}
