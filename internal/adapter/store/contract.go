package store

import (
	"encoding/json"
	"fmt"
	"os"

	ragerr "docrag/internal/errors"
)

// Contract is the write-once description of how a store was built. Every
// later append is checked against it.
type Contract struct {
	ModelName           string  `json:"model_name"`
	NormalizeEmbeddings bool    `json:"normalize_embeddings"`
	IndexType           string  `json:"index_type"`
	Dim                 int     `json:"dim"`
	ChunkSize           int     `json:"chunk_size"`
	Overlap             int     `json:"overlap"`
	BatchSize           int     `json:"batch_size"`
	CPUThreads          int     `json:"cpu_threads"`
	CreatedAt           float64 `json:"created_at"`
	MinChunkLen         int     `json:"min_chunk_len"`
}

// Validate checks the fields every store needs.
func (c Contract) Validate() error {
	if c.Dim <= 0 {
		return ragerr.Newf(ragerr.CodeInvalidInput, "contract dimension must be positive, got %d", c.Dim)
	}
	if c.ChunkSize <= 0 {
		return ragerr.Newf(ragerr.CodeInvalidInput, "contract chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.IndexType == "" {
		return ragerr.Newf(ragerr.CodeInvalidInput, "contract index type is empty")
	}
	return nil
}

// CheckDimension fails when an embedder's dimension differs from the one
// the store was built with.
func (c Contract) CheckDimension(dim int) error {
	if dim != c.Dim {
		return ragerr.Newf(ragerr.CodeDimensionMismatch,
			"embedding model produces %d dimensions, store %q was built with %d", dim, c.ModelName, c.Dim).
			WithDetail("store_dim", fmt.Sprint(c.Dim)).
			WithDetail("model_dim", fmt.Sprint(dim))
	}
	return nil
}

func readContract(path string) (Contract, error) {
	var c Contract
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read contract: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, ragerr.New(ragerr.CodeCorruptStore, "parse "+ConfigFile, err)
	}
	return c, nil
}
