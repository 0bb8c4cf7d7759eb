package embedding

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docrag/internal/adapter/vectorindex"
	ragerr "docrag/internal/errors"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434/v1"
	maxInputsPerRequest  = 100
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. Ollama
// and most hosted providers speak the same protocol. Returned vectors are
// unit length.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension atomic.Int64
}

// NewOpenAIEmbedder reads the API key from apiKeyEnv. An empty baseURL
// targets api.openai.com.
func NewOpenAIEmbedder(apiKeyEnv, model, baseURL string, dimension int, timeout time.Duration) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, ragerr.Newf(ragerr.CodeConfigInvalid, "API key not found in environment variable: %s", apiKeyEnv)
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if dimension <= 0 {
		dimension = knownDimension(model)
	}
	return newOpenAICompatible(apiKey, model, baseURL, dimension, timeout), nil
}

// NewOllamaEmbedder talks to a local Ollama server.
func NewOllamaEmbedder(model, baseURL string, dimension int, timeout time.Duration) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if dimension <= 0 {
		dimension = knownDimension(model)
	}
	return newOpenAICompatible("ollama", model, baseURL, dimension, timeout)
}

func newOpenAICompatible(apiKey, model, baseURL string, dimension int, timeout time.Duration) *OpenAIEmbedder {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	config.HTTPClient = &http.Client{Timeout: timeout}

	e := &OpenAIEmbedder{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
	e.dimension.Store(int64(dimension))
	return e
}

// knownDimension returns the output size of well-known models, or 0.
func knownDimension(model string) int {
	switch model {
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large", "jina-embeddings-v3":
		return 1024
	case "all-minilm", "all-minilm:l6-v2", "sentence-transformers/all-MiniLM-L6-v2":
		return 384
	default:
		return 0
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += maxInputsPerRequest {
		end := i + maxInputsPerRequest
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, ragerr.New(ragerr.CodeEmbeddingFailed, "embedding request failed", err)
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			continue
		}
		v := make([]float32, len(d.Embedding))
		for i := range d.Embedding {
			v[i] = float32(d.Embedding[i])
		}
		vectorindex.Normalize(v)
		vecs[d.Index] = v
	}

	for i, v := range vecs {
		if v == nil {
			return nil, ragerr.Newf(ragerr.CodeEmbeddingFailed, "no embedding returned for input %d", i)
		}
		if err := e.observeDimension(len(v)); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

// observeDimension records the dimension on first use and rejects
// responses that change it.
func (e *OpenAIEmbedder) observeDimension(n int) error {
	if e.dimension.CompareAndSwap(0, int64(n)) {
		return nil
	}
	if d := e.dimension.Load(); int(d) != n {
		return ragerr.Newf(ragerr.CodeEmbeddingFailed, "model %s returned %d dimensions, expected %d", e.model, n, d)
	}
	return nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return int(e.dimension.Load())
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// String describes the embedder for logs.
func (e *OpenAIEmbedder) String() string {
	return fmt.Sprintf("openai-compatible(%s, dim=%d)", e.model, e.Dimension())
}
