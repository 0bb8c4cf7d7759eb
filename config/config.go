package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for docrag.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig holds build and append configuration.
type IndexConfig struct {
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	Extensions   []string `yaml:"extensions"`
	ChunkSize    int      `yaml:"chunk_size"`     // target characters per chunk
	ChunkHardMax int      `yaml:"chunk_hard_max"` // 0 = chunk_size + 400
	Overlap      int      `yaml:"overlap"`        // window overlap for oversized blocks
	MinChunkLen  int      `yaml:"min_chunk_len"`
	BatchSize    int      `yaml:"batch_size"`
	CPUThreads   int      `yaml:"cpu_threads"` // 0 = min(NumCPU, 14)
	IndexType    string   `yaml:"index_type"`  // "hnsw" or "flat"
	HNSWM        int      `yaml:"hnsw_m"`
	HNSWEfSearch int      `yaml:"hnsw_ef_search"`
	Stemming     bool     `yaml:"stemming"`
	K1           float64  `yaml:"k1"`
	B            float64  `yaml:"b"`
	DedupChunks  bool     `yaml:"dedup_chunks"`
	DupSkipRatio float64  `yaml:"dup_skip_ratio"`
}

// RetrieveConfig holds query-time configuration.
type RetrieveConfig struct {
	TopK           int     `yaml:"top_k"`
	CandidateK     int     `yaml:"candidate_k"`
	MinScore       float64 `yaml:"min_score"`
	MaxPerFile     int     `yaml:"max_per_file"` // 0 = unlimited
	WDense         float64 `yaml:"w_dense"`
	WLexical       float64 `yaml:"w_lexical"`
	Rerank         bool    `yaml:"rerank"`
	RerankTopN     int     `yaml:"rerank_top_n"`
	Alpha          float64 `yaml:"alpha"`
	QueryCacheSize int     `yaml:"query_cache_size"`
}

// EmbeddingConfig holds embedding model configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "openai", "ollama", "hash"
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Dimension      int    `yaml:"dimension"`
	CachePath      string `yaml:"cache_path"` // "" = user cache dir, "off" disables
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RerankConfig holds reranker configuration.
type RerankConfig struct {
	Provider       string `yaml:"provider"` // "http", "overlap", "none"
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Includes:     []string{"**/*"},
			Excludes:     []string{"**/.git/**", "**/node_modules/**", "**/~$*", "**/.DS_Store"},
			Extensions:   []string{".pdf", ".docx", ".xlsx", ".pptx", ".txt", ".csv", ".md", ".html", ".json", ".xml"},
			ChunkSize:    900,
			Overlap:      150,
			MinChunkLen:  80,
			BatchSize:    128,
			IndexType:    "hnsw",
			HNSWM:        32,
			HNSWEfSearch: 64,
			Stemming:     true,
			K1:           1.2,
			B:            0.75,
			DupSkipRatio: 0.8,
		},
		Retrieve: RetrieveConfig{
			TopK:           6,
			CandidateK:     50,
			MaxPerFile:     2,
			WDense:         0.65,
			WLexical:       0.35,
			Rerank:         true,
			RerankTopN:     20,
			Alpha:          0.6,
			QueryCacheSize: 256,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			Model:          "all-minilm",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 120,
		},
		Rerank: RerankConfig{
			Provider:       "overlap",
			Model:          "rerank-english-v3.0",
			APIKeyEnv:      "COHERE_API_KEY",
			TimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be positive, got %d", c.Index.ChunkSize)
	}
	if c.Index.ChunkHardMax != 0 && c.Index.ChunkHardMax < c.Index.ChunkSize {
		return fmt.Errorf("index.chunk_hard_max (%d) is below chunk_size (%d)", c.Index.ChunkHardMax, c.Index.ChunkSize)
	}
	if c.Index.Overlap < 0 {
		return fmt.Errorf("index.overlap must not be negative")
	}
	switch strings.ToLower(c.Index.IndexType) {
	case "hnsw", "flat":
	default:
		return fmt.Errorf("index.index_type must be hnsw or flat, got %q", c.Index.IndexType)
	}
	if c.Retrieve.TopK <= 0 || c.Retrieve.CandidateK <= 0 {
		return fmt.Errorf("retrieve.top_k and retrieve.candidate_k must be positive")
	}
	if c.Retrieve.WDense < 0 || c.Retrieve.WLexical < 0 || c.Retrieve.WDense+c.Retrieve.WLexical == 0 {
		return fmt.Errorf("retrieve fusion weights must be non-negative and not both zero")
	}
	if c.Retrieve.Alpha < 0 || c.Retrieve.Alpha > 1 {
		return fmt.Errorf("retrieve.alpha must be within [0,1], got %g", c.Retrieve.Alpha)
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "openai", "ollama":
	case "hash":
		if c.Embedding.Dimension <= 0 {
			return fmt.Errorf("embedding.dimension is required for the hash provider")
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}
	switch strings.ToLower(c.Rerank.Provider) {
	case "", "none", "overlap", "http":
	default:
		return fmt.Errorf("unsupported rerank provider: %s", c.Rerank.Provider)
	}
	return nil
}

// HardMax returns the hard chunk size limit.
func (c IndexConfig) HardMax() int {
	if c.ChunkHardMax > 0 {
		return c.ChunkHardMax
	}
	return c.ChunkSize + 400
}

// Threads returns the worker cap for embedding and GOMAXPROCS.
func (c IndexConfig) Threads() int {
	if c.CPUThreads > 0 {
		return c.CPUThreads
	}
	n := runtime.NumCPU()
	if n > 14 {
		n = 14
	}
	return n
}

// EfSearch returns the HNSW search breadth, never below the candidate count.
func (c *Config) EfSearch() int {
	if c.Index.HNSWEfSearch < c.Retrieve.CandidateK {
		return c.Retrieve.CandidateK
	}
	return c.Index.HNSWEfSearch
}

// ExtensionAllowed reports whether path has an allow-listed extension.
func (c IndexConfig) ExtensionAllowed(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range c.Extensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}

// DefaultCachePath returns the embedding cache location under the user
// cache directory.
func DefaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "docrag", "embeddings.db")
}

// LockPath returns the lock file guarding a store directory.
func LockPath(storeDir string) string {
	return filepath.Clean(storeDir) + ".lock"
}
