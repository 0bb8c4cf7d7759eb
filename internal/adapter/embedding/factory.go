package embedding

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"docrag/config"
	ragerr "docrag/internal/errors"
	"docrag/internal/port"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// FromConfig builds the configured embedder, wrapped in the persistent
// vector cache unless cache_path is "off". The returned closer releases
// the cache file and must be called when the embedder is no longer used.
func FromConfig(cfg config.EmbeddingConfig, logger *slog.Logger) (port.Embedder, io.Closer, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var base port.Embedder
	switch strings.ToLower(cfg.Provider) {
	case "hash":
		base = NewHashEmbedder(cfg.Dimension)
	case "ollama":
		base = NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Dimension, timeout)
	case "openai", "":
		e, err := NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.Dimension, timeout)
		if err != nil {
			return nil, nil, err
		}
		base = e
	default:
		return nil, nil, ragerr.Newf(ragerr.CodeConfigInvalid, "unsupported embedding provider: %s", cfg.Provider)
	}

	path := cfg.CachePath
	if strings.EqualFold(path, "off") {
		return base, nopCloser{}, nil
	}
	if path == "" {
		path = config.DefaultCachePath()
	}
	cached, err := OpenBoltCache(path, base)
	if err != nil {
		// A locked or unreadable cache only costs speed.
		if logger != nil {
			logger.Warn("embedding cache unavailable", "path", path, "error", err)
		}
		return base, nopCloser{}, nil
	}
	return cached, cached, nil
}
