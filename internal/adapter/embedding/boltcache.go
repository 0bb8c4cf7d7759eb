package embedding

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"docrag/internal/port"
)

// CacheSchemaVersion is bumped when the on-disk vector encoding changes.
const CacheSchemaVersion = 1

var (
	bucketVectors    = []byte("vectors")
	bucketMeta       = []byte("meta")
	keySchemaVersion = []byte("schema_version")
)

// BoltCache persists embeddings across builds and appends so re-indexing
// unchanged text does not call the model again. Entries are keyed by model
// and text, so one cache file serves several models.
type BoltCache struct {
	inner port.Embedder
	db    *bbolt.DB
}

// OpenBoltCache opens or creates the cache database at path.
func OpenBoltCache(path string, inner port.Embedder) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	c := &BoltCache{inner: inner, db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// migrate creates the buckets and drops entries written by a different
// schema version.
func (c *BoltCache) migrate() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketMeta, err)
		}

		version := 0
		if data := meta.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &version); err != nil {
				version = 0
			}
		}

		if version != CacheSchemaVersion && tx.Bucket(bucketVectors) != nil {
			if err := tx.DeleteBucket(bucketVectors); err != nil {
				return fmt.Errorf("failed to clear stale cache: %w", err)
			}
		}
		if _, err := tx.CreateBucketIfNotExists(bucketVectors); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketVectors, err)
		}

		data, err := json.Marshal(CacheSchemaVersion)
		if err != nil {
			return err
		}
		return meta.Put(keySchemaVersion, data)
	})
}

func (c *BoltCache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := c.inner.ModelName()
	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for i, text := range texts {
			if data := b.Get([]byte(cacheKey(model, text))); data != nil {
				if v, ok := decodeVector(data); ok {
					results[i] = v
					continue
				}
			}
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding cache: %w", err)
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for j, idx := range missIdx {
			results[idx] = vecs[j]
			if err := b.Put([]byte(cacheKey(model, texts[idx])), encodeVector(vecs[j])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write embedding cache: %w", err)
	}
	return results, nil
}

func (c *BoltCache) Dimension() int { return c.inner.Dimension() }

func (c *BoltCache) ModelName() string { return c.inner.ModelName() }

// Len returns the number of cached vectors.
func (c *BoltCache) Len() int {
	n := 0
	_ = c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketVectors).Stats().KeyN
		return nil
	})
	return n
}

// Close releases the database file lock.
func (c *BoltCache) Close() error {
	return c.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, bool) {
	if len(data)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, true
}
