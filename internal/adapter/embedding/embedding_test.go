package embedding

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/config"
)

// countingEmbedder records how many texts reach the model.
type countingEmbedder struct {
	inner  *HashEmbedder
	calls  atomic.Int64
	texts  atomic.Int64
	failOn string
}

func newCounting(dim int) *countingEmbedder {
	return &countingEmbedder{inner: NewHashEmbedder(dim)}
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.texts.Add(int64(len(texts)))
	for _, t := range texts {
		if c.failOn != "" && t == c.failOn {
			return nil, errors.New("model failure")
		}
	}
	return c.inner.Embed(ctx, texts)
}

func (c *countingEmbedder) Dimension() int    { return c.inner.Dimension() }
func (c *countingEmbedder) ModelName() string { return c.inner.ModelName() }

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestHashEmbedder_DeterministicUnitVectors(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, []string{"pump maintenance schedule"})
	require.NoError(t, err)
	b, err := e.Embed(ctx, []string{"pump maintenance schedule"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a[0], 64)
	assert.InDelta(t, 1.0, norm(a[0]), 1e-5)
	assert.Equal(t, "hash-64", e.ModelName())
}

func TestHashEmbedder_SharedVocabularyScoresHigher(t *testing.T) {
	e := NewHashEmbedder(256)
	vecs, err := e.Embed(context.Background(), []string{
		"calibrate the pressure gauge",
		"pressure gauge calibration steps",
		"holiday party invitation",
	})
	require.NoError(t, err)

	dot := func(x, y []float32) float64 {
		var s float64
		for i := range x {
			s += float64(x[i]) * float64(y[i])
		}
		return s
	}
	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
}

func TestHashEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	vecs, err := NewHashEmbedder(8).Embed(context.Background(), []string{""})
	require.NoError(t, err)
	assert.Equal(t, 0.0, norm(vecs[0]))
}

func TestCachedEmbedder_HitsSkipModel(t *testing.T) {
	inner := newCounting(32)
	c := NewCachedEmbedder(inner, 4)
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	second, err := c.Embed(ctx, []string{"beta", "alpha", "gamma"})
	require.NoError(t, err)

	assert.Equal(t, first[0], second[1])
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, int64(3), inner.texts.Load(), "only gamma should miss on the second call")
	assert.Equal(t, 3, c.Len())
}

func TestCachedEmbedder_Evicts(t *testing.T) {
	inner := newCounting(8)
	c := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	_, err := c.Embed(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestBoltCache_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "embeddings.db")
	ctx := context.Background()

	inner := newCounting(16)
	c, err := OpenBoltCache(path, inner)
	require.NoError(t, err)
	want, err := c.Embed(ctx, []string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	require.NoError(t, c.Close())

	inner2 := newCounting(16)
	c2, err := OpenBoltCache(path, inner2)
	require.NoError(t, err)
	defer c2.Close()

	got, err := c2.Embed(ctx, []string{"two", "one"})
	require.NoError(t, err)
	assert.Equal(t, want[1], got[0])
	assert.Equal(t, want[0], got[1])
	assert.Equal(t, int64(0), inner2.calls.Load())
}

func TestBoltCache_KeysIncludeModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.db")
	ctx := context.Background()

	c, err := OpenBoltCache(path, newCounting(16))
	require.NoError(t, err)
	_, err = c.Embed(ctx, []string{"shared"})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	other := newCounting(24)
	c2, err := OpenBoltCache(path, other)
	require.NoError(t, err)
	defer c2.Close()

	vecs, err := c2.Embed(ctx, []string{"shared"})
	require.NoError(t, err)
	assert.Len(t, vecs[0], 24)
	assert.Equal(t, int64(1), other.calls.Load())
}

func TestEncodeVectorRoundTrip(t *testing.T) {
	v := []float32{0.25, -1.5, 3}
	got, ok := decodeVector(encodeVector(v))
	require.True(t, ok)
	assert.Equal(t, v, got)

	_, ok = decodeVector([]byte{1, 2, 3})
	assert.False(t, ok)
}

func TestEncodeAll_KeepsOrder(t *testing.T) {
	inner := newCounting(8)
	texts := []string{"a", "b", "c", "d", "e", "f", "g"}

	var mu sync.Mutex
	var progress []int
	out, err := EncodeAll(context.Background(), inner, texts, 2, 3, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, len(texts), total)
		progress = append(progress, done)
	})
	require.NoError(t, err)
	require.Len(t, out, len(texts))

	direct, err := NewHashEmbedder(8).Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, direct, out)
	assert.Equal(t, int64(4), inner.calls.Load())
	assert.Len(t, progress, 4)
	assert.Equal(t, len(texts), progress[len(progress)-1])
}

func TestEncodeAll_PropagatesError(t *testing.T) {
	inner := newCounting(8)
	inner.failOn = "bad"
	_, err := EncodeAll(context.Background(), inner, []string{"ok", "bad", "ok2"}, 1, 2, nil)
	assert.Error(t, err)
}

func TestEncodeAll_Empty(t *testing.T) {
	out, err := EncodeAll(context.Background(), newCounting(8), nil, 4, 2, nil)
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestProbeDimension(t *testing.T) {
	d, err := ProbeDimension(context.Background(), NewHashEmbedder(12))
	require.NoError(t, err)
	assert.Equal(t, 12, d)
}

func TestKnownDimension(t *testing.T) {
	assert.Equal(t, 1536, knownDimension("text-embedding-3-small"))
	assert.Equal(t, 0, knownDimension("custom-model"))
}

func TestNewOpenAIEmbedder_MissingKey(t *testing.T) {
	t.Setenv("DOCRAG_TEST_MISSING_KEY", "")
	_, err := NewOpenAIEmbedder("DOCRAG_TEST_MISSING_KEY", "text-embedding-3-small", "", 0, 0)
	assert.Error(t, err)
}

func TestFromConfig_Hash(t *testing.T) {
	cfg := config.EmbeddingConfig{Provider: "hash", Dimension: 32, CachePath: "off"}
	e, closer, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, 32, e.Dimension())
	assert.IsType(t, &HashEmbedder{}, e)
}

func TestFromConfig_WithCache(t *testing.T) {
	cfg := config.EmbeddingConfig{
		Provider:  "hash",
		Dimension: 32,
		CachePath: filepath.Join(t.TempDir(), "e.db"),
	}
	e, closer, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	defer closer.Close()
	assert.IsType(t, &BoltCache{}, e)
}

func TestFromConfig_Unknown(t *testing.T) {
	_, _, err := FromConfig(config.EmbeddingConfig{Provider: "voyage"}, nil)
	assert.Error(t, err)
}
