package vectorindex

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(v ...float32) []float32 {
	Normalize(v)
	return v
}

func testVectors() [][]float32 {
	return [][]float32{
		unit(1, 0, 0),
		unit(0, 1, 0),
		unit(0.9, 0.1, 0),
		unit(0, 0, 1),
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	Normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestNew_Kinds(t *testing.T) {
	flat, err := New("flat", 3, Options{})
	require.NoError(t, err)
	assert.Equal(t, KindFlat, flat.Kind())

	approx, err := New("HNSW", 3, Options{})
	require.NoError(t, err)
	assert.Equal(t, KindHNSW, approx.Kind())

	_, err = New("ivf", 3, Options{})
	assert.Error(t, err)

	_, err = New("flat", 0, Options{})
	assert.Error(t, err)
}

func TestFlat_SearchOrdersBySimilarity(t *testing.T) {
	idx := NewFlat(3)
	require.NoError(t, idx.Add(testVectors()))
	require.Equal(t, 4, idx.Len())

	hits, err := idx.Search(unit(1, 0, 0), 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Pos)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, 2, hits[1].Pos)
	assert.True(t, hits[1].Score < hits[0].Score)
}

func TestFlat_RejectsWrongDimension(t *testing.T) {
	idx := NewFlat(3)
	err := idx.Add([][]float32{{1, 0, 0}, {1, 0}})
	require.Error(t, err)
	assert.Equal(t, 0, idx.Len(), "a failed add must not partially apply")

	_, err = idx.Search([]float32{1, 0}, 1)
	assert.Error(t, err)
}

func TestFlat_RoundTrip(t *testing.T) {
	idx := NewFlat(3)
	require.NoError(t, idx.Add(testVectors()))

	var buf bytes.Buffer
	n, err := idx.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, int64(8+4+8+4*3*4), n)

	loaded, err := Read(&buf, KindFlat, 3, Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Len())

	hits, err := loaded.Search(unit(0, 0, 1), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, hits[0].Pos)
}

func TestFlat_ReadRejectsDimensionMismatch(t *testing.T) {
	idx := NewFlat(3)
	require.NoError(t, idx.Add(testVectors()))
	var buf bytes.Buffer
	_, err := idx.WriteTo(&buf)
	require.NoError(t, err)

	_, err = ReadFlat(&buf, 5)
	assert.Error(t, err)

	_, err = ReadFlat(bytes.NewReader([]byte("garbage-bytes-here-xx")), 3)
	assert.Error(t, err)
}

func TestHNSW_SearchAndRoundTrip(t *testing.T) {
	idx := NewHNSW(3, Options{M: 8, EfSearch: 16})
	require.NoError(t, idx.Add(testVectors()))
	require.Equal(t, 4, idx.Len())

	hits, err := idx.Search(unit(0, 1, 0), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Pos)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)

	var buf bytes.Buffer
	_, err = idx.WriteTo(&buf)
	require.NoError(t, err)

	loaded, err := Read(&buf, KindHNSW, 3, Options{EfSearch: 16})
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Len())

	// appended vectors continue the position sequence
	require.NoError(t, loaded.Add([][]float32{unit(0, 0.1, 0.9)}))
	assert.Equal(t, 5, loaded.Len())

	hits, err = loaded.Search(unit(0, 0.1, 0.9), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, hits[0].Pos)
}

func TestDot(t *testing.T) {
	got := Dot(unit(1, 1), unit(1, 0))
	assert.InDelta(t, 1/math.Sqrt2, got, 1e-6)
}
