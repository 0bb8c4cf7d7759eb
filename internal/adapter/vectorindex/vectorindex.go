// Package vectorindex provides the position-keyed nearest-neighbor indexes
// persisted alongside chunk metadata.
package vectorindex

import (
	"fmt"
	"io"
	"math"
	"strings"

	"docrag/internal/port"
)

// Persisted index type names.
const (
	KindFlat = "flat"
	KindHNSW = "hnsw"
)

// Options tunes approximate indexes. Zero values pick defaults.
type Options struct {
	M        int
	EfSearch int
}

// New creates an empty index of the given kind.
func New(kind string, dim int, opts Options) (port.VectorIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid index dimension %d", dim)
	}
	switch strings.ToLower(kind) {
	case KindFlat:
		return NewFlat(dim), nil
	case KindHNSW, "":
		return NewHNSW(dim, opts), nil
	default:
		return nil, fmt.Errorf("unknown index type %q", kind)
	}
}

// Read loads an index previously written with WriteTo.
func Read(r io.Reader, kind string, dim int, opts Options) (port.VectorIndex, error) {
	switch strings.ToLower(kind) {
	case KindFlat:
		return ReadFlat(r, dim)
	case KindHNSW, "":
		return ReadHNSW(r, dim, opts)
	default:
		return nil, fmt.Errorf("unknown index type %q", kind)
	}
}

// checkVectors validates dimensions before any mutation.
func checkVectors(vectors [][]float32, dim int) error {
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v), dim)
		}
	}
	return nil
}

// Normalize scales v to unit length in place. Zero vectors are left alone.
func Normalize(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
