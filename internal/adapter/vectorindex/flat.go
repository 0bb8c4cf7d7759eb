package vectorindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"docrag/internal/port"
)

var flatMagic = [8]byte{'D', 'R', 'F', 'L', 'A', 'T', '0', '1'}

// Flat is an exact inner-product index. Stored vectors are unit length, so
// scores are cosine similarities.
type Flat struct {
	dim     int
	vectors [][]float32
}

// NewFlat creates an empty exact index.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

func (f *Flat) Add(vectors [][]float32) error {
	if err := checkVectors(vectors, f.dim); err != nil {
		return err
	}
	for _, v := range vectors {
		cp := make([]float32, len(v))
		copy(cp, v)
		f.vectors = append(f.vectors, cp)
	}
	return nil
}

func (f *Flat) Search(query []float32, k int) ([]port.Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), f.dim)
	}
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}

	hits := make([]port.Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = port.Hit{Pos: i, Score: Dot(query, v)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *Flat) Len() int     { return len(f.vectors) }
func (f *Flat) Dim() int     { return f.dim }
func (f *Flat) Kind() string { return KindFlat }

// WriteTo writes the magic, dimension, count and little-endian payload.
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	if err := binary.Write(cw, binary.LittleEndian, flatMagic); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, binary.LittleEndian, uint32(f.dim)); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, binary.LittleEndian, uint64(len(f.vectors))); err != nil {
		return cw.n, err
	}
	for _, v := range f.vectors {
		if err := binary.Write(cw, binary.LittleEndian, v); err != nil {
			return cw.n, err
		}
	}
	return cw.n, bw.Flush()
}

// ReadFlat loads an index written by (*Flat).WriteTo.
func ReadFlat(r io.Reader, dim int) (*Flat, error) {
	br := bufio.NewReader(r)

	var magic [8]byte
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("read flat header: %w", err)
	}
	if magic != flatMagic {
		return nil, fmt.Errorf("not a flat index file")
	}

	var fileDim uint32
	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &fileDim); err != nil {
		return nil, fmt.Errorf("read flat dimension: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read flat count: %w", err)
	}
	if dim > 0 && int(fileDim) != dim {
		return nil, fmt.Errorf("flat index has dimension %d, expected %d", fileDim, dim)
	}

	f := NewFlat(int(fileDim))
	f.vectors = make([][]float32, 0, count)
	for i := uint64(0); i < count; i++ {
		v := make([]float32, fileDim)
		if err := binary.Read(br, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		f.vectors = append(f.vectors, v)
	}
	return f, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

var _ port.VectorIndex = (*Flat)(nil)
