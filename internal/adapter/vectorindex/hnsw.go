package vectorindex

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/coder/hnsw"

	"docrag/internal/port"
)

const (
	defaultM        = 32
	defaultEfSearch = 64
)

// HNSW is an approximate index backed by coder/hnsw. Node keys are record
// positions.
type HNSW struct {
	dim   int
	graph *hnsw.Graph[uint64]
	n     int
}

// NewHNSW creates an empty approximate index.
func NewHNSW(dim int, opts Options) *HNSW {
	return &HNSW{dim: dim, graph: newGraph(opts)}
}

func newGraph(opts Options) *hnsw.Graph[uint64] {
	if opts.M <= 0 {
		opts.M = defaultM
	}
	if opts.EfSearch <= 0 {
		opts.EfSearch = defaultEfSearch
	}
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = opts.M
	graph.EfSearch = opts.EfSearch
	graph.Ml = 0.25
	return graph
}

func (h *HNSW) Add(vectors [][]float32) error {
	if err := checkVectors(vectors, h.dim); err != nil {
		return err
	}
	for _, v := range vectors {
		cp := make([]float32, len(v))
		copy(cp, v)
		h.graph.Add(hnsw.MakeNode(uint64(h.n), cp))
		h.n++
	}
	return nil
}

func (h *HNSW) Search(query []float32, k int) ([]port.Hit, error) {
	if len(query) != h.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), h.dim)
	}
	if k <= 0 || h.graph.Len() == 0 {
		return nil, nil
	}

	nodes := h.graph.Search(query, k)
	hits := make([]port.Hit, 0, len(nodes))
	for _, node := range nodes {
		distance := h.graph.Distance(query, node.Value)
		hits = append(hits, port.Hit{Pos: int(node.Key), Score: 1 - float64(distance)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits, nil
}

func (h *HNSW) Len() int     { return h.n }
func (h *HNSW) Dim() int     { return h.dim }
func (h *HNSW) Kind() string { return KindHNSW }

// WriteTo exports the graph.
func (h *HNSW) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if err := h.graph.Export(cw); err != nil {
		return cw.n, fmt.Errorf("export hnsw graph: %w", err)
	}
	return cw.n, nil
}

// ReadHNSW imports a graph written by (*HNSW).WriteTo.
func ReadHNSW(r io.Reader, dim int, opts Options) (*HNSW, error) {
	graph := newGraph(opts)
	// coder/hnsw Import needs an io.ByteReader
	if err := graph.Import(bufio.NewReader(r)); err != nil {
		return nil, fmt.Errorf("import hnsw graph: %w", err)
	}
	graph.Distance = hnsw.CosineDistance
	if opts.EfSearch > 0 {
		graph.EfSearch = opts.EfSearch
	}
	return &HNSW{dim: dim, graph: graph, n: graph.Len()}, nil
}

var _ port.VectorIndex = (*HNSW)(nil)
