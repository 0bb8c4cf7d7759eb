package retriever

import (
	"math"
	"sort"
	"sync"

	"docrag/internal/port"
)

type posting struct {
	pos int
	tf  int
}

// BM25Index is an in-memory inverted index over chunk texts addressed by
// record position.
type BM25Index struct {
	tokenizer port.Tokenizer
	k1        float64
	b         float64
	postings  map[string][]posting
	docLen    []int
	avgDl     float64
}

// NewBM25Index tokenizes texts and builds the postings lists.
func NewBM25Index(texts []string, tokenizer port.Tokenizer, k1, b float64) *BM25Index {
	ix := &BM25Index{
		tokenizer: tokenizer,
		k1:        k1,
		b:         b,
		postings:  make(map[string][]posting),
		docLen:    make([]int, len(texts)),
	}

	total := 0
	for pos, text := range texts {
		tokens := tokenizer.Tokenize(text)
		ix.docLen[pos] = len(tokens)
		total += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term, n := range tf {
			ix.postings[term] = append(ix.postings[term], posting{pos: pos, tf: n})
		}
	}
	if len(texts) > 0 {
		ix.avgDl = float64(total) / float64(len(texts))
	}
	return ix
}

// Len returns the number of indexed documents.
func (ix *BM25Index) Len() int { return len(ix.docLen) }

// Search returns up to k documents with a positive score, highest first,
// ties broken by position.
func (ix *BM25Index) Search(query string, k int) []port.Hit {
	queryTokens := ix.tokenizer.Tokenize(query)
	if len(queryTokens) == 0 || len(ix.docLen) == 0 || k <= 0 {
		return nil
	}

	N := float64(len(ix.docLen))
	avgDl := ix.avgDl
	if avgDl == 0 {
		avgDl = 1
	}

	scores := make(map[int]float64)
	seen := make(map[string]struct{}, len(queryTokens))
	for _, term := range queryTokens {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}

		postings := ix.postings[term]
		if len(postings) == 0 {
			continue
		}
		n := float64(len(postings))
		idf := math.Log((N-n+0.5)/(n+0.5) + 1)

		for _, p := range postings {
			dl := float64(ix.docLen[p.pos])
			tf := float64(p.tf)
			scores[p.pos] += idf * (tf * (ix.k1 + 1)) / (tf + ix.k1*(1-ix.b+ix.b*dl/avgDl))
		}
	}

	hits := make([]port.Hit, 0, len(scores))
	for pos, score := range scores {
		hits = append(hits, port.Hit{Pos: pos, Score: score})
	}
	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func sortHits(hits []port.Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Pos < hits[j].Pos
	})
}

// BM25Retriever builds its index from the store texts on first use. The
// build happens once per instance even under concurrent searches.
type BM25Retriever struct {
	texts     func() []string
	tokenizer port.Tokenizer
	k1        float64
	b         float64

	once  sync.Once
	index *BM25Index
}

// NewBM25Retriever creates a lazily built lexical retriever. texts is
// called once, on the first search.
func NewBM25Retriever(texts func() []string, tokenizer port.Tokenizer, k1, b float64) *BM25Retriever {
	if k1 <= 0 {
		k1 = 1.2
	}
	if b < 0 || b > 1 {
		b = 0.75
	}
	return &BM25Retriever{
		texts:     texts,
		tokenizer: tokenizer,
		k1:        k1,
		b:         b,
	}
}

// Index returns the lexical index, building it if needed.
func (r *BM25Retriever) Index() *BM25Index {
	r.once.Do(func() {
		r.index = NewBM25Index(r.texts(), r.tokenizer, r.k1, r.b)
	})
	return r.index
}

// Search scores query against all stored texts.
func (r *BM25Retriever) Search(query string, k int) []port.Hit {
	return r.Index().Search(query, k)
}
