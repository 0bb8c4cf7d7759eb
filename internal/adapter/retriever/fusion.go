package retriever

import (
	"sort"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// MinMax rescales hit scores to [0,1] within the set. A set whose scores
// are all equal maps every member to 1.
func MinMax(hits []port.Hit) map[int]float64 {
	out := make(map[int]float64, len(hits))
	if len(hits) == 0 {
		return out
	}
	lo, hi := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < lo {
			lo = h.Score
		}
		if h.Score > hi {
			hi = h.Score
		}
	}
	span := hi - lo
	for _, h := range hits {
		if span <= 0 {
			out[h.Pos] = 1
			continue
		}
		out[h.Pos] = (h.Score - lo) / span
	}
	return out
}

// Fuse combines dense and lexical candidates into one list ordered by the
// fused score, w_dense*dense + w_lexical*lexical over the min-max
// normalized scores. Weights are used as given, negatives count as 0; a
// family that did not return a position contributes 0.
func Fuse(dense, lexical []port.Hit, wDense, wLexical float64) []domain.Candidate {
	if wDense < 0 {
		wDense = 0
	}
	if wLexical < 0 {
		wLexical = 0
	}

	denseNorm := MinMax(dense)
	lexNorm := MinMax(lexical)

	byPos := make(map[int]*domain.Candidate, len(denseNorm)+len(lexNorm))
	get := func(pos int) *domain.Candidate {
		c, ok := byPos[pos]
		if !ok {
			c = &domain.Candidate{Pos: pos}
			byPos[pos] = c
		}
		return c
	}
	for pos, s := range denseNorm {
		get(pos).Dense = s
	}
	for pos, s := range lexNorm {
		get(pos).Lexical = s
	}

	out := make([]domain.Candidate, 0, len(byPos))
	for _, c := range byPos {
		c.Fused = wDense*c.Dense + wLexical*c.Lexical
		c.Final = c.Fused
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fused != out[j].Fused {
			return out[i].Fused > out[j].Fused
		}
		return out[i].Pos < out[j].Pos
	})
	return out
}
