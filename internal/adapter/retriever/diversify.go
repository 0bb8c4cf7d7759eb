package retriever

import (
	"sort"

	"docrag/internal/domain"
)

// SortByFinal orders candidates by final score, then fused score, then
// position.
func SortByFinal(cands []domain.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Final != b.Final {
			return a.Final > b.Final
		}
		if a.Fused != b.Fused {
			return a.Fused > b.Fused
		}
		return a.Pos < b.Pos
	})
}

// Diversify drops candidates below minScore and accepts at most
// maxPerFile candidates per file name, stopping after topK. A maxPerFile
// of 0 disables the per-file cap.
func Diversify(cands []domain.Candidate, fileName func(pos int) string, minScore float64, maxPerFile, topK int) []domain.Candidate {
	if len(cands) == 0 || topK <= 0 {
		return nil
	}

	sorted := make([]domain.Candidate, len(cands))
	copy(sorted, cands)
	SortByFinal(sorted)

	perFile := make(map[string]int)
	selected := make([]domain.Candidate, 0, topK)
	for _, c := range sorted {
		if c.Final < minScore {
			break
		}
		name := fileName(c.Pos)
		if maxPerFile > 0 && perFile[name] >= maxPerFile {
			continue
		}
		perFile[name]++
		selected = append(selected, c)
		if len(selected) == topK {
			break
		}
	}
	return selected
}
