package usecase

import (
	"crypto/sha1"
	"encoding/hex"
	"math"
	"strings"

	"docrag/internal/domain"
)

// chunkHashes is the set of normalized chunk-text digests already stored.
type chunkHashes map[string]struct{}

func newChunkHashes(records []domain.ChunkRecord) chunkHashes {
	h := make(chunkHashes, len(records))
	for _, r := range records {
		if t := strings.TrimSpace(r.Text); t != "" {
			h[hashChunk(t)] = struct{}{}
		}
	}
	return h
}

// hashChunk digests text after lowercasing and collapsing whitespace, so
// digits and punctuation still distinguish chunks.
func hashChunk(text string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha1.Sum([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// filter measures the share of cf's chunks whose digest is already known
// or repeats earlier in cf. When some chunks repeat and that share reaches
// skipRatio the file is rejected and h is left untouched. Otherwise the duplicate chunks are
// dropped from cf and the digests of the kept chunks are added to h.
func (h chunkHashes) filter(cf *chunkedFile, skipRatio float64) (ratio float64, skip bool) {
	total := len(cf.blocks)
	if total == 0 {
		return 0, false
	}

	digests := make([]string, total)
	fresh := make(map[string]struct{}, total)
	keep := make([]bool, total)
	dup := 0
	for i, b := range cf.blocks {
		d := hashChunk(b.Text)
		digests[i] = d
		_, known := h[d]
		_, repeated := fresh[d]
		if known || repeated {
			dup++
			continue
		}
		fresh[d] = struct{}{}
		keep[i] = true
	}
	ratio = float64(dup) / float64(total)
	if dup > 0 && ratio >= skipRatio {
		return ratio, true
	}

	keptBlocks := cf.blocks[:0]
	keptIDs := cf.chunkIDs[:0]
	for i, b := range cf.blocks {
		if !keep[i] {
			continue
		}
		h[digests[i]] = struct{}{}
		keptBlocks = append(keptBlocks, b)
		keptIDs = append(keptIDs, cf.chunkIDs[i])
	}
	cf.blocks = keptBlocks
	cf.chunkIDs = keptIDs
	return ratio, false
}

// storedVersion identifies a file version from its chunk records, which
// keep the size in KiB only.
type storedVersion struct {
	path   string
	mtime  int64
	sizeKB int64
}

func storedVersions(records []domain.ChunkRecord) map[storedVersion]struct{} {
	out := make(map[storedVersion]struct{})
	for _, r := range records {
		if r.AbsPath == "" {
			continue
		}
		out[storedVersion{r.AbsPath, int64(math.Trunc(r.Mtime)), r.SizeKB}] = struct{}{}
	}
	return out
}
