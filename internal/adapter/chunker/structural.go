package chunker

import (
	"strings"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// DefaultHardMaxExtra is added to the chunk size when no hard maximum is set.
const DefaultHardMaxExtra = 400

// StructuralChunker splits normalized text into heading-aware blocks and
// packs them greedily into chunks of roughly the target size.
type StructuralChunker struct {
	target   int
	hardMax  int
	overlap  int
	headings port.HeadingDetector
}

// NewStructuralChunker creates a chunker. A hardMax of zero means
// target+DefaultHardMaxExtra and is never below the target. A nil detector
// uses SOPHeadings.
func NewStructuralChunker(target, hardMax, overlap int, headings port.HeadingDetector) *StructuralChunker {
	if target <= 0 {
		target = 900
	}
	if hardMax <= 0 {
		hardMax = target + DefaultHardMaxExtra
	} else if hardMax < target {
		hardMax = target
	}
	if headings == nil {
		headings = SOPHeadings{}
	}
	return &StructuralChunker{
		target:   target,
		hardMax:  hardMax,
		overlap:  overlap,
		headings: headings,
	}
}

// Chunk implements port.Chunker. Equal input always yields equal output.
func (c *StructuralChunker) Chunk(text string) []domain.Block {
	return c.Pack(c.Blocks(text))
}

// Blocks scans text line by line and starts a new block at every heading
// or subheading. The heading line itself opens the new block.
func (c *StructuralChunker) Blocks(text string) []domain.Block {
	var (
		blocks     []domain.Block
		buf        []string
		section    string
		subsection string
	)

	flush := func() {
		if t := strings.TrimSpace(strings.Join(buf, "\n")); t != "" {
			blocks = append(blocks, domain.Block{Text: t, Section: section, Subsection: subsection})
		}
		buf = buf[:0]
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			// one blank line separates bullet groups inside a block
			if len(buf) > 0 && buf[len(buf)-1] != "" {
				buf = append(buf, "")
			}
			continue
		}

		if c.headings.IsHeading(line) {
			flush()
			section = line
			subsection = ""
			buf = append(buf, line)
			continue
		}

		if label, ok := c.headings.Subheading(line); ok {
			flush()
			subsection = label
			buf = append(buf, line)
			continue
		}

		buf = append(buf, line)
	}
	flush()

	return blocks
}

// Pack merges consecutive blocks, separated by a blank line, while the
// result stays within the hard maximum, and closes a chunk as soon as it
// reaches the target. A chunk takes its headings from its first block.
// Blocks longer than the hard maximum are split into overlapping windows.
func (c *StructuralChunker) Pack(blocks []domain.Block) []domain.Block {
	var (
		chunks []domain.Block
		cur    domain.Block
	)

	push := func() {
		if t := strings.TrimSpace(cur.Text); t != "" {
			cur.Text = t
			chunks = append(chunks, cur)
		}
		cur = domain.Block{}
	}

	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}

		if runeLen(text) > c.hardMax {
			push()
			for _, w := range SplitWindows(text, c.hardMax, c.overlap) {
				chunks = append(chunks, domain.Block{Text: w, Section: b.Section, Subsection: b.Subsection})
			}
			continue
		}

		switch {
		case cur.Text == "":
			cur = domain.Block{Text: text, Section: b.Section, Subsection: b.Subsection}
		case runeLen(cur.Text)+2+runeLen(text) <= c.hardMax:
			cur.Text += "\n\n" + text
		default:
			push()
			cur = domain.Block{Text: text, Section: b.Section, Subsection: b.Subsection}
		}

		if runeLen(cur.Text) >= c.target {
			push()
		}
	}
	push()

	return chunks
}

// Target returns the target chunk size in characters.
func (c *StructuralChunker) Target() int { return c.target }

// HardMax returns the hard chunk size limit in characters.
func (c *StructuralChunker) HardMax() int { return c.hardMax }

var _ port.Chunker = (*StructuralChunker)(nil)
