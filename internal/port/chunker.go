package port

import "docrag/internal/domain"

// Chunker turns normalized text into ordered, packed chunks.
type Chunker interface {
	Chunk(text string) []domain.Block
}

// HeadingDetector decides which lines open a new section or subsection.
// The default detector targets numbered procedure documents; other corpora
// can plug in their own rules.
type HeadingDetector interface {
	// IsHeading reports whether a trimmed, non-empty line is a section heading.
	IsHeading(line string) bool
	// Subheading reports whether the line is a subheading and returns the
	// label to record for it.
	Subheading(line string) (string, bool)
}
