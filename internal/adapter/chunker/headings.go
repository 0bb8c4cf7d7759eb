package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// numberedHeading matches "6. SYSTEM LIMITS", "8 INITIAL CONDITIONS",
// "6.2 Valves" and "3) Startup".
var numberedHeading = regexp.MustCompile(`^\s*(\d+(\.\d+)*)\s*[.)-]?\s+(.+)$`)

const (
	minUpperHeading = 6
	maxHeadingLen   = 120
)

// SOPHeadings detects headings in numbered procedure documents: numbered
// lines and medium-length all-uppercase lines open a section, short lines
// ending in a colon open a subsection.
type SOPHeadings struct{}

// IsHeading implements port.HeadingDetector.
func (SOPHeadings) IsHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if numberedHeading.MatchString(line) {
		return true
	}
	n := utf8.RuneCountInString(line)
	return n >= minUpperHeading && n <= maxHeadingLen && isUpper(line)
}

// Subheading implements port.HeadingDetector.
func (SOPHeadings) Subheading(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasSuffix(line, ":") || utf8.RuneCountInString(line) > maxHeadingLen {
		return "", false
	}
	return strings.TrimRight(line, ":"), true
}

// isUpper reports whether s has at least one cased letter and no lower or
// title case letters.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}
