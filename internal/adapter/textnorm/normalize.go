// Package textnorm canonicalizes extracted document text before chunking.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	spaceAroundLF   = regexp.MustCompile(` ?\n ?`)
	blankRuns       = regexp.MustCompile(`\n{3,}`)
)

// Normalize returns the canonical form of s. It is total: any input,
// including the empty string, yields a result.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = stripControl(s)
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = spaceAroundLF.ReplaceAllString(s, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// stripControl drops Unicode "Other" characters except newline and tab.
func stripControl(s string) string {
	clean := true
	for _, r := range s {
		if r != '\n' && r != '\t' && unicode.In(r, unicode.C) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || !unicode.In(r, unicode.C) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
