package chunker

import (
	"strings"
	"unicode/utf8"
)

// SplitWindows cuts text into windows of at most size runes, each starting
// overlap runes before the previous one ended. Windows are trimmed and
// empty windows are dropped.
func SplitWindows(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" || size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 4
	}

	runes := []rune(text)
	var windows []string
	for start := 0; start < len(runes); {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if w := strings.TrimSpace(string(runes[start:end])); w != "" {
			windows = append(windows, w)
		}
		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return windows
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
