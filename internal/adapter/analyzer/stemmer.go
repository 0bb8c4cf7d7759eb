package analyzer

import (
	porterstemmer "github.com/blevesearch/go-porterstemmer"
)

// Stem reduces an English word to its Porter stem. Words containing
// anything but ASCII letters are returned unchanged, so numerals, codes
// and non-English terms keep their exact form for lexical matching.
func Stem(word string) string {
	if len(word) < 3 || !asciiLetters(word) {
		return word
	}
	return porterstemmer.StemString(word)
}

func asciiLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
