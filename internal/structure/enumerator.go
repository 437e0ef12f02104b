package structure

import (
	"regexp"
	"strings"
)

// Enumerator patterns recognised at the start of a paragraph: numeric
// ("1.", "1)", "(1)", "1、"), lettered ("a.", "a)") and bullet glyphs.
var enumeratorRe = regexp.MustCompile(`^\s*(?:(\d{1,3})\s*[.)、]|\(\s*(\d{1,3})\s*\)|([A-Za-z])\s*[.)]|([•●▪‣·*]|[-–—]))\s+(.+)$`)

// SplitEnumerator detects a leading ordinal or bullet and splits it from
// the remaining text. The marker keeps the ordinal or glyph but not its
// punctuation, so "1. first item" yields ("1", "first item", true).
func SplitEnumerator(s string) (marker, rest string, ok bool) {
	m := enumeratorRe.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	for _, g := range m[1:5] {
		if g != "" {
			marker = g
			break
		}
	}
	rest = strings.TrimSpace(m[5])
	if rest == "" {
		return "", "", false
	}
	return marker, rest, true
}

// IsBulletMarker reports whether a marker is a glyph rather than an
// ordinal, which decides how the assembler re-renders it.
func IsBulletMarker(marker string) bool {
	if marker == "" {
		return true
	}
	r := []rune(marker)[0]
	return !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z')
}
