package event

import (
	"strings"
	"unicode"
)

// Normalize strips all whitespace from an answer code. Case is preserved;
// folding is a comparison-time concern, not a normalization one.
func Normalize(code string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, code)
}

// CodesMatch compares a submitted code against the expected one after
// normalization, folding case only when the event is case-insensitive.
func CodesMatch(submitted, expected string, caseInsensitive bool) bool {
	s, e := Normalize(submitted), Normalize(expected)
	if caseInsensitive {
		return strings.EqualFold(s, e)
	}
	return s == e
}
