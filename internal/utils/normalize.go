package utils

import (
	"strings"
	"unicode/utf8"
)

// IsBlank reports whether s is empty or holds only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsTokenSeparator checks if a rune splits name tokens.
// Only the plain space counts, so "Y12/Y15" stays one token.
func IsTokenSeparator(r rune) bool {
	return r == ' '
}

// CountTokens returns the number of space separated runs in s
func CountTokens(s string) int {
	count := 0
	inToken := false
	for _, r := range s {
		if IsTokenSeparator(r) {
			inToken = false
			continue
		}
		if !inToken {
			count++
			inToken = true
		}
	}
	return count
}

// IsValidQuery checks if a raw query can be handed to the matchers.
// Invalid UTF-8 and NUL bytes are rejected, everything else is accepted.
func IsValidQuery(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	return strings.IndexByte(s, 0) < 0
}

// RuneLen returns the number of runes in s ignoring surrounding whitespace
func RuneLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
