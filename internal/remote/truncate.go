package remote

import "unicode/utf8"

// Truncate returns the longest prefix of s holding at most budget runes.
// It never splits a multi-byte character.
func Truncate(s string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if len(s) <= budget {
		return s
	}
	n := 0
	for i := range s {
		if n == budget {
			return s[:i]
		}
		n++
	}
	return s
}

// runeLen is utf8.RuneCountInString, named for call sites that compare
// against a budget.
func runeLen(s string) int { return utf8.RuneCountInString(s) }
