package fallback

import "strings"

// Translate has no local model to work with and returns the text
// unchanged. Provenance tells the caller it was not translated.
func Translate(text, _ string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrFallbackExhausted
	}
	return text, nil
}
