// Package lang normalizes language identifiers.
package lang

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Canonical reduces a language identifier ("EN", "en-US", "ml_IN") to its
// base ISO code. Unparseable input is returned lowercased and trimmed so it
// still compares consistently.
func Canonical(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return strings.ToLower(code)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return strings.ToLower(code)
	}
	return base.String()
}

// Name returns the English name of a language code, or the code itself when
// it is unknown.
func Name(code string) string {
	tag, err := language.Parse(Canonical(code))
	if err != nil {
		return code
	}
	if n := display.English.Languages().Name(tag); n != "" {
		return n
	}
	return code
}
