package fallback

import (
	"math"
	"strings"
	"unicode"

	"github.com/af-corp/docai-gateway/internal/types"
)

// maxLocalConfidence caps heuristic language scores so callers can tell
// them apart from model output.
const maxLocalConfidence = 0.8

var scriptLanguages = []struct {
	table *unicode.RangeTable
	lang  string
}{
	{unicode.Malayalam, "ml"},
	{unicode.Devanagari, "hi"},
	{unicode.Tamil, "ta"},
	{unicode.Telugu, "te"},
	{unicode.Kannada, "kn"},
	{unicode.Bengali, "bn"},
	{unicode.Gujarati, "gu"},
	{unicode.Gurmukhi, "pa"},
	{unicode.Oriya, "or"},
	{unicode.Arabic, "ar"},
	{unicode.Hebrew, "he"},
	{unicode.Greek, "el"},
	{unicode.Cyrillic, "ru"},
	{unicode.Thai, "th"},
	{unicode.Hangul, "ko"},
	{unicode.Hiragana, "ja"},
	{unicode.Katakana, "ja"},
	{unicode.Han, "zh"},
}

// latinSignatures are high-frequency function words per Latin-script language.
var latinSignatures = map[string]map[string]bool{
	"en": toSet("the", "and", "of", "to", "is", "in", "that", "for", "with", "this", "are", "be"),
	"fr": toSet("le", "la", "les", "et", "des", "est", "une", "dans", "pour", "que", "du", "avec"),
	"de": toSet("der", "die", "das", "und", "ist", "nicht", "mit", "ein", "eine", "zu", "für", "auf"),
	"es": toSet("el", "los", "las", "y", "es", "una", "por", "para", "con", "que", "del", "se"),
	"pt": toSet("os", "as", "e", "é", "uma", "não", "para", "com", "que", "do", "da", "em"),
	"it": toSet("il", "gli", "e", "è", "una", "non", "per", "con", "che", "della", "di", "sono"),
	"nl": toSet("de", "het", "een", "en", "is", "niet", "met", "voor", "dat", "van", "zijn", "op"),
}

// DetectLanguage returns coarse language scores from Unicode script ranges
// and, for Latin script, function-word signatures.
func DetectLanguage(text string) (types.LanguageScores, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrFallbackExhausted
	}
	return mustDetect(text), nil
}

func mustDetect(text string) types.LanguageScores {
	counts := make(map[string]int)
	latin, letters := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Latin, r) {
			latin++
			continue
		}
		for _, s := range scriptLanguages {
			if unicode.Is(s.table, r) {
				counts[s.lang]++
				break
			}
		}
	}

	scores := make(types.LanguageScores)
	if letters == 0 {
		// nothing to go on; English is the corpus default
		scores["en"] = 0.1
		return scores
	}

	for lang, n := range counts {
		addScore(scores, lang, float64(n)/float64(letters)*maxLocalConfidence)
	}

	if latin > 0 {
		share := float64(latin) / float64(letters)
		sig := latinHits(text)
		total := 0
		for _, n := range sig {
			total += n
		}
		if total == 0 {
			addScore(scores, "en", share*maxLocalConfidence*0.5)
		} else {
			for lang, n := range sig {
				addScore(scores, lang, share*maxLocalConfidence*float64(n)/float64(total))
			}
		}
	}

	if len(scores) == 0 {
		// letters in scripts we do not map
		scores["en"] = 0.1
	}
	return scores
}

func latinHits(text string) map[string]int {
	out := make(map[string]int)
	for _, w := range words(text) {
		for lang, sig := range latinSignatures {
			if sig[w] {
				out[lang]++
			}
		}
	}
	return out
}

// addScore drops negligible scores and rounds to two decimals so results
// are stable across platforms.
func addScore(scores types.LanguageScores, lang string, v float64) {
	v = math.Round(v*100) / 100
	if v < 0.05 {
		return
	}
	scores[lang] = math.Min(scores[lang]+v, maxLocalConfidence)
}
