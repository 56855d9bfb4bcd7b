package fallback

import (
	"sort"
	"strings"
	"unicode"
)

// words splits text into lowercase letter runs. Digits and punctuation
// separate words.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r)
	})
}

// wordSet returns the distinct words of text plus its normalized form for
// phrase lookups.
func wordSet(text string) (map[string]bool, string) {
	ws := words(text)
	set := make(map[string]bool, len(ws))
	for _, w := range ws {
		set[w] = true
	}
	return set, " " + strings.Join(ws, " ") + " "
}

// hits counts how many terms occur in text. Multi-word terms match as
// phrases on word boundaries.
func hits(terms []string, set map[string]bool, normalized string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(t, " ") {
			if strings.Contains(normalized, " "+t+" ") {
				n++
			}
			continue
		}
		if set[t] {
			n++
		}
	}
	return n
}

// sentences splits on terminal punctuation and line breaks.
func sentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		s := strings.Join(strings.Fields(b.String()), " ")
		if s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?', '।', '\n':
			if r != '\n' {
				b.WriteRune(r)
			}
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

type keywordCount struct {
	word  string
	count int
	first int
}

// topKeywords returns up to n content words that occur more than once,
// most frequent first, ties by first appearance.
func topKeywords(text string, n int) []string {
	counts := make(map[string]*keywordCount)
	for i, w := range words(text) {
		if len([]rune(w)) <= 3 || stopwords[w] {
			continue
		}
		if kc, ok := counts[w]; ok {
			kc.count++
			continue
		}
		counts[w] = &keywordCount{word: w, count: 1, first: i}
	}

	ranked := make([]*keywordCount, 0, len(counts))
	for _, kc := range counts {
		if kc.count > 1 {
			ranked = append(ranked, kc)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	out := make([]string, 0, n)
	for _, kc := range ranked {
		if len(out) == n {
			break
		}
		out = append(out, kc.word)
	}
	return out
}

// truncateWords cuts s to at most limit runes, backing up to a space.
func truncateWords(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	cut := string(r[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
