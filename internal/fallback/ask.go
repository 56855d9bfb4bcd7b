package fallback

import (
	"sort"
	"strings"
)

const answerSentences = 3

// Answer extracts the document sentences most similar to the question.
// When nothing overlaps it says so and quotes the opening of the document.
func Answer(document, question string) (string, error) {
	if strings.TrimSpace(document) == "" || strings.TrimSpace(question) == "" {
		return "", ErrFallbackExhausted
	}

	q, err := Embed(question)
	if err != nil {
		return "", err
	}

	type candidate struct {
		index int
		score float64
	}
	all := sentences(document)
	var ranked []candidate
	for i, s := range all {
		v, err := Embed(s)
		if err != nil {
			continue
		}
		if score := Cosine(q, v); score > 0 {
			ranked = append(ranked, candidate{index: i, score: score})
		}
	}

	if len(ranked) == 0 {
		opening := strings.Join(all[:min(2, len(all))], " ")
		return "The document does not appear to address this question directly. It begins: " +
			truncateWords(opening, 300), nil
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	ranked = ranked[:min(answerSentences, len(ranked))]
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].index < ranked[j].index })

	parts := make([]string, len(ranked))
	for i, c := range ranked {
		parts[i] = all[c.index]
	}
	return truncateWords(strings.Join(parts, " "), summaryMaxRunes), nil
}
