// Package fallback produces local approximations of every remote model
// capability. All functions are pure and run in time linear in the input.
package fallback

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/af-corp/docai-gateway/internal/types"
)

// ErrFallbackExhausted is returned when there is nothing to work from,
// i.e. the input is empty or whitespace.
var ErrFallbackExhausted = errors.New("fallback: no usable input")

const (
	summarySentences  = 3
	summaryMaxRunes   = 600
	maxTags           = 8
	confidenceCeiling = 0.85
	roleThreshold     = 0.1

	retentionLongDays    = 2555
	retentionDefaultDays = 1825
)

// Classify assigns a document kind and sensitivity from keyword rules.
// The kind with the most matching terms wins; ties go to the earlier kind
// in types.KindPriority.
func Classify(text string) (types.DocumentKind, types.Sensitivity) {
	set, normalized := wordSet(text)

	kind, best := types.KindOther, 0
	for _, k := range types.KindPriority {
		if n := hits(kindTerms[k], set, normalized); n > best {
			kind, best = k, n
		}
	}

	var sensitivity types.Sensitivity
	switch {
	case hits(confidentialTerms, set, normalized) > 0:
		sensitivity = types.SensitivityConfidential
	case hits(highTerms, set, normalized) > 0 || kind == types.KindContract:
		sensitivity = types.SensitivityHigh
	case hits(lowTerms, set, normalized) > 0 || kind == types.KindMemo:
		sensitivity = types.SensitivityLow
	default:
		sensitivity = types.SensitivityMedium
	}
	return kind, sensitivity
}

// Roles scores each role by the share of its vocabulary present in text.
// Roles above the threshold are recommended; LEADERSHIP when none are.
func Roles(text string) types.RoleRecommendation {
	set, normalized := wordSet(text)

	var roles []string
	maxShare := 0.0
	for _, role := range roleOrder {
		terms := roleTerms[role]
		share := float64(hits(terms, set, normalized)) / float64(len(terms))
		if share > roleThreshold {
			roles = append(roles, role)
		}
		maxShare = math.Max(maxShare, share)
	}
	if len(roles) == 0 {
		roles = []string{types.RoleLeadership}
	}

	return types.RoleRecommendation{
		Roles:      roles,
		Confidence: math.Min(maxShare*2, 1),
		Reasoning:  "Keyword analysis indicates relevance to " + strings.Join(roles, ", "),
	}
}

// Tags returns domain tags whose vocabulary appears in text.
func Tags(text string) []string {
	set, normalized := wordSet(text)
	var out []string
	for _, d := range domainTags {
		if hits(d.terms, set, normalized) > 0 {
			out = append(out, d.tag)
		}
	}
	return out
}

// RetentionDays is the retention period recommended for a kind.
func RetentionDays(kind types.DocumentKind) int {
	if kind == types.KindContract || kind == types.KindPolicy {
		return retentionLongDays
	}
	return retentionDefaultDays
}

// Summarize returns an extractive summary led by a kind-specific phrase.
func Summarize(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrFallbackExhausted
	}
	kind, _ := Classify(text)
	return summarize(text, kind, topKeywords(text, 8)), nil
}

func summarize(text string, kind types.DocumentKind, keywords []string) string {
	lead := leadPhrase(kind)
	if len(keywords) > 0 {
		lead += " concerning " + strings.Join(keywords[:min(3, len(keywords))], ", ")
	}
	lead += "."

	body := strings.Join(selectSentences(sentences(text), keywords), " ")
	if body == "" {
		body = strings.Join(strings.Fields(text), " ")
	}
	return lead + " " + truncateWords(body, summaryMaxRunes)
}

func leadPhrase(kind types.DocumentKind) string {
	switch kind {
	case types.KindContract:
		return "Contract or agreement"
	case types.KindPolicy:
		return "Policy document"
	case types.KindCircular:
		return "Circular"
	case types.KindInvoice:
		return "Invoice or bill"
	case types.KindReport:
		return "Report"
	case types.KindMemo:
		return "Memo or notice"
	default:
		return "Document"
	}
}

type scoredSentence struct {
	index int
	score float64
}

// selectSentences picks the best sentences and returns them in document
// order. Very short and very long sentences are ignored unless nothing else
// is left.
func selectSentences(all []string, keywords []string) []string {
	if len(all) == 0 {
		return nil
	}
	kw := toSet(keywords...)

	var scored []scoredSentence
	seen := make(map[string]bool, len(all))
	for i, s := range all {
		if seen[s] {
			continue
		}
		seen[s] = true

		ws := words(s)
		if len(ws) < 4 || len(ws) > 60 {
			continue
		}
		score := 1 / (1 + 0.15*float64(i))
		var domain, topical int
		for _, w := range ws {
			if summaryTerms[w] {
				domain++
			}
			if kw[w] {
				topical++
			}
		}
		score += 0.4*math.Min(float64(domain), 3) + 0.25*math.Min(float64(topical), 4)
		scored = append(scored, scoredSentence{index: i, score: score})
	}
	if len(scored) == 0 {
		return all[:min(summarySentences, len(all))]
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	scored = scored[:min(summarySentences, len(scored))]
	sort.Slice(scored, func(i, j int) bool { return scored[i].index < scored[j].index })

	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = all[s.index]
	}
	return out
}

// Analyze builds a complete analysis from heuristics. The secondary summary
// repeats the primary one since no local translation exists.
func Analyze(text string) (types.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return types.AnalysisResult{}, ErrFallbackExhausted
	}

	kind, sensitivity := Classify(text)
	keywords := topKeywords(text, 8)
	domain := Tags(text)
	roles := Roles(text)

	confidence := roles.Confidence
	if kind != types.KindOther {
		confidence = math.Min(confidence+0.15, confidenceCeiling)
	}
	if len(domain) > 0 {
		confidence = math.Min(confidence+0.1, confidenceCeiling)
	}

	var tags []string
	if kind != types.KindOther {
		tags = append(tags, string(kind))
	}
	tags = append(tags, domain...)
	tags = append(tags, keywords[:min(3, len(keywords))]...)
	tags = dedupe(tags)
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	if len(tags) == 0 {
		tags = []string{string(kind)}
	}

	summary := summarize(text, kind, keywords)
	retention := RetentionDays(kind)
	language, _ := mustDetect(text).Top()

	reasoning := fmt.Sprintf("Heuristic analysis identified a %s document with %s sensitivity", kind, sensitivity)
	if len(keywords) > 0 {
		reasoning += "; key topics: " + strings.Join(keywords[:min(3, len(keywords))], ", ")
	}

	return types.AnalysisResult{
		SummaryPrimary:   summary,
		SummarySecondary: summary,
		DocumentKind:     kind,
		Sensitivity:      sensitivity,
		RecommendedRoles: types.RoleRecommendation{
			Roles:      roles.Roles,
			Confidence: confidence,
			Reasoning:  reasoning,
		},
		Tags:            tags,
		RetentionDays:   &retention,
		KeyEntities:     append([]string{}, keywords[:min(6, len(keywords))]...),
		PrimaryLanguage: language,
	}, nil
}

// MergeRoles unions heuristic roles into a remote recommendation. The
// remote confidence and reasoning are kept.
func MergeRoles(remote, heuristic types.RoleRecommendation) types.RoleRecommendation {
	present := make(map[string]bool)
	for _, r := range remote.Roles {
		present[r] = true
	}
	for _, r := range heuristic.Roles {
		present[r] = true
	}

	merged := make([]string, 0, len(present))
	for _, r := range roleOrder {
		if present[r] {
			merged = append(merged, r)
			delete(present, r)
		}
	}
	// roles outside the known set keep their remote order
	for _, r := range remote.Roles {
		if present[r] {
			merged = append(merged, r)
			delete(present, r)
		}
	}

	remote.Roles = merged
	return remote
}
