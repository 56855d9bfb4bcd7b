package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/af-corp/docai-gateway/internal/lang"
	"github.com/af-corp/docai-gateway/internal/types"
)

// parseResult is either parsed[T] or parseFailure.
type parseResult interface{ isParseResult() }

type parsed[T any] struct{ value T }

type parseFailure struct {
	raw string
	err error
}

func (parsed[T]) isParseResult() {}
func (parseFailure) isParseResult() {}

// extractJSONObject strips markdown fences and chatter around the first
// JSON object in a model reply.
func extractJSONObject(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

type analysisPayload struct {
	SummaryPrimary   string   `json:"summary_primary"`
	SummarySecondary string   `json:"summary_secondary"`
	DocumentKind     string   `json:"document_kind"`
	Sensitivity      string   `json:"sensitivity"`
	Tags             []string `json:"tags"`
	RetentionDays    *int     `json:"retention_days"`
	KeyEntities      []string `json:"key_entities"`
	PrimaryLanguage  string   `json:"primary_language"`
	RecommendedRoles struct {
		Roles      []string `json:"roles"`
		Confidence *float64 `json:"confidence"`
		Reasoning  string   `json:"reasoning"`
	} `json:"recommended_roles"`
}

// Analysis is a remote analysis. Fields the model left out or filled with
// values outside the closed vocabularies are zero; ConfidenceReported tells
// whether the model supplied a role confidence.
type Analysis struct {
	Result             types.AnalysisResult
	ConfidenceReported bool
}

func parseAnalysis(raw string) parseResult {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return parseFailure{raw: raw, err: errors.New("no JSON object in reply")}
	}
	var p analysisPayload
	if err := json.Unmarshal([]byte(obj), &p); err != nil {
		return parseFailure{raw: raw, err: fmt.Errorf("decode analysis: %w", err)}
	}
	if strings.TrimSpace(p.SummaryPrimary) == "" {
		return parseFailure{raw: raw, err: errors.New("analysis has no summary")}
	}

	a := Analysis{Result: types.AnalysisResult{
		SummaryPrimary:   strings.TrimSpace(p.SummaryPrimary),
		SummarySecondary: strings.TrimSpace(p.SummarySecondary),
		Tags:             cleanList(p.Tags),
		KeyEntities:      cleanList(p.KeyEntities),
		PrimaryLanguage:  lang.Canonical(p.PrimaryLanguage),
	}}
	if p.DocumentKind != "" {
		a.Result.DocumentKind = types.ParseDocumentKind(p.DocumentKind)
	}
	if s, ok := types.ParseSensitivity(p.Sensitivity); ok {
		a.Result.Sensitivity = s
	}
	if p.RetentionDays != nil && *p.RetentionDays >= 0 {
		days := *p.RetentionDays
		a.Result.RetentionDays = &days
	}

	a.Result.RecommendedRoles.Roles = cleanRoles(p.RecommendedRoles.Roles)
	a.Result.RecommendedRoles.Reasoning = strings.TrimSpace(p.RecommendedRoles.Reasoning)
	if c := p.RecommendedRoles.Confidence; c != nil && !math.IsNaN(*c) {
		a.Result.RecommendedRoles.Confidence = clamp01(*c)
		a.ConfidenceReported = true
	}
	return parsed[Analysis]{value: a}
}

var summaryPattern = regexp.MustCompile(`"summary_primary"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// salvageSummary recovers the primary summary from a reply that is not
// valid JSON, e.g. one cut off by the token limit.
func salvageSummary(raw string) string {
	m := summaryPattern.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	s, err := strconv.Unquote(`"` + m[1] + `"`)
	if err != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

func parseLanguageScores(raw string) parseResult {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return parseFailure{raw: raw, err: errors.New("no JSON object in reply")}
	}
	var m map[string]float64
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		return parseFailure{raw: raw, err: fmt.Errorf("decode language scores: %w", err)}
	}
	scores := normalizeScores(m)
	if len(scores) == 0 {
		return parseFailure{raw: raw, err: errors.New("no language scores in reply")}
	}
	return parsed[types.LanguageScores]{value: scores}
}

var scorePattern = regexp.MustCompile(`"([A-Za-z]{2,3}(?:[-_][A-Za-z0-9]{2,8})?)"\s*:\s*([0-9]*\.?[0-9]+)`)

// salvageLanguageScores pulls "xx": 0.9 pairs out of a broken reply.
func salvageLanguageScores(raw string) types.LanguageScores {
	m := make(map[string]float64)
	for _, match := range scorePattern.FindAllStringSubmatch(raw, -1) {
		v, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}
		m[match[1]] = v
	}
	return normalizeScores(m)
}

func normalizeScores(m map[string]float64) types.LanguageScores {
	out := make(types.LanguageScores, len(m))
	for code, score := range m {
		c := lang.Canonical(code)
		if c == "" || math.IsNaN(score) {
			continue
		}
		score = clamp01(score)
		if score > out[c] {
			out[c] = score
		}
	}
	return out
}

// parsePlainText accepts a free-text reply, unwrapping code fences and
// surrounding quotes some models add.
func parsePlainText(raw string) parseResult {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if unq, err := strconv.Unquote(s); err == nil {
			s = unq
		}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return parseFailure{raw: raw, err: errors.New("empty reply")}
	}
	return parsed[string]{value: s}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func cleanRoles(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, r := range in {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
