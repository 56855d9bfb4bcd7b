package types

// Role identifiers used in role recommendations.
const (
	RoleLeadership = "LEADERSHIP"
	RoleHR         = "HR"
	RoleFinance    = "FINANCE"
	RoleEngineer   = "ENGINEER"
)

// AnalysisResult is the payload of the analyze operation. Every field is
// populated before a result leaves the optimizer.
type AnalysisResult struct {
	SummaryPrimary   string             `json:"summary_primary"`
	SummarySecondary string             `json:"summary_secondary"`
	DocumentKind     DocumentKind       `json:"document_kind"`
	Sensitivity      Sensitivity        `json:"sensitivity"`
	RecommendedRoles RoleRecommendation `json:"recommended_roles"`
	Tags             []string           `json:"tags"`
	RetentionDays    *int               `json:"retention_days,omitempty"`
	KeyEntities      []string           `json:"key_entities"`
	PrimaryLanguage  string             `json:"primary_language"`
}

type RoleRecommendation struct {
	Roles      []string `json:"roles"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// LanguageScores maps a BCP 47 base language code to a confidence in [0,1].
type LanguageScores map[string]float64

// Top returns the highest scoring language. Ties resolve to the
// lexically smaller code so the result is stable.
func (s LanguageScores) Top() (string, float64) {
	best, bestScore := "", -1.0
	for lang, score := range s {
		if score > bestScore || (score == bestScore && lang < best) {
			best, bestScore = lang, score
		}
	}
	if best == "" {
		return "", 0
	}
	return best, bestScore
}
