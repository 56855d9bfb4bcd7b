package guard

import "regexp"

// InjectionRule spots text written to steer a model rather than to inform
// a reader. Documents carrying it are analysed locally so they cannot bend
// their own classification.
type InjectionRule struct {
	Name     string
	Regex    *regexp.Regexp
	Severity float64 // 0.0 to 1.0
}

// DefaultInjectionThreshold is the severity at which a document stays local.
const DefaultInjectionThreshold = 0.9

func DefaultInjectionRules() []InjectionRule {
	return []InjectionRule{
		{Name: "ignore_previous", Regex: regexp.MustCompile(`(?i)ignore\s+(all\s+)?(the\s+)?previous\s+instructions`), Severity: 0.95},
		{Name: "disregard_prior", Regex: regexp.MustCompile(`(?i)disregard\s+(all\s+)?(the\s+)?(prior|above)\s+(instructions|context|rules)`), Severity: 0.95},
		{Name: "classification_override", Regex: regexp.MustCompile(`(?i)(classify|mark|label)\s+this\s+(document\s+)?as\s+(public|low\s+sensitivity|non-?confidential)`), Severity: 0.9},
		{Name: "role_block", Regex: regexp.MustCompile("(?i)```\\s*system\\b"), Severity: 0.9},
		{Name: "jailbreak", Regex: regexp.MustCompile(`(?i)\b(do\s+anything\s+now|jailbreak|unrestricted\s+mode)\b`), Severity: 0.9},
		{Name: "system_prefix", Regex: regexp.MustCompile(`(?im)^\s*system\s*:\s*you\b`), Severity: 0.85},
		{Name: "new_instructions", Regex: regexp.MustCompile(`(?i)\b(new|updated|revised)\s+instructions?\s*:`), Severity: 0.8},
		{Name: "you_are_now", Regex: regexp.MustCompile(`(?i)\byou\s+are\s+now\s+(a|an|the)\s+`), Severity: 0.7},
	}
}

// InjectionScore returns the highest severity among matching rules and
// the names of the rules that matched.
func (s *Scanner) InjectionScore(text string) (float64, []string) {
	score := 0.0
	var names []string
	for _, r := range s.injection {
		if r.Regex.MatchString(text) {
			names = append(names, r.Name)
			score = max(score, r.Severity)
		}
	}
	return score, names
}
