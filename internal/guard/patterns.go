package guard

import "regexp"

// Pattern names one kind of credential and how to spot it.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
}

// DefaultPatterns covers credentials that turn up in pasted documents:
// cloud keys, model API keys, tokens and connection strings.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "AWS Access Key", Regex: regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
		{Name: "GCP Service Account Key", Regex: regexp.MustCompile(`"private_key":\s*"-----BEGIN`)},
		{Name: "Google API Key", Regex: regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{35}\b`)},
		{Name: "GitHub Token", Regex: regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9_]{36,}`)},
		{Name: "Model API Key", Regex: regexp.MustCompile(`\bsk-(?:ant-|proj-)?[A-Za-z0-9_\-]{32,}`)},
		{Name: "Stripe Secret Key", Regex: regexp.MustCompile(`\bsk_live_[A-Za-z0-9]{24,}`)},
		{Name: "Slack Token", Regex: regexp.MustCompile(`\bxox[abprs]-[A-Za-z0-9-]{10,}`)},
		{Name: "Private Key", Regex: regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`)},
		{Name: "Connection String", Regex: regexp.MustCompile(`(?:postgres|postgresql|mysql|mongodb(?:\+srv)?|redis)://[^\s:@/]+:[^\s@/]+@[^\s]+`)},
		{Name: "JWT Token", Regex: regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`)},
	}
}
