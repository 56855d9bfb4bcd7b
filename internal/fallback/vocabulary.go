package fallback

import "github.com/af-corp/docai-gateway/internal/types"

var stopwords = toSet(
	"the", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
	"a", "an", "is", "are", "was", "were", "be", "been", "being", "have", "has", "had",
	"do", "does", "did", "will", "would", "could", "should", "shall", "may", "might",
	"this", "that", "these", "those", "they", "them", "their", "there", "where",
	"when", "what", "who", "whom", "why", "how", "which", "it", "its", "as", "from",
	"into", "than", "then", "also", "such", "any", "all", "each", "other", "some",
	"not", "no", "nor", "only", "own", "same", "so", "very", "can", "just", "our",
	"we", "you", "your", "he", "she", "his", "her", "i", "me", "my", "about",
	"above", "after", "again", "against", "below", "between", "both", "during",
	"further", "here", "more", "most", "once", "over", "under", "until", "upon",
	"while", "within", "without", "per", "via", "hereby", "herein", "thereof",
)

var kindTerms = map[types.DocumentKind][]string{
	types.KindContract: {"contract", "agreement", "terms", "conditions", "party", "parties", "hereinafter", "obligations", "indemnity", "termination clause"},
	types.KindPolicy:   {"policy", "procedure", "guideline", "guidelines", "rules", "compliance", "applicable to", "mandatory"},
	types.KindCircular: {"circular", "all departments", "hereby informed", "for information", "copy to", "directed"},
	types.KindInvoice:  {"invoice", "bill", "billed", "payment due", "amount", "total", "gst", "tax", "remit"},
	types.KindReport:   {"report", "analysis", "findings", "conclusions", "recommendations", "summary of", "observed"},
	types.KindMemo:     {"memo", "memorandum", "notice", "announcement", "attention"},
}

var (
	confidentialTerms = []string{"confidential", "restricted", "classified", "secret", "private", "sensitive", "not for circulation"}
	highTerms         = []string{"internal", "limited", "proprietary", "draft", "internal use"}
	lowTerms          = []string{"public", "announcement", "press", "general", "open to all"}
)

var domainTags = []struct {
	tag   string
	terms []string
}{
	{"transportation", []string{"metro", "railway", "train", "station", "transport", "rolling stock"}},
	{"finance", []string{"finance", "budget", "cost", "payment", "money", "expenditure"}},
	{"safety", []string{"safety", "security", "emergency", "risk", "hazard"}},
	{"engineering", []string{"project", "construction", "development", "engineering", "maintenance"}},
	{"hr", []string{"staff", "employee", "employees", "personnel", "human resources", "recruitment"}},
	{"legal", []string{"legal", "court", "litigation", "arbitration", "statutory"}},
}

var roleTerms = map[string][]string{
	types.RoleLeadership: {
		"board", "director", "executive", "strategy", "policy", "decision",
		"approval", "management", "leadership", "governance", "vision",
		"mission", "objectives", "planning", "budget approval", "oversight",
	},
	types.RoleHR: {
		"employee", "staff", "recruitment", "hiring", "payroll", "salary",
		"benefits", "training", "performance", "appraisal", "leave",
		"attendance", "resignation", "termination", "grievance", "policy",
	},
	types.RoleFinance: {
		"budget", "finance", "accounting", "audit", "expense", "revenue",
		"cost", "invoice", "payment", "procurement", "vendor", "contract",
		"financial", "expenditure", "income", "profit", "loss", "balance",
	},
	types.RoleEngineer: {
		"technical", "engineering", "design", "specification", "maintenance",
		"construction", "project", "infrastructure", "system", "equipment",
		"safety", "quality", "testing", "inspection", "drawing", "blueprint",
	},
}

// roleOrder fixes output order of recommended roles.
var roleOrder = []string{types.RoleLeadership, types.RoleHR, types.RoleFinance, types.RoleEngineer}

// summaryTerms marks sentences that usually carry the substance of a
// business document.
var summaryTerms = toSet(
	"shall", "must", "required", "approved", "approval", "deadline", "effective",
	"total", "amount", "payment", "budget", "decision", "decided", "recommend",
	"recommended", "purpose", "objective", "scope", "responsible", "agreement",
	"policy", "report", "findings", "conclusion", "date", "due", "notice",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
