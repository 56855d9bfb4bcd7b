package types

import "strings"

type Sensitivity string

const (
	SensitivityLow          Sensitivity = "low"
	SensitivityMedium       Sensitivity = "medium"
	SensitivityHigh         Sensitivity = "high"
	SensitivityConfidential Sensitivity = "confidential"
)

// Level returns a numeric level for comparison.
// Higher values mean more sensitive.
func (s Sensitivity) Level() int {
	switch s {
	case SensitivityLow:
		return 0
	case SensitivityMedium:
		return 1
	case SensitivityHigh:
		return 2
	case SensitivityConfidential:
		return 3
	default:
		return -1
	}
}

// AtLeast returns true if s is as sensitive as other or more.
func (s Sensitivity) AtLeast(other Sensitivity) bool {
	return s.Level() >= other.Level()
}

// ParseSensitivity accepts any letter case ("HIGH", "High", "high").
func ParseSensitivity(s string) (Sensitivity, bool) {
	switch v := Sensitivity(strings.ToLower(strings.TrimSpace(s))); v {
	case SensitivityLow, SensitivityMedium, SensitivityHigh, SensitivityConfidential:
		return v, true
	default:
		return "", false
	}
}

type DocumentKind string

const (
	KindContract DocumentKind = "contract"
	KindPolicy   DocumentKind = "policy"
	KindCircular DocumentKind = "circular"
	KindInvoice  DocumentKind = "invoice"
	KindReport   DocumentKind = "report"
	KindMemo     DocumentKind = "memo"
	KindOther    DocumentKind = "other"
)

// KindPriority is the tie-break order among document kinds, most specific first.
var KindPriority = []DocumentKind{
	KindContract,
	KindPolicy,
	KindCircular,
	KindInvoice,
	KindReport,
	KindMemo,
	KindOther,
}

// ParseDocumentKind maps unknown values to KindOther.
func ParseDocumentKind(s string) DocumentKind {
	v := DocumentKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range KindPriority {
		if v == k {
			return k
		}
	}
	return KindOther
}
