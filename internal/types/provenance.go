package types

// Provenance tells callers where a result came from.
type Provenance string

const (
	ProvenanceCached              Provenance = "cached"
	ProvenanceRemote              Provenance = "remote"
	ProvenanceFallbackRateLimited Provenance = "fallback_rate_limited"
	ProvenanceFallbackError       Provenance = "fallback_error"
	ProvenanceFallbackDisabled    Provenance = "fallback_disabled"
	ProvenanceFallbackGuarded     Provenance = "fallback_guarded"
)

// IsFallback reports whether the result was produced by local heuristics.
func (p Provenance) IsFallback() bool {
	switch p {
	case ProvenanceFallbackRateLimited, ProvenanceFallbackError,
		ProvenanceFallbackDisabled, ProvenanceFallbackGuarded:
		return true
	default:
		return false
	}
}
