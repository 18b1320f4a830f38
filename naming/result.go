// Package naming resolves a display name for a conversation through an
// ordered fallback chain, tagging each result with its provenance.
package naming

// Provenance records which tier produced a resolved name.
type Provenance string

const (
	ProvenanceExplicit  Provenance = "explicit"
	ProvenanceDirectory Provenance = "directory"
	ProvenanceInferred  Provenance = "inferred"
	ProvenanceExtracted Provenance = "extracted"
	ProvenanceFallback  Provenance = "fallback"
)

// FallbackName is returned when every other tier declines.
const FallbackName = "Unknown Contact"

// Result is replaced atomically on each resolution; it is never
// mutated in place.
type Result struct {
	Name       string     `json:"name"`
	Provenance Provenance `json:"provenance"`
	Confidence float64    `json:"confidence"`
}
