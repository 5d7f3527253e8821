package driven

import (
	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// Vocabulary is the injectable clinical lookup service backing the
// enrichment engine. Implementations must preserve first-match-wins
// substring semantics for class and interaction lookups: when a drug
// name matches multiple table keys as substrings, table order decides.
// This ambiguity is a documented limitation, not a bug to correct.
type Vocabulary interface {
	// DrugClass resolves a drug name (generic or brand) to its
	// medication class by substring match, first matching key wins.
	DrugClass(name string) (string, bool)

	// IsHighRisk reports whether the drug is on the high-risk list.
	IsHighRisk(name string) bool

	// Interaction looks up a known interaction between two drugs by
	// substring match. Symmetric: Interaction(a, b) == Interaction(b, a).
	Interaction(a, b string) (*domain.DrugInteraction, bool)

	// SideEffects returns the common side effects for a drug, or nil.
	SideEffects(name string) []string

	// HighSeverityTerms and MediumSeverityTerms are the ordered term
	// lists for note severity classification (high checked first).
	HighSeverityTerms() []string
	MediumSeverityTerms() []string

	// CriticalTerms is the separate list backing has_critical_terms.
	// Deliberately independent of the severity lists.
	CriticalTerms() []string

	// EntityPatterns returns the regular-expression patterns for one
	// extraction category (conditions, medications, procedures,
	// symptoms).
	EntityPatterns(category string) []string
}
