package driven

// Entity extraction categories.
const (
	CategoryConditions  = "conditions"
	CategoryMedications = "medications"
	CategoryProcedures  = "procedures"
	CategorySymptoms    = "symptoms"
)

// EntityCategories lists every extraction category in a stable order.
func EntityCategories() []string {
	return []string{CategoryConditions, CategoryMedications, CategoryProcedures, CategorySymptoms}
}

// EntityExtractor recognizes medical entities of one category in free
// text. The pattern-based default can be swapped for a statistical model
// without touching the enrichment pipeline's control flow.
type EntityExtractor interface {
	// Category returns the entity category this extractor serves.
	Category() string

	// Extract returns the deduplicated entities found in text.
	Extract(text string) []string
}
