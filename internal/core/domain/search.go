package domain

import (
	"encoding/json"
	"time"
)

// Role is a presentation hint from the caller. It does not affect
// retrieval; it is carried through to the response envelope untouched.
type Role string

const (
	RoleClinician Role = "clinician"
	RolePatient   Role = "patient"
)

// DateRange filters documents by their primary timestamp.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// AgeRange filters patient documents by computed age.
type AgeRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// SearchFilters are hard constraints applied identically to the lexical
// and semantic plans.
type SearchFilters struct {
	DocumentTypes []DocumentKind `json:"document_types,omitempty"`
	DateRange     *DateRange     `json:"date_range,omitempty"`
	Departments   []string       `json:"departments,omitempty"`
	Priorities    []string       `json:"priorities,omitempty"`
	AgeRange      *AgeRange      `json:"age_range,omitempty"`
	Gender        string         `json:"gender,omitempty"`
}

// SearchRequest is the search surface consumed from the API layer.
type SearchRequest struct {
	Query   string        `json:"query"`
	Role    Role          `json:"role,omitempty"`
	Filters SearchFilters `json:"filters"`
	Size    int           `json:"size"`
	Offset  int           `json:"offset"`
}

// Kinds resolves the document-type filter, defaulting to all kinds.
func (r SearchRequest) Kinds() []DocumentKind {
	if len(r.Filters.DocumentTypes) == 0 {
		return AllKinds()
	}
	return r.Filters.DocumentTypes
}

// BoostedField names a lexical match field with its boost factor.
type BoostedField struct {
	Name  string  `json:"name"`
	Boost float64 `json:"boost"`
}

// LexicalSpec is the keyword query plan for one index. An empty Query
// with filters still executes as match-all-with-filters.
type LexicalSpec struct {
	Query       string         `json:"query"`
	Fields      []BoostedField `json:"fields"`
	EntityTerms []string       `json:"entity_terms,omitempty"` // boosted should-clauses
	Filters     SearchFilters  `json:"filters"`
	Size        int            `json:"size"`
}

// SemanticSpec is the nearest-neighbor query plan for one index. The
// embedding is computed by an external collaborator; this spec only
// carries the request.
type SemanticSpec struct {
	Vector  []float32     `json:"vector"`
	K       int           `json:"k"`
	Filters SearchFilters `json:"filters"`
}

// QueryPlans is the output of the query understanding stage. Semantic is
// nil when no embedding service is available.
type QueryPlans struct {
	Lexical  *LexicalSpec
	Semantic *SemanticSpec
}

// Hit is one scored document returned by the storage engine for a single
// (index, plan) pair. Rank within the returning list is positional.
type Hit struct {
	ID         string          `json:"id"`
	Score      float64         `json:"score"`
	Source     json.RawMessage `json:"source,omitempty"`
	Highlights []string        `json:"highlights,omitempty"`
}

// IndexResult collects the per-plan hit lists for one index. Failed
// indices carry their error string and contribute nothing to fusion.
type IndexResult struct {
	Index        string `json:"index"`
	LexicalHits  []Hit  `json:"lexical_hits,omitempty"`
	SemanticHits []Hit  `json:"semantic_hits,omitempty"`
	Failed       bool   `json:"failed"`
	Error        string `json:"error,omitempty"`
}

// RankedHit is a fused search result. Query-time only, never persisted.
type RankedHit struct {
	Index         string          `json:"index"`
	DocumentID    string          `json:"document_id"`
	LexicalScore  float64         `json:"lexical_score"`
	SemanticScore float64         `json:"semantic_score"`
	FusedScore    float64         `json:"fused_score"`
	FusedRank     int             `json:"fused_rank"`
	Source        json.RawMessage `json:"source,omitempty"`
	Highlights    []string        `json:"highlights,omitempty"`
}

// QueryProcessing reports what the query understanding stage derived.
type QueryProcessing struct {
	RecognizedEntities ExtractedEntities `json:"recognized_entities"`
	SemanticUsed       bool              `json:"semantic_used"`
	Role               Role              `json:"role,omitempty"`
}

// SearchResponse is the result envelope. FailedIndices annotates a
// degraded-but-successful search; it is empty on a clean run.
type SearchResponse struct {
	Results         []RankedHit      `json:"results"`
	TotalResults    int              `json:"total_results"`
	TookMS          int64            `json:"took_ms"`
	FailedIndices   []string         `json:"failed_indices,omitempty"`
	QueryProcessing *QueryProcessing `json:"query_processing,omitempty"`
}
