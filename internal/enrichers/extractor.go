package enrichers

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EntityExtractor = (*RegexExtractor)(nil)

// RegexExtractor recognizes entities of one category with a fixed set of
// compiled patterns. Matches within a category collapse via a set.
type RegexExtractor struct {
	category string
	patterns []*regexp.Regexp
}

// NewRegexExtractor compiles the vocabulary patterns for one category.
// Invalid patterns are skipped; the vocabulary is trusted input but a
// bad pattern must not take down enrichment.
func NewRegexExtractor(category string, vocab driven.Vocabulary) *RegexExtractor {
	var compiled []*regexp.Regexp
	for _, p := range vocab.EntityPatterns(category) {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	return &RegexExtractor{category: category, patterns: compiled}
}

// Category returns the extraction category.
func (e *RegexExtractor) Category() string { return e.category }

// Extract runs every pattern over the lowercased text and returns the
// deduplicated matches, whitespace-normalized, in sorted order for
// deterministic output.
func (e *RegexExtractor) Extract(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]struct{})
	for _, re := range e.patterns {
		for _, m := range re.FindAllString(lower, -1) {
			seen[normalizeEntity(m)] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// normalizeEntity collapses internal whitespace in a match.
func normalizeEntity(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ExtractorSet bundles one extractor per entity category.
type ExtractorSet struct {
	byCategory map[string]driven.EntityExtractor
}

// NewExtractorSet builds the default pattern-based extractor per category.
func NewExtractorSet(vocab driven.Vocabulary) *ExtractorSet {
	s := &ExtractorSet{byCategory: make(map[string]driven.EntityExtractor)}
	for _, c := range driven.EntityCategories() {
		s.byCategory[c] = NewRegexExtractor(c, vocab)
	}
	return s
}

// Register swaps in a replacement extractor for its category.
func (s *ExtractorSet) Register(e driven.EntityExtractor) {
	s.byCategory[e.Category()] = e
}

// ExtractAll runs every category's extractor over the text. Extraction
// degrades gracefully: text matching nothing yields empty entities,
// never an error.
func (s *ExtractorSet) ExtractAll(text string) domain.ExtractedEntities {
	extract := func(category string) []string {
		if e, ok := s.byCategory[category]; ok {
			return e.Extract(text)
		}
		return nil
	}
	return domain.ExtractedEntities{
		Conditions:  extract(driven.CategoryConditions),
		Medications: extract(driven.CategoryMedications),
		Procedures:  extract(driven.CategoryProcedures),
		Symptoms:    extract(driven.CategorySymptoms),
	}
}
