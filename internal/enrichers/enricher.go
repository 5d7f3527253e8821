// Package enrichers converts raw clinical rows into canonical,
// richly-annotated documents ready for indexing. Enrichment never
// throws: a parsing failure degrades the affected field to its
// null/default value and logs a warning, so a malformed row yields a
// degraded document rather than aborting the batch.
package enrichers

import (
	"log/slog"
	"strings"
	"time"

	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
)

// Enricher is the clinical enrichment engine. One instance serves all
// four document kinds.
type Enricher struct {
	vocab      driven.Vocabulary
	extractors *ExtractorSet
	logger     *slog.Logger
	now        func() time.Time
}

// Config holds dependencies for the Enricher.
type Config struct {
	Vocabulary driven.Vocabulary
	Extractors *ExtractorSet
	Logger     *slog.Logger

	// Now overrides the clock, used as the age reference for living
	// patients and as the document timestamp.
	Now func() time.Time
}

// New creates an enrichment engine.
func New(cfg Config) *Enricher {
	vocab := cfg.Vocabulary
	if vocab == nil {
		vocab = NewStaticVocabulary()
	}
	extractors := cfg.Extractors
	if extractors == nil {
		extractors = NewExtractorSet(vocab)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Enricher{
		vocab:      vocab,
		extractors: extractors,
		logger:     logger,
		now:        now,
	}
}

// Extractors exposes the extractor set so the query understanding stage
// can reuse the same entity recognition.
func (e *Enricher) Extractors() *ExtractorSet { return e.extractors }

// Timestamp layouts accepted in raw cells, tried in order.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// parseTime parses a raw timestamp cell. Empty or unparseable cells
// degrade to nil.
func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ageAt computes whole-year age at the reference date with a month/day
// correction: if the reference month/day precedes the birth month/day,
// one year is subtracted.
func ageAt(birth, ref time.Time) int {
	years := ref.Year() - birth.Year()
	if ref.Month() < birth.Month() ||
		(ref.Month() == birth.Month() && ref.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// collapseWhitespace folds runs of whitespace into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
