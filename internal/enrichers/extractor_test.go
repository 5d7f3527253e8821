package enrichers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
)

func TestExtractAll(t *testing.T) {
	set := NewExtractorSet(NewStaticVocabulary())

	entities := set.ExtractAll("Elderly patient with diabetes mellitus and hypertension, on metformin and insulin, complains of chest pain")

	assert.Equal(t, []string{"diabetes mellitus", "hypertension"}, entities.Conditions)
	assert.Equal(t, []string{"insulin", "metformin"}, entities.Medications)
	assert.Contains(t, entities.Symptoms, "chest pain")
}

func TestExtractAllNoMatches(t *testing.T) {
	set := NewExtractorSet(NewStaticVocabulary())

	entities := set.ExtractAll("routine follow up visit")

	assert.Empty(t, entities.Conditions)
	assert.Empty(t, entities.Medications)
	assert.Empty(t, entities.Procedures)
	assert.Empty(t, entities.Symptoms)
}

func TestExtractDeduplicates(t *testing.T) {
	vocab := NewStaticVocabulary()
	e := NewRegexExtractor(driven.CategoryMedications, vocab)

	matches := e.Extract("Warfarin 5mg daily. Continue warfarin, recheck INR.")

	require.Len(t, matches, 1)
	assert.Equal(t, "warfarin", matches[0])
}

func TestExtractCollapsesWhitespace(t *testing.T) {
	vocab := NewStaticVocabulary()
	e := NewRegexExtractor(driven.CategoryConditions, vocab)

	matches := e.Extract("History of congestive  heart\tfailure")

	require.Len(t, matches, 1)
	assert.Equal(t, "congestive heart failure", matches[0])
}

func TestExtractorSetRegister(t *testing.T) {
	set := NewExtractorSet(NewStaticVocabulary())
	set.Register(stubExtractor{})

	entities := set.ExtractAll("anything")
	assert.Equal(t, []string{"stubbed"}, entities.Procedures)
}

type stubExtractor struct{}

func (stubExtractor) Category() string        { return driven.CategoryProcedures }
func (stubExtractor) Extract(string) []string { return []string{"stubbed"} }
