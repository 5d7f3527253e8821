package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

func TestFuseResultsBothListsOutrankSingleList(t *testing.T) {
	// A appears at rank 1 in both lists, C at rank 3 lexical and rank 1
	// semantic. Both must outrank B and D, each present in one list only.
	results := map[string]*domain.IndexResult{
		"clinical-notes": {
			Index: "clinical-notes",
			LexicalHits: []domain.Hit{
				{ID: "A", Score: 9.1},
				{ID: "B", Score: 7.4},
				{ID: "C", Score: 5.0},
			},
			SemanticHits: []domain.Hit{
				{ID: "C", Score: 0.93},
				{ID: "A", Score: 0.91},
				{ID: "D", Score: 0.88},
			},
		},
	}

	ranked := FuseResults(results)
	require.Len(t, ranked, 4)

	// A: 1/61 + 1/62; C: 1/63 + 1/61.
	assert.Equal(t, "A", ranked[0].DocumentID)
	assert.Equal(t, "C", ranked[1].DocumentID)
	assert.InDelta(t, 1.0/61+1.0/62, ranked[0].FusedScore, 1e-12)
	assert.InDelta(t, 1.0/63+1.0/61, ranked[1].FusedScore, 1e-12)

	singles := []string{ranked[2].DocumentID, ranked[3].DocumentID}
	assert.Contains(t, singles, "B")
	assert.Contains(t, singles, "D")

	for i, rh := range ranked {
		assert.Equal(t, i+1, rh.FusedRank)
	}
}

func TestFuseResultsCarriesRawScores(t *testing.T) {
	results := map[string]*domain.IndexResult{
		"medications": {
			Index:        "medications",
			LexicalHits:  []domain.Hit{{ID: "m1", Score: 4.2, Highlights: []string{"<em>warfarin</em>"}}},
			SemanticHits: []domain.Hit{{ID: "m1", Score: 0.87}},
		},
	}

	ranked := FuseResults(results)
	require.Len(t, ranked, 1)
	assert.Equal(t, 4.2, ranked[0].LexicalScore)
	assert.Equal(t, 0.87, ranked[0].SemanticScore)
	assert.Equal(t, []string{"<em>warfarin</em>"}, ranked[0].Highlights)
}

func TestFuseResultsTieBreakLexicalScoreThenID(t *testing.T) {
	// Same fused contribution for every hit; raw lexical score breaks
	// the first tie, document id the second.
	results := map[string]*domain.IndexResult{
		"patients": {
			Index:       "patients",
			LexicalHits: []domain.Hit{{ID: "p2", Score: 3.0}},
		},
		"lab-results": {
			Index:       "lab-results",
			LexicalHits: []domain.Hit{{ID: "p1", Score: 5.0}},
		},
		"medications": {
			Index:       "medications",
			LexicalHits: []domain.Hit{{ID: "p3", Score: 3.0}},
		},
	}

	ranked := FuseResults(results)
	require.Len(t, ranked, 3)
	assert.Equal(t, "p1", ranked[0].DocumentID)
	assert.Equal(t, "p2", ranked[1].DocumentID)
	assert.Equal(t, "p3", ranked[2].DocumentID)
}

func TestFuseResultsSkipsFailedIndices(t *testing.T) {
	results := map[string]*domain.IndexResult{
		"patients": {
			Index:       "patients",
			LexicalHits: []domain.Hit{{ID: "p1", Score: 1.0}},
		},
		"clinical-notes": {
			Index:  "clinical-notes",
			Failed: true,
			Error:  "connection refused",
			// Hits on a failed index must not leak into fusion.
			LexicalHits: []domain.Hit{{ID: "n1", Score: 9.0}},
		},
	}

	ranked := FuseResults(results)
	require.Len(t, ranked, 1)
	assert.Equal(t, "p1", ranked[0].DocumentID)
}

func TestFuseResultsDeterministic(t *testing.T) {
	results := map[string]*domain.IndexResult{
		"patients": {
			Index:        "patients",
			LexicalHits:  []domain.Hit{{ID: "a", Score: 2}, {ID: "b", Score: 1}},
			SemanticHits: []domain.Hit{{ID: "b", Score: 0.9}, {ID: "a", Score: 0.8}},
		},
	}

	first := FuseResults(results)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, FuseResults(results))
	}
}

func TestPaginate(t *testing.T) {
	ranked := make([]domain.RankedHit, 5)
	for i := range ranked {
		ranked[i].FusedRank = i + 1
	}

	page := paginate(ranked, 0, 2)
	require.Len(t, page, 2)
	assert.Equal(t, 1, page[0].FusedRank)

	page = paginate(ranked, 4, 10)
	require.Len(t, page, 1)
	assert.Equal(t, 5, page[0].FusedRank)

	assert.Nil(t, paginate(ranked, 5, 2))
	assert.Nil(t, paginate(ranked, 99, 2))
}
