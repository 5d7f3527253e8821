package services

import (
	"sort"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// rrfK is the reciprocal rank fusion constant. Larger values flatten
// the contribution curve across ranks.
const rrfK = 60

// FuseResults merges the per-index hit lists with reciprocal rank
// fusion. Every (list, rank) appearance of a document contributes
// 1/(k+rank) with rank counted from 1, so a document found by both
// retrieval strategies outranks one found by a single strategy at the
// same positions. Failed indices contribute nothing.
func FuseResults(results map[string]*domain.IndexResult) []domain.RankedHit {
	fused := make(map[string]*domain.RankedHit)

	key := func(index, id string) string { return index + "/" + id }

	for _, result := range results {
		if result == nil || result.Failed {
			continue
		}
		for rank, hit := range result.LexicalHits {
			k := key(result.Index, hit.ID)
			rh, ok := fused[k]
			if !ok {
				rh = &domain.RankedHit{Index: result.Index, DocumentID: hit.ID}
				fused[k] = rh
			}
			rh.FusedScore += 1.0 / float64(rrfK+rank+1)
			rh.LexicalScore = hit.Score
			if rh.Source == nil {
				rh.Source = hit.Source
			}
			if len(hit.Highlights) > 0 {
				rh.Highlights = hit.Highlights
			}
		}
		for rank, hit := range result.SemanticHits {
			k := key(result.Index, hit.ID)
			rh, ok := fused[k]
			if !ok {
				rh = &domain.RankedHit{Index: result.Index, DocumentID: hit.ID}
				fused[k] = rh
			}
			rh.FusedScore += 1.0 / float64(rrfK+rank+1)
			rh.SemanticScore = hit.Score
			if rh.Source == nil {
				rh.Source = hit.Source
			}
		}
	}

	ranked := make([]domain.RankedHit, 0, len(fused))
	for _, rh := range fused {
		ranked = append(ranked, *rh)
	}

	// Deterministic ordering: fused score, then raw lexical score, then
	// document id.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].FusedScore != ranked[j].FusedScore {
			return ranked[i].FusedScore > ranked[j].FusedScore
		}
		if ranked[i].LexicalScore != ranked[j].LexicalScore {
			return ranked[i].LexicalScore > ranked[j].LexicalScore
		}
		return ranked[i].DocumentID < ranked[j].DocumentID
	})

	for i := range ranked {
		ranked[i].FusedRank = i + 1
	}
	return ranked
}

// paginate slices the fused list by offset and size. Size defaults to
// the plan depth; out-of-range offsets yield an empty page.
func paginate(ranked []domain.RankedHit, offset, size int) []domain.RankedHit {
	if size <= 0 {
		size = defaultPlanSize
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ranked) {
		return nil
	}
	end := offset + size
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end]
}
