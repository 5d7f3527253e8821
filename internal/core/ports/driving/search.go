package driving

import (
	"context"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// SearchService executes hybrid search across the clinical corpus.
type SearchService interface {
	// Search runs the full query path: understanding, fan-out, fusion.
	// Per-index failures degrade the result; only a full query failure
	// (every index failed) returns an error.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}
