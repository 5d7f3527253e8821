package driven

import (
	"context"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// BulkDoc is one document submitted in a bulk upsert. ID is the natural
// key; re-submission overwrites rather than duplicates.
type BulkDoc struct {
	ID   string
	Body any
}

// BulkOutcome reports the item-level result of a bulk upsert.
type BulkOutcome struct {
	Succeeded int
	Failed    []domain.BatchFailure
}

// SearchIndex is the storage engine capability boundary (Elasticsearch).
// It exposes keyed upserts on the write path and independently-scored
// lexical and semantic retrieval on the read path.
type SearchIndex interface {
	// EnsureIndices idempotently creates every document-kind index
	// with its mapping.
	EnsureIndices(ctx context.Context) error

	// BulkUpsert writes a batch of documents to one index. A non-nil
	// error means the whole call failed (transport); item-level
	// failures are reported in the outcome instead.
	BulkUpsert(ctx context.Context, index string, docs []BulkDoc) (*BulkOutcome, error)

	// SearchLexical runs the keyword query plan against one index.
	SearchLexical(ctx context.Context, index string, spec domain.LexicalSpec) ([]domain.Hit, error)

	// SearchSemantic runs the nearest-neighbor plan against one index.
	SearchSemantic(ctx context.Context, index string, spec domain.SemanticSpec) ([]domain.Hit, error)

	// HealthCheck verifies the storage engine is reachable.
	HealthCheck(ctx context.Context) error
}
