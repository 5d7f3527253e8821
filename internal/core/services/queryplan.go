package services

import (
	"context"
	"log/slog"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/enrichers"
	"github.com/mediquery/mediquery-core/internal/runtime"
)

// defaultPlanSize is the per-index candidate depth when the request does
// not imply a deeper page.
const defaultPlanSize = 20

// lexicalFields are the boosted match fields for the keyword plan.
// Fields absent from an index's mapping are ignored by the engine, so
// one list serves all four indices.
var lexicalFields = []domain.BoostedField{
	{Name: "title", Boost: 3},
	{Name: "drug_name", Boost: 3},
	{Name: "label", Boost: 3},
	{Name: "summary", Boost: 2},
	{Name: "content", Boost: 1},
	{Name: "searchable_text", Boost: 1},
}

// QueryPlanner is the query understanding stage. It recognizes medical
// entities in the query text and shapes one lexical and, when an
// embedding service is registered, one semantic plan sharing the same
// filters.
type QueryPlanner struct {
	extractors *enrichers.ExtractorSet
	services   *runtime.Services
	logger     *slog.Logger
}

// NewQueryPlanner creates the query understanding stage. The embedding
// service is resolved dynamically per query via the runtime registry.
func NewQueryPlanner(extractors *enrichers.ExtractorSet, services *runtime.Services, logger *slog.Logger) *QueryPlanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryPlanner{
		extractors: extractors,
		services:   services,
		logger:     logger,
	}
}

// Plan derives the query plans for one request. Embedding failure is
// never fatal: the semantic plan is dropped and the lexical plan stands
// alone.
func (p *QueryPlanner) Plan(ctx context.Context, req domain.SearchRequest) (domain.QueryPlans, domain.QueryProcessing) {
	entities := p.extractors.ExtractAll(req.Query)

	size := req.Size + req.Offset
	if size < defaultPlanSize {
		size = defaultPlanSize
	}

	plans := domain.QueryPlans{
		Lexical: &domain.LexicalSpec{
			Query:       req.Query,
			Fields:      lexicalFields,
			EntityTerms: entities.Terms(),
			Filters:     req.Filters,
			Size:        size,
		},
	}

	processing := domain.QueryProcessing{
		RecognizedEntities: entities,
		Role:               req.Role,
	}

	if embedder := p.services.EmbeddingService(); embedder != nil && req.Query != "" {
		vector, err := embedder.EmbedQuery(ctx, req.Query)
		if err != nil {
			p.logger.Warn("query embedding failed, degrading to lexical-only", "error", err)
		} else {
			plans.Semantic = &domain.SemanticSpec{
				Vector:  vector,
				K:       size,
				Filters: req.Filters,
			}
			processing.SemanticUsed = true
		}
	}

	return plans, processing
}
