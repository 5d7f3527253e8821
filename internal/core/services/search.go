package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
	"github.com/mediquery/mediquery-core/internal/core/ports/driving"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

// defaultCacheTTL bounds how long a fused result page may be served
// without re-querying the indices.
const defaultCacheTTL = 5 * time.Minute

// searchService runs the full query path: understanding, fan-out,
// fusion, envelope.
type searchService struct {
	planner  *QueryPlanner
	fanout   *FanOut
	cache    driven.ResultCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// SearchConfig holds the search service collaborators. Cache is
// optional; a nil cache disables result caching.
type SearchConfig struct {
	Planner  *QueryPlanner
	FanOut   *FanOut
	Cache    driven.ResultCache
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// NewSearchService creates the hybrid search service.
func NewSearchService(cfg SearchConfig) driving.SearchService {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &searchService{
		planner:  cfg.Planner,
		fanout:   cfg.FanOut,
		cache:    cfg.Cache,
		cacheTTL: ttl,
		logger:   logger,
	}
}

// Search executes one hybrid search. Per-index failures degrade the
// response; an error returns only when every index failed.
func (s *searchService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	start := time.Now()

	if req.Size <= 0 {
		req.Size = 10
	}
	if req.Size > 100 {
		req.Size = 100
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	key := requestKey(req)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn("result cache read failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	plans, processing := s.planner.Plan(ctx, req)
	kinds := req.Kinds()
	results := s.fanout.Execute(ctx, kinds, plans)

	var failed []string
	for _, r := range results {
		if r.Failed {
			failed = append(failed, r.Index)
		}
	}
	if len(failed) == len(kinds) {
		return nil, fmt.Errorf("%w: %d of %d indices", domain.ErrAllIndicesFailed, len(failed), len(kinds))
	}

	ranked := FuseResults(results)
	page := paginate(ranked, req.Offset, req.Size)

	resp := &domain.SearchResponse{
		Results:         page,
		TotalResults:    len(ranked),
		TookMS:          time.Since(start).Milliseconds(),
		FailedIndices:   failed,
		QueryProcessing: &processing,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
			s.logger.Warn("result cache write failed", "error", err)
		}
	}

	return resp, nil
}

// requestKey derives a stable cache key from the full request shape.
func requestKey(req domain.SearchRequest) string {
	raw, err := json.Marshal(req)
	if err != nil {
		return req.Query
	}
	sum := sha256.Sum256(raw)
	return "search:" + hex.EncodeToString(sum[:16])
}
