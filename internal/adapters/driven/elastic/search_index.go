// Package elastic implements the SearchIndex port against an
// Elasticsearch cluster over its HTTP API.
package elastic

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SearchIndex = (*SearchIndex)(nil)

//go:embed mappings/*.json
var mappingFS embed.FS

// SearchIndex implements driven.SearchIndex using Elasticsearch.
type SearchIndex struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds Elasticsearch connection configuration.
type Config struct {
	// BaseURL is the cluster endpoint (e.g., http://localhost:9200)
	BaseURL string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// NewSearchIndex creates an Elasticsearch-backed SearchIndex.
func NewSearchIndex(cfg Config) *SearchIndex {
	return &SearchIndex{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// EnsureIndices creates every document-kind index with its embedded
// mapping. Already-existing indices are left untouched.
func (s *SearchIndex) EnsureIndices(ctx context.Context) error {
	for _, kind := range domain.AllKinds() {
		index := kind.Index()
		exists, err := s.indexExists(ctx, index)
		if err != nil {
			return fmt.Errorf("checking index %s: %w", index, err)
		}
		if exists {
			continue
		}

		body, err := mappingFS.ReadFile("mappings/" + index + ".json")
		if err != nil {
			return fmt.Errorf("loading mapping for %s: %w", index, err)
		}
		if err := s.createIndex(ctx, index, body); err != nil {
			return fmt.Errorf("creating index %s: %w", index, err)
		}
	}
	return nil
}

func (s *SearchIndex) indexExists(ctx context.Context, index string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.baseURL+"/"+index, nil)
	if err != nil {
		return false, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (s *SearchIndex) createIndex(ctx context.Context, index string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+"/"+index, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		// Racing creators are fine; the index is there either way.
		if strings.Contains(string(respBody), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("elasticsearch create index failed: %s - %s", resp.Status, string(respBody))
	}
	return nil
}

// BulkUpsert writes one batch through the _bulk API using index
// actions, so resubmitting an id replaces the stored document.
func (s *SearchIndex) BulkUpsert(ctx context.Context, index string, docs []driven.BulkDoc) (*driven.BulkOutcome, error) {
	if len(docs) == 0 {
		return &driven.BulkOutcome{}, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		action := map[string]map[string]string{
			"index": {"_index": index, "_id": doc.ID},
		}
		if err := enc.Encode(action); err != nil {
			return nil, err
		}
		if err := enc.Encode(doc.Body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/_bulk", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBatchTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s - %s", domain.ErrBatchTransport, resp.Status, string(respBody))
	}

	var bulkResp bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&bulkResp); err != nil {
		return nil, err
	}

	outcome := &driven.BulkOutcome{}
	for _, item := range bulkResp.Items {
		result := item["index"]
		if result.Error != nil {
			outcome.Failed = append(outcome.Failed, domain.BatchFailure{
				ID:     result.ID,
				Reason: result.Error.Reason,
			})
			continue
		}
		outcome.Succeeded++
	}
	return outcome, nil
}

// SearchLexical runs the keyword plan: a boosted multi_match over the
// query text, boosted should-clauses for recognized entity terms, and
// the request filters as hard constraints.
func (s *SearchIndex) SearchLexical(ctx context.Context, index string, spec domain.LexicalSpec) ([]domain.Hit, error) {
	boolQuery := map[string]any{}

	if spec.Query != "" {
		fields := make([]string, 0, len(spec.Fields))
		for _, f := range spec.Fields {
			fields = append(fields, fmt.Sprintf("%s^%g", f.Name, f.Boost))
		}
		boolQuery["must"] = []any{
			map[string]any{
				"multi_match": map[string]any{
					"query":   spec.Query,
					"fields":  fields,
					"lenient": true,
				},
			},
		}
	}

	if len(spec.EntityTerms) > 0 {
		should := make([]any, 0, len(spec.EntityTerms))
		for _, term := range spec.EntityTerms {
			should = append(should, map[string]any{
				"match": map[string]any{
					"searchable_text": map[string]any{
						"query": term,
						"boost": 2.0,
					},
				},
			})
		}
		boolQuery["should"] = should
	}

	if filters := filterClauses(spec.Filters); len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if len(boolQuery) == 0 {
		boolQuery["must"] = []any{map[string]any{"match_all": map[string]any{}}}
	}

	size := spec.Size
	if size <= 0 {
		size = 20
	}

	body := map[string]any{
		"size":  size,
		"query": map[string]any{"bool": boolQuery},
		"highlight": map[string]any{
			"fields": map[string]any{
				"content":         map[string]any{},
				"searchable_text": map[string]any{},
			},
		},
	}

	return s.search(ctx, index, body, true)
}

// SearchSemantic runs the nearest-neighbor plan over the embedding
// field, with the same filters as the lexical leg.
func (s *SearchIndex) SearchSemantic(ctx context.Context, index string, spec domain.SemanticSpec) ([]domain.Hit, error) {
	k := spec.K
	if k <= 0 {
		k = 20
	}

	knn := map[string]any{
		"field":          "embedding",
		"query_vector":   spec.Vector,
		"k":              k,
		"num_candidates": k * 5,
	}
	if filters := filterClauses(spec.Filters); len(filters) > 0 {
		knn["filter"] = map[string]any{
			"bool": map[string]any{"filter": filters},
		}
	}

	body := map[string]any{
		"size": k,
		"knn":  knn,
	}

	return s.search(ctx, index, body, false)
}

func (s *SearchIndex) search(ctx context.Context, index string, body map[string]any, withHighlights bool) ([]domain.Hit, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+index+"/_search", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIndexUnavailable, index, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s: %s - %s", domain.ErrIndexUnavailable, index, resp.Status, string(respBody))
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, err
	}

	hits := make([]domain.Hit, 0, len(searchResp.Hits.Hits))
	for _, h := range searchResp.Hits.Hits {
		hit := domain.Hit{
			ID:     h.ID,
			Score:  h.Score,
			Source: h.Source,
		}
		if withHighlights {
			for _, fragments := range h.Highlight {
				hit.Highlights = append(hit.Highlights, fragments...)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// filterClauses translates the request filters into filter-context
// clauses. Clauses on fields an index does not map simply match nothing
// there.
func filterClauses(f domain.SearchFilters) []any {
	var clauses []any

	if f.DateRange != nil && (f.DateRange.From != nil || f.DateRange.To != nil) {
		rng := map[string]any{}
		if f.DateRange.From != nil {
			rng["gte"] = f.DateRange.From.Format(time.RFC3339)
		}
		if f.DateRange.To != nil {
			rng["lte"] = f.DateRange.To.Format(time.RFC3339)
		}
		clauses = append(clauses, map[string]any{
			"range": map[string]any{"timestamp": rng},
		})
	}

	if len(f.Departments) > 0 {
		clauses = append(clauses, map[string]any{
			"terms": map[string]any{"department": f.Departments},
		})
	}

	if len(f.Priorities) > 0 {
		clauses = append(clauses, map[string]any{
			"terms": map[string]any{"severity": f.Priorities},
		})
	}

	if f.AgeRange != nil && (f.AgeRange.Min != nil || f.AgeRange.Max != nil) {
		rng := map[string]any{}
		if f.AgeRange.Min != nil {
			rng["gte"] = *f.AgeRange.Min
		}
		if f.AgeRange.Max != nil {
			rng["lte"] = *f.AgeRange.Max
		}
		clauses = append(clauses, map[string]any{
			"range": map[string]any{"age": rng},
		})
	}

	if f.Gender != "" {
		clauses = append(clauses, map[string]any{
			"term": map[string]any{"gender": f.Gender},
		})
	}

	return clauses
}

// HealthCheck verifies the cluster answers its health endpoint.
func (s *SearchIndex) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/_cluster/health", nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elasticsearch health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("elasticsearch unhealthy: %s", resp.Status)
	}
	return nil
}

// bulkResponse is the subset of the _bulk reply we consume.
type bulkResponse struct {
	Errors bool                      `json:"errors"`
	Items  []map[string]bulkItemInfo `json:"items"`
}

type bulkItemInfo struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

// searchResponse is the subset of the _search reply we consume.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID        string              `json:"_id"`
			Score     float64             `json:"_score"`
			Source    json.RawMessage     `json:"_source"`
			Highlight map[string][]string `json:"highlight,omitempty"`
		} `json:"hits"`
	} `json:"hits"`
}
