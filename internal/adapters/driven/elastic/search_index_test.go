package elastic

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *SearchIndex {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSearchIndex(DefaultConfig(server.URL))
}

func TestEnsureIndicesCreatesMissing(t *testing.T) {
	var created []string
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		index := strings.TrimPrefix(r.URL.Path, "/")
		switch r.Method {
		case http.MethodHead:
			// patients already exists, everything else is missing.
			if index == "patients" {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		case http.MethodPut:
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Contains(t, body, "mappings")
			created = append(created, index)
			w.WriteHeader(http.StatusOK)
		}
	})

	require.NoError(t, idx.EnsureIndices(context.Background()))
	assert.ElementsMatch(t, []string{"clinical-notes", "lab-results", "medications"}, created)
}

func TestBulkUpsertFormatsNDJSON(t *testing.T) {
	var lines []string
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_bulk", r.URL.Path)
		require.Equal(t, "application/x-ndjson", r.Header.Get("Content-Type"))

		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}

		resp := `{"errors":false,"items":[
			{"index":{"_id":"patient_1","status":201}},
			{"index":{"_id":"patient_2","status":201}}
		]}`
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(resp))
	})

	outcome, err := idx.BulkUpsert(context.Background(), "patients", []driven.BulkDoc{
		{ID: "patient_1", Body: map[string]string{"id": "patient_1"}},
		{ID: "patient_2", Body: map[string]string{"id": "patient_2"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Succeeded)
	assert.Empty(t, outcome.Failed)

	// Alternating action and document lines.
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"_index":"patients"`)
	assert.Contains(t, lines[0], `"_id":"patient_1"`)
	assert.Contains(t, lines[1], `"id":"patient_1"`)
}

func TestBulkUpsertReportsItemFailures(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, _ *http.Request) {
		resp := `{"errors":true,"items":[
			{"index":{"_id":"a","status":201}},
			{"index":{"_id":"b","status":400,"error":{"type":"mapper_parsing_exception","reason":"failed to parse"}}}
		]}`
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(resp))
	})

	outcome, err := idx.BulkUpsert(context.Background(), "patients", []driven.BulkDoc{
		{ID: "a", Body: map[string]string{}},
		{ID: "b", Body: map[string]string{}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Succeeded)
	require.Len(t, outcome.Failed, 1)
	assert.Equal(t, "b", outcome.Failed[0].ID)
	assert.Equal(t, "failed to parse", outcome.Failed[0].Reason)
}

func TestBulkUpsertTransportError(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := idx.BulkUpsert(context.Background(), "patients", []driven.BulkDoc{
		{ID: "a", Body: map[string]string{}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBatchTransport)
}

func TestSearchLexicalBuildsQueryAndParsesHits(t *testing.T) {
	var captured map[string]any
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/clinical-notes/_search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		resp := `{"hits":{"hits":[
			{"_id":"note_1","_score":7.2,"_source":{"id":"note_1"},"highlight":{"content":["<em>sepsis</em> suspected"]}},
			{"_id":"note_2","_score":4.1,"_source":{"id":"note_2"}}
		]}}`
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(resp))
	})

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	hits, err := idx.SearchLexical(context.Background(), "clinical-notes", domain.LexicalSpec{
		Query:       "sepsis",
		Fields:      []domain.BoostedField{{Name: "title", Boost: 3}, {Name: "content", Boost: 1}},
		EntityTerms: []string{"sepsis"},
		Filters: domain.SearchFilters{
			Departments: []string{"ICU"},
			DateRange:   &domain.DateRange{From: &from},
		},
		Size: 10,
	})
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "note_1", hits[0].ID)
	assert.Equal(t, 7.2, hits[0].Score)
	assert.Equal(t, []string{"<em>sepsis</em> suspected"}, hits[0].Highlights)

	boolQuery := captured["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQuery["must"].([]any)
	multiMatch := must[0].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "sepsis", multiMatch["query"])
	assert.Contains(t, multiMatch["fields"], "title^3")

	require.Contains(t, boolQuery, "should")
	require.Contains(t, boolQuery, "filter")
	assert.Len(t, boolQuery["filter"].([]any), 2)
}

func TestSearchSemanticBuildsKNN(t *testing.T) {
	var captured map[string]any
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"m1","_score":0.9}]}}`))
	})

	hits, err := idx.SearchSemantic(context.Background(), "medications", domain.SemanticSpec{
		Vector: []float32{0.1, 0.2},
		K:      5,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	knn := captured["knn"].(map[string]any)
	assert.Equal(t, "embedding", knn["field"])
	assert.Equal(t, float64(5), knn["k"])
	assert.Equal(t, float64(25), knn["num_candidates"])
}

func TestSearchIndexUnavailable(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := idx.SearchLexical(context.Background(), "patients", domain.LexicalSpec{Query: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestHealthCheck(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_cluster/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, idx.HealthCheck(context.Background()))

	down := newTestIndex(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.Error(t, down.HealthCheck(context.Background()))
}
