package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPEmbeddingRequiresURL(t *testing.T) {
	_, err := NewHTTPEmbedding("", "")
	require.Error(t, err)
}

func TestEmbedQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "diabetes treatment", req.Text)
		assert.Equal(t, "all-MiniLM-L6-v2", req.Model)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer server.Close()

	svc, err := NewHTTPEmbedding(server.URL, "")
	require.NoError(t, err)
	defer svc.Close()

	vec, err := svc.EmbedQuery(context.Background(), "diabetes treatment")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedQueryServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer server.Close()

	svc, err := NewHTTPEmbedding(server.URL, "")
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestEmbedQueryEmptyEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding":[]}`))
	}))
	defer server.Close()

	svc, err := NewHTTPEmbedding(server.URL, "")
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "anything")
	require.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc, err := NewHTTPEmbedding(server.URL, "")
	require.NoError(t, err)
	assert.NoError(t, svc.HealthCheck(context.Background()))
}
