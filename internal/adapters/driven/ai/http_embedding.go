// Package ai holds clients for external model services.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
)

// Ensure HTTPEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*HTTPEmbedding)(nil)

// HTTPEmbedding implements EmbeddingService against a sentence-encoder
// model service. The service hosts an all-MiniLM-style model producing
// 384-dimensional vectors, matching the dense_vector mapping.
type HTTPEmbedding struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewHTTPEmbedding creates an embedding client for the model service.
func NewHTTPEmbedding(baseURL, model string) (*HTTPEmbedding, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("embedding service URL is required")
	}
	if model == "" {
		model = "all-MiniLM-L6-v2"
	}
	return &HTTPEmbedding{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// embedRequest is the request body for the model service.
type embedRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// embedResponse is the model service reply.
type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// EmbedQuery generates an embedding for a search query.
func (e *HTTPEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: query, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var embResp embedResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if embResp.Error != "" {
		return nil, fmt.Errorf("embedding service error: %s", embResp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}
	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	return embResp.Embedding, nil
}

// HealthCheck verifies the model service is available.
func (e *HTTPEmbedding) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("embedding health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding service unhealthy: %s", resp.Status)
	}
	return nil
}

// Close releases resources held by the client.
func (e *HTTPEmbedding) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
