package mocks

import (
	"context"
	"sync"
)

// MockEmbeddingService returns a fixed-size deterministic vector derived
// from the query text length, or a scripted error.
type MockEmbeddingService struct {
	mu sync.Mutex

	Dims      int
	EmbedErr  error
	HealthErr error

	// Queries records every embedded query in order.
	Queries []string

	Closed bool
}

// NewMockEmbeddingService creates a mock with the given vector size.
func NewMockEmbeddingService(dims int) *MockEmbeddingService {
	if dims <= 0 {
		dims = 8
	}
	return &MockEmbeddingService{Dims: dims}
}

func (m *MockEmbeddingService) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EmbedErr != nil {
		return nil, m.EmbedErr
	}
	m.Queries = append(m.Queries, text)
	vec := make([]float32, m.Dims)
	for i := range vec {
		vec[i] = float32(len(text)%7) / 7.0
	}
	return vec, nil
}

func (m *MockEmbeddingService) HealthCheck(_ context.Context) error {
	return m.HealthErr
}

func (m *MockEmbeddingService) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
