package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// MockResultCache keeps responses in memory without TTL expiry.
type MockResultCache struct {
	mu      sync.RWMutex
	entries map[string]*domain.SearchResponse

	GetErr error
	SetErr error

	// Hits and Sets count cache operations.
	Hits int
	Sets int
}

// NewMockResultCache creates an empty cache.
func NewMockResultCache() *MockResultCache {
	return &MockResultCache{entries: make(map[string]*domain.SearchResponse)}
}

func (m *MockResultCache) Get(_ context.Context, key string) (*domain.SearchResponse, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	resp, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	m.Hits++
	return resp, nil
}

func (m *MockResultCache) Set(_ context.Context, key string, resp *domain.SearchResponse, _ time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = resp
	m.Sets++
	return nil
}
