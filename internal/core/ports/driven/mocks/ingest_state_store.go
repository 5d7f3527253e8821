package mocks

import (
	"context"
	"sync"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// MockIngestStateStore keeps ingest runs in memory.
type MockIngestStateStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.IngestRun

	// Order remembers first-save order so Latest is deterministic.
	order []string

	SaveErr error
}

// NewMockIngestStateStore creates an empty store.
func NewMockIngestStateStore() *MockIngestStateStore {
	return &MockIngestStateStore{runs: make(map[string]*domain.IngestRun)}
}

func (m *MockIngestStateStore) Save(_ context.Context, run *domain.IngestRun) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.runs[run.ID]; !exists {
		m.order = append(m.order, run.ID)
	}
	copied := *run
	m.runs[run.ID] = &copied
	return nil
}

func (m *MockIngestStateStore) Get(_ context.Context, id string) (*domain.IngestRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *run
	return &copied, nil
}

func (m *MockIngestStateStore) Latest(_ context.Context) (*domain.IngestRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.order) == 0 {
		return nil, domain.ErrNotFound
	}
	copied := *m.runs[m.order[len(m.order)-1]]
	return &copied, nil
}
