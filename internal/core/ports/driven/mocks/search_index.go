package mocks

import (
	"context"
	"sync"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
)

// MockSearchIndex is an in-memory SearchIndex for testing. Scripted
// hit lists and failures are keyed by index name; bulk upserts are
// recorded for inspection.
type MockSearchIndex struct {
	mu sync.RWMutex

	// Stored documents keyed by index then id.
	Docs map[string]map[string]driven.BulkDoc

	// LexicalResults and SemanticResults script the per-index hit lists.
	LexicalResults  map[string][]domain.Hit
	SemanticResults map[string][]domain.Hit

	// FailLexical and FailSemantic script per-index search errors.
	FailLexical  map[string]error
	FailSemantic map[string]error

	// BulkErr fails every BulkUpsert call. BulkErrCount limits how many
	// calls fail before succeeding, for retry tests; -1 means always.
	BulkErr      error
	BulkErrCount int

	// RejectIDs marks document ids as item-level bulk failures.
	RejectIDs map[string]string

	// SlowIndices marks indices whose searches block until the context
	// is done, then return its error.
	SlowIndices map[string]bool

	// BulkCalls counts BulkUpsert invocations.
	BulkCalls int

	EnsureCalled bool
	HealthErr    error
}

// NewMockSearchIndex creates an empty mock index.
func NewMockSearchIndex() *MockSearchIndex {
	return &MockSearchIndex{
		Docs:            make(map[string]map[string]driven.BulkDoc),
		LexicalResults:  make(map[string][]domain.Hit),
		SemanticResults: make(map[string][]domain.Hit),
		FailLexical:     make(map[string]error),
		FailSemantic:    make(map[string]error),
		RejectIDs:       make(map[string]string),
		SlowIndices:     make(map[string]bool),
		BulkErrCount:    -1,
	}
}

func (m *MockSearchIndex) EnsureIndices(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureCalled = true
	return nil
}

func (m *MockSearchIndex) BulkUpsert(_ context.Context, index string, docs []driven.BulkDoc) (*driven.BulkOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.BulkCalls++
	if m.BulkErr != nil && (m.BulkErrCount < 0 || m.BulkCalls <= m.BulkErrCount) {
		return nil, m.BulkErr
	}

	if m.Docs[index] == nil {
		m.Docs[index] = make(map[string]driven.BulkDoc)
	}
	outcome := &driven.BulkOutcome{}
	for _, doc := range docs {
		if reason, rejected := m.RejectIDs[doc.ID]; rejected {
			outcome.Failed = append(outcome.Failed, domain.BatchFailure{ID: doc.ID, Reason: reason})
			continue
		}
		m.Docs[index][doc.ID] = doc
		outcome.Succeeded++
	}
	return outcome, nil
}

func (m *MockSearchIndex) SearchLexical(ctx context.Context, index string, _ domain.LexicalSpec) ([]domain.Hit, error) {
	if m.slow(index) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.FailLexical[index]; err != nil {
		return nil, err
	}
	return m.LexicalResults[index], nil
}

func (m *MockSearchIndex) SearchSemantic(ctx context.Context, index string, _ domain.SemanticSpec) ([]domain.Hit, error) {
	if m.slow(index) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.FailSemantic[index]; err != nil {
		return nil, err
	}
	return m.SemanticResults[index], nil
}

func (m *MockSearchIndex) slow(index string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.SlowIndices[index]
}

func (m *MockSearchIndex) HealthCheck(_ context.Context) error {
	return m.HealthErr
}

// StoredCount returns how many documents one index holds.
func (m *MockSearchIndex) StoredCount(index string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Docs[index])
}
