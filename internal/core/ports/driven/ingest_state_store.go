package driven

import (
	"context"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// IngestStateStore persists the ingest-run ledger.
type IngestStateStore interface {
	// Save upserts a run record.
	Save(ctx context.Context, run *domain.IngestRun) error

	// Get retrieves a run by id.
	Get(ctx context.Context, id string) (*domain.IngestRun, error)

	// Latest retrieves the most recently started run.
	Latest(ctx context.Context) (*domain.IngestRun, error)
}
