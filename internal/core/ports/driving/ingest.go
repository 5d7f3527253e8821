package driving

import (
	"context"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// IngestService runs the corpus ingestion pipeline: extract raw rows,
// enrich them into canonical documents, and index them in bounded
// batches. Document kinds are processed independently; a batch failure
// halts only that kind's pipeline.
type IngestService interface {
	// Run executes a full ingestion run and returns its ledger record.
	Run(ctx context.Context) (*domain.IngestRun, error)
}
