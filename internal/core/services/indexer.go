package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
)

// Batch indexing defaults. Batches stay bounded so a single oversized
// submission cannot stall the storage engine.
const (
	defaultBatchSize   = 500
	defaultMaxRetries  = 3
	defaultBackoffBase = 500 * time.Millisecond
)

// BatchIndexer submits enriched documents to the storage engine in
// bounded batches. Invalid documents are excluded and reported by id;
// transport failures retry with exponential backoff before the batch is
// declared failed.
type BatchIndexer struct {
	index       driven.SearchIndex
	limiter     *rate.Limiter
	batchSize   int
	maxRetries  int
	backoffBase time.Duration
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// IndexerConfig holds BatchIndexer settings. Zero values take defaults.
type IndexerConfig struct {
	Index       driven.SearchIndex
	BatchSize   int
	MaxRetries  int
	BackoffBase time.Duration

	// BulkPerSecond throttles bulk submissions toward the engine.
	// Zero disables throttling.
	BulkPerSecond float64

	Logger *slog.Logger
}

// NewBatchIndexer creates the batch indexing coordinator.
func NewBatchIndexer(cfg IndexerConfig) *BatchIndexer {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := cfg.BackoffBase
	if backoff <= 0 {
		backoff = defaultBackoffBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.BulkPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.BulkPerSecond), 1)
	}

	return &BatchIndexer{
		index:       cfg.Index,
		limiter:     limiter,
		batchSize:   batchSize,
		maxRetries:  maxRetries,
		backoffBase: backoff,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

// IndexAll validates and submits documents of one kind in bounded
// batches. A batch transport failure after retries halts this kind and
// returns the accumulated stats with the error.
func (b *BatchIndexer) IndexAll(ctx context.Context, kind domain.DocumentKind, docs []domain.Document) (domain.KindStats, error) {
	var stats domain.KindStats

	valid := make([]driven.BulkDoc, 0, b.batchSize)
	flush := func() error {
		if len(valid) == 0 {
			return nil
		}
		result, err := b.submitBatch(ctx, kind, valid)
		valid = valid[:0]
		if err != nil {
			return err
		}
		stats.Succeeded += result.Succeeded
		stats.Failed += len(result.Failed)
		for _, f := range result.Failed {
			b.logger.Warn("document rejected by engine", "kind", kind, "id", f.ID, "reason", f.Reason)
		}
		return nil
	}

	for _, doc := range docs {
		if err := doc.Validate(); err != nil {
			b.logger.Warn("excluding invalid document", "kind", kind, "id", doc.DocumentID(), "error", err)
			stats.Skipped++
			continue
		}
		valid = append(valid, driven.BulkDoc{ID: doc.DocumentID(), Body: doc})
		if len(valid) >= b.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	return stats, nil
}

// submitBatch runs one bulk call with retry and exponential backoff on
// transport errors. Item-level failures are final; only whole-call
// failures retry.
func (b *BatchIndexer) submitBatch(ctx context.Context, kind domain.DocumentKind, docs []driven.BulkDoc) (*domain.BatchResult, error) {
	index := kind.Index()

	var lastErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := b.backoffBase * time.Duration(1<<(attempt-1))
			b.logger.Warn("retrying batch",
				"kind", kind,
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr,
			)
			if err := b.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		outcome, err := b.index.BulkUpsert(ctx, index, docs)
		if err != nil {
			lastErr = err
			continue
		}
		return &domain.BatchResult{
			Kind:      kind,
			Succeeded: outcome.Succeeded,
			Failed:    outcome.Failed,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s after %d retries: %v", domain.ErrBatchTransport, index, b.maxRetries, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
