package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IngestStateStore = (*IngestStateStore)(nil)

// IngestStateStore persists the ingest-run ledger in Postgres.
type IngestStateStore struct {
	db *DB
}

// NewIngestStateStore creates a Postgres-backed ledger.
func NewIngestStateStore(db *DB) *IngestStateStore {
	return &IngestStateStore{db: db}
}

// Save upserts a run record.
func (s *IngestStateStore) Save(ctx context.Context, run *domain.IngestRun) error {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshaling run stats: %w", err)
	}

	query := `
		INSERT INTO ingest_runs (id, started_at, completed_at, status, stats, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			completed_at = EXCLUDED.completed_at,
			status = EXCLUDED.status,
			stats = EXCLUDED.stats,
			error = EXCLUDED.error
	`
	_, err = s.db.ExecContext(ctx, query,
		run.ID, run.StartedAt, NullTime(run.CompletedAt),
		string(run.Status), stats, run.Error,
	)
	if err != nil {
		return fmt.Errorf("saving ingest run %s: %w", run.ID, err)
	}
	return nil
}

// Get retrieves a run by id.
func (s *IngestStateStore) Get(ctx context.Context, id string) (*domain.IngestRun, error) {
	query := `
		SELECT id, started_at, completed_at, status, stats, error
		FROM ingest_runs WHERE id = $1
	`
	return s.scanRun(s.db.QueryRowContext(ctx, query, id))
}

// Latest retrieves the most recently started run.
func (s *IngestStateStore) Latest(ctx context.Context) (*domain.IngestRun, error) {
	query := `
		SELECT id, started_at, completed_at, status, stats, error
		FROM ingest_runs ORDER BY started_at DESC LIMIT 1
	`
	return s.scanRun(s.db.QueryRowContext(ctx, query))
}

func (s *IngestStateStore) scanRun(row *sql.Row) (*domain.IngestRun, error) {
	var (
		run       domain.IngestRun
		completed sql.NullTime
		status    string
		stats     []byte
	)
	err := row.Scan(&run.ID, &run.StartedAt, &completed, &status, &stats, &run.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning ingest run: %w", err)
	}

	run.CompletedAt = TimePtr(completed)
	run.Status = domain.IngestRunStatus(status)
	if err := json.Unmarshal(stats, &run.Stats); err != nil {
		return nil, fmt.Errorf("unmarshaling run stats: %w", err)
	}
	return &run, nil
}
