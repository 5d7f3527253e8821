package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
	"github.com/mediquery/mediquery-core/internal/core/ports/driving"
	"github.com/mediquery/mediquery-core/internal/enrichers"
)

// Ensure IngestOrchestrator implements IngestService
var _ driving.IngestService = (*IngestOrchestrator)(nil)

// IngestOrchestrator runs the full ingestion pipeline. The four
// document kinds are processed concurrently and fail independently: a
// halted medication pipeline never blocks notes from indexing. Each run
// is recorded in the ingest-run ledger.
type IngestOrchestrator struct {
	source   driven.CorpusSource
	enricher *enrichers.Enricher
	indexer  *BatchIndexer
	state    driven.IngestStateStore
	logger   *slog.Logger
	now      func() time.Time
}

// IngestConfig holds the orchestrator collaborators. State is optional;
// without it runs are not persisted.
type IngestConfig struct {
	Source   driven.CorpusSource
	Enricher *enrichers.Enricher
	Indexer  *BatchIndexer
	State    driven.IngestStateStore
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewIngestOrchestrator creates the ingestion coordinator.
func NewIngestOrchestrator(cfg IngestConfig) *IngestOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &IngestOrchestrator{
		source:   cfg.Source,
		enricher: cfg.Enricher,
		indexer:  cfg.Indexer,
		state:    cfg.State,
		logger:   logger,
		now:      now,
	}
}

// Run executes one full ingestion run. Re-running over the same corpus
// is idempotent: document ids are natural keys, so re-indexing replaces
// rather than duplicates.
func (o *IngestOrchestrator) Run(ctx context.Context) (*domain.IngestRun, error) {
	run := &domain.IngestRun{
		ID:        uuid.New().String(),
		StartedAt: o.now(),
		Status:    domain.IngestRunning,
		Stats:     make(map[domain.DocumentKind]domain.KindStats),
	}
	o.saveRun(ctx, run)
	o.logger.Info("ingestion run started", "run_id", run.ID)

	// Shared reference tables load up front; every kind pipeline may
	// need them.
	admissions, err := o.source.Admissions(ctx)
	if err != nil {
		return o.failRun(ctx, run, fmt.Errorf("reading admissions: %w", err))
	}
	labItems, err := o.source.LabItems(ctx)
	if err != nil {
		return o.failRun(ctx, run, fmt.Errorf("reading lab items: %w", err))
	}

	type kindOutcome struct {
		kind  domain.DocumentKind
		stats domain.KindStats
		err   error
	}
	outcomes := make(chan kindOutcome, len(domain.AllKinds()))

	var wg sync.WaitGroup
	runKind := func(kind domain.DocumentKind, fn func(context.Context) (domain.KindStats, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats, err := fn(ctx)
			outcomes <- kindOutcome{kind: kind, stats: stats, err: err}
		}()
	}

	runKind(domain.KindPatient, func(ctx context.Context) (domain.KindStats, error) {
		return o.ingestPatients(ctx, admissions)
	})
	runKind(domain.KindClinicalNote, o.ingestNotes)
	runKind(domain.KindLabResult, func(ctx context.Context) (domain.KindStats, error) {
		return o.ingestLabResults(ctx, labItems)
	})
	runKind(domain.KindMedication, o.ingestMedications)

	wg.Wait()
	close(outcomes)

	var failures []string
	for out := range outcomes {
		run.Stats[out.kind] = out.stats
		if out.err != nil {
			o.logger.Error("kind pipeline failed", "run_id", run.ID, "kind", out.kind, "error", out.err)
			failures = append(failures, fmt.Sprintf("%s: %v", out.kind, out.err))
		} else {
			o.logger.Info("kind pipeline completed",
				"run_id", run.ID,
				"kind", out.kind,
				"succeeded", out.stats.Succeeded,
				"failed", out.stats.Failed,
				"skipped", out.stats.Skipped,
			)
		}
	}

	completed := o.now()
	run.CompletedAt = &completed
	if len(failures) > 0 {
		sort.Strings(failures)
		run.Status = domain.IngestFailed
		run.Error = strings.Join(failures, "; ")
	} else {
		run.Status = domain.IngestCompleted
	}
	o.saveRun(ctx, run)

	if skipped := o.source.SkippedRows(); skipped > 0 {
		o.logger.Warn("malformed source rows skipped", "run_id", run.ID, "rows", skipped)
	}
	o.logger.Info("ingestion run finished", "run_id", run.ID, "status", run.Status)
	return run, nil
}

func (o *IngestOrchestrator) ingestPatients(ctx context.Context, admissions []domain.RawAdmission) (domain.KindStats, error) {
	patients, err := o.source.Patients(ctx)
	if err != nil {
		return domain.KindStats{}, fmt.Errorf("reading patients: %w", err)
	}

	docs := make([]domain.Document, 0, len(patients))
	for _, p := range patients {
		docs = append(docs, o.enricher.EnrichPatient(p, admissions))
	}
	return o.indexer.IndexAll(ctx, domain.KindPatient, docs)
}

func (o *IngestOrchestrator) ingestNotes(ctx context.Context) (domain.KindStats, error) {
	var stats domain.KindStats
	buf := newDocBuffer(o.indexer, domain.KindClinicalNote, &stats)

	err := o.source.Notes(ctx, func(raw domain.RawNote) error {
		doc, err := o.enricher.EnrichClinicalNote(raw)
		if err != nil {
			o.logger.Warn("skipping invalid note", "note_id", raw.NoteID, "error", err)
			stats.Skipped++
			return nil
		}
		return buf.add(ctx, doc)
	})
	if err != nil {
		return stats, fmt.Errorf("reading notes: %w", err)
	}
	if err := buf.flush(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

func (o *IngestOrchestrator) ingestLabResults(ctx context.Context, items map[int]domain.RawLabItem) (domain.KindStats, error) {
	var stats domain.KindStats
	buf := newDocBuffer(o.indexer, domain.KindLabResult, &stats)

	err := o.source.LabEvents(ctx, func(raw domain.RawLabEvent) error {
		return buf.add(ctx, o.enricher.EnrichLabResult(raw, items))
	})
	if err != nil {
		return stats, fmt.Errorf("reading lab events: %w", err)
	}
	if err := buf.flush(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

func (o *IngestOrchestrator) ingestMedications(ctx context.Context) (domain.KindStats, error) {
	prescriptions, err := o.source.Prescriptions(ctx)
	if err != nil {
		return domain.KindStats{}, fmt.Errorf("reading prescriptions: %w", err)
	}

	// Interaction checks need the full prescription set per patient.
	byPatient := make(map[string][]domain.RawPrescription)
	for _, rx := range prescriptions {
		byPatient[rx.SubjectID] = append(byPatient[rx.SubjectID], rx)
	}

	docs := make([]domain.Document, 0, len(prescriptions))
	for _, rx := range prescriptions {
		docs = append(docs, o.enricher.EnrichMedication(rx, byPatient[rx.SubjectID]))
	}
	return o.indexer.IndexAll(ctx, domain.KindMedication, docs)
}

func (o *IngestOrchestrator) failRun(ctx context.Context, run *domain.IngestRun, err error) (*domain.IngestRun, error) {
	completed := o.now()
	run.CompletedAt = &completed
	run.Status = domain.IngestFailed
	run.Error = err.Error()
	o.saveRun(ctx, run)
	return run, err
}

// saveRun persists the ledger record. Ledger failures are logged, not
// fatal: losing the record must not abort indexing.
func (o *IngestOrchestrator) saveRun(ctx context.Context, run *domain.IngestRun) {
	if o.state == nil {
		return
	}
	if err := o.state.Save(ctx, run); err != nil {
		o.logger.Warn("saving ingest run failed", "run_id", run.ID, "error", err)
	}
}

// docBuffer accumulates streamed documents and flushes them through the
// indexer in indexer-sized chunks, keeping streamed tables memory-bounded.
type docBuffer struct {
	indexer *BatchIndexer
	kind    domain.DocumentKind
	stats   *domain.KindStats
	docs    []domain.Document
}

func newDocBuffer(indexer *BatchIndexer, kind domain.DocumentKind, stats *domain.KindStats) *docBuffer {
	return &docBuffer{indexer: indexer, kind: kind, stats: stats}
}

func (b *docBuffer) add(ctx context.Context, doc domain.Document) error {
	b.docs = append(b.docs, doc)
	if len(b.docs) >= b.indexer.batchSize {
		return b.flush(ctx)
	}
	return nil
}

func (b *docBuffer) flush(ctx context.Context) error {
	if len(b.docs) == 0 {
		return nil
	}
	stats, err := b.indexer.IndexAll(ctx, b.kind, b.docs)
	b.stats.Add(stats)
	b.docs = b.docs[:0]
	return err
}
