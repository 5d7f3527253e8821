package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven/mocks"
	"github.com/mediquery/mediquery-core/internal/enrichers"
)

func testClock() time.Time {
	return time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
}

func sampleSource() *mocks.MockCorpusSource {
	return &mocks.MockCorpusSource{
		PatientRows: []domain.RawPatient{
			{SubjectID: "100", Gender: "F", BirthDate: "1970-06-15"},
			{SubjectID: "101", Gender: "M", BirthDate: "1955-02-01"},
		},
		AdmissionRows: []domain.RawAdmission{
			{AdmissionID: "a1", SubjectID: "100", Diagnosis: "Hypertension"},
		},
		NoteRows: []domain.RawNote{
			{
				NoteID: "n1", SubjectID: "100", Category: "Progress Note",
				Title: "Day 1", Content: "Stable on metformin.",
				Author: "Dr. Osei", Department: "Medicine",
			},
			{
				// Missing author; skipped during enrichment.
				NoteID: "n2", SubjectID: "100", Category: "Progress Note",
				Title: "Day 2", Content: "Still stable.", Department: "Medicine",
			},
		},
		LabEventRows: []domain.RawLabEvent{
			{LabID: "l1", SubjectID: "100", ItemID: "50931", Value: "85", ValueNum: "85"},
		},
		LabItemRows: map[int]domain.RawLabItem{
			50931: {ItemID: 50931, Label: "Glucose", Category: "Chemistry"},
		},
		PrescriptionRows: []domain.RawPrescription{
			{PrescriptionID: "rx1", SubjectID: "100", DrugName: "Warfarin", Dosage: "5mg", Frequency: "once daily", Status: "active"},
			{PrescriptionID: "rx2", SubjectID: "100", DrugName: "Aspirin", Dosage: "81mg", Frequency: "once daily", Status: "active"},
		},
	}
}

func newTestOrchestrator(source *mocks.MockCorpusSource, index *mocks.MockSearchIndex, state *mocks.MockIngestStateStore) *IngestOrchestrator {
	cfg := IngestConfig{
		Source:   source,
		Enricher: enrichers.New(enrichers.Config{Now: testClock}),
		Indexer:  NewBatchIndexer(IndexerConfig{Index: index, BatchSize: 100}),
		Now:      testClock,
	}
	// Assign only a non-nil pointer: a nil *MockIngestStateStore wrapped
	// in the interface would defeat the orchestrator's nil-state guard.
	if state != nil {
		cfg.State = state
	}
	return NewIngestOrchestrator(cfg)
}

func TestIngestRunFull(t *testing.T) {
	index := mocks.NewMockSearchIndex()
	state := mocks.NewMockIngestStateStore()
	orch := newTestOrchestrator(sampleSource(), index, state)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.IngestCompleted, run.Status)
	require.NotNil(t, run.CompletedAt)

	assert.Equal(t, 2, run.Stats[domain.KindPatient].Succeeded)
	assert.Equal(t, 1, run.Stats[domain.KindClinicalNote].Succeeded)
	assert.Equal(t, 1, run.Stats[domain.KindClinicalNote].Skipped)
	assert.Equal(t, 1, run.Stats[domain.KindLabResult].Succeeded)
	assert.Equal(t, 2, run.Stats[domain.KindMedication].Succeeded)

	assert.Equal(t, 2, index.StoredCount("patients"))
	assert.Equal(t, 1, index.StoredCount("clinical-notes"))
	assert.Equal(t, 1, index.StoredCount("lab-results"))
	assert.Equal(t, 2, index.StoredCount("medications"))

	saved, err := state.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, run.ID, saved.ID)
	assert.Equal(t, domain.IngestCompleted, saved.Status)
}

func TestIngestRunIdempotent(t *testing.T) {
	index := mocks.NewMockSearchIndex()
	orch := newTestOrchestrator(sampleSource(), index, nil)

	_, err := orch.Run(context.Background())
	require.NoError(t, err)
	_, err = orch.Run(context.Background())
	require.NoError(t, err)

	// Natural keys overwrite; counts stay flat across runs.
	assert.Equal(t, 2, index.StoredCount("patients"))
	assert.Equal(t, 1, index.StoredCount("clinical-notes"))
	assert.Equal(t, 2, index.StoredCount("medications"))
}

func TestIngestKindFailureIsolation(t *testing.T) {
	source := sampleSource()
	source.PrescriptionsErr = errors.New("prescriptions.csv unreadable")

	index := mocks.NewMockSearchIndex()
	orch := newTestOrchestrator(source, index, nil)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	// The medication pipeline failed; the other kinds still indexed.
	assert.Equal(t, domain.IngestFailed, run.Status)
	assert.Contains(t, run.Error, "medication")
	assert.Equal(t, 2, index.StoredCount("patients"))
	assert.Equal(t, 1, index.StoredCount("clinical-notes"))
	assert.Equal(t, 1, index.StoredCount("lab-results"))
	assert.Equal(t, 0, index.StoredCount("medications"))
}

func TestIngestSharedTableFailureAbortsRun(t *testing.T) {
	source := sampleSource()
	source.AdmissionsErr = errors.New("admissions.csv unreadable")

	orch := newTestOrchestrator(source, mocks.NewMockSearchIndex(), nil)
	run, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.IngestFailed, run.Status)
}

func TestIngestMedicationInteractionsIndexed(t *testing.T) {
	index := mocks.NewMockSearchIndex()
	orch := newTestOrchestrator(sampleSource(), index, nil)

	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	stored := index.Docs["medications"]["medication_rx1"]
	doc, ok := stored.Body.(*domain.MedicationDocument)
	require.True(t, ok)
	require.Len(t, doc.Interactions, 1)
	assert.Equal(t, "Aspirin", doc.Interactions[0].WithDrug)
	assert.Equal(t, domain.InteractionMajor, doc.Interactions[0].Severity)
}
