package mocks

import (
	"context"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// MockCorpusSource serves fixed in-memory tables. Per-table errors can
// be scripted to exercise pipeline failure isolation.
type MockCorpusSource struct {
	PatientRows      []domain.RawPatient
	AdmissionRows    []domain.RawAdmission
	NoteRows         []domain.RawNote
	LabEventRows     []domain.RawLabEvent
	LabItemRows      map[int]domain.RawLabItem
	PrescriptionRows []domain.RawPrescription

	PatientsErr      error
	AdmissionsErr    error
	NotesErr         error
	LabEventsErr     error
	LabItemsErr      error
	PrescriptionsErr error

	Skipped int
}

func (m *MockCorpusSource) Patients(_ context.Context) ([]domain.RawPatient, error) {
	return m.PatientRows, m.PatientsErr
}

func (m *MockCorpusSource) Admissions(_ context.Context) ([]domain.RawAdmission, error) {
	return m.AdmissionRows, m.AdmissionsErr
}

func (m *MockCorpusSource) LabItems(_ context.Context) (map[int]domain.RawLabItem, error) {
	return m.LabItemRows, m.LabItemsErr
}

func (m *MockCorpusSource) Prescriptions(_ context.Context) ([]domain.RawPrescription, error) {
	return m.PrescriptionRows, m.PrescriptionsErr
}

func (m *MockCorpusSource) Notes(_ context.Context, fn func(domain.RawNote) error) error {
	if m.NotesErr != nil {
		return m.NotesErr
	}
	for _, row := range m.NoteRows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockCorpusSource) LabEvents(_ context.Context, fn func(domain.RawLabEvent) error) error {
	if m.LabEventsErr != nil {
		return m.LabEventsErr
	}
	for _, row := range m.LabEventRows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockCorpusSource) SkippedRows() int { return m.Skipped }
