package driven

import (
	"context"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// CorpusSource reads raw rows from the four source tables plus the lab
// item dictionary. Implementations skip-and-log malformed rows; a
// returned error means the table itself could not be read.
type CorpusSource interface {
	// Patients reads the demographics table.
	Patients(ctx context.Context) ([]domain.RawPatient, error)

	// Admissions reads the admissions table.
	Admissions(ctx context.Context) ([]domain.RawAdmission, error)

	// LabItems reads the lab item dictionary keyed by item id.
	LabItems(ctx context.Context) (map[int]domain.RawLabItem, error)

	// Prescriptions reads the prescriptions table.
	Prescriptions(ctx context.Context) ([]domain.RawPrescription, error)

	// Notes streams the clinical notes table row by row. Returning an
	// error from fn stops the stream.
	Notes(ctx context.Context, fn func(domain.RawNote) error) error

	// LabEvents streams the lab events table row by row.
	LabEvents(ctx context.Context, fn func(domain.RawLabEvent) error) error

	// SkippedRows reports how many malformed rows were skipped so far.
	SkippedRows() int
}
