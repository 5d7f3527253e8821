// Package mimiccsv reads the MIMIC-style delimited corpus tables from a
// data directory.
package mimiccsv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CorpusSource = (*Source)(nil)

// Expected table file names inside the data directory.
const (
	patientsFile      = "PATIENTS.csv"
	admissionsFile    = "ADMISSIONS.csv"
	notesFile         = "NOTEEVENTS.csv"
	labEventsFile     = "LABEVENTS.csv"
	labItemsFile      = "D_LABITEMS.csv"
	prescriptionsFile = "PRESCRIPTIONS.csv"
)

// Source reads raw rows from CSV tables. Columns are resolved by header
// name, so column order never matters. Malformed rows are skipped with
// a warning and counted; a missing or unreadable table is an error.
type Source struct {
	dataPath string
	logger   *slog.Logger
	skipped  atomic.Int64
}

// NewSource creates a CSV corpus source rooted at dataPath.
func NewSource(dataPath string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{dataPath: dataPath, logger: logger}
}

// SkippedRows reports how many malformed rows were skipped so far.
func (s *Source) SkippedRows() int {
	return int(s.skipped.Load())
}

// Patients reads the demographics table.
func (s *Source) Patients(ctx context.Context) ([]domain.RawPatient, error) {
	var out []domain.RawPatient
	err := s.readTable(ctx, patientsFile, func(row rowReader) error {
		p := domain.RawPatient{
			SubjectID: row.get("SUBJECT_ID"),
			Gender:    row.get("GENDER"),
			BirthDate: row.get("DOB"),
			DeathDate: row.get("DOD"),
		}
		if p.SubjectID == "" {
			return errMissingKey
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// Admissions reads the admissions table.
func (s *Source) Admissions(ctx context.Context) ([]domain.RawAdmission, error) {
	var out []domain.RawAdmission
	err := s.readTable(ctx, admissionsFile, func(row rowReader) error {
		a := domain.RawAdmission{
			AdmissionID:   row.get("HADM_ID"),
			SubjectID:     row.get("SUBJECT_ID"),
			AdmitTime:     row.get("ADMITTIME"),
			DischargeTime: row.get("DISCHTIME"),
			Type:          row.get("ADMISSION_TYPE"),
			Location:      row.get("ADMISSION_LOCATION"),
			Insurance:     row.get("INSURANCE"),
			Diagnosis:     row.get("DIAGNOSIS"),
		}
		if a.AdmissionID == "" || a.SubjectID == "" {
			return errMissingKey
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

// LabItems reads the lab item dictionary keyed by item id.
func (s *Source) LabItems(ctx context.Context) (map[int]domain.RawLabItem, error) {
	out := make(map[int]domain.RawLabItem)
	err := s.readTable(ctx, labItemsFile, func(row rowReader) error {
		id, err := strconv.Atoi(row.get("ITEMID"))
		if err != nil {
			return errMissingKey
		}
		out[id] = domain.RawLabItem{
			ItemID:    id,
			Label:     row.get("LABEL"),
			Fluid:     row.get("FLUID"),
			Category:  row.get("CATEGORY"),
			LoincCode: row.get("LOINC_CODE"),
		}
		return nil
	})
	return out, err
}

// Prescriptions reads the prescriptions table.
func (s *Source) Prescriptions(ctx context.Context) ([]domain.RawPrescription, error) {
	var out []domain.RawPrescription
	err := s.readTable(ctx, prescriptionsFile, func(row rowReader) error {
		rx := domain.RawPrescription{
			PrescriptionID: row.get("ROW_ID"),
			SubjectID:      row.get("SUBJECT_ID"),
			DrugName:       row.get("DRUG"),
			GenericName:    row.get("DRUG_NAME_GENERIC"),
			Dosage:         row.get("DOSAGE"),
			Frequency:      row.get("FREQUENCY"),
			Route:          row.get("ROUTE"),
			StartDate:      row.get("STARTDATE"),
			EndDate:        row.get("ENDDATE"),
			Status:         row.get("STATUS"),
		}
		// Raw MIMIC exports split dose into value and unit columns.
		if rx.Dosage == "" {
			val, unit := row.get("DOSE_VAL_RX"), row.get("DOSE_UNIT_RX")
			if val != "" {
				rx.Dosage = strings.TrimSpace(val + " " + unit)
			}
		}
		if rx.PrescriptionID == "" || rx.SubjectID == "" || rx.DrugName == "" {
			return errMissingKey
		}
		out = append(out, rx)
		return nil
	})
	return out, err
}

// Notes streams the clinical notes table row by row.
func (s *Source) Notes(ctx context.Context, fn func(domain.RawNote) error) error {
	return s.readTable(ctx, notesFile, func(row rowReader) error {
		n := domain.RawNote{
			NoteID:      row.get("ROW_ID"),
			SubjectID:   row.get("SUBJECT_ID"),
			AdmissionID: row.get("HADM_ID"),
			Category:    row.get("CATEGORY"),
			Title:       row.get("DESCRIPTION"),
			Content:     row.get("TEXT"),
			Author:      row.getAny("AUTHOR", "CGID"),
			Department:  row.get("DEPARTMENT"),
			ChartDate:   row.get("CHARTDATE"),
		}
		if n.NoteID == "" || n.SubjectID == "" {
			return errMissingKey
		}
		return fn(n)
	})
}

// LabEvents streams the lab events table row by row.
func (s *Source) LabEvents(ctx context.Context, fn func(domain.RawLabEvent) error) error {
	return s.readTable(ctx, labEventsFile, func(row rowReader) error {
		e := domain.RawLabEvent{
			LabID:       row.get("ROW_ID"),
			SubjectID:   row.get("SUBJECT_ID"),
			AdmissionID: row.get("HADM_ID"),
			ItemID:      row.get("ITEMID"),
			Value:       row.get("VALUE"),
			ValueNum:    row.get("VALUENUM"),
			Unit:        row.get("VALUEUOM"),
			Flag:        row.get("FLAG"),
			ChartTime:   row.get("CHARTTIME"),
		}
		if e.LabID == "" || e.SubjectID == "" {
			return errMissingKey
		}
		return fn(e)
	})
}

// errMissingKey marks a row lacking its required key columns; the row
// is skipped, not fatal.
var errMissingKey = errors.New("missing key column")

// rowReader resolves cell values by header name. Missing columns read
// as empty strings.
type rowReader struct {
	header map[string]int
	cells  []string
}

func (r rowReader) get(column string) string {
	idx, ok := r.header[column]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

func (r rowReader) getAny(columns ...string) string {
	for _, c := range columns {
		if v := r.get(c); v != "" {
			return v
		}
	}
	return ""
}

// readTable opens one table and applies fn per data row. fn returning
// errMissingKey skips the row; any other error stops the read.
func (s *Source) readTable(ctx context.Context, name string, fn func(rowReader) error) error {
	path := filepath.Join(s.dataPath, name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headerRow, err := reader.Read()
	if err != nil {
		return fmt.Errorf("%w: %s: reading header: %v", domain.ErrSourceUnavailable, name, err)
	}
	header := make(map[string]int, len(headerRow))
	for i, h := range headerRow {
		header[strings.ToUpper(strings.TrimSpace(h))] = i
	}

	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cells, err := reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			s.skipped.Add(1)
			s.logger.Warn("skipping malformed row", "table", name, "line", line, "error", err)
			continue
		}

		if err := fn(rowReader{header: header, cells: cells}); err != nil {
			if errors.Is(err, errMissingKey) {
				s.skipped.Add(1)
				s.logger.Warn("skipping row with missing key", "table", name, "line", line)
				continue
			}
			return err
		}
	}
}
