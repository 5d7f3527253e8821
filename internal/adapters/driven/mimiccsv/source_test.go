package mimiccsv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

func writeTable(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestPatients(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, patientsFile,
		"ROW_ID,SUBJECT_ID,GENDER,DOB,DOD\n"+
			"1,100,F,1970-06-15 00:00:00,\n"+
			"2,101,M,1955-02-01 00:00:00,2010-03-01 00:00:00\n")

	src := NewSource(dir, nil)
	patients, err := src.Patients(context.Background())
	require.NoError(t, err)

	require.Len(t, patients, 2)
	assert.Equal(t, "100", patients[0].SubjectID)
	assert.Equal(t, "F", patients[0].Gender)
	assert.Equal(t, "1970-06-15 00:00:00", patients[0].BirthDate)
	assert.Empty(t, patients[0].DeathDate)
	assert.Equal(t, "2010-03-01 00:00:00", patients[1].DeathDate)
}

func TestColumnOrderIrrelevant(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, patientsFile,
		"GENDER,DOB,SUBJECT_ID\nF,1970-06-15,100\n")

	src := NewSource(dir, nil)
	patients, err := src.Patients(context.Background())
	require.NoError(t, err)

	require.Len(t, patients, 1)
	assert.Equal(t, "100", patients[0].SubjectID)
	assert.Equal(t, "F", patients[0].Gender)
}

func TestSkipsRowsMissingKeys(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, patientsFile,
		"SUBJECT_ID,GENDER\n"+
			"100,F\n"+
			",M\n"+ // no subject id
			"101,M\n")

	src := NewSource(dir, nil)
	patients, err := src.Patients(context.Background())
	require.NoError(t, err)

	assert.Len(t, patients, 2)
	assert.Equal(t, 1, src.SkippedRows())
}

func TestMissingTableIsError(t *testing.T) {
	src := NewSource(t.TempDir(), nil)
	_, err := src.Patients(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestNotesStreaming(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, notesFile,
		"ROW_ID,SUBJECT_ID,HADM_ID,CATEGORY,DESCRIPTION,TEXT,AUTHOR,DEPARTMENT,CHARTDATE\n"+
			"n1,100,a1,Progress Note,Day 1,\"Patient stable, continue current meds.\",Dr. Osei,ICU,2023-01-15\n"+
			"n2,100,a1,Progress Note,Day 2,Improving.,Dr. Osei,ICU,2023-01-16\n")

	src := NewSource(dir, nil)
	var notes []domain.RawNote
	err := src.Notes(context.Background(), func(n domain.RawNote) error {
		notes = append(notes, n)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, notes, 2)
	assert.Equal(t, "n1", notes[0].NoteID)
	assert.Equal(t, "Day 1", notes[0].Title)
	assert.Equal(t, "Patient stable, continue current meds.", notes[0].Content)
	assert.Equal(t, "Dr. Osei", notes[0].Author)
	assert.Equal(t, "ICU", notes[0].Department)
}

func TestNotesAuthorFallsBackToCGID(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, notesFile,
		"ROW_ID,SUBJECT_ID,CATEGORY,DESCRIPTION,TEXT,CGID\n"+
			"n1,100,Nursing,Shift note,Vitals stable.,2274\n")

	src := NewSource(dir, nil)
	var notes []domain.RawNote
	require.NoError(t, src.Notes(context.Background(), func(n domain.RawNote) error {
		notes = append(notes, n)
		return nil
	}))

	require.Len(t, notes, 1)
	assert.Equal(t, "2274", notes[0].Author)
}

func TestLabItemsKeyedByID(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, labItemsFile,
		"ITEMID,LABEL,FLUID,CATEGORY,LOINC_CODE\n"+
			"50931,Glucose,Blood,Chemistry,2345-7\n"+
			"not-a-number,Broken,,,\n")

	src := NewSource(dir, nil)
	items, err := src.LabItems(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "Glucose", items[50931].Label)
	assert.Equal(t, 1, src.SkippedRows())
}

func TestLabEventsStreaming(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, labEventsFile,
		"ROW_ID,SUBJECT_ID,HADM_ID,ITEMID,VALUE,VALUENUM,VALUEUOM,FLAG,CHARTTIME\n"+
			"l1,100,a1,50931,85,85,mg/dL,,2023-01-15 06:00:00\n")

	src := NewSource(dir, nil)
	var events []domain.RawLabEvent
	require.NoError(t, src.LabEvents(context.Background(), func(e domain.RawLabEvent) error {
		events = append(events, e)
		return nil
	}))

	require.Len(t, events, 1)
	assert.Equal(t, "50931", events[0].ItemID)
	assert.Equal(t, "mg/dL", events[0].Unit)
}

func TestPrescriptionsDoseColumnsCombine(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, prescriptionsFile,
		"ROW_ID,SUBJECT_ID,DRUG,DRUG_NAME_GENERIC,DOSE_VAL_RX,DOSE_UNIT_RX,ROUTE,STARTDATE,ENDDATE\n"+
			"rx1,100,Coumadin,Warfarin,5,mg,PO,2023-01-10,\n")

	src := NewSource(dir, nil)
	rxs, err := src.Prescriptions(context.Background())
	require.NoError(t, err)

	require.Len(t, rxs, 1)
	assert.Equal(t, "Coumadin", rxs[0].DrugName)
	assert.Equal(t, "Warfarin", rxs[0].GenericName)
	assert.Equal(t, "5 mg", rxs[0].Dosage)
}

func TestPrescriptionsDosageColumnPreferred(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, prescriptionsFile,
		"ROW_ID,SUBJECT_ID,DRUG,DOSAGE,FREQUENCY,STATUS\n"+
			"rx1,100,Metformin,500mg,twice daily,active\n")

	src := NewSource(dir, nil)
	rxs, err := src.Prescriptions(context.Background())
	require.NoError(t, err)

	require.Len(t, rxs, 1)
	assert.Equal(t, "500mg", rxs[0].Dosage)
	assert.Equal(t, "twice daily", rxs[0].Frequency)
	assert.Equal(t, "active", rxs[0].Status)
}
