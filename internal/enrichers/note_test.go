package enrichers

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

func validRawNote() domain.RawNote {
	return domain.RawNote{
		NoteID:     "n1",
		SubjectID:  "100",
		Category:   "Progress Note",
		Title:      "ICU day 2",
		Content:    "Patient remains stable. Continue metformin for diabetes.",
		Author:     "Dr. Osei",
		Department: "ICU",
		ChartDate:  "2023-01-15 08:00:00",
	}
}

func TestEnrichClinicalNote(t *testing.T) {
	e := newTestEnricher()

	doc, err := e.EnrichClinicalNote(validRawNote())
	require.NoError(t, err)

	assert.Equal(t, "note_n1", doc.ID)
	assert.Equal(t, "patient_100", doc.PatientID)
	assert.Equal(t, domain.SeverityLow, doc.Severity)
	assert.False(t, doc.HasCriticalTerms)
	assert.Contains(t, doc.Entities.Medications, "metformin")
	assert.Contains(t, doc.Entities.Conditions, "diabetes")
	assert.Equal(t, 8, doc.WordCount)
	require.NotNil(t, doc.ChartDate)
}

func TestSeverityHighBeatsMedium(t *testing.T) {
	e := newTestEnricher()

	raw := validRawNote()
	raw.Content = "Labs abnormal overnight. Patient suffered cardiac arrest at 0300."
	doc, err := e.EnrichClinicalNote(raw)
	require.NoError(t, err)

	// Both a medium term ("abnormal") and a high term are present; the
	// high list is checked first.
	assert.Equal(t, domain.SeverityHigh, doc.Severity)
	assert.True(t, doc.HasCriticalTerms)
}

func TestSeverityMedium(t *testing.T) {
	e := newTestEnricher()

	raw := validRawNote()
	raw.Content = "Elevated creatinine noted this morning, trending up."
	doc, err := e.EnrichClinicalNote(raw)
	require.NoError(t, err)

	assert.Equal(t, domain.SeverityMedium, doc.Severity)
	assert.False(t, doc.HasCriticalTerms)
}

func TestCriticalTermsIndependentOfSeverity(t *testing.T) {
	e := newTestEnricher()

	// "stat" is a critical term but appears on neither severity list.
	raw := validRawNote()
	raw.Content = "Ordered stat portable chest film, awaiting read."
	doc, err := e.EnrichClinicalNote(raw)
	require.NoError(t, err)

	assert.Equal(t, domain.SeverityLow, doc.Severity)
	assert.True(t, doc.HasCriticalTerms)
}

func TestNoteSummaryTruncation(t *testing.T) {
	e := newTestEnricher()

	raw := validRawNote()
	raw.Content = strings.Repeat("stable condition continues ", 20)
	doc, err := e.EnrichClinicalNote(raw)
	require.NoError(t, err)

	assert.Len(t, doc.Summary, summaryLength+3)
	assert.True(t, strings.HasSuffix(doc.Summary, "..."))
}

func TestNoteSummaryTruncationMultibyte(t *testing.T) {
	e := newTestEnricher()

	raw := validRawNote()
	raw.Content = strings.Repeat("fièvre élevée persistante ", 20)
	doc, err := e.EnrichClinicalNote(raw)
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(doc.Summary))
	assert.Equal(t, summaryLength+3, utf8.RuneCountInString(doc.Summary))
	assert.True(t, strings.HasSuffix(doc.Summary, "..."))
}

func TestNoteValidationMissingFields(t *testing.T) {
	e := newTestEnricher()

	raw := validRawNote()
	raw.Author = ""
	_, err := e.EnrichClinicalNote(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
	assert.Contains(t, err.Error(), "author")
}

func TestNoteValidationEmptyIDs(t *testing.T) {
	e := newTestEnricher()

	raw := validRawNote()
	raw.NoteID = ""
	_, err := e.EnrichClinicalNote(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)

	raw = validRawNote()
	raw.SubjectID = " "
	_, err = e.EnrichClinicalNote(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
}

func TestNoteValidationContentBound(t *testing.T) {
	e := newTestEnricher()

	raw := validRawNote()
	raw.Content = strings.Repeat("a", domain.MaxNoteContentLength+1)
	_, err := e.EnrichClinicalNote(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
}

func TestNoteValidationContentBoundCountsRunes(t *testing.T) {
	e := newTestEnricher()

	// Two bytes per rune; the bound counts characters, not bytes.
	raw := validRawNote()
	raw.Content = strings.Repeat("é", domain.MaxNoteContentLength)
	_, err := e.EnrichClinicalNote(raw)
	require.NoError(t, err)

	raw.Content = strings.Repeat("é", domain.MaxNoteContentLength+1)
	_, err = e.EnrichClinicalNote(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
}

func TestNoteAdmissionIDOptional(t *testing.T) {
	e := newTestEnricher()

	raw := validRawNote()
	raw.AdmissionID = ""
	doc, err := e.EnrichClinicalNote(raw)
	require.NoError(t, err)
	assert.Empty(t, doc.AdmissionID)

	raw.AdmissionID = "a7"
	doc, err = e.EnrichClinicalNote(raw)
	require.NoError(t, err)
	assert.Equal(t, "admission_a7", doc.AdmissionID)
}
