package enrichers

import (
	"strings"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// summaryLength is the character budget for derived note summaries.
const summaryLength = 200

// EnrichClinicalNote builds the canonical note document: entity
// extraction, severity classification, critical-term flag, summary, and
// word count. A note failing required-field checks or the content bound
// returns a validation error, not a panic.
func (e *Enricher) EnrichClinicalNote(raw domain.RawNote) (*domain.ClinicalNoteDocument, error) {
	doc := &domain.ClinicalNoteDocument{
		ID:         noteID(raw.NoteID),
		PatientID:  patientID(raw.SubjectID),
		Category:   strings.TrimSpace(raw.Category),
		Title:      strings.TrimSpace(raw.Title),
		Content:    raw.Content,
		Author:     strings.TrimSpace(raw.Author),
		Department: strings.TrimSpace(raw.Department),
		ChartDate:  parseTime(raw.ChartDate),
		Timestamp:  e.now(),
	}
	if strings.TrimSpace(raw.AdmissionID) != "" {
		doc.AdmissionID = admissionID(raw.AdmissionID)
	}
	if strings.TrimSpace(raw.SubjectID) == "" {
		doc.PatientID = ""
	}
	if strings.TrimSpace(raw.NoteID) == "" {
		doc.ID = ""
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	lower := strings.ToLower(doc.Content)

	doc.Entities = e.extractors.ExtractAll(doc.Content)
	doc.Severity = e.classifySeverity(lower)
	doc.HasCriticalTerms = e.hasCriticalTerms(lower)
	doc.Summary = summarize(doc.Content)
	doc.WordCount = len(strings.Fields(doc.Content))
	doc.SearchableText = noteSearchableText(doc)

	return doc, nil
}

// classifySeverity checks the high-severity term list first, then the
// medium list; anything else is low. Independent of the critical-term
// flag: the two classifiers may disagree on the same note.
func (e *Enricher) classifySeverity(lowerContent string) domain.Severity {
	for _, term := range e.vocab.HighSeverityTerms() {
		if strings.Contains(lowerContent, term) {
			return domain.SeverityHigh
		}
	}
	for _, term := range e.vocab.MediumSeverityTerms() {
		if strings.Contains(lowerContent, term) {
			return domain.SeverityMedium
		}
	}
	return domain.SeverityLow
}

func (e *Enricher) hasCriticalTerms(lowerContent string) bool {
	for _, term := range e.vocab.CriticalTerms() {
		if strings.Contains(lowerContent, term) {
			return true
		}
	}
	return false
}

// summarize collapses internal whitespace and truncates to the summary
// budget with a trailing ellipsis when content exceeds it. The budget
// counts runes, so truncation never splits a multibyte character.
func summarize(content string) string {
	collapsed := collapseWhitespace(content)
	runes := []rune(collapsed)
	if len(runes) <= summaryLength {
		return collapsed
	}
	return string(runes[:summaryLength]) + "..."
}

func noteSearchableText(doc *domain.ClinicalNoteDocument) string {
	parts := []string{doc.Title, doc.Category, doc.Department, doc.Summary}
	parts = append(parts, doc.Entities.Terms()...)
	return collapseWhitespace(strings.Join(parts, " "))
}

func noteID(id string) string {
	return "note_" + strings.TrimSpace(id)
}
