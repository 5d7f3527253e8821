package enrichers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// Dosage parsing: a unit-aware pattern tried first, then a generic
// numeric+word fallback. First match is kept.
var (
	dosageUnitPattern    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(mg|g|ml|l|units?|tablets?|capsules?|drops?)\b`)
	dosageGenericPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*([a-z]+)`)
	everyNHoursPattern   = regexp.MustCompile(`every\s+(\d+)\s*(?:hours|hrs|h)\b`)
)

// frequencyEntry maps a canonical phrase to times per day. The table is
// ordered; the first matching phrase wins, so multi-word phrases must
// precede their substrings ("twice daily" before "daily").
type frequencyEntry struct {
	phrase      string
	timesPerDay float64
	canonical   string
}

var frequencyTable = []frequencyEntry{
	{"four times daily", 4, "four-times-daily"},
	{"four times a day", 4, "four-times-daily"},
	{"qid", 4, "four-times-daily"},
	{"three times daily", 3, "three-times-daily"},
	{"three times a day", 3, "three-times-daily"},
	{"tid", 3, "three-times-daily"},
	{"twice daily", 2, "twice-daily"},
	{"twice a day", 2, "twice-daily"},
	{"two times daily", 2, "twice-daily"},
	{"bid", 2, "twice-daily"},
	{"once daily", 1, "once-daily"},
	{"once a day", 1, "once-daily"},
	{"every day", 1, "once-daily"},
	{"daily", 1, "once-daily"},
	{"qd", 1, "once-daily"},
	{"as needed", 0, "as-needed"},
	{"prn", 0, "as-needed"},
	{"weekly", 1.0 / 7.0, "weekly"},
	{"once a week", 1.0 / 7.0, "weekly"},
}

// ParseDosage parses a dosage string such as "500mg" or "2 tablets".
// Unparseable input degrades to nil, never an error.
func ParseDosage(s string) *domain.Dosage {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if m := dosageUnitPattern.FindStringSubmatch(s); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return &domain.Dosage{Amount: amount, Unit: strings.ToLower(m[2])}
		}
	}
	if m := dosageGenericPattern.FindStringSubmatch(s); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return &domain.Dosage{Amount: amount, Unit: strings.ToLower(m[2])}
		}
	}
	return nil
}

// ParseFrequency parses an administration frequency against the ordered
// canonical phrase table, first match wins. "Every N hours" computes
// 24/N live. Unparseable input degrades to nil.
func ParseFrequency(s string) *domain.Frequency {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return nil
	}
	if m := everyNHoursPattern.FindStringSubmatch(lower); m != nil {
		hours, err := strconv.ParseFloat(m[1], 64)
		if err == nil && hours > 0 {
			return &domain.Frequency{
				TimesPerDay: 24 / hours,
				Canonical:   "every-" + m[1] + "-hours",
			}
		}
	}
	for _, entry := range frequencyTable {
		if strings.Contains(lower, entry.phrase) {
			return &domain.Frequency{TimesPerDay: entry.timesPerDay, Canonical: entry.canonical}
		}
	}
	return nil
}

// EnrichMedication builds the canonical medication document from one
// prescription row. patientMeds is the same patient's full prescription
// set; pairwise interactions are checked against its active members.
func (e *Enricher) EnrichMedication(raw domain.RawPrescription, patientMeds []domain.RawPrescription) *domain.MedicationDocument {
	doc := &domain.MedicationDocument{
		ID:          medicationID(raw.PrescriptionID),
		PatientID:   patientID(raw.SubjectID),
		DrugName:    strings.TrimSpace(raw.DrugName),
		GenericName: strings.TrimSpace(raw.GenericName),
		Dosage:      strings.TrimSpace(raw.Dosage),
		Frequency:   strings.TrimSpace(raw.Frequency),
		Route:       strings.TrimSpace(raw.Route),
		StartDate:   parseTime(raw.StartDate),
		EndDate:     parseTime(raw.EndDate),
		Status:      medicationStatus(raw.Status),
		Timestamp:   e.now(),
	}

	doc.ParsedDosage = ParseDosage(doc.Dosage)
	if doc.ParsedDosage == nil && doc.Dosage != "" {
		e.logger.Warn("unparseable dosage", "medication_id", doc.ID, "value", doc.Dosage)
	}
	doc.ParsedFrequency = ParseFrequency(doc.Frequency)
	if doc.ParsedFrequency == nil && doc.Frequency != "" {
		e.logger.Warn("unparseable frequency", "medication_id", doc.ID, "value", doc.Frequency)
	}

	// Daily dose requires both parsed parts; otherwise it stays null.
	if doc.ParsedDosage != nil && doc.ParsedFrequency != nil {
		daily := doc.ParsedDosage.Amount * doc.ParsedFrequency.TimesPerDay
		doc.DailyDose = &daily
	}

	// Class lookup prefers the generic name, falling back to the brand.
	lookupName := doc.GenericName
	if lookupName == "" {
		lookupName = doc.DrugName
	}
	if class, ok := e.vocab.DrugClass(lookupName); ok {
		doc.Class = class
	}
	doc.HighRisk = e.vocab.IsHighRisk(lookupName)
	doc.SideEffects = e.vocab.SideEffects(lookupName)
	doc.Interactions = e.interactionsFor(raw, patientMeds)

	doc.SearchableText = medicationSearchableText(doc)
	return doc
}

// interactionsFor checks the drug pairwise against the other active
// medications of the same patient.
func (e *Enricher) interactionsFor(raw domain.RawPrescription, patientMeds []domain.RawPrescription) []domain.InteractionWarning {
	var warnings []domain.InteractionWarning
	for _, other := range patientMeds {
		if other.PrescriptionID == raw.PrescriptionID {
			continue
		}
		if medicationStatus(other.Status) != domain.MedicationActive {
			continue
		}
		otherName := strings.TrimSpace(other.GenericName)
		if otherName == "" {
			otherName = strings.TrimSpace(other.DrugName)
		}
		name := strings.TrimSpace(raw.GenericName)
		if name == "" {
			name = strings.TrimSpace(raw.DrugName)
		}
		if in, ok := e.vocab.Interaction(name, otherName); ok {
			warnings = append(warnings, domain.InteractionWarning{
				WithDrug:       otherName,
				Severity:       in.Severity,
				Description:    in.Description,
				Recommendation: in.Recommendation,
			})
		}
	}
	return warnings
}

// medicationStatus normalizes the raw status cell; unknown values
// default to active, the common case for open prescriptions.
func medicationStatus(s string) domain.MedicationStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "discontinued", "stopped", "cancelled":
		return domain.MedicationDiscontinued
	case "completed", "finished":
		return domain.MedicationCompleted
	default:
		return domain.MedicationActive
	}
}

func medicationSearchableText(doc *domain.MedicationDocument) string {
	parts := []string{doc.DrugName, doc.GenericName, doc.Class, doc.Dosage, doc.Frequency, doc.Route}
	for _, w := range doc.Interactions {
		parts = append(parts, w.WithDrug)
	}
	return collapseWhitespace(strings.Join(parts, " "))
}

func medicationID(id string) string {
	return "medication_" + strings.TrimSpace(id)
}
