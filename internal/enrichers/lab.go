package enrichers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// unknownLabLabel is used when the item dictionary has no entry for the
// event's item id.
const unknownLabLabel = "Unknown Lab"

// referenceRange bounds a lab measurement for interpretation. Matching
// is by uppercased label prefix so "Glucose, Serum" still resolves.
type referenceRange struct {
	label    string
	low      float64
	high     float64
	critLow  float64
	critHigh float64
	unit     string
}

var referenceRanges = []referenceRange{
	{label: "GLUCOSE", low: 70, high: 99, critLow: 40, critHigh: 400, unit: "mg/dL"},
	{label: "CREATININE", low: 0.7, high: 1.3, critLow: 0.2, critHigh: 5.0, unit: "mg/dL"},
	{label: "HEMOGLOBIN", low: 12.0, high: 15.5, critLow: 7.0, critHigh: 20.0, unit: "g/dL"},
	{label: "POTASSIUM", low: 3.5, high: 5.0, critLow: 2.5, critHigh: 6.5, unit: "mEq/L"},
	{label: "SODIUM", low: 136, high: 145, critLow: 120, critHigh: 160, unit: "mEq/L"},
	{label: "WBC", low: 4.5, high: 11.0, critLow: 1.0, critHigh: 30.0, unit: "K/uL"},
	{label: "PLATELET", low: 150, high: 400, critLow: 50, critHigh: 1000, unit: "K/uL"},
}

// EnrichLabResult joins one lab event with the item dictionary and
// interprets the numeric value against reference ranges. A missing
// dictionary entry degrades the label, never drops the row.
func (e *Enricher) EnrichLabResult(raw domain.RawLabEvent, items map[int]domain.RawLabItem) *domain.LabResultDocument {
	doc := &domain.LabResultDocument{
		ID:        labID(raw.LabID),
		PatientID: patientID(raw.SubjectID),
		Label:     unknownLabLabel,
		Value:     strings.TrimSpace(raw.Value),
		Unit:      strings.TrimSpace(raw.Unit),
		Flag:      strings.TrimSpace(raw.Flag),
		ChartTime: parseTime(raw.ChartTime),
		Timestamp: e.now(),
	}
	if strings.TrimSpace(raw.AdmissionID) != "" {
		doc.AdmissionID = admissionID(raw.AdmissionID)
	}

	itemID, err := strconv.Atoi(strings.TrimSpace(raw.ItemID))
	if err != nil {
		e.logger.Warn("non-numeric lab item id", "lab_id", doc.ID, "value", raw.ItemID)
	} else {
		doc.ItemID = itemID
		if item, ok := items[itemID]; ok {
			doc.Label = item.Label
			doc.Fluid = item.Fluid
			doc.Category = item.Category
			doc.LoincCode = item.LoincCode
		}
	}

	doc.ValueNum = parseLabValue(raw.ValueNum, raw.Value)
	if doc.ValueNum != nil {
		doc.Interpretation = interpretLabValue(doc.Label, *doc.ValueNum)
	}

	doc.SearchableText = labSearchableText(doc)
	return doc
}

// parseLabValue prefers the dedicated numeric column, falling back to
// the free-text value cell. Non-numeric values degrade to nil.
func parseLabValue(valueNum, value string) *float64 {
	for _, s := range []string{valueNum, value} {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return &v
		}
	}
	return nil
}

// interpretLabValue grades a numeric value against the reference range
// matching the label. Critical bounds are checked before ordinary ones.
// Unranged labs interpret as unknown.
func interpretLabValue(label string, value float64) *domain.LabInterpretation {
	upper := strings.ToUpper(label)
	for _, r := range referenceRanges {
		if !strings.HasPrefix(upper, r.label) {
			continue
		}
		in := &domain.LabInterpretation{
			ReferenceRange: fmt.Sprintf("%g-%g %s", r.low, r.high, r.unit),
		}
		switch {
		case value <= r.critLow:
			in.Status = "critical_low"
			in.Detail = fmt.Sprintf("critically low, at or below %g %s", r.critLow, r.unit)
		case value >= r.critHigh:
			in.Status = "critical_high"
			in.Detail = fmt.Sprintf("critically high, at or above %g %s", r.critHigh, r.unit)
		case value < r.low:
			in.Status = "low"
			in.Detail = fmt.Sprintf("below reference range %g-%g %s", r.low, r.high, r.unit)
		case value > r.high:
			in.Status = "high"
			in.Detail = fmt.Sprintf("above reference range %g-%g %s", r.low, r.high, r.unit)
		default:
			in.Status = "normal"
		}
		return in
	}
	return &domain.LabInterpretation{Status: "unknown"}
}

func labSearchableText(doc *domain.LabResultDocument) string {
	parts := []string{doc.Label, doc.Fluid, doc.Category, doc.Value, doc.Unit, doc.Flag}
	if doc.Interpretation != nil && doc.Interpretation.Status != "" {
		parts = append(parts, doc.Interpretation.Status)
	}
	return collapseWhitespace(strings.Join(parts, " "))
}

func labID(id string) string {
	return "lab_" + strings.TrimSpace(id)
}
