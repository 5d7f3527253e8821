package enrichers

import (
	"fmt"
	"strings"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// knownCondition maps a diagnosis keyword to its coded condition.
// Table order decides when several keywords appear in one diagnosis.
type knownCondition struct {
	keyword     string
	icd9        string
	icd10       string
	description string
}

var knownConditions = []knownCondition{
	{"diabetes", "250.00", "E11.9", "Type 2 diabetes mellitus without complications"},
	{"hypertension", "401.9", "I10", "Essential hypertension"},
	{"hyperlipidemia", "272.4", "E78.5", "Hyperlipidemia, unspecified"},
	{"coronary", "414.01", "I25.10", "Coronary atherosclerosis"},
	{"copd", "496", "J44.1", "Chronic obstructive pulmonary disease"},
	{"chronic obstructive pulmonary", "496", "J44.1", "Chronic obstructive pulmonary disease"},
	{"renal disease", "585.6", "N18.6", "End stage renal disease"},
	{"renal failure", "585.6", "N18.6", "End stage renal disease"},
	{"heart failure", "428.0", "I50.9", "Heart failure, unspecified"},
	{"asthma", "493.90", "J45.909", "Unspecified asthma, uncomplicated"},
	{"pneumonia", "486", "J18.9", "Pneumonia, unspecified organism"},
	{"sepsis", "995.91", "A41.9", "Sepsis, unspecified organism"},
	{"myocardial infarction", "410.90", "I21.9", "Acute myocardial infarction"},
	{"stroke", "434.91", "I63.9", "Cerebral infarction"},
	{"atrial fibrillation", "427.31", "I48.91", "Atrial fibrillation"},
}

// EnrichPatient builds the canonical patient document from one
// demographics row joined with the patient's admission rows. Admissions
// belonging to other subjects are ignored.
func (e *Enricher) EnrichPatient(raw domain.RawPatient, admissions []domain.RawAdmission) *domain.PatientDocument {
	id := patientID(raw.SubjectID)

	birth := parseTime(raw.BirthDate)
	if birth == nil && strings.TrimSpace(raw.BirthDate) != "" {
		e.logger.Warn("unparseable birth date", "patient_id", id, "value", raw.BirthDate)
	}
	death := parseTime(raw.DeathDate)
	if death == nil && strings.TrimSpace(raw.DeathDate) != "" {
		e.logger.Warn("unparseable death date", "patient_id", id, "value", raw.DeathDate)
	}

	// Age reference is the death date for deceased patients, else now.
	age := 0
	if birth != nil {
		ref := e.now()
		if death != nil {
			ref = *death
		}
		age = ageAt(*birth, ref)
	}

	doc := &domain.PatientDocument{
		ID:        id,
		Gender:    strings.TrimSpace(raw.Gender),
		BirthDate: birth,
		DeathDate: death,
		Age:       age,
		Timestamp: e.now(),
	}

	for _, adm := range admissions {
		if adm.SubjectID != raw.SubjectID {
			continue
		}
		admission := domain.Admission{
			ID:            admissionID(adm.AdmissionID),
			AdmitTime:     parseTime(adm.AdmitTime),
			DischargeTime: parseTime(adm.DischargeTime),
			Type:          strings.TrimSpace(adm.Type),
			Location:      strings.TrimSpace(adm.Location),
			Insurance:     strings.TrimSpace(adm.Insurance),
			Diagnosis:     collapseWhitespace(adm.Diagnosis),
		}
		doc.Admissions = append(doc.Admissions, admission)
		doc.Conditions = append(doc.Conditions, conditionsFromDiagnosis(admission, doc.Conditions)...)
	}

	doc.Summary = patientSummary(doc)
	doc.SearchableText = patientSearchableText(doc)
	return doc
}

// conditionsFromDiagnosis matches the admission diagnosis text against
// the coded condition table, skipping conditions already recorded.
func conditionsFromDiagnosis(adm domain.Admission, existing []domain.Condition) []domain.Condition {
	lower := strings.ToLower(adm.Diagnosis)
	var out []domain.Condition
	for _, kc := range knownConditions {
		if !strings.Contains(lower, kc.keyword) {
			continue
		}
		if hasCondition(existing, kc.icd9) || hasCondition(out, kc.icd9) {
			continue
		}
		out = append(out, domain.Condition{
			ICD9Code:    kc.icd9,
			ICD10Code:   kc.icd10,
			Description: kc.description,
			DiagnosedAt: adm.AdmitTime,
		})
	}
	return out
}

func hasCondition(conditions []domain.Condition, icd9 string) bool {
	for _, c := range conditions {
		if c.ICD9Code == icd9 {
			return true
		}
	}
	return false
}

// patientSummary synthesizes a one-line description: age, gender, and
// the first two conditions.
func patientSummary(doc *domain.PatientDocument) string {
	ageStr := "adult"
	if doc.BirthDate != nil {
		ageStr = fmt.Sprintf("%d-year-old", doc.Age)
	}
	genderStr := "unknown gender"
	if doc.Gender != "" {
		genderStr = strings.ToLower(doc.Gender)
	}
	if len(doc.Conditions) == 0 {
		return fmt.Sprintf("%s %s patient", ageStr, genderStr)
	}

	names := make([]string, 0, 2)
	for _, c := range doc.Conditions {
		names = append(names, c.Description)
		if len(names) == 2 {
			break
		}
	}
	summary := fmt.Sprintf("%s %s patient with %s", ageStr, genderStr, strings.Join(names, ", "))
	if extra := len(doc.Conditions) - 2; extra > 0 {
		summary += fmt.Sprintf(" and %d additional condition(s)", extra)
	}
	return summary
}

// patientSearchableText is a pure derived field computed once from the
// final document state: id, gender, summary, every admission diagnosis,
// and every condition description.
func patientSearchableText(doc *domain.PatientDocument) string {
	parts := []string{doc.ID, doc.Gender, doc.Summary}
	for _, adm := range doc.Admissions {
		if adm.Diagnosis != "" {
			parts = append(parts, adm.Diagnosis)
		}
	}
	for _, c := range doc.Conditions {
		parts = append(parts, c.Description)
	}
	return collapseWhitespace(strings.Join(parts, " "))
}

func patientID(subjectID string) string {
	return "patient_" + strings.TrimSpace(subjectID)
}

func admissionID(id string) string {
	return "admission_" + strings.TrimSpace(id)
}
