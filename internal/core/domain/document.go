package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DocumentKind identifies one of the four canonical document kinds.
type DocumentKind string

const (
	KindPatient      DocumentKind = "patient"
	KindClinicalNote DocumentKind = "clinical-note"
	KindLabResult    DocumentKind = "lab-result"
	KindMedication   DocumentKind = "medication"
)

// Index returns the storage engine index name for this kind.
func (k DocumentKind) Index() string {
	switch k {
	case KindPatient:
		return "patients"
	case KindClinicalNote:
		return "clinical-notes"
	case KindLabResult:
		return "lab-results"
	case KindMedication:
		return "medications"
	}
	return string(k)
}

// AllKinds returns every document kind in a stable order.
func AllKinds() []DocumentKind {
	return []DocumentKind{KindPatient, KindClinicalNote, KindLabResult, KindMedication}
}

// KindForIndex maps an index name back to its document kind.
func KindForIndex(index string) (DocumentKind, bool) {
	for _, k := range AllKinds() {
		if k.Index() == index {
			return k, true
		}
	}
	return "", false
}

// Severity classifies a clinical note by urgency.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// MedicationStatus is the lifecycle state of a prescription.
type MedicationStatus string

const (
	MedicationActive       MedicationStatus = "active"
	MedicationDiscontinued MedicationStatus = "discontinued"
	MedicationCompleted    MedicationStatus = "completed"
)

// InteractionSeverity grades a drug-drug interaction.
type InteractionSeverity string

const (
	InteractionMinor    InteractionSeverity = "minor"
	InteractionModerate InteractionSeverity = "moderate"
	InteractionMajor    InteractionSeverity = "major"
)

// Document is implemented by every canonical document kind.
// Documents are immutable once indexed; re-indexing the same ID replaces
// the previous version (upsert semantics, last write wins).
type Document interface {
	DocumentID() string
	DocumentKind() DocumentKind
	Validate() error
}

// Condition is a coded diagnosis attached to a patient.
// At least one of ICD9Code/ICD10Code must be present.
type Condition struct {
	ICD9Code    string     `json:"icd9_code,omitempty"`
	ICD10Code   string     `json:"icd10_code,omitempty"`
	Description string     `json:"description"`
	DiagnosedAt *time.Time `json:"diagnosed_at,omitempty"`
}

// Validate checks the condition invariants.
func (c Condition) Validate() error {
	if c.ICD9Code == "" && c.ICD10Code == "" {
		return fmt.Errorf("%w: condition has neither ICD-9 nor ICD-10 code", ErrInvalidDocument)
	}
	return nil
}

// Admission is one hospital stay belonging to a patient.
type Admission struct {
	ID            string     `json:"id"`
	AdmitTime     *time.Time `json:"admit_time,omitempty"`
	DischargeTime *time.Time `json:"discharge_time,omitempty"`
	Type          string     `json:"type,omitempty"`
	Location      string     `json:"location,omitempty"`
	Insurance     string     `json:"insurance,omitempty"`
	Diagnosis     string     `json:"diagnosis,omitempty"`
}

// Validate checks the admission invariants.
func (a Admission) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: admission missing id", ErrInvalidDocument)
	}
	if a.AdmitTime != nil && a.DischargeTime != nil && a.DischargeTime.Before(*a.AdmitTime) {
		return fmt.Errorf("%w: admission %s discharged before admitted", ErrInvalidDocument, a.ID)
	}
	return nil
}

// PatientDocument is the canonical patient record built from demographics
// joined with the patient's admissions.
type PatientDocument struct {
	ID             string      `json:"id"`
	Gender         string      `json:"gender"`
	BirthDate      *time.Time  `json:"birth_date,omitempty"`
	DeathDate      *time.Time  `json:"death_date,omitempty"`
	Age            int         `json:"age"`
	Conditions     []Condition `json:"conditions,omitempty"`
	Admissions     []Admission `json:"admissions,omitempty"`
	Summary        string      `json:"summary,omitempty"`
	SearchableText string      `json:"searchable_text"`
	Timestamp      time.Time   `json:"timestamp"`
}

func (d *PatientDocument) DocumentID() string         { return d.ID }
func (d *PatientDocument) DocumentKind() DocumentKind { return KindPatient }

// Validate checks the patient invariants.
func (d *PatientDocument) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: patient missing id", ErrInvalidDocument)
	}
	if d.Age < 0 {
		return fmt.Errorf("%w: patient %s has negative age", ErrInvalidDocument, d.ID)
	}
	if d.BirthDate != nil && d.DeathDate != nil && d.DeathDate.Before(*d.BirthDate) {
		return fmt.Errorf("%w: patient %s death precedes birth", ErrInvalidDocument, d.ID)
	}
	for _, a := range d.Admissions {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	for _, c := range d.Conditions {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MaxNoteContentLength is the upper bound on clinical note content.
const MaxNoteContentLength = 10000

// ExtractedEntities holds the medical entities recognized in free text,
// deduplicated within each category.
type ExtractedEntities struct {
	Conditions  []string `json:"conditions,omitempty"`
	Medications []string `json:"medications,omitempty"`
	Procedures  []string `json:"procedures,omitempty"`
	Symptoms    []string `json:"symptoms,omitempty"`
}

// IsEmpty reports whether no entity was recognized in any category.
func (e ExtractedEntities) IsEmpty() bool {
	return len(e.Conditions) == 0 && len(e.Medications) == 0 &&
		len(e.Procedures) == 0 && len(e.Symptoms) == 0
}

// Terms flattens all categories into one list.
func (e ExtractedEntities) Terms() []string {
	var out []string
	out = append(out, e.Conditions...)
	out = append(out, e.Medications...)
	out = append(out, e.Procedures...)
	out = append(out, e.Symptoms...)
	return out
}

// ClinicalNoteDocument is an enriched clinical note.
type ClinicalNoteDocument struct {
	ID               string            `json:"id"`
	PatientID        string            `json:"patient_id"`
	AdmissionID      string            `json:"admission_id,omitempty"`
	Category         string            `json:"category"`
	Title            string            `json:"title"`
	Content          string            `json:"content"`
	Author           string            `json:"author"`
	Department       string            `json:"department"`
	ChartDate        *time.Time        `json:"chart_date,omitempty"`
	Summary          string            `json:"summary"`
	Severity         Severity          `json:"severity"`
	Entities         ExtractedEntities `json:"entities"`
	WordCount        int               `json:"word_count"`
	HasCriticalTerms bool              `json:"has_critical_terms"`
	SearchableText   string            `json:"searchable_text"`
	Timestamp        time.Time         `json:"timestamp"`
}

func (d *ClinicalNoteDocument) DocumentID() string         { return d.ID }
func (d *ClinicalNoteDocument) DocumentKind() DocumentKind { return KindClinicalNote }

// Validate checks the required note fields and the content bound.
func (d *ClinicalNoteDocument) Validate() error {
	missing := []string{}
	if d.ID == "" {
		missing = append(missing, "id")
	}
	if d.PatientID == "" {
		missing = append(missing, "patient_id")
	}
	if d.Title == "" {
		missing = append(missing, "title")
	}
	if d.Content == "" {
		missing = append(missing, "content")
	}
	if d.Author == "" {
		missing = append(missing, "author")
	}
	if d.Department == "" {
		missing = append(missing, "department")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: note %s missing fields: %s", ErrInvalidDocument, d.ID, strings.Join(missing, ", "))
	}
	if utf8.RuneCountInString(d.Content) > MaxNoteContentLength {
		return fmt.Errorf("%w: note %s content exceeds %d characters", ErrInvalidDocument, d.ID, MaxNoteContentLength)
	}
	return nil
}

// LabInterpretation annotates a numeric lab value against reference ranges.
type LabInterpretation struct {
	Status         string `json:"status"` // normal, low, high, critical_low, critical_high, unknown
	Detail         string `json:"detail,omitempty"`
	ReferenceRange string `json:"reference_range,omitempty"`
}

// LabResultDocument is an enriched laboratory event joined with its item
// dictionary entry.
type LabResultDocument struct {
	ID             string             `json:"id"`
	PatientID      string             `json:"patient_id"`
	AdmissionID    string             `json:"admission_id,omitempty"`
	ItemID         int                `json:"item_id"`
	Label          string             `json:"label"`
	Fluid          string             `json:"fluid,omitempty"`
	Category       string             `json:"category,omitempty"`
	LoincCode      string             `json:"loinc_code,omitempty"`
	Value          string             `json:"value"`
	ValueNum       *float64           `json:"value_num,omitempty"`
	Unit           string             `json:"unit,omitempty"`
	Flag           string             `json:"flag,omitempty"`
	Interpretation *LabInterpretation `json:"interpretation,omitempty"`
	ChartTime      *time.Time         `json:"chart_time,omitempty"`
	SearchableText string             `json:"searchable_text"`
	Timestamp      time.Time          `json:"timestamp"`
}

func (d *LabResultDocument) DocumentID() string         { return d.ID }
func (d *LabResultDocument) DocumentKind() DocumentKind { return KindLabResult }

// Validate checks the lab result invariants.
func (d *LabResultDocument) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: lab result missing id", ErrInvalidDocument)
	}
	if d.PatientID == "" {
		return fmt.Errorf("%w: lab result %s missing patient_id", ErrInvalidDocument, d.ID)
	}
	return nil
}

// Dosage is a parsed dosage string such as "500mg".
type Dosage struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Frequency is a parsed administration frequency. TimesPerDay is 0 for
// as-needed dosing and fractional for intervals longer than a day.
type Frequency struct {
	TimesPerDay float64 `json:"times_per_day"`
	Canonical   string  `json:"canonical"`
}

// DrugInteraction describes a known interaction between two drugs.
// The pair is unordered: lookups are symmetric in DrugA/DrugB.
type DrugInteraction struct {
	DrugA          string              `json:"drug_a"`
	DrugB          string              `json:"drug_b"`
	Severity       InteractionSeverity `json:"severity"`
	Description    string              `json:"description"`
	Recommendation string              `json:"recommendation,omitempty"`
}

// InteractionWarning is an interaction attached to a medication document,
// naming the other drug in the patient's active set.
type InteractionWarning struct {
	WithDrug       string              `json:"with_drug"`
	Severity       InteractionSeverity `json:"severity"`
	Description    string              `json:"description"`
	Recommendation string              `json:"recommendation,omitempty"`
}

// MedicationDocument is an enriched prescription.
type MedicationDocument struct {
	ID              string               `json:"id"`
	PatientID       string               `json:"patient_id"`
	DrugName        string               `json:"drug_name"`
	GenericName     string               `json:"generic_name,omitempty"`
	Dosage          string               `json:"dosage"`
	ParsedDosage    *Dosage              `json:"parsed_dosage,omitempty"`
	Frequency       string               `json:"frequency"`
	ParsedFrequency *Frequency           `json:"parsed_frequency,omitempty"`
	Route           string               `json:"route,omitempty"`
	StartDate       *time.Time           `json:"start_date,omitempty"`
	EndDate         *time.Time           `json:"end_date,omitempty"`
	Status          MedicationStatus     `json:"status"`
	Class           string               `json:"class,omitempty"`
	DailyDose       *float64             `json:"daily_dose,omitempty"`
	HighRisk        bool                 `json:"high_risk"`
	SideEffects     []string             `json:"side_effects,omitempty"`
	Interactions    []InteractionWarning `json:"interactions,omitempty"`
	SearchableText  string               `json:"searchable_text"`
	Timestamp       time.Time            `json:"timestamp"`
}

func (d *MedicationDocument) DocumentID() string         { return d.ID }
func (d *MedicationDocument) DocumentKind() DocumentKind { return KindMedication }

// Validate checks the medication invariants.
func (d *MedicationDocument) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: medication missing id", ErrInvalidDocument)
	}
	if d.PatientID == "" {
		return fmt.Errorf("%w: medication %s missing patient_id", ErrInvalidDocument, d.ID)
	}
	if d.DrugName == "" {
		return fmt.Errorf("%w: medication %s missing drug name", ErrInvalidDocument, d.ID)
	}
	if d.StartDate != nil && d.EndDate != nil && d.EndDate.Before(*d.StartDate) {
		return fmt.Errorf("%w: medication %s ends before it starts", ErrInvalidDocument, d.ID)
	}
	return nil
}
