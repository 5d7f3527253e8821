package domain

// Raw rows as read from the delimited source tables. All fields are
// strings at this boundary; typing and parsing happen during enrichment
// so that a malformed cell degrades a field instead of dropping the row.

// RawPatient is one row of the demographics table.
type RawPatient struct {
	SubjectID string
	Gender    string
	BirthDate string
	DeathDate string
}

// RawAdmission is one row of the admissions table.
type RawAdmission struct {
	AdmissionID   string
	SubjectID     string
	AdmitTime     string
	DischargeTime string
	Type          string
	Location      string
	Insurance     string
	Diagnosis     string
}

// RawNote is one row of the clinical notes table.
type RawNote struct {
	NoteID      string
	SubjectID   string
	AdmissionID string
	Category    string
	Title       string
	Content     string
	Author      string
	Department  string
	ChartDate   string
}

// RawLabEvent is one row of the lab events table.
type RawLabEvent struct {
	LabID       string
	SubjectID   string
	AdmissionID string
	ItemID      string
	Value       string
	ValueNum    string
	Unit        string
	Flag        string
	ChartTime   string
}

// RawLabItem is one row of the lab item dictionary.
type RawLabItem struct {
	ItemID    int
	Label     string
	Fluid     string
	Category  string
	LoincCode string
}

// RawPrescription is one row of the prescriptions table.
type RawPrescription struct {
	PrescriptionID string
	SubjectID      string
	DrugName       string
	GenericName    string
	Dosage         string
	Frequency      string
	Route          string
	StartDate      string
	EndDate        string
	Status         string
}
