package enrichers

import (
	"strings"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Vocabulary = (*StaticVocabulary)(nil)

// StaticVocabulary is the built-in clinical lookup service. Class and
// interaction lookups match by substring in table order, first match
// wins. When a drug name matches multiple keys the table order decides;
// no confidence score is attached. Known limitation, kept deliberately.
type StaticVocabulary struct{}

// NewStaticVocabulary returns the default vocabulary.
func NewStaticVocabulary() *StaticVocabulary {
	return &StaticVocabulary{}
}

// classEntry keeps the lookup table ordered so first-match-wins is
// reproducible.
type classEntry struct {
	key   string
	class string
}

var drugClasses = []classEntry{
	{"warfarin", "anticoagulant"},
	{"heparin", "anticoagulant"},
	{"aspirin", "antiplatelet"},
	{"clopidogrel", "antiplatelet"},
	{"metformin", "antidiabetic"},
	{"insulin", "antidiabetic"},
	{"glipizide", "antidiabetic"},
	{"lisinopril", "ace inhibitor"},
	{"enalapril", "ace inhibitor"},
	{"losartan", "arb"},
	{"metoprolol", "beta blocker"},
	{"atenolol", "beta blocker"},
	{"amlodipine", "calcium channel blocker"},
	{"diltiazem", "calcium channel blocker"},
	{"atorvastatin", "statin"},
	{"simvastatin", "statin"},
	{"furosemide", "loop diuretic"},
	{"hydrochlorothiazide", "thiazide diuretic"},
	{"amiodarone", "antiarrhythmic"},
	{"digoxin", "cardiac glycoside"},
	{"vancomycin", "antibiotic"},
	{"ciprofloxacin", "antibiotic"},
	{"amoxicillin", "antibiotic"},
	{"levothyroxine", "thyroid hormone"},
	{"omeprazole", "proton pump inhibitor"},
	{"pantoprazole", "proton pump inhibitor"},
	{"prednisone", "corticosteroid"},
	{"morphine", "opioid analgesic"},
	{"oxycodone", "opioid analgesic"},
	{"acetaminophen", "analgesic"},
	{"ibuprofen", "nsaid"},
	{"sertraline", "ssri"},
	{"lorazepam", "benzodiazepine"},
	{"albuterol", "bronchodilator"},
}

var highRiskDrugs = []string{
	"warfarin",
	"heparin",
	"insulin",
	"digoxin",
	"amiodarone",
	"methotrexate",
	"lithium",
	"vancomycin",
	"morphine",
	"oxycodone",
}

var knownInteractions = []domain.DrugInteraction{
	{
		DrugA:          "warfarin",
		DrugB:          "aspirin",
		Severity:       domain.InteractionMajor,
		Description:    "Combined anticoagulant and antiplatelet effect increases bleeding risk",
		Recommendation: "Avoid combination unless specifically indicated; monitor INR closely",
	},
	{
		DrugA:          "warfarin",
		DrugB:          "amiodarone",
		Severity:       domain.InteractionMajor,
		Description:    "Amiodarone inhibits warfarin metabolism, raising INR",
		Recommendation: "Reduce warfarin dose and monitor INR",
	},
	{
		DrugA:          "warfarin",
		DrugB:          "ibuprofen",
		Severity:       domain.InteractionMajor,
		Description:    "NSAIDs increase bleeding risk with anticoagulants",
		Recommendation: "Prefer acetaminophen for analgesia",
	},
	{
		DrugA:          "digoxin",
		DrugB:          "amiodarone",
		Severity:       domain.InteractionMajor,
		Description:    "Amiodarone raises digoxin serum levels",
		Recommendation: "Reduce digoxin dose; monitor levels",
	},
	{
		DrugA:          "digoxin",
		DrugB:          "furosemide",
		Severity:       domain.InteractionModerate,
		Description:    "Diuretic-induced hypokalemia potentiates digoxin toxicity",
		Recommendation: "Monitor potassium and digoxin levels",
	},
	{
		DrugA:          "simvastatin",
		DrugB:          "amiodarone",
		Severity:       domain.InteractionMajor,
		Description:    "Increased risk of myopathy and rhabdomyolysis",
		Recommendation: "Limit simvastatin dose to 20mg daily",
	},
	{
		DrugA:          "lisinopril",
		DrugB:          "ibuprofen",
		Severity:       domain.InteractionModerate,
		Description:    "NSAIDs blunt ACE inhibitor effect and stress renal function",
		Recommendation: "Monitor blood pressure and renal function",
	},
	{
		DrugA:          "insulin",
		DrugB:          "metoprolol",
		Severity:       domain.InteractionModerate,
		Description:    "Beta blockers can mask hypoglycemia symptoms",
		Recommendation: "Counsel patient; monitor glucose",
	},
	{
		DrugA:          "aspirin",
		DrugB:          "ibuprofen",
		Severity:       domain.InteractionModerate,
		Description:    "Ibuprofen competes for platelet binding, reducing aspirin cardioprotection",
		Recommendation: "Separate dosing times",
	},
	{
		DrugA:          "sertraline",
		DrugB:          "warfarin",
		Severity:       domain.InteractionModerate,
		Description:    "SSRIs impair platelet function and may raise bleeding risk",
		Recommendation: "Monitor for bleeding",
	},
}

type sideEffectEntry struct {
	key     string
	effects []string
}

var sideEffects = []sideEffectEntry{
	{"warfarin", []string{"bleeding", "bruising", "nausea"}},
	{"heparin", []string{"bleeding", "thrombocytopenia"}},
	{"aspirin", []string{"gastrointestinal upset", "bleeding", "tinnitus"}},
	{"metformin", []string{"gastrointestinal upset", "diarrhea", "lactic acidosis (rare)"}},
	{"insulin", []string{"hypoglycemia", "weight gain", "injection site reaction"}},
	{"lisinopril", []string{"dry cough", "dizziness", "hyperkalemia"}},
	{"metoprolol", []string{"fatigue", "bradycardia", "hypotension"}},
	{"atorvastatin", []string{"myalgia", "elevated liver enzymes"}},
	{"simvastatin", []string{"myalgia", "elevated liver enzymes"}},
	{"furosemide", []string{"hypokalemia", "dehydration", "ototoxicity"}},
	{"amiodarone", []string{"thyroid dysfunction", "pulmonary toxicity", "photosensitivity"}},
	{"digoxin", []string{"nausea", "visual disturbances", "arrhythmia"}},
	{"vancomycin", []string{"nephrotoxicity", "red man syndrome"}},
	{"omeprazole", []string{"headache", "nausea", "vitamin B12 deficiency"}},
	{"prednisone", []string{"hyperglycemia", "weight gain", "immunosuppression"}},
	{"morphine", []string{"constipation", "sedation", "respiratory depression"}},
}

// Severity term lists for note classification. High is checked first.
var highSeverityTerms = []string{
	"cardiac arrest",
	"respiratory failure",
	"septic shock",
	"sepsis",
	"hemorrhage",
	"myocardial infarction",
	"stroke",
	"intubated",
	"unresponsive",
	"code blue",
	"critical condition",
}

var mediumSeverityTerms = []string{
	"abnormal",
	"elevated",
	"worsening",
	"infection",
	"arrhythmia",
	"hypertensive",
	"pneumonia",
	"fracture",
	"deteriorating",
}

// Critical terms back has_critical_terms. Defined independently of the
// severity lists; the two classifiers may disagree on the same note.
var criticalTerms = []string{
	"cardiac arrest",
	"code blue",
	"stat",
	"critical",
	"emergent",
	"life-threatening",
	"anaphylaxis",
	"do not resuscitate",
}

var entityPatterns = map[string][]string{
	driven.CategoryConditions: {
		`\bdiabetes(?:\s+mellitus)?\b`,
		`\bhypertension\b`,
		`\bcopd\b`,
		`\basthma\b`,
		`\bpneumonia\b`,
		`\bsepsis\b`,
		`\b(?:congestive\s+)?heart\s+failure\b`,
		`\batrial\s+fibrillation\b`,
		`\b(?:chronic\s+)?(?:renal|kidney)\s+(?:disease|failure)\b`,
		`\bstroke\b`,
		`\bmyocardial\s+infarction\b`,
		`\bhyperlipidemia\b`,
		`\banemia\b`,
		`\bcoronary\s+(?:artery\s+disease|atherosclerosis)\b`,
	},
	driven.CategoryMedications: {
		`\bmetformin\b`,
		`\binsulin\b`,
		`\blisinopril\b`,
		`\bwarfarin\b`,
		`\baspirin\b`,
		`\bheparin\b`,
		`\bfurosemide\b`,
		`\batorvastatin\b`,
		`\bsimvastatin\b`,
		`\bamiodarone\b`,
		`\bdigoxin\b`,
		`\bvancomycin\b`,
		`\bmetoprolol\b`,
		`\bomeprazole\b`,
		`\bprednisone\b`,
		`\bmorphine\b`,
		`\balbuterol\b`,
	},
	driven.CategoryProcedures: {
		`\bintubation\b`,
		`\bcatheterization\b`,
		`\bdialysis\b`,
		`\btransfusion\b`,
		`\bbiopsy\b`,
		`\bendoscopy\b`,
		`\bmechanical\s+ventilation\b`,
		`\bsurgery\b`,
		`\bangioplasty\b`,
		`\bthoracentesis\b`,
	},
	driven.CategorySymptoms: {
		`\bchest\s+pain\b`,
		`\bshortness\s+of\s+breath\b`,
		`\bdyspnea\b`,
		`\bnausea\b`,
		`\bvomiting\b`,
		`\bfever\b`,
		`\bdizziness\b`,
		`\bfatigue\b`,
		`\bheadache\b`,
		`\bcough\b`,
		`\bedema\b`,
		`\bpalpitations\b`,
	},
}

// DrugClass resolves a drug name to its class by substring match,
// first matching table entry wins.
func (v *StaticVocabulary) DrugClass(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, e := range drugClasses {
		if strings.Contains(lower, e.key) {
			return e.class, true
		}
	}
	return "", false
}

// IsHighRisk reports whether the drug is on the high-risk list.
func (v *StaticVocabulary) IsHighRisk(name string) bool {
	lower := strings.ToLower(name)
	for _, d := range highRiskDrugs {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

// Interaction looks up a known interaction between two drugs. The lookup
// is symmetric in its arguments.
func (v *StaticVocabulary) Interaction(a, b string) (*domain.DrugInteraction, bool) {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for i := range knownInteractions {
		in := &knownInteractions[i]
		if (strings.Contains(la, in.DrugA) && strings.Contains(lb, in.DrugB)) ||
			(strings.Contains(la, in.DrugB) && strings.Contains(lb, in.DrugA)) {
			return in, true
		}
	}
	return nil, false
}

// SideEffects returns the common side effects for a drug, or nil.
func (v *StaticVocabulary) SideEffects(name string) []string {
	lower := strings.ToLower(name)
	for _, e := range sideEffects {
		if strings.Contains(lower, e.key) {
			return e.effects
		}
	}
	return nil
}

func (v *StaticVocabulary) HighSeverityTerms() []string   { return highSeverityTerms }
func (v *StaticVocabulary) MediumSeverityTerms() []string { return mediumSeverityTerms }
func (v *StaticVocabulary) CriticalTerms() []string       { return criticalTerms }

// EntityPatterns returns the regex patterns for one extraction category.
func (v *StaticVocabulary) EntityPatterns(category string) []string {
	return entityPatterns[category]
}
