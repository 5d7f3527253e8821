package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Vocabulary = (*VocabularyStore)(nil)

// VocabularyStore serves the clinical vocabulary from Postgres tables,
// letting operators curate drug classes, interactions, and term lists
// without a rebuild. Tables load once at construction; lookup order
// follows the position columns, so first-match-wins semantics match the
// built-in vocabulary.
type VocabularyStore struct {
	classes       []classRow
	highRisk      []string
	interactions  []domain.DrugInteraction
	sideEffects   []sideEffectRow
	highTerms     []string
	mediumTerms   []string
	criticalTerms []string
	patterns      map[string][]string
}

type classRow struct {
	key   string
	class string
}

type sideEffectRow struct {
	key     string
	effects []string
}

// LoadVocabulary reads every vocabulary table into memory.
func LoadVocabulary(ctx context.Context, db *DB) (*VocabularyStore, error) {
	v := &VocabularyStore{patterns: make(map[string][]string)}

	if err := v.loadClasses(ctx, db); err != nil {
		return nil, err
	}
	if err := v.loadHighRisk(ctx, db); err != nil {
		return nil, err
	}
	if err := v.loadInteractions(ctx, db); err != nil {
		return nil, err
	}
	if err := v.loadSideEffects(ctx, db); err != nil {
		return nil, err
	}
	if err := v.loadTermLists(ctx, db); err != nil {
		return nil, err
	}
	if err := v.loadPatterns(ctx, db); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *VocabularyStore) loadClasses(ctx context.Context, db *DB) error {
	rows, err := db.QueryContext(ctx,
		`SELECT drug_key, drug_class FROM drug_classes ORDER BY position`)
	if err != nil {
		return fmt.Errorf("loading drug classes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r classRow
		if err := rows.Scan(&r.key, &r.class); err != nil {
			return err
		}
		v.classes = append(v.classes, r)
	}
	return rows.Err()
}

func (v *VocabularyStore) loadHighRisk(ctx context.Context, db *DB) error {
	rows, err := db.QueryContext(ctx, `SELECT drug_key FROM high_risk_drugs`)
	if err != nil {
		return fmt.Errorf("loading high-risk drugs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return err
		}
		v.highRisk = append(v.highRisk, key)
	}
	return rows.Err()
}

func (v *VocabularyStore) loadInteractions(ctx context.Context, db *DB) error {
	rows, err := db.QueryContext(ctx,
		`SELECT drug_a, drug_b, severity, description, recommendation
		 FROM drug_interactions ORDER BY position`)
	if err != nil {
		return fmt.Errorf("loading drug interactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var in domain.DrugInteraction
		var severity string
		if err := rows.Scan(&in.DrugA, &in.DrugB, &severity, &in.Description, &in.Recommendation); err != nil {
			return err
		}
		in.Severity = domain.InteractionSeverity(severity)
		v.interactions = append(v.interactions, in)
	}
	return rows.Err()
}

func (v *VocabularyStore) loadSideEffects(ctx context.Context, db *DB) error {
	rows, err := db.QueryContext(ctx,
		`SELECT drug_key, effects FROM drug_side_effects ORDER BY position`)
	if err != nil {
		return fmt.Errorf("loading side effects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r sideEffectRow
		var raw []byte
		if err := rows.Scan(&r.key, &raw); err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &r.effects); err != nil {
			return fmt.Errorf("unmarshaling side effects for %s: %w", r.key, err)
		}
		v.sideEffects = append(v.sideEffects, r)
	}
	return rows.Err()
}

func (v *VocabularyStore) loadTermLists(ctx context.Context, db *DB) error {
	rows, err := db.QueryContext(ctx,
		`SELECT list, term FROM severity_terms ORDER BY list, position`)
	if err != nil {
		return fmt.Errorf("loading severity terms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var list, term string
		if err := rows.Scan(&list, &term); err != nil {
			return err
		}
		switch list {
		case "high_severity":
			v.highTerms = append(v.highTerms, term)
		case "medium_severity":
			v.mediumTerms = append(v.mediumTerms, term)
		case "critical":
			v.criticalTerms = append(v.criticalTerms, term)
		}
	}
	return rows.Err()
}

func (v *VocabularyStore) loadPatterns(ctx context.Context, db *DB) error {
	rows, err := db.QueryContext(ctx,
		`SELECT category, pattern FROM entity_patterns ORDER BY category, position`)
	if err != nil {
		return fmt.Errorf("loading entity patterns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category, pattern string
		if err := rows.Scan(&category, &pattern); err != nil {
			return err
		}
		v.patterns[category] = append(v.patterns[category], pattern)
	}
	return rows.Err()
}

// DrugClass resolves a drug name by substring match in table order.
func (v *VocabularyStore) DrugClass(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, r := range v.classes {
		if strings.Contains(lower, r.key) {
			return r.class, true
		}
	}
	return "", false
}

// IsHighRisk reports whether the drug is on the high-risk list.
func (v *VocabularyStore) IsHighRisk(name string) bool {
	lower := strings.ToLower(name)
	for _, key := range v.highRisk {
		if strings.Contains(lower, key) {
			return true
		}
	}
	return false
}

// Interaction looks up a known interaction, symmetric in its arguments.
func (v *VocabularyStore) Interaction(a, b string) (*domain.DrugInteraction, bool) {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for i := range v.interactions {
		in := &v.interactions[i]
		if (strings.Contains(la, in.DrugA) && strings.Contains(lb, in.DrugB)) ||
			(strings.Contains(la, in.DrugB) && strings.Contains(lb, in.DrugA)) {
			return in, true
		}
	}
	return nil, false
}

// SideEffects returns the common side effects for a drug, or nil.
func (v *VocabularyStore) SideEffects(name string) []string {
	lower := strings.ToLower(name)
	for _, r := range v.sideEffects {
		if strings.Contains(lower, r.key) {
			return r.effects
		}
	}
	return nil
}

func (v *VocabularyStore) HighSeverityTerms() []string   { return v.highTerms }
func (v *VocabularyStore) MediumSeverityTerms() []string { return v.mediumTerms }
func (v *VocabularyStore) CriticalTerms() []string       { return v.criticalTerms }

// EntityPatterns returns the regex patterns for one extraction category.
func (v *VocabularyStore) EntityPatterns(category string) []string {
	return v.patterns[category]
}

// Empty reports whether no vocabulary rows are loaded. Callers fall
// back to the built-in vocabulary when the tables are unseeded.
func (v *VocabularyStore) Empty() bool {
	return len(v.classes) == 0 && len(v.highTerms) == 0 &&
		len(v.mediumTerms) == 0 && len(v.criticalTerms) == 0
}
