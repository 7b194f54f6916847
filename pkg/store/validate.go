package store

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formdesigner/pkg/formula"
	"github.com/goliatone/go-formdesigner/pkg/schema"
)

// Severity grades a save-time issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes reported by ValidateForSave.
const (
	IssueRootInvalid       = "root_invalid"
	IssueCircularFormula   = "circular_formula"
	IssueInvalidFormula    = "invalid_formula"
	IssueDuplicateKey      = "duplicate_key"
	IssueEmptyOptions      = "empty_options"
	IssueMissingCatalogKey = "missing_option_source"
)

// Issue is a single finding. Only blocking issues prevent a save.
type Issue struct {
	FieldID   string   `json:"fieldId,omitempty"`
	SectionID string   `json:"sectionId,omitempty"`
	Severity  Severity `json:"severity"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Blocking  bool     `json:"blocking"`
}

// Report collects the findings of ValidateForSave.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Blocking reports whether any issue prevents saving.
func (r Report) Blocking() bool {
	for _, issue := range r.Issues {
		if issue.Blocking {
			return true
		}
	}
	return false
}

// ValidateFormulas runs the advisory syntax check on every formula field,
// keyed by field id.
func (s *Store) ValidateFormulas() map[string]formula.Result {
	form := s.Form()
	return validateFormulas(&form)
}

func validateFormulas(form *schema.Form) map[string]formula.Result {
	var ids, names []string
	for _, field := range form.Fields() {
		ids = append(ids, field.ID)
		if field.FieldName != "" {
			names = append(names, field.FieldName)
		}
	}
	out := make(map[string]formula.Result)
	for _, field := range form.Fields() {
		if field.Type != schema.FieldTypeNumber || field.ValueSource != schema.ValueSourceFormula {
			continue
		}
		out[field.ID] = formula.ValidateSyntax(field.Formula, ids, names, field.ID)
	}
	return out
}

// ValidateForSave inspects the document before it is persisted. Root
// problems and formula cycles block the save and are reported through an
// error wrapping ErrSaveBlocked; everything else is a warning.
func (s *Store) ValidateForSave() (Report, error) {
	form := s.Form()
	var report Report

	if err := schema.ValidateRoot(form); err != nil {
		report.Issues = append(report.Issues, Issue{
			Severity: SeverityError,
			Code:     IssueRootInvalid,
			Message:  err.Error(),
			Blocking: true,
		})
	}

	cycles := formula.FindCycles(&form)
	for _, id := range cycles {
		report.Issues = append(report.Issues, Issue{
			FieldID:   id,
			SectionID: sectionOf(&form, id),
			Severity:  SeverityError,
			Code:      IssueCircularFormula,
			Message:   "Formula is part of a circular dependency",
			Blocking:  true,
		})
	}

	results := validateFormulas(&form)
	seenKeys := make(map[string]string)
	for _, section := range form.Sections {
		for _, field := range section.Fields {
			if result, ok := results[field.ID]; ok && !result.Valid {
				report.Issues = append(report.Issues, Issue{
					FieldID:   field.ID,
					SectionID: section.ID,
					Severity:  SeverityWarning,
					Code:      IssueInvalidFormula,
					Message:   result.Reason,
				})
			}
			if field.FieldName != "" {
				if other, dup := seenKeys[field.FieldName]; dup {
					report.Issues = append(report.Issues, Issue{
						FieldID:   field.ID,
						SectionID: section.ID,
						Severity:  SeverityWarning,
						Code:      IssueDuplicateKey,
						Message:   fmt.Sprintf("fieldName %q is also used by %s", field.FieldName, other),
					})
				} else {
					seenKeys[field.FieldName] = field.ID
				}
			}
			if !field.Type.HasOptions() {
				continue
			}
			switch field.OptionSource {
			case schema.OptionSourceMaster, schema.OptionSourceLookup:
				key := field.MasterType
				if field.OptionSource == schema.OptionSourceLookup {
					key = field.LookupSource
				}
				if strings.TrimSpace(key) == "" {
					report.Issues = append(report.Issues, Issue{
						FieldID:   field.ID,
						SectionID: section.ID,
						Severity:  SeverityWarning,
						Code:      IssueMissingCatalogKey,
						Message:   fmt.Sprintf("%s option source has no key", field.OptionSource),
					})
				}
			default:
				if len(field.Options) == 0 {
					report.Issues = append(report.Issues, Issue{
						FieldID:   field.ID,
						SectionID: section.ID,
						Severity:  SeverityWarning,
						Code:      IssueEmptyOptions,
						Message:   "Choice field has no options",
					})
				}
			}
		}
	}

	if report.Blocking() {
		if len(cycles) > 0 {
			return report, fmt.Errorf("%w: circular formulas %s", ErrSaveBlocked, strings.Join(cycles, ", "))
		}
		return report, fmt.Errorf("%w: invalid form root", ErrSaveBlocked)
	}
	return report, nil
}

func sectionOf(form *schema.Form, fieldID string) string {
	if ref, ok := form.FindField(fieldID); ok {
		return form.Sections[ref.Section].ID
	}
	return ""
}
