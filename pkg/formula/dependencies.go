package formula

import (
	"strings"

	"github.com/goliatone/go-formdesigner/pkg/schema"
)

// ParseDependencies returns the identifiers a formula references, in
// first-seen order without duplicates. Every maximal run of letters, digits
// and underscores is a candidate; runs that are plain numbers are dropped.
// Characters outside that set only separate runs.
func ParseDependencies(formula string) []string {
	var out []string
	seen := make(map[string]struct{})
	flush := func(raw string) {
		if raw == "" || isDigits(raw) {
			return
		}
		if _, dup := seen[raw]; dup {
			return
		}
		seen[raw] = struct{}{}
		out = append(out, raw)
	}

	start := -1
	for i := 0; i < len(formula); i++ {
		if isWordChar(formula[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(formula[start:i])
			start = -1
		}
	}
	if start >= 0 {
		flush(formula[start:])
	}
	return out
}

// DetectCircularDependency reports whether giving formulaFieldID the
// supplied formula would close a cycle. deps lists the formula's direct
// references; when nil they are parsed from formula. References resolve by
// field id first, then by fieldName. A visited set keeps the walk bounded
// even when the stored document already contains an unrelated cycle.
func DetectCircularDependency(form *schema.Form, formulaFieldID, formula string, deps []string) bool {
	if form == nil || formulaFieldID == "" {
		return false
	}
	if deps == nil {
		deps = ParseDependencies(formula)
	}

	visited := make(map[string]struct{})
	var reaches func(field *schema.Field) bool
	reaches = func(field *schema.Field) bool {
		if _, seen := visited[field.ID]; seen {
			return false
		}
		visited[field.ID] = struct{}{}
		for _, dep := range fieldDependencies(*field) {
			next, ok := form.FieldByKey(dep)
			if !ok {
				continue
			}
			if next.ID == formulaFieldID || reaches(next) {
				return true
			}
		}
		return false
	}

	for _, dep := range deps {
		field, ok := form.FieldByKey(dep)
		if !ok {
			continue
		}
		if field.ID == formulaFieldID || reaches(field) {
			return true
		}
	}
	return false
}

// FindCycles returns the ids of formula fields that sit on a dependency
// cycle, in document order.
func FindCycles(form *schema.Form) []string {
	if form == nil {
		return nil
	}
	var out []string
	for _, field := range form.Fields() {
		if !field.IsFormula() {
			continue
		}
		if DetectCircularDependency(form, field.ID, field.Formula, fieldDependencies(field)) {
			out = append(out, field.ID)
		}
	}
	return out
}

// Dependents returns the ids of fields whose formulas reference the field
// with the given id, either by id or by fieldName.
func Dependents(form *schema.Form, fieldID string) []string {
	if form == nil {
		return nil
	}
	target, ok := form.FieldByKey(fieldID)
	if !ok {
		return nil
	}
	keys := map[string]struct{}{target.ID: {}}
	if target.FieldName != "" {
		keys[target.FieldName] = struct{}{}
	}

	var out []string
	for _, field := range form.Fields() {
		if field.ID == target.ID {
			continue
		}
		for _, dep := range fieldDependencies(field) {
			if _, hit := keys[dep]; hit {
				out = append(out, field.ID)
				break
			}
		}
	}
	return out
}

// fieldDependencies ignores fields explicitly switched back to manual entry;
// their stale formula is never evaluated.
func fieldDependencies(field schema.Field) []string {
	if field.ValueSource == schema.ValueSourceManual {
		return nil
	}
	if len(field.Dependencies) > 0 {
		return field.Dependencies
	}
	if field.Formula != "" {
		return ParseDependencies(field.Formula)
	}
	return nil
}

// RenameReferences rewrites identifier runs found in renames, leaving
// numbers, operators and spacing untouched. It is used when fields are copied
// with fresh ids so formulas keep pointing inside the copy.
func RenameReferences(formula string, renames map[string]string) string {
	if len(renames) == 0 || formula == "" {
		return formula
	}
	var b strings.Builder
	b.Grow(len(formula))
	start := -1
	flush := func(end int) {
		raw := formula[start:end]
		if replacement, ok := renames[raw]; ok {
			b.WriteString(replacement)
		} else {
			b.WriteString(raw)
		}
		start = -1
	}
	for i := 0; i < len(formula); i++ {
		if isWordChar(formula[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(i)
		}
		b.WriteByte(formula[i])
	}
	if start >= 0 {
		flush(len(formula))
	}
	return b.String()
}
