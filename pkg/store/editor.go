package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formdesigner/pkg/catalog"
	"github.com/goliatone/go-formdesigner/pkg/formula"
	"github.com/goliatone/go-formdesigner/pkg/schema"
)

// editor applies mutations to a draft copy of the document. The store (or a
// batch) commits the draft when dirty is set; otherwise it is discarded.
type editor struct {
	form     *schema.Form
	ids      schema.IDFunc
	catalog  *catalog.Catalog
	logger   *slog.Logger
	selected string
	dirty    bool
	// reserved holds ids handed out for values not yet inserted in form.
	reserved map[string]struct{}
}

func (e *editor) notFound(op, kind, id string) {
	e.logger.Debug("store: no-op, "+kind+" not found", slog.String("op", op), slog.String("id", id))
}

// newID asks the generator for an id that is not used anywhere in the draft.
func (e *editor) newID(prefix string) string {
	for {
		candidate := e.ids(prefix)
		if !e.idInUse(candidate) {
			return candidate
		}
	}
}

func (e *editor) idInUse(id string) bool {
	if id == "" {
		return true
	}
	if _, ok := e.reserved[id]; ok {
		return true
	}
	if e.form.SectionIndex(id) >= 0 {
		return true
	}
	_, ok := e.form.FindField(id)
	return ok
}

func (e *editor) addSection() string {
	section := schema.Section{
		ID:     e.newID("section"),
		Title:  fmt.Sprintf("Section %d", len(e.form.Sections)+1),
		Fields: []schema.Field{},
		Order:  len(e.form.Sections),
	}
	e.form.Sections = append(e.form.Sections, section)
	e.dirty = true
	return section.ID
}

func (e *editor) removeSection(id string) {
	idx := e.form.SectionIndex(id)
	if idx < 0 {
		e.notFound("removeSection", "section", id)
		return
	}
	for _, field := range e.form.Sections[idx].Fields {
		if field.ID == e.selected {
			e.selected = ""
		}
	}
	e.form.Sections = append(e.form.Sections[:idx], e.form.Sections[idx+1:]...)
	e.dirty = true
}

func (e *editor) updateSection(id string, patch schema.Patch) error {
	idx := e.form.SectionIndex(id)
	if idx < 0 {
		e.notFound("updateSection", "section", id)
		return nil
	}
	current := e.form.Sections[idx]
	var updated schema.Section
	if err := schema.ApplyPatch(current, patch.Without("id", "fields", "order"), &updated); err != nil {
		return fmt.Errorf("store: update section %q: %w", id, err)
	}
	updated.ID = current.ID
	updated.Fields = current.Fields
	updated.Order = current.Order
	updated.Title = schema.SanitizeText(updated.Title)
	updated.Description = schema.SanitizeText(updated.Description)
	if unchanged(current, updated) {
		return nil
	}
	e.form.Sections[idx] = updated
	e.dirty = true
	return nil
}

// unchanged reports whether a patch left a value as it was. Nil and empty
// collections compare equal.
func unchanged[T any](current, updated T) bool {
	return cmp.Equal(current, updated, cmpopts.EquateEmpty())
}

func (e *editor) moveSection(from, to int) {
	n := len(e.form.Sections)
	if n < 2 {
		return
	}
	from = clamp(from, 0, n-1)
	to = clamp(to, 0, n-1)
	if from == to {
		return
	}
	section := e.form.Sections[from]
	e.form.Sections = append(e.form.Sections[:from], e.form.Sections[from+1:]...)
	e.form.Sections = insertAt(e.form.Sections, to, section)
	e.dirty = true
}

func (e *editor) addField(sectionID string, fieldType schema.FieldType, index int) (string, error) {
	if !fieldType.Valid() {
		return "", fmt.Errorf("store: add field: %w: %q", schema.ErrUnknownFieldType, string(fieldType))
	}

	var target int
	if strings.TrimSpace(sectionID) == "" {
		if len(e.form.Sections) > 0 {
			return "", ErrSectionRequired
		}
		e.addSection()
		target = 0
	} else {
		target = e.form.SectionIndex(sectionID)
		if target < 0 {
			e.notFound("addField", "section", sectionID)
			return "", nil
		}
	}

	field, err := schema.NewField(fieldType, e.newID("field"))
	if err != nil {
		return "", err
	}
	fields := e.form.Sections[target].Fields
	if index < 0 || index > len(fields) {
		index = len(fields)
	}
	e.form.Sections[target].Fields = insertAt(fields, index, field)
	e.dirty = true
	return field.ID, nil
}

func (e *editor) removeField(id string) {
	ref, ok := e.form.FindField(id)
	if !ok {
		e.notFound("removeField", "field", id)
		return
	}
	if dependents := formula.Dependents(e.form, id); len(dependents) > 0 {
		e.logger.Info("store: removed field is still referenced by formulas",
			slog.String("id", id), slog.Any("dependents", dependents))
	}
	section := &e.form.Sections[ref.Section]
	section.Fields = append(section.Fields[:ref.Index], section.Fields[ref.Index+1:]...)
	if e.selected == id {
		e.selected = ""
	}
	e.dirty = true
}

func (e *editor) updateField(id string, patch schema.Patch) error {
	ref, ok := e.form.FindField(id)
	if !ok {
		e.notFound("updateField", "field", id)
		return nil
	}
	current := e.form.Sections[ref.Section].Fields[ref.Index]

	var updated schema.Field
	if err := schema.ApplyPatch(current, patch.Without("id", "order", "dependencies"), &updated); err != nil {
		return fmt.Errorf("store: update field %q: %w", id, err)
	}
	updated.ID = current.ID
	updated.Order = current.Order
	if !updated.Type.Valid() {
		return fmt.Errorf("store: update field %q: %w: %q", id, schema.ErrUnknownFieldType, string(updated.Type))
	}

	if layout, ok := patch.Nested("layout"); ok {
		_, hasSpan := layout["span"]
		_, hasWidth := layout["width"]
		if hasWidth && !hasSpan {
			updated.Layout.SyncFromWidth()
		}
	}

	if rules, ok := patch.Nested("validations"); ok {
		if preset, ok := rules[schema.RuleValidationType].(string); ok && preset != "" {
			if updated.Validations == nil {
				updated.Validations = &schema.FieldValidations{}
			}
			schema.ApplyPreset(updated.Validations, preset)
		}
	}

	schema.NormalizeField(&updated)

	if updated.IsFormula() {
		updated.Dependencies = formula.ParseDependencies(updated.Formula)
	}
	if unchanged(current, updated) {
		return nil
	}
	e.form.Sections[ref.Section].Fields[ref.Index] = updated

	if updated.IsFormula() && formula.DetectCircularDependency(e.form, updated.ID, updated.Formula, updated.Dependencies) {
		e.form.Sections[ref.Section].Fields[ref.Index] = current
		return &formula.Error{
			FieldID: updated.ID,
			Formula: updated.Formula,
			Reason:  "formula creates a circular dependency",
			Err:     formula.ErrCircularDependency,
		}
	}
	e.dirty = true
	return nil
}

func (e *editor) moveField(id, targetSectionID string, index int) {
	ref, ok := e.form.FindField(id)
	if !ok {
		e.notFound("moveField", "field", id)
		return
	}
	target := ref.Section
	if strings.TrimSpace(targetSectionID) != "" {
		target = e.form.SectionIndex(targetSectionID)
		if target < 0 {
			e.notFound("moveField", "section", targetSectionID)
			return
		}
	}

	source := &e.form.Sections[ref.Section]
	field := source.Fields[ref.Index]
	source.Fields = append(source.Fields[:ref.Index], source.Fields[ref.Index+1:]...)

	dest := &e.form.Sections[target]
	index = clamp(index, 0, len(dest.Fields))
	if target == ref.Section && index == ref.Index {
		dest.Fields = insertAt(dest.Fields, index, field)
		return
	}
	dest.Fields = insertAt(dest.Fields, index, field)
	e.dirty = true
}

func (e *editor) setOptionSource(fieldID string, source schema.OptionSource, key string) error {
	ref, ok := e.form.FindField(fieldID)
	if !ok {
		e.notFound("setOptionSource", "field", fieldID)
		return nil
	}
	field := &e.form.Sections[ref.Section].Fields[ref.Index]
	if !field.Type.HasOptions() {
		return fmt.Errorf("%w: %s", ErrOptionsUnsupported, field.Type)
	}

	key = strings.TrimSpace(key)
	field.Options = nil
	field.MasterType = ""
	field.LookupSource = ""

	switch source {
	case schema.OptionSourceStatic:
		field.Options = schema.DefaultOptions()
	case schema.OptionSourceMaster:
		field.MasterType = key
		field.Options, _ = e.catalog.Options(schema.OptionSourceMaster, key)
	case schema.OptionSourceLookup:
		field.LookupSource = key
		field.Options, _ = e.catalog.Options(schema.OptionSourceLookup, key)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOptionSource, string(source))
	}
	field.OptionSource = source
	e.dirty = true
	return nil
}

func (e *editor) staticOptionsField(op, fieldID string) (*schema.Field, error) {
	ref, ok := e.form.FindField(fieldID)
	if !ok {
		e.notFound(op, "field", fieldID)
		return nil, nil
	}
	field := &e.form.Sections[ref.Section].Fields[ref.Index]
	if !field.Type.HasOptions() {
		return nil, fmt.Errorf("%w: %s", ErrOptionsUnsupported, field.Type)
	}
	if field.OptionSource != "" && field.OptionSource != schema.OptionSourceStatic {
		return nil, ErrNotStatic
	}
	return field, nil
}

func (e *editor) addOption(fieldID, label string) (string, error) {
	field, err := e.staticOptionsField("addOption", fieldID)
	if field == nil || err != nil {
		return "", err
	}
	value := schema.NextOptionValue(field.Options)
	label = schema.SanitizeText(strings.TrimSpace(label))
	if label == "" {
		label = fmt.Sprintf("Option %d", len(field.Options)+1)
	}
	field.Options = append(field.Options, schema.Option{Label: label, Value: value})
	e.dirty = true
	return value, nil
}

func (e *editor) removeOption(fieldID, value string) error {
	field, err := e.staticOptionsField("removeOption", fieldID)
	if field == nil || err != nil {
		return err
	}
	for idx, opt := range field.Options {
		if opt.Value == value {
			field.Options = append(field.Options[:idx], field.Options[idx+1:]...)
			e.dirty = true
			return nil
		}
	}
	e.notFound("removeOption", "option", value)
	return nil
}

func (e *editor) duplicateField(id string) string {
	ref, ok := e.form.FindField(id)
	if !ok {
		e.notFound("duplicateField", "field", id)
		return ""
	}
	clone := schema.CloneField(e.form.Sections[ref.Section].Fields[ref.Index])
	clone.ID = e.newID("field")
	clone.Label = strings.TrimSpace(clone.Label + " (copy)")
	if clone.FieldName != "" {
		clone.FieldName = e.uniqueFieldName(clone.FieldName + "_copy")
	}
	section := &e.form.Sections[ref.Section]
	section.Fields = insertAt(section.Fields, ref.Index+1, clone)
	e.dirty = true
	return clone.ID
}

func (e *editor) duplicateSection(id string) string {
	idx := e.form.SectionIndex(id)
	if idx < 0 {
		e.notFound("duplicateSection", "section", id)
		return ""
	}
	clone := schema.CloneSection(e.form.Sections[idx])
	clone.Title = strings.TrimSpace(clone.Title + " (copy)")
	e.reissueSection(&clone, "_copy")
	e.form.Sections = insertAt(e.form.Sections, idx+1, clone)
	e.dirty = true
	return clone.ID
}

func (e *editor) addSectionFromTemplate(templateID string) string {
	template, ok := e.catalog.SectionTemplate(templateID)
	if !ok {
		e.notFound("addSectionFromTemplate", "template", templateID)
		return ""
	}
	e.reissueSection(&template, "")
	e.form.Sections = append(e.form.Sections, template)
	e.dirty = true
	return template.ID
}

// reissueSection gives a copied section fresh ids and, when suffix is set,
// fresh field names. Formulas inside the copy are rewritten to reference
// the copied fields instead of the originals.
func (e *editor) reissueSection(section *schema.Section, suffix string) {
	renames := make(map[string]string, len(section.Fields)*2)
	e.reissue(section, suffix, renames)
	rewriteFormulas(section, renames)
}

// reissueForm gives every section and field of the draft a fresh id and
// rewrites formulas across the whole form.
func (e *editor) reissueForm() {
	renames := make(map[string]string)
	for si := range e.form.Sections {
		e.reissue(&e.form.Sections[si], "", renames)
	}
	for si := range e.form.Sections {
		rewriteFormulas(&e.form.Sections[si], renames)
	}
}

func (e *editor) reissue(section *schema.Section, suffix string, renames map[string]string) {
	section.ID = e.newID("section")
	e.reserve(section.ID)
	for fi := range section.Fields {
		field := &section.Fields[fi]
		newID := e.newID("field")
		renames[field.ID] = newID
		field.ID = newID
		e.reserve(newID)
		if field.FieldName != "" && suffix != "" {
			renamed := e.uniqueFieldName(field.FieldName + suffix)
			renames[field.FieldName] = renamed
			field.FieldName = renamed
		}
	}
}

func rewriteFormulas(section *schema.Section, renames map[string]string) {
	for fi := range section.Fields {
		field := &section.Fields[fi]
		if field.Formula == "" {
			continue
		}
		field.Formula = formula.RenameReferences(field.Formula, renames)
		if field.IsFormula() {
			field.Dependencies = formula.ParseDependencies(field.Formula)
		}
	}
}

func (e *editor) uniqueFieldName(base string) string {
	candidate := base
	for n := 2; ; n++ {
		if _, taken := e.form.FieldByKey(candidate); !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", base, n)
	}
}

func (e *editor) reserve(id string) {
	if e.reserved == nil {
		e.reserved = make(map[string]struct{})
	}
	e.reserved[id] = struct{}{}
}

func insertAt[T any](items []T, index int, item T) []T {
	if index < 0 {
		index = 0
	}
	if index >= len(items) {
		return append(items, item)
	}
	items = append(items, item)
	copy(items[index+1:], items[index:])
	items[index] = item
	return items
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
