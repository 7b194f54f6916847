package store_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formdesigner/pkg/catalog"
	"github.com/goliatone/go-formdesigner/pkg/formula"
	"github.com/goliatone/go-formdesigner/pkg/schema"
	"github.com/goliatone/go-formdesigner/pkg/store"
)

func newTestStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	base := []store.Option{store.WithIDGenerator(store.SequentialIDs())}
	s, err := store.New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func mustAddField(t *testing.T, s *store.Store, sectionID string, fieldType schema.FieldType) string {
	t.Helper()
	id, err := s.AddField(sectionID, fieldType, -1)
	if err != nil {
		t.Fatalf("add %s field: %v", fieldType, err)
	}
	if id == "" {
		t.Fatalf("add %s field returned empty id", fieldType)
	}
	return id
}

func mustUpdateField(t *testing.T, s *store.Store, id string, patch schema.Patch) {
	t.Helper()
	if err := s.UpdateField(id, patch); err != nil {
		t.Fatalf("update field %s: %v", id, err)
	}
}

func fieldByID(t *testing.T, form schema.Form, id string) schema.Field {
	t.Helper()
	ref, ok := form.FindField(id)
	if !ok {
		t.Fatalf("field %s not found", id)
	}
	return form.Sections[ref.Section].Fields[ref.Index]
}

func TestNew_DefaultDocument(t *testing.T) {
	s := newTestStore(t)
	form := s.Form()
	if form.ID != "form_1" || form.Title != "Untitled Form" || form.FormName != "untitled_form" {
		t.Fatalf("unexpected root: %+v", form)
	}
	if len(form.Sections) != 0 {
		t.Fatalf("expected no sections, got %d", len(form.Sections))
	}
	if s.CanUndo() || s.CanRedo() {
		t.Fatalf("fresh store should have no history to travel")
	}
}

func TestNew_InitialFormRequiresRoot(t *testing.T) {
	_, err := store.New(store.WithInitialForm(schema.Form{Title: "No id", FormName: "no_id"}))
	if !errors.Is(err, schema.ErrFormIDMissing) {
		t.Fatalf("expected ErrFormIDMissing, got %v", err)
	}
}

func TestUndoAfterBatchOfEdits(t *testing.T) {
	s := newTestStore(t)

	sectionID := s.AddSection()
	fieldID := mustAddField(t, s, sectionID, schema.FieldTypeText)
	mustUpdateField(t, s, fieldID, schema.Patch{"label": "X"})

	if got := fieldByID(t, s.Form(), fieldID).Label; got != "X" {
		t.Fatalf("label not updated: %q", got)
	}

	for i := 0; i < 3; i++ {
		if !s.Undo() {
			t.Fatalf("undo %d failed", i+1)
		}
	}
	if got := len(s.Form().Sections); got != 0 {
		t.Fatalf("expected zero sections after three undos, got %d", got)
	}
	if s.CanUndo() {
		t.Fatalf("canUndo should be false at the start of history")
	}
	if s.Undo() {
		t.Fatalf("undo past the start should report false")
	}
	if !s.CanRedo() {
		t.Fatalf("redo should be available")
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	before := s.Form()

	first := s.AddSection()
	fieldID := mustAddField(t, s, first, schema.FieldTypeNumber)
	mustUpdateField(t, s, fieldID, schema.Patch{"label": "Quantity", "fieldName": "quantity"})
	s.AddSection()
	s.MoveSection(1, 0)
	const mutations = 5

	after := s.Form()
	for i := 0; i < mutations; i++ {
		if !s.Undo() {
			t.Fatalf("undo %d failed", i+1)
		}
	}
	if diff := cmp.Diff(before, s.Form(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("undo did not restore the initial document (-want +got):\n%s", diff)
	}

	for i := 0; i < mutations; i++ {
		if !s.Redo() {
			t.Fatalf("redo %d failed", i+1)
		}
	}
	if diff := cmp.Diff(after, s.Form(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("redo did not restore the final document (-want +got):\n%s", diff)
	}
	if s.CanRedo() {
		t.Fatalf("redo should be exhausted")
	}
}

func TestMutationAfterUndoTruncatesRedo(t *testing.T) {
	s := newTestStore(t)
	s.AddSection()
	s.AddSection()
	s.Undo()
	if !s.CanRedo() {
		t.Fatalf("expected redo after undo")
	}
	s.AddSection()
	if s.CanRedo() {
		t.Fatalf("a new mutation must drop redo entries")
	}
	if got := len(s.Form().Sections); got != 2 {
		t.Fatalf("expected 2 sections, got %d", got)
	}
}

func TestHistoryLimit(t *testing.T) {
	s := newTestStore(t, store.WithHistoryLimit(3))
	for i := 0; i < 5; i++ {
		s.AddSection()
	}
	undos := 0
	for s.Undo() {
		undos++
	}
	if undos != 2 {
		t.Fatalf("expected 2 undos with a limit of 3 snapshots, got %d", undos)
	}
	if got := len(s.Form().Sections); got != 3 {
		t.Fatalf("expected oldest retained snapshot to hold 3 sections, got %d", got)
	}
}

func TestAddSection_TitlesAndOrder(t *testing.T) {
	s := newTestStore(t)
	first := s.AddSection()
	second := s.AddSection()

	form := s.Form()
	if form.Sections[0].ID != first || form.Sections[1].ID != second {
		t.Fatalf("unexpected section ids: %+v", form.Sections)
	}
	if form.Sections[0].Title != "Section 1" || form.Sections[1].Title != "Section 2" {
		t.Fatalf("unexpected titles: %q %q", form.Sections[0].Title, form.Sections[1].Title)
	}
	if form.Sections[1].Order != 1 {
		t.Fatalf("expected order 1, got %d", form.Sections[1].Order)
	}
}

func TestAddField_WithoutSection(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddField("", schema.FieldTypeText, -1)
	if err != nil {
		t.Fatalf("add field: %v", err)
	}
	form := s.Form()
	if len(form.Sections) != 1 || len(form.Sections[0].Fields) != 1 || form.Sections[0].Fields[0].ID != id {
		t.Fatalf("expected an auto-created section holding the field: %+v", form.Sections)
	}

	if _, err := s.AddField("", schema.FieldTypeText, -1); !errors.Is(err, store.ErrSectionRequired) {
		t.Fatalf("expected ErrSectionRequired, got %v", err)
	}

	if !s.Undo() {
		t.Fatalf("undo failed")
	}
	if got := len(s.Form().Sections); got != 0 {
		t.Fatalf("section and field should share one history entry, got %d sections", got)
	}
	if s.CanUndo() {
		t.Fatalf("expected a single history entry")
	}
}

func TestAddField_IndexAndUnknownType(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	last := mustAddField(t, s, sectionID, schema.FieldTypeText)
	first, err := s.AddField(sectionID, schema.FieldTypeEmail, 0)
	if err != nil {
		t.Fatalf("add field: %v", err)
	}

	fields := s.Form().Sections[0].Fields
	if fields[0].ID != first || fields[1].ID != last {
		t.Fatalf("unexpected field order: %s, %s", fields[0].ID, fields[1].ID)
	}

	if _, err := s.AddField(sectionID, schema.FieldType("slider"), -1); !errors.Is(err, schema.ErrUnknownFieldType) {
		t.Fatalf("expected ErrUnknownFieldType, got %v", err)
	}
}

func TestNotFoundOperationsAreNoOps(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	fieldID := mustAddField(t, s, sectionID, schema.FieldTypeSelect)
	before := s.Form()
	canUndo := s.CanUndo()

	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })
	defer unsubscribe()

	s.RemoveSection("missing")
	s.RemoveField("missing")
	s.MoveField("missing", "", 0)
	s.MoveField(fieldID, "missing", 0)
	if err := s.UpdateField("missing", schema.Patch{"label": "x"}); err != nil {
		t.Fatalf("update missing field: %v", err)
	}
	if err := s.UpdateSection("missing", schema.Patch{"title": "x"}); err != nil {
		t.Fatalf("update missing section: %v", err)
	}
	if id, err := s.AddField("missing", schema.FieldTypeText, -1); err != nil || id != "" {
		t.Fatalf("add to missing section: id=%q err=%v", id, err)
	}
	if err := s.RemoveOption(fieldID, "missing"); err != nil {
		t.Fatalf("remove missing option: %v", err)
	}
	if id := s.DuplicateField("missing"); id != "" {
		t.Fatalf("duplicate missing field returned %q", id)
	}
	if id := s.AddSectionFromTemplate("missing"); id != "" {
		t.Fatalf("missing template returned %q", id)
	}

	if calls != 0 {
		t.Fatalf("no-ops must not notify, got %d notifications", calls)
	}
	if diff := cmp.Diff(before, s.Form()); diff != "" {
		t.Fatalf("document changed (-want +got):\n%s", diff)
	}
	s.Undo()
	s.Undo()
	if canUndo && s.CanUndo() {
		t.Fatalf("no-ops must not create history entries")
	}
}

func TestUniquenessAcrossEdits(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	selectID := mustAddField(t, s, sectionID, schema.FieldTypeSelect)
	mustAddField(t, s, sectionID, schema.FieldTypeText)

	if _, err := s.AddOption(selectID, "Third"); err != nil {
		t.Fatalf("add option: %v", err)
	}
	if err := s.RemoveOption(selectID, "opt1"); err != nil {
		t.Fatalf("remove option: %v", err)
	}
	if _, err := s.AddOption(selectID, ""); err != nil {
		t.Fatalf("add option: %v", err)
	}
	s.DuplicateField(selectID)
	s.DuplicateSection(sectionID)

	form := s.Form()
	ids := make(map[string]bool)
	for _, section := range form.Sections {
		if ids[section.ID] {
			t.Fatalf("duplicate section id %s", section.ID)
		}
		ids[section.ID] = true
		for _, field := range section.Fields {
			if ids[field.ID] {
				t.Fatalf("duplicate field id %s", field.ID)
			}
			ids[field.ID] = true

			values := make(map[string]bool)
			for _, opt := range field.Options {
				if values[opt.Value] {
					t.Fatalf("duplicate option value %s in field %s", opt.Value, field.ID)
				}
				values[opt.Value] = true
			}
		}
	}
	if got := len(form.Sections); got != 2 {
		t.Fatalf("expected 2 sections, got %d", got)
	}
	if got := len(form.Sections[0].Fields); got != 3 {
		t.Fatalf("expected 3 fields after duplicating, got %d", got)
	}
}

func TestOrderConsistencyAfterMoves(t *testing.T) {
	s := newTestStore(t)
	first := s.AddSection()
	second := s.AddSection()
	a := mustAddField(t, s, first, schema.FieldTypeText)
	mustAddField(t, s, first, schema.FieldTypeText)
	c := mustAddField(t, s, first, schema.FieldTypeText)
	mustAddField(t, s, second, schema.FieldTypeText)

	s.MoveField(c, second, 0)
	s.MoveField(a, "", 99)
	s.MoveSection(0, 9)
	s.MoveSection(-4, 1)

	form := s.Form()
	for si, section := range form.Sections {
		if section.Order != si {
			t.Fatalf("section %s has order %d at index %d", section.ID, section.Order, si)
		}
		for fi, field := range section.Fields {
			if field.Order != fi {
				t.Fatalf("field %s has order %d at index %d", field.ID, field.Order, fi)
			}
		}
	}

	ref, _ := form.FindField(c)
	if form.Sections[ref.Section].ID != second || ref.Index != 0 {
		t.Fatalf("field %s not moved to the head of %s", c, second)
	}
	ref, _ = form.FindField(a)
	if ref.Index != len(form.Sections[ref.Section].Fields)-1 {
		t.Fatalf("field %s not moved to the end of its section", a)
	}
}

func TestUpdateField_IDImmutableAndNullClears(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	id := mustAddField(t, s, sectionID, schema.FieldTypeText)

	mustUpdateField(t, s, id, schema.Patch{
		"id":          "hijacked",
		"label":       "Name",
		"validations": map[string]any{"required": true, "minLength": 2},
		"css":         map[string]any{"className": "wide", "style": map[string]any{"color": "red"}},
	})
	field := fieldByID(t, s.Form(), id)
	if field.Label != "Name" {
		t.Fatalf("label not applied: %q", field.Label)
	}
	if field.Validations == nil || !field.Validations.Required || field.Validations.MinLength == nil || *field.Validations.MinLength != 2 {
		t.Fatalf("validations not applied: %+v", field.Validations)
	}

	mustUpdateField(t, s, id, schema.Patch{"css": map[string]any{"style": map[string]any{"margin": "0"}}})
	field = fieldByID(t, s.Form(), id)
	if field.CSS == nil || field.CSS.ClassName != "wide" {
		t.Fatalf("nested merge dropped className: %+v", field.CSS)
	}
	if diff := cmp.Diff(map[string]string{"color": "red", "margin": "0"}, field.CSS.Style); diff != "" {
		t.Fatalf("style merge mismatch (-want +got):\n%s", diff)
	}

	mustUpdateField(t, s, id, schema.Patch{"validations": nil, "css": nil})
	field = fieldByID(t, s.Form(), id)
	if field.Validations != nil || field.CSS != nil {
		t.Fatalf("null should clear nested objects: %+v %+v", field.Validations, field.CSS)
	}
}

func TestUpdateField_LayoutSync(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	id := mustAddField(t, s, sectionID, schema.FieldTypeText)

	mustUpdateField(t, s, id, schema.Patch{"layout": map[string]any{"span": 6}})
	layout := fieldByID(t, s.Form(), id).Layout
	if layout.Span != 6 || layout.Width != "50%" {
		t.Fatalf("span change not mirrored to width: %+v", layout)
	}

	mustUpdateField(t, s, id, schema.Patch{"layout": map[string]any{"width": "25%"}})
	layout = fieldByID(t, s.Form(), id).Layout
	if layout.Span != 3 || layout.Width != "25%" {
		t.Fatalf("width change not mirrored to span: %+v", layout)
	}

	mustUpdateField(t, s, id, schema.Patch{"layout": map[string]any{"span": 40}})
	layout = fieldByID(t, s.Form(), id).Layout
	if layout.Span != 12 || layout.Width != "100%" {
		t.Fatalf("span should clamp to the grid: %+v", layout)
	}
}

func TestUpdateField_PresetOverwritesGovernedRules(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	id := mustAddField(t, s, sectionID, schema.FieldTypeText)

	mustUpdateField(t, s, id, schema.Patch{"validations": map[string]any{
		"required":       true,
		"maxLength":      3,
		"validationType": schema.PresetPostalCode,
	}})

	v := fieldByID(t, s.Form(), id).Validations
	if v == nil {
		t.Fatalf("validations missing")
	}
	if !v.Required {
		t.Fatalf("preset must keep required")
	}
	if v.ValidationType != schema.PresetPostalCode {
		t.Fatalf("validation type = %q", v.ValidationType)
	}
	if v.MaxLength == nil || *v.MaxLength != 6 || v.MinLength == nil || *v.MinLength != 6 {
		t.Fatalf("preset lengths not applied: %+v", v)
	}
	if v.Pattern != `^[1-9][0-9]{5}$` {
		t.Fatalf("preset pattern not applied: %q", v.Pattern)
	}
}

func TestUpdateField_RejectsCycle(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	a := mustAddField(t, s, sectionID, schema.FieldTypeNumber)
	b := mustAddField(t, s, sectionID, schema.FieldTypeNumber)
	mustUpdateField(t, s, a, schema.Patch{"fieldName": "a", "valueSource": "formula", "formula": "b+1"})
	mustUpdateField(t, s, b, schema.Patch{"fieldName": "b"})

	if deps := fieldByID(t, s.Form(), a).Dependencies; !cmp.Equal(deps, []string{"b"}) {
		t.Fatalf("dependencies = %v", deps)
	}

	before := s.Form()
	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })
	defer unsubscribe()

	err := s.UpdateField(b, schema.Patch{"valueSource": "formula", "formula": "a+1"})
	if !errors.Is(err, formula.ErrCircularDependency) {
		t.Fatalf("expected ErrCircularDependency, got %v", err)
	}
	var ferr *formula.Error
	if !errors.As(err, &ferr) || ferr.FieldID != b {
		t.Fatalf("expected *formula.Error for %s, got %#v", b, err)
	}
	if diff := cmp.Diff(before, s.Form()); diff != "" {
		t.Fatalf("rejected edit changed the document (-want +got):\n%s", diff)
	}
	if calls != 0 {
		t.Fatalf("rejected edit notified %d times", calls)
	}

	err = s.UpdateField(a, schema.Patch{"formula": "a*2"})
	if !errors.Is(err, formula.ErrCircularDependency) {
		t.Fatalf("self reference should be rejected, got %v", err)
	}
}

func TestScenario_AddConfigureReload(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	a := mustAddField(t, s, sectionID, schema.FieldTypeNumber)
	b := mustAddField(t, s, sectionID, schema.FieldTypeNumber)
	total := mustAddField(t, s, sectionID, schema.FieldTypeNumber)
	mustUpdateField(t, s, a, schema.Patch{"fieldName": "a"})
	mustUpdateField(t, s, b, schema.Patch{"fieldName": "b"})
	mustUpdateField(t, s, total, schema.Patch{"fieldName": "total", "valueSource": "formula", "formula": "a+b"})

	s.SetValue("a", 3)
	s.SetValue("b", 4)
	if got := s.Values()["total"]; got != 7.0 {
		t.Fatalf("expected total 7, got %v", got)
	}

	data, err := schema.Encode(s.Form())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	reloaded, err := schema.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	field := fieldByID(t, reloaded, total)
	if field.Formula != "a+b" || !cmp.Equal(field.Dependencies, []string{"a", "b"}) {
		t.Fatalf("formula lost on reload: %q %v", field.Formula, field.Dependencies)
	}

	again := newTestStore(t, store.WithInitialForm(reloaded))
	again.SetValue("a", 3)
	again.SetValue("b", 4)
	values := again.Values()
	if values["total"] != 7.0 || values[total] != 7.0 {
		t.Fatalf("expected 7 after reload, got %v / %v", values["total"], values[total])
	}
}

func TestScenario_SafeRemoval(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	x := mustAddField(t, s, sectionID, schema.FieldTypeNumber)
	y := mustAddField(t, s, sectionID, schema.FieldTypeNumber)
	mustUpdateField(t, s, y, schema.Patch{"fieldName": "y"})
	mustUpdateField(t, s, x, schema.Patch{"fieldName": "x", "valueSource": "formula", "formula": "y*2"})

	s.SetValue("y", 5)
	if got := s.Values()["x"]; got != 10.0 {
		t.Fatalf("expected 10 before removal, got %v", got)
	}

	s.RemoveField(y)
	if got := s.Values()["x"]; got != 0.0 {
		t.Fatalf("missing reference should read as zero, got %v", got)
	}
}

func TestSetValue_IgnoresFormulaFields(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	x := mustAddField(t, s, sectionID, schema.FieldTypeNumber)
	mustUpdateField(t, s, x, schema.Patch{"fieldName": "x", "valueSource": "formula", "formula": "2*3"})

	s.SetValue("x", 100)
	if got := s.Values()["x"]; got != 6.0 {
		t.Fatalf("formula value must be computed, got %v", got)
	}
}

func TestPreviewModeResetsValues(t *testing.T) {
	s := newTestStore(t)
	s.SetValue("anything", 1)
	s.SetPreviewMode(true)
	if !s.PreviewMode() {
		t.Fatalf("preview not enabled")
	}
	if len(s.Values()) != 0 {
		t.Fatalf("entering preview should start from empty values")
	}
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		MasterTypes: []catalog.MasterType{
			{ID: "mt_country", Name: "country", DisplayName: "Country", EnumName: "COUNTRY", Active: true},
			{ID: "mt_legacy", Name: "legacy", DisplayName: "Legacy", EnumName: "LEGACY", Active: false},
		},
		DropdownOptions: map[string][]schema.Option{
			"COUNTRY": {{Label: "India", Value: "IN"}, {Label: "Japan", Value: "JP"}},
			"LEGACY":  {{Label: "Old", Value: "old"}},
		},
		LookupFieldOptions: map[string][]string{
			"customer": {"name", "city"},
		},
		Forms: []schema.Form{{
			ID:       "existing",
			Title:    "Existing",
			FormName: "existing",
			Sections: []schema.Section{{
				ID:    "sec_a",
				Title: "Numbers",
				Fields: []schema.Field{
					{ID: "fa", Type: schema.FieldTypeNumber, FieldName: "qty", ValueSource: schema.ValueSourceManual},
					{ID: "fb", Type: schema.FieldTypeNumber, FieldName: "double", ValueSource: schema.ValueSourceFormula, Formula: "fa*2"},
				},
			}},
		}},
		SectionTemplates: []schema.Section{{
			ID:    "tpl_contact",
			Title: "Contact",
			Fields: []schema.Field{
				{ID: "tpl_email", Type: schema.FieldTypeEmail, Label: "Email", FieldName: "email"},
			},
		}},
	}
}

func TestSetOptionSource(t *testing.T) {
	s := newTestStore(t, store.WithCatalog(testCatalog()))
	sectionID := s.AddSection()
	id := mustAddField(t, s, sectionID, schema.FieldTypeSelect)
	before := s.Form()

	if err := s.SetOptionSource(id, schema.OptionSourceMaster, "COUNTRY"); err != nil {
		t.Fatalf("set master source: %v", err)
	}
	field := fieldByID(t, s.Form(), id)
	want := []schema.Option{{Label: "India", Value: "IN"}, {Label: "Japan", Value: "JP"}}
	if diff := cmp.Diff(want, field.Options); diff != "" {
		t.Fatalf("master options mismatch (-want +got):\n%s", diff)
	}
	if field.OptionSource != schema.OptionSourceMaster || field.MasterType != "COUNTRY" {
		t.Fatalf("unexpected source: %+v", field)
	}

	if !s.Undo() {
		t.Fatalf("undo failed")
	}
	if diff := cmp.Diff(before, s.Form()); diff != "" {
		t.Fatalf("source switch should be a single history entry (-want +got):\n%s", diff)
	}

	if err := s.SetOptionSource(id, schema.OptionSourceLookup, "customer"); err != nil {
		t.Fatalf("set lookup source: %v", err)
	}
	field = fieldByID(t, s.Form(), id)
	want = []schema.Option{{Label: "name", Value: "name"}, {Label: "city", Value: "city"}}
	if diff := cmp.Diff(want, field.Options); diff != "" {
		t.Fatalf("lookup options mismatch (-want +got):\n%s", diff)
	}
	if field.MasterType != "" || field.LookupSource != "customer" {
		t.Fatalf("previous source not cleared: %+v", field)
	}
	if _, err := s.AddOption(id, "manual"); !errors.Is(err, store.ErrNotStatic) {
		t.Fatalf("expected ErrNotStatic, got %v", err)
	}

	if err := s.SetOptionSource(id, schema.OptionSourceMaster, "LEGACY"); err != nil {
		t.Fatalf("set inactive master: %v", err)
	}
	if got := fieldByID(t, s.Form(), id).Options; len(got) != 0 {
		t.Fatalf("inactive master type should yield no options, got %v", got)
	}

	if err := s.SetOptionSource(id, schema.OptionSourceStatic, ""); err != nil {
		t.Fatalf("set static: %v", err)
	}
	if diff := cmp.Diff(schema.DefaultOptions(), fieldByID(t, s.Form(), id).Options); diff != "" {
		t.Fatalf("static reset mismatch (-want +got):\n%s", diff)
	}

	if err := s.SetOptionSource(id, schema.OptionSource("REMOTE"), ""); !errors.Is(err, store.ErrUnknownOptionSource) {
		t.Fatalf("expected ErrUnknownOptionSource, got %v", err)
	}
	text := mustAddField(t, s, sectionID, schema.FieldTypeText)
	if err := s.SetOptionSource(text, schema.OptionSourceStatic, ""); !errors.Is(err, store.ErrOptionsUnsupported) {
		t.Fatalf("expected ErrOptionsUnsupported, got %v", err)
	}
}

func TestBatch(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })
	defer unsubscribe()

	err := s.Batch(func(tx *store.Tx) error {
		sectionID := tx.AddSection()
		if _, err := tx.AddField(sectionID, schema.FieldTypeText, -1); err != nil {
			return err
		}
		_, err := tx.AddField(sectionID, schema.FieldTypeNumber, -1)
		return err
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("batch should notify once, got %d", calls)
	}
	if got := len(s.Form().Sections[0].Fields); got != 2 {
		t.Fatalf("expected 2 fields, got %d", got)
	}

	boom := errors.New("boom")
	err = s.Batch(func(tx *store.Tx) error {
		tx.AddSection()
		if len(tx.Form().Sections) != 2 {
			t.Errorf("draft should expose uncommitted edits")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected batch error, got %v", err)
	}
	if got := len(s.Form().Sections); got != 1 {
		t.Fatalf("failed batch must roll back, got %d sections", got)
	}
	if calls != 1 {
		t.Fatalf("failed batch must not notify, got %d", calls)
	}

	s.Undo()
	if got := len(s.Form().Sections); got != 0 {
		t.Fatalf("batch should be one history entry, got %d sections after undo", got)
	}
}

func TestSelection(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	id := mustAddField(t, s, sectionID, schema.FieldTypeText)

	s.SelectField(id)
	if s.Selected() != id {
		t.Fatalf("selection = %q", s.Selected())
	}
	s.SelectField("missing")
	if s.Selected() != "" {
		t.Fatalf("unknown id should clear selection, got %q", s.Selected())
	}

	s.SelectField(id)
	s.RemoveSection(sectionID)
	if s.Selected() != "" {
		t.Fatalf("removing the section should clear the selection")
	}

	s.Undo()
	s.SelectField(id)
	s.Undo()
	if s.Selected() != "" {
		t.Fatalf("undo to a document without the field should clear the selection")
	}
}

func TestDuplicateSectionRemapsFormulas(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	a := mustAddField(t, s, sectionID, schema.FieldTypeNumber)
	double := mustAddField(t, s, sectionID, schema.FieldTypeNumber)
	mustUpdateField(t, s, a, schema.Patch{"fieldName": "a"})
	mustUpdateField(t, s, double, schema.Patch{"fieldName": "double", "valueSource": "formula", "formula": "a*2"})

	copyID := s.DuplicateSection(sectionID)
	form := s.Form()
	idx := form.SectionIndex(copyID)
	if idx != 1 {
		t.Fatalf("copy should follow the original, got index %d", idx)
	}
	copied := form.Sections[idx]
	if copied.Title != "Section 1 (copy)" {
		t.Fatalf("copy title = %q", copied.Title)
	}
	if copied.Fields[0].FieldName != "a_copy" || copied.Fields[1].FieldName != "double_copy" {
		t.Fatalf("copied field names: %q %q", copied.Fields[0].FieldName, copied.Fields[1].FieldName)
	}
	if copied.Fields[1].Formula != "a_copy*2" {
		t.Fatalf("copied formula = %q", copied.Fields[1].Formula)
	}
	if !cmp.Equal(copied.Fields[1].Dependencies, []string{"a_copy"}) {
		t.Fatalf("copied dependencies = %v", copied.Fields[1].Dependencies)
	}
	if copied.Fields[0].ID == a || copied.Fields[1].ID == double {
		t.Fatalf("copied fields must get fresh ids")
	}
}

func TestDuplicateField(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	id := mustAddField(t, s, sectionID, schema.FieldTypeText)
	mustUpdateField(t, s, id, schema.Patch{"label": "Name", "fieldName": "name"})

	copyID := s.DuplicateField(id)
	copied := fieldByID(t, s.Form(), copyID)
	if copied.Label != "Name (copy)" || copied.FieldName != "name_copy" || copied.Order != 1 {
		t.Fatalf("unexpected copy: %+v", copied)
	}
}

func TestTemplatesAndExistingForms(t *testing.T) {
	s := newTestStore(t, store.WithCatalog(testCatalog()))

	sectionID := s.AddSectionFromTemplate("tpl_contact")
	form := s.Form()
	idx := form.SectionIndex(sectionID)
	if idx < 0 || sectionID == "tpl_contact" {
		t.Fatalf("template section not added with a fresh id: %q", sectionID)
	}
	fields := form.Sections[idx].Fields
	if len(fields) != 1 || fields[0].ID == "tpl_email" || fields[0].FieldName != "email" {
		t.Fatalf("unexpected template fields: %+v", fields)
	}

	if err := s.LoadExistingForm("existing", false); err != nil {
		t.Fatalf("load existing: %v", err)
	}
	form = s.Form()
	if form.ID != "existing" || fieldByID(t, form, "fb").Formula != "fa*2" {
		t.Fatalf("existing form not loaded as-is: %+v", form)
	}
	if s.CanUndo() {
		t.Fatalf("loading a form should reset history")
	}

	if err := s.LoadExistingForm("existing", true); err != nil {
		t.Fatalf("clone existing: %v", err)
	}
	form = s.Form()
	if form.ID == "existing" || form.FormName != "existing_copy" || form.Title != "Existing (copy)" {
		t.Fatalf("unexpected clone root: %+v", form)
	}
	fields = form.Sections[0].Fields
	if fields[0].ID == "fa" || fields[1].ID == "fb" {
		t.Fatalf("clone must reissue field ids")
	}
	if fields[1].Formula != fields[0].ID+"*2" {
		t.Fatalf("clone formula should follow the new id, got %q", fields[1].Formula)
	}

	if err := s.LoadExistingForm("nope", false); !errors.Is(err, store.ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}
}

func TestClearKeepsRoot(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	mustAddField(t, s, sectionID, schema.FieldTypeText)
	id := s.Form().ID

	s.Clear()
	form := s.Form()
	if form.ID != id || len(form.Sections) != 0 {
		t.Fatalf("clear should keep the root and drop sections: %+v", form)
	}
	if s.CanUndo() {
		t.Fatalf("clear should reset history")
	}
}

func TestSetSchema(t *testing.T) {
	s := newTestStore(t)
	s.AddSection()

	err := s.SetSchema(schema.Form{ID: "f", FormName: "f"})
	if !errors.Is(err, schema.ErrFormTitleMissing) {
		t.Fatalf("expected ErrFormTitleMissing, got %v", err)
	}

	err = s.SetSchema(schema.Form{
		ID: "f", Title: "<b>Survey</b>", FormName: "survey",
		Sections: []schema.Section{{Fields: []schema.Field{{Type: schema.FieldTypeText, Layout: schema.FieldLayout{Width: "half"}}}}},
	})
	if err != nil {
		t.Fatalf("set schema: %v", err)
	}
	form := s.Form()
	if form.Title != "Survey" {
		t.Fatalf("title not sanitised: %q", form.Title)
	}
	if form.Sections[0].ID == "" || form.Sections[0].Fields[0].ID == "" {
		t.Fatalf("missing ids should be generated: %+v", form.Sections)
	}
	if span := form.Sections[0].Fields[0].Layout.Span; span != 6 {
		t.Fatalf("legacy width not converted, span = %d", span)
	}
	if s.CanUndo() {
		t.Fatalf("set schema should reset history")
	}
}

func TestValidateForSave(t *testing.T) {
	s := newTestStore(t)
	err := s.SetSchema(schema.Form{
		ID: "f", Title: "Cycle", FormName: "cycle",
		Sections: []schema.Section{{
			ID: "s",
			Fields: []schema.Field{
				{ID: "a", Type: schema.FieldTypeNumber, ValueSource: schema.ValueSourceFormula, Formula: "b+1"},
				{ID: "b", Type: schema.FieldTypeNumber, ValueSource: schema.ValueSourceFormula, Formula: "a+1"},
				{ID: "c", Type: schema.FieldTypeSelect, FieldName: "dup"},
				{ID: "d", Type: schema.FieldTypeText, FieldName: "dup"},
			},
		}},
	})
	if err != nil {
		t.Fatalf("set schema: %v", err)
	}

	report, err := s.ValidateForSave()
	if !errors.Is(err, store.ErrSaveBlocked) {
		t.Fatalf("expected ErrSaveBlocked, got %v", err)
	}
	if !report.Blocking() {
		t.Fatalf("report should be blocking")
	}

	codes := map[string][]string{}
	for _, issue := range report.Issues {
		codes[issue.Code] = append(codes[issue.Code], issue.FieldID)
	}
	if diff := cmp.Diff([]string{"a", "b"}, codes[store.IssueCircularFormula]); diff != "" {
		t.Fatalf("cycle issues mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"d"}, codes[store.IssueDuplicateKey]); diff != "" {
		t.Fatalf("duplicate key issues mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c"}, codes[store.IssueEmptyOptions]); diff != "" {
		t.Fatalf("empty option issues mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateForSave_WarningsDoNotBlock(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	id := mustAddField(t, s, sectionID, schema.FieldTypeNumber)
	mustUpdateField(t, s, id, schema.Patch{"valueSource": "formula", "formula": "unknown + 1"})

	results := s.ValidateFormulas()
	if results[id].Valid {
		t.Fatalf("unknown reference should be reported")
	}

	report, err := s.ValidateForSave()
	if err != nil {
		t.Fatalf("warnings must not block: %v", err)
	}
	if report.Blocking() || len(report.Issues) != 1 || report.Issues[0].Code != store.IssueInvalidFormula {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestListenerMayMutate(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	unsubscribe := s.Subscribe(func() {
		calls++
		if calls == 1 {
			s.AddSection()
		}
	})
	defer unsubscribe()

	s.AddSection()
	if calls != 2 {
		t.Fatalf("nested mutation should trigger exactly one follow-up round, got %d", calls)
	}
	if got := len(s.Form().Sections); got != 2 {
		t.Fatalf("expected 2 sections, got %d", got)
	}
}

func TestUpdateWithoutChangesKeepsHistory(t *testing.T) {
	s := newTestStore(t)
	sectionID := s.AddSection()
	fieldID := mustAddField(t, s, sectionID, schema.FieldTypeText)
	mustUpdateField(t, s, fieldID, schema.Patch{"label": "Name", "required": true})
	if err := s.UpdateSection(sectionID, schema.Patch{"title": "Billing"}); err != nil {
		t.Fatalf("update section: %v", err)
	}

	notified := 0
	unsubscribe := s.Subscribe(func() { notified++ })
	defer unsubscribe()

	mustUpdateField(t, s, fieldID, schema.Patch{})
	mustUpdateField(t, s, fieldID, schema.Patch{"label": "Name", "required": true})
	if err := s.UpdateSection(sectionID, schema.Patch{}); err != nil {
		t.Fatalf("empty section patch: %v", err)
	}
	if err := s.UpdateSection(sectionID, schema.Patch{"title": "Billing"}); err != nil {
		t.Fatalf("same section patch: %v", err)
	}
	if notified != 0 {
		t.Fatalf("no-op updates should not notify, got %d", notified)
	}

	for i := 0; i < 4; i++ {
		if !s.Undo() {
			t.Fatalf("undo %d failed", i+1)
		}
	}
	if s.CanUndo() {
		t.Fatalf("no-op updates should not add history entries")
	}
}
