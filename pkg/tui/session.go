package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goliatone/go-formdesigner/pkg/formula"
	"github.com/goliatone/go-formdesigner/pkg/schema"
	"github.com/goliatone/go-formdesigner/pkg/store"
)

// Session is an interactive designer loop. Every answer is translated into
// Store mutations, so undo, redo and notifications behave exactly as they
// do for programmatic callers.
type Session struct {
	store  *store.Store
	driver PromptDriver
	out    io.Writer
	logger *slog.Logger
	theme  Theme
}

// New constructs a session over st. Without WithPromptDriver the session
// prompts on the terminal through survey.
func New(st *store.Store, options ...Option) (*Session, error) {
	if st == nil {
		return nil, ErrStoreRequired
	}
	s := &Session{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		theme:  Theme{ErrorPrefix: "error: "},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.driver == nil {
		s.driver = NewSurveyDriver(s.out)
	}
	return s, nil
}

type action struct {
	label string
	run   func(*Session, context.Context) error
}

// actions is the main menu in display order. A nil run ends the session.
var actions = []action{
	{"Add section", (*Session).addSection},
	{"Add field", (*Session).addField},
	{"Edit field", (*Session).editField},
	{"Move field", (*Session).moveField},
	{"Duplicate field", (*Session).duplicateField},
	{"Remove field", (*Session).removeField},
	{"Set option source", (*Session).setOptionSource},
	{"Add option", (*Session).addOption},
	{"Remove option", (*Session).removeOption},
	{"Rename section", (*Session).renameSection},
	{"Duplicate section", (*Session).duplicateSection},
	{"Remove section", (*Session).removeSection},
	{"Add section from template", (*Session).addTemplate},
	{"Load existing form", (*Session).loadForm},
	{"Preview values", (*Session).preview},
	{"Validate", (*Session).validate},
	{"Undo", (*Session).undo},
	{"Redo", (*Session).redo},
	{"Done", nil},
}

func actionLabels() []string {
	labels := make([]string, len(actions))
	for i, a := range actions {
		labels[i] = a.label
	}
	return labels
}

// Run prompts for actions until the user picks Done, aborts, or ctx ends.
// Failed actions are reported and the loop continues.
func (s *Session) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("tui: context is required")
	}
	labels := actionLabels()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.driver.Info(ctx, Outline(s.store.Form(), s.store.Selected())); err != nil {
			return err
		}
		idx, err := s.choose(ctx, SelectConfig{Message: "Action", Options: labels, PageSize: len(labels)})
		if err != nil {
			return err
		}
		act := actions[idx]
		if act.run == nil {
			return nil
		}
		if err := act.run(s, ctx); err != nil {
			if errors.Is(err, ErrAborted) || ctx.Err() != nil {
				return err
			}
			s.logger.Warn("tui: action failed", slog.String("action", act.label), slog.Any("error", err))
			if err := s.driver.Info(ctx, s.theme.ErrorPrefix+err.Error()); err != nil {
				return err
			}
		}
	}
}

func (s *Session) info(ctx context.Context, format string, args ...any) error {
	return s.driver.Info(ctx, s.theme.InfoPrefix+fmt.Sprintf(format, args...))
}

func (s *Session) choose(ctx context.Context, cfg SelectConfig) (int, error) {
	if len(cfg.Options) == 0 {
		return -1, ErrNoChoices
	}
	idx, err := s.driver.Select(ctx, cfg)
	if err != nil {
		return -1, err
	}
	if idx < 0 || idx >= len(cfg.Options) {
		return -1, fmt.Errorf("tui: choice %d out of range", idx)
	}
	return idx, nil
}

func (s *Session) pickSection(ctx context.Context, form schema.Form, message string, current string) (schema.Section, error) {
	titles := make([]string, len(form.Sections))
	def := 0
	for i, section := range form.Sections {
		titles[i] = fmt.Sprintf("%d. %s", i+1, section.Title)
		if section.ID == current {
			def = i
		}
	}
	idx, err := s.choose(ctx, SelectConfig{Message: message, Options: titles, DefaultIndex: def})
	if err != nil {
		return schema.Section{}, err
	}
	return form.Sections[idx], nil
}

// pickField offers every field accepted by keep (all fields when nil).
func (s *Session) pickField(ctx context.Context, form schema.Form, message string, keep func(schema.Field) bool) (schema.Field, error) {
	var candidates []schema.Field
	var labels []string
	def := 0
	for _, section := range form.Sections {
		for _, field := range section.Fields {
			if keep != nil && !keep(field) {
				continue
			}
			if field.ID == s.store.Selected() {
				def = len(candidates)
			}
			candidates = append(candidates, field)
			labels = append(labels, fmt.Sprintf("%s / %s (%s)", section.Title, field.Label, field.Key()))
		}
	}
	idx, err := s.choose(ctx, SelectConfig{Message: message, Options: labels, DefaultIndex: def})
	if err != nil {
		return schema.Field{}, err
	}
	return candidates[idx], nil
}

func (s *Session) addSection(ctx context.Context) error {
	title, err := s.driver.Input(ctx, InputConfig{Message: "Section title", Help: "Leave empty for the default title"})
	if err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	return s.store.Batch(func(tx *store.Tx) error {
		id := tx.AddSection()
		if title == "" {
			return nil
		}
		return tx.UpdateSection(id, schema.Patch{"title": title})
	})
}

func (s *Session) renameSection(ctx context.Context) error {
	form := s.store.Form()
	section, err := s.pickSection(ctx, form, "Section", "")
	if err != nil {
		return err
	}
	title, err := s.driver.Input(ctx, InputConfig{Message: "Title", Default: section.Title})
	if err != nil {
		return err
	}
	description, err := s.driver.TextArea(ctx, TextAreaConfig{Message: "Description", Default: section.Description})
	if err != nil {
		return err
	}
	return s.store.UpdateSection(section.ID, schema.Patch{
		"title":       strings.TrimSpace(title),
		"description": strings.TrimSpace(description),
	})
}

func (s *Session) duplicateSection(ctx context.Context) error {
	section, err := s.pickSection(ctx, s.store.Form(), "Duplicate section", "")
	if err != nil {
		return err
	}
	s.store.DuplicateSection(section.ID)
	return nil
}

func (s *Session) removeSection(ctx context.Context) error {
	section, err := s.pickSection(ctx, s.store.Form(), "Remove section", "")
	if err != nil {
		return err
	}
	ok, err := s.driver.Confirm(ctx, ConfirmConfig{
		Message: fmt.Sprintf("Remove %q and its %d field(s)?", section.Title, len(section.Fields)),
	})
	if err != nil || !ok {
		return err
	}
	s.store.RemoveSection(section.ID)
	return nil
}

func (s *Session) addField(ctx context.Context) error {
	form := s.store.Form()
	sectionID := ""
	if len(form.Sections) > 0 {
		section, err := s.pickSection(ctx, form, "Add to section", "")
		if err != nil {
			return err
		}
		sectionID = section.ID
	}

	typeLabels := make([]string, len(schema.FieldTypes))
	for i, t := range schema.FieldTypes {
		typeLabels[i] = schema.TypeLabel(t)
	}
	ti, err := s.choose(ctx, SelectConfig{Message: "Field type", Options: typeLabels})
	if err != nil {
		return err
	}
	fieldType := schema.FieldTypes[ti]

	label, err := s.driver.Input(ctx, InputConfig{Message: "Label", Default: schema.TypeLabel(fieldType)})
	if err != nil {
		return err
	}
	name, err := s.driver.Input(ctx, InputConfig{
		Message:   "Field name",
		Default:   FieldNameFromLabel(label),
		Validator: fieldNameValidator(form, ""),
	})
	if err != nil {
		return err
	}
	patch := schema.Patch{"label": strings.TrimSpace(label), "fieldName": strings.TrimSpace(name)}

	if fieldType == schema.FieldTypeNumber {
		computed, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Compute the value with a formula?"})
		if err != nil {
			return err
		}
		if computed {
			expr, err := s.promptFormula(ctx, form, "", "")
			if err != nil {
				return err
			}
			patch["valueSource"] = string(schema.ValueSourceFormula)
			patch["formula"] = expr
		}
	}

	var id string
	err = s.store.Batch(func(tx *store.Tx) error {
		var err error
		id, err = tx.AddField(sectionID, fieldType, -1)
		if err != nil || id == "" {
			return err
		}
		return tx.UpdateField(id, patch)
	})
	if err != nil {
		return err
	}
	s.store.SelectField(id)
	return nil
}

var widthChoices = []string{"25%", "33%", "50%", "67%", "75%", "100%"}

func (s *Session) editField(ctx context.Context) error {
	form := s.store.Form()
	field, err := s.pickField(ctx, form, "Edit field", nil)
	if err != nil {
		return err
	}
	s.store.SelectField(field.ID)

	label, err := s.driver.Input(ctx, InputConfig{Message: "Label", Default: field.Label})
	if err != nil {
		return err
	}
	name, err := s.driver.Input(ctx, InputConfig{
		Message:   "Field name",
		Default:   field.FieldName,
		Validator: fieldNameValidator(form, field.ID),
	})
	if err != nil {
		return err
	}
	placeholder, err := s.driver.Input(ctx, InputConfig{Message: "Placeholder", Default: field.Placeholder})
	if err != nil {
		return err
	}
	required, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Required?", Default: field.Required})
	if err != nil {
		return err
	}
	wi, err := s.choose(ctx, SelectConfig{Message: "Width", Options: widthChoices, DefaultIndex: widthIndex(field.Layout.Width)})
	if err != nil {
		return err
	}

	patch := schema.Patch{
		"label":       strings.TrimSpace(label),
		"fieldName":   strings.TrimSpace(name),
		"placeholder": placeholder,
		"required":    required,
		"layout":      map[string]any{"width": widthChoices[wi]},
	}

	if field.Type == schema.FieldTypeNumber {
		computed, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Compute the value with a formula?", Default: field.IsFormula()})
		if err != nil {
			return err
		}
		if computed {
			expr, err := s.promptFormula(ctx, form, field.ID, field.Formula)
			if err != nil {
				return err
			}
			patch["valueSource"] = string(schema.ValueSourceFormula)
			patch["formula"] = expr
		} else {
			patch["valueSource"] = string(schema.ValueSourceManual)
			patch["formula"] = nil
		}
	}

	if acceptsPreset(field.Type) {
		choices := append([]string{"(keep)", "(none)"}, schema.Presets()...)
		pi, err := s.choose(ctx, SelectConfig{Message: "Validation preset", Options: choices})
		if err != nil {
			return err
		}
		switch pi {
		case 0:
		case 1:
			patch["validations"] = map[string]any{"validationType": nil}
		default:
			patch["validations"] = map[string]any{"validationType": choices[pi]}
		}
	}

	return s.store.UpdateField(field.ID, patch)
}

func acceptsPreset(t schema.FieldType) bool {
	switch t {
	case schema.FieldTypeText, schema.FieldTypeTextarea, schema.FieldTypeNumber,
		schema.FieldTypeEmail, schema.FieldTypePhone:
		return true
	}
	return false
}

func widthIndex(width schema.Width) int {
	pct := schema.ParseWidth(width)
	for i, choice := range widthChoices {
		if schema.ParseWidth(choice) == pct {
			return i
		}
	}
	return len(widthChoices) - 1
}

func (s *Session) promptFormula(ctx context.Context, form schema.Form, fieldID, current string) (string, error) {
	var ids, names []string
	for _, field := range form.Fields() {
		ids = append(ids, field.ID)
		if field.FieldName != "" {
			names = append(names, field.FieldName)
		}
	}
	expr, err := s.driver.Input(ctx, InputConfig{
		Message: "Formula",
		Default: current,
		Help:    "Use + - * / ( ), numbers and field names",
		Validator: func(input string) error {
			if res := formula.ValidateSyntax(input, ids, names, fieldID); !res.Valid {
				return fmt.Errorf("%w (%s)", res.Err(), res.Reason)
			}
			return nil
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(expr), nil
}

func fieldNameValidator(form schema.Form, selfID string) func(string) error {
	return func(input string) error {
		name := strings.TrimSpace(input)
		if name == "" {
			return nil
		}
		for _, field := range form.Fields() {
			if field.ID != selfID && field.FieldName == name {
				return fmt.Errorf("field name %q is already used by %s", name, field.Label)
			}
		}
		return nil
	}
}

func (s *Session) moveField(ctx context.Context) error {
	form := s.store.Form()
	field, err := s.pickField(ctx, form, "Move field", nil)
	if err != nil {
		return err
	}
	current := ""
	if ref, ok := form.FindField(field.ID); ok {
		current = form.Sections[ref.Section].ID
	}
	target, err := s.pickSection(ctx, form, "To section", current)
	if err != nil {
		return err
	}
	raw, err := s.driver.Input(ctx, InputConfig{
		Message: "Position",
		Help:    "1 is the top of the section; leave empty for the end",
		Validator: func(input string) error {
			_, err := parsePosition(input)
			return err
		},
	})
	if err != nil {
		return err
	}
	pos, err := parsePosition(raw)
	if err != nil {
		return err
	}
	index := len(target.Fields)
	if pos > 0 {
		index = pos - 1
	}
	s.store.MoveField(field.ID, target.ID, index)
	return nil
}

// parsePosition reads a 1-based position; empty means the end (0).
func parsePosition(input string) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	pos, err := strconv.Atoi(input)
	if err != nil || pos < 1 {
		return 0, fmt.Errorf("position must be a positive number, got %q", input)
	}
	return pos, nil
}

func (s *Session) duplicateField(ctx context.Context) error {
	field, err := s.pickField(ctx, s.store.Form(), "Duplicate field", nil)
	if err != nil {
		return err
	}
	if id := s.store.DuplicateField(field.ID); id != "" {
		s.store.SelectField(id)
	}
	return nil
}

func (s *Session) removeField(ctx context.Context) error {
	form := s.store.Form()
	field, err := s.pickField(ctx, form, "Remove field", nil)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("Remove %q?", field.Label)
	if dependents := formula.Dependents(&form, field.ID); len(dependents) > 0 {
		message = fmt.Sprintf("Remove %q? Formulas in %s reference it and will read it as zero.",
			field.Label, strings.Join(dependents, ", "))
	}
	ok, err := s.driver.Confirm(ctx, ConfirmConfig{Message: message})
	if err != nil || !ok {
		return err
	}
	s.store.RemoveField(field.ID)
	return nil
}

func hasOptions(field schema.Field) bool { return field.Type.HasOptions() }

func isStaticChoice(field schema.Field) bool {
	return field.Type.HasOptions() &&
		(field.OptionSource == schema.OptionSourceStatic || field.OptionSource == "")
}

var optionSources = []schema.OptionSource{
	schema.OptionSourceStatic,
	schema.OptionSourceMaster,
	schema.OptionSourceLookup,
}

func (s *Session) setOptionSource(ctx context.Context) error {
	field, err := s.pickField(ctx, s.store.Form(), "Choice field", hasOptions)
	if err != nil {
		return err
	}
	labels := make([]string, len(optionSources))
	def := 0
	for i, source := range optionSources {
		labels[i] = string(source)
		if source == field.OptionSource {
			def = i
		}
	}
	si, err := s.choose(ctx, SelectConfig{Message: "Option source", Options: labels, DefaultIndex: def})
	if err != nil {
		return err
	}
	source := optionSources[si]

	cat := s.store.Catalog()
	var keys, keyLabels []string
	switch source {
	case schema.OptionSourceMaster:
		for _, mt := range cat.ActiveMasterTypes() {
			keys = append(keys, mt.EnumName)
			keyLabels = append(keyLabels, fmt.Sprintf("%s (%s)", mt.DisplayName, mt.EnumName))
		}
	case schema.OptionSourceLookup:
		keys = cat.LookupKeys()
		keyLabels = keys
	}

	key := ""
	if source != schema.OptionSourceStatic {
		if len(keys) == 0 {
			return fmt.Errorf("%w: the catalog has no %s sources", ErrNoChoices, source)
		}
		ki, err := s.choose(ctx, SelectConfig{Message: string(source) + " source", Options: keyLabels})
		if err != nil {
			return err
		}
		key = keys[ki]
	}
	return s.store.SetOptionSource(field.ID, source, key)
}

func (s *Session) addOption(ctx context.Context) error {
	field, err := s.pickField(ctx, s.store.Form(), "Choice field", isStaticChoice)
	if err != nil {
		return err
	}
	label, err := s.driver.Input(ctx, InputConfig{Message: "Option label", Help: "Leave empty for a numbered label"})
	if err != nil {
		return err
	}
	_, err = s.store.AddOption(field.ID, strings.TrimSpace(label))
	return err
}

func (s *Session) removeOption(ctx context.Context) error {
	field, err := s.pickField(ctx, s.store.Form(), "Choice field", func(f schema.Field) bool {
		return isStaticChoice(f) && len(f.Options) > 0
	})
	if err != nil {
		return err
	}
	labels := make([]string, len(field.Options))
	for i, option := range field.Options {
		labels[i] = fmt.Sprintf("%s (%s)", option.Label, option.Value)
	}
	oi, err := s.choose(ctx, SelectConfig{Message: "Remove option", Options: labels})
	if err != nil {
		return err
	}
	return s.store.RemoveOption(field.ID, field.Options[oi].Value)
}

func (s *Session) addTemplate(ctx context.Context) error {
	cat := s.store.Catalog()
	if cat == nil || len(cat.SectionTemplates) == 0 {
		return fmt.Errorf("%w: the catalog has no section templates", ErrNoChoices)
	}
	titles := make([]string, len(cat.SectionTemplates))
	for i, tpl := range cat.SectionTemplates {
		titles[i] = fmt.Sprintf("%s (%d fields)", tpl.Title, len(tpl.Fields))
	}
	ti, err := s.choose(ctx, SelectConfig{Message: "Template", Options: titles})
	if err != nil {
		return err
	}
	s.store.AddSectionFromTemplate(cat.SectionTemplates[ti].ID)
	return nil
}

func (s *Session) loadForm(ctx context.Context) error {
	cat := s.store.Catalog()
	if cat == nil || len(cat.Forms) == 0 {
		return fmt.Errorf("%w: the catalog has no forms", ErrNoChoices)
	}
	titles := make([]string, len(cat.Forms))
	for i, form := range cat.Forms {
		titles[i] = fmt.Sprintf("%s (%s)", form.Title, form.FormName)
	}
	fi, err := s.choose(ctx, SelectConfig{Message: "Form", Options: titles})
	if err != nil {
		return err
	}
	clone, err := s.driver.Confirm(ctx, ConfirmConfig{
		Message: "Load as a copy?",
		Default: true,
		Help:    "A copy gets fresh ids and a derived form name. Loading discards undo history.",
	})
	if err != nil {
		return err
	}
	return s.store.LoadExistingForm(cat.Forms[fi].ID, clone)
}

func (s *Session) undo(ctx context.Context) error {
	if !s.store.Undo() {
		return s.info(ctx, "Nothing to undo")
	}
	return nil
}

func (s *Session) redo(ctx context.Context) error {
	if !s.store.Redo() {
		return s.info(ctx, "Nothing to redo")
	}
	return nil
}

func (s *Session) validate(ctx context.Context) error {
	report, err := s.store.ValidateForSave()
	if len(report.Issues) == 0 {
		return s.info(ctx, "No issues found")
	}
	for _, issue := range report.Issues {
		target := issue.FieldID
		if target == "" {
			target = "form"
		}
		if err := s.info(ctx, "[%s] %s %s: %s", issue.Severity, target, issue.Code, issue.Message); err != nil {
			return err
		}
	}
	if err != nil {
		return s.driver.Info(ctx, s.theme.ErrorPrefix+err.Error())
	}
	return nil
}
