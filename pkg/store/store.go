package store

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/goliatone/go-formdesigner/pkg/catalog"
	"github.com/goliatone/go-formdesigner/pkg/formula"
	"github.com/goliatone/go-formdesigner/pkg/notify"
	"github.com/goliatone/go-formdesigner/pkg/schema"
)

// Store owns the document being designed. Every committed mutation produces
// exactly one history snapshot and one notification; listeners run after the
// store lock is released and may call back into the store.
type Store struct {
	mu sync.Mutex

	current  schema.Form
	history  *History
	selected string
	preview  bool
	values   map[string]any

	catalog      *catalog.Catalog
	hub          *notify.Hub
	logger       *slog.Logger
	ids          schema.IDFunc
	historyLimit int
	initial      *schema.Form
}

// New builds a store holding an empty "Untitled Form" unless WithInitialForm
// is supplied.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		logger:       discardLogger(),
		ids:          UUIDGenerator,
		historyLimit: DefaultHistoryLimit,
		values:       make(map[string]any),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.hub == nil {
		s.hub = notify.New(notify.WithLogger(s.logger))
	}

	form := s.emptyForm()
	if s.initial != nil {
		form = *s.initial
		s.initial = nil
		if err := s.prepare(&form); err != nil {
			return nil, err
		}
	}
	s.current = form
	s.history = newHistory(form, s.historyLimit)
	return s, nil
}

func (s *Store) emptyForm() schema.Form {
	return schema.Form{
		ID:       s.ids("form"),
		Title:    "Untitled Form",
		FormName: "untitled_form",
		Sections: []schema.Section{},
	}
}

// prepare validates and normalises a form entering the store from outside.
func (s *Store) prepare(form *schema.Form) error {
	if err := schema.ValidateRoot(*form); err != nil {
		return fmt.Errorf("store: set schema: %w", err)
	}
	schema.Normalize(form, s.ids)
	refreshDependencies(form)
	return nil
}

func refreshDependencies(form *schema.Form) {
	for si := range form.Sections {
		for fi := range form.Sections[si].Fields {
			field := &form.Sections[si].Fields[fi]
			if field.IsFormula() {
				field.Dependencies = formula.ParseDependencies(field.Formula)
			}
		}
	}
}

// apply runs fn against a draft copy of the document and commits the draft
// as a single history entry when fn changed it without error.
func (s *Store) apply(op string, fn func(*Tx) error) error {
	s.mu.Lock()
	draft := schema.Clone(s.current)
	ed := &editor{
		form:     &draft,
		ids:      s.ids,
		catalog:  s.catalog,
		logger:   s.logger,
		selected: s.selected,
	}
	err := fn(&Tx{ed: ed})
	changed := err == nil && ed.dirty
	if changed {
		draft.Renumber()
		s.current = draft
		s.history.Push(draft)
		s.selected = ed.selected
		s.fixSelection()
		s.logger.Debug("store: committed", slog.String("op", op), slog.Int("history", s.history.Len()))
	}
	s.mu.Unlock()

	if changed {
		s.hub.Notify()
	}
	return err
}

// fixSelection drops a selection that no longer exists. Callers hold mu.
func (s *Store) fixSelection() {
	if s.selected == "" {
		return
	}
	if _, ok := s.current.FindField(s.selected); !ok {
		s.selected = ""
	}
}

// Batch groups several edits into one history entry and one notification.
// If fn returns an error nothing is committed. fn must only use tx; calling
// other Store methods from inside fn deadlocks.
func (s *Store) Batch(fn func(tx *Tx) error) error {
	if fn == nil {
		return nil
	}
	return s.apply("batch", fn)
}

func (s *Store) AddSection() string {
	var id string
	_ = s.apply("addSection", func(tx *Tx) error {
		id = tx.AddSection()
		return nil
	})
	return id
}

func (s *Store) RemoveSection(id string) {
	_ = s.apply("removeSection", func(tx *Tx) error {
		tx.RemoveSection(id)
		return nil
	})
}

// UpdateSection merges patch into the section. The id, fields and order
// keys are ignored.
func (s *Store) UpdateSection(id string, patch schema.Patch) error {
	return s.apply("updateSection", func(tx *Tx) error {
		return tx.UpdateSection(id, patch)
	})
}

// MoveSection moves the section at from to position to. Both indices are
// clamped to the section range.
func (s *Store) MoveSection(from, to int) {
	_ = s.apply("moveSection", func(tx *Tx) error {
		tx.MoveSection(from, to)
		return nil
	})
}

// AddField inserts a new field of type t at index (negative appends) and
// returns its id. With an empty sectionID a first section is created when
// the form has none; otherwise ErrSectionRequired is returned.
func (s *Store) AddField(sectionID string, t schema.FieldType, index int) (string, error) {
	var id string
	err := s.apply("addField", func(tx *Tx) error {
		var err error
		id, err = tx.AddField(sectionID, t, index)
		return err
	})
	return id, err
}

func (s *Store) RemoveField(id string) {
	_ = s.apply("removeField", func(tx *Tx) error {
		tx.RemoveField(id)
		return nil
	})
}

// UpdateField merges patch into the field. A formula that would close a
// dependency cycle is rejected with a *formula.Error and leaves the
// document untouched.
func (s *Store) UpdateField(id string, patch schema.Patch) error {
	return s.apply("updateField", func(tx *Tx) error {
		return tx.UpdateField(id, patch)
	})
}

// MoveField moves a field to index inside targetSectionID, or inside its
// own section when targetSectionID is empty.
func (s *Store) MoveField(id, targetSectionID string, index int) {
	_ = s.apply("moveField", func(tx *Tx) error {
		tx.MoveField(id, targetSectionID, index)
		return nil
	})
}

func (s *Store) SetOptionSource(fieldID string, source schema.OptionSource, key string) error {
	return s.apply("setOptionSource", func(tx *Tx) error {
		return tx.SetOptionSource(fieldID, source, key)
	})
}

func (s *Store) AddOption(fieldID, label string) (string, error) {
	var value string
	err := s.apply("addOption", func(tx *Tx) error {
		var err error
		value, err = tx.AddOption(fieldID, label)
		return err
	})
	return value, err
}

func (s *Store) RemoveOption(fieldID, value string) error {
	return s.apply("removeOption", func(tx *Tx) error {
		return tx.RemoveOption(fieldID, value)
	})
}

func (s *Store) DuplicateField(id string) string {
	var out string
	_ = s.apply("duplicateField", func(tx *Tx) error {
		out = tx.DuplicateField(id)
		return nil
	})
	return out
}

func (s *Store) DuplicateSection(id string) string {
	var out string
	_ = s.apply("duplicateSection", func(tx *Tx) error {
		out = tx.DuplicateSection(id)
		return nil
	})
	return out
}

func (s *Store) AddSectionFromTemplate(templateID string) string {
	var out string
	_ = s.apply("addSectionFromTemplate", func(tx *Tx) error {
		out = tx.AddSectionFromTemplate(templateID)
		return nil
	})
	return out
}

// SelectField marks a field as selected. An unknown or empty id clears the
// selection. Selection is not recorded in history.
func (s *Store) SelectField(id string) {
	s.mu.Lock()
	next := ""
	if _, ok := s.current.FindField(id); ok {
		next = id
	} else if id != "" {
		s.logger.Debug("store: selecting unknown field clears selection", slog.String("id", id))
	}
	changed := next != s.selected
	s.selected = next
	s.mu.Unlock()

	if changed {
		s.hub.Notify()
	}
}

// Selected returns the selected field id, or "".
func (s *Store) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// SetSchema replaces the document. The root identifiers are required; the
// rest is normalised. History restarts with the new document.
func (s *Store) SetSchema(form schema.Form) error {
	next := schema.Clone(form)
	if err := s.prepare(&next); err != nil {
		return err
	}
	s.reset(next)
	return nil
}

// LoadExistingForm replaces the document with a catalog form. A clone gets
// a new form id, fresh section and field ids and a derived title and
// formName so it can be saved alongside the original.
func (s *Store) LoadExistingForm(formID string, clone bool) error {
	form, ok := s.catalog.Form(formID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrFormNotFound, formID)
	}
	if clone {
		form.ID = s.ids("form")
		form.Title = strings.TrimSpace(form.Title + " (copy)")
		form.FormName = strings.TrimSpace(form.FormName) + "_copy"
		ed := &editor{form: &form, ids: s.ids, logger: s.logger}
		ed.reissueForm()
	}
	if err := s.prepare(&form); err != nil {
		return err
	}
	s.reset(form)
	return nil
}

// Clear removes every section while keeping the root identifiers. History
// restarts from the cleared document.
func (s *Store) Clear() {
	s.mu.Lock()
	form := schema.Clone(s.current)
	form.Sections = []schema.Section{}
	s.mu.Unlock()
	s.reset(form)
}

func (s *Store) reset(form schema.Form) {
	s.mu.Lock()
	s.current = form
	s.history.Reset(form)
	s.selected = ""
	s.values = make(map[string]any)
	s.mu.Unlock()
	s.hub.Notify()
}

// Undo restores the previous snapshot.
func (s *Store) Undo() bool {
	return s.travel(s.history.Undo)
}

// Redo re-applies the next snapshot.
func (s *Store) Redo() bool {
	return s.travel(s.history.Redo)
}

func (s *Store) travel(step func() (schema.Form, bool)) bool {
	s.mu.Lock()
	form, ok := step()
	if ok {
		s.current = form
		s.fixSelection()
	}
	s.mu.Unlock()
	if ok {
		s.hub.Notify()
	}
	return ok
}

func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// Form returns a deep copy of the current document.
func (s *Store) Form() schema.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schema.Clone(s.current)
}

// Catalog returns the injected catalog, which may be nil.
func (s *Store) Catalog() *catalog.Catalog {
	return s.catalog
}

// Subscribe registers fn to run after every change and returns a function
// that unregisters it.
func (s *Store) Subscribe(fn func()) func() {
	return s.hub.Subscribe(fn)
}
