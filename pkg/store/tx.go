package store

import "github.com/goliatone/go-formdesigner/pkg/schema"

// Tx is the edit surface handed to Batch. Its methods behave like the Store
// methods of the same name, but changes stay in the batch draft until the
// batch function returns without error.
type Tx struct {
	ed *editor
}

func (tx *Tx) AddSection() string { return tx.ed.addSection() }

func (tx *Tx) RemoveSection(id string) { tx.ed.removeSection(id) }

func (tx *Tx) UpdateSection(id string, patch schema.Patch) error {
	return tx.ed.updateSection(id, patch)
}

func (tx *Tx) MoveSection(from, to int) { tx.ed.moveSection(from, to) }

func (tx *Tx) AddField(sectionID string, t schema.FieldType, index int) (string, error) {
	return tx.ed.addField(sectionID, t, index)
}

func (tx *Tx) RemoveField(id string) { tx.ed.removeField(id) }

func (tx *Tx) UpdateField(id string, patch schema.Patch) error {
	return tx.ed.updateField(id, patch)
}

func (tx *Tx) MoveField(id, targetSectionID string, index int) {
	tx.ed.moveField(id, targetSectionID, index)
}

func (tx *Tx) SetOptionSource(fieldID string, source schema.OptionSource, key string) error {
	return tx.ed.setOptionSource(fieldID, source, key)
}

func (tx *Tx) AddOption(fieldID, label string) (string, error) {
	return tx.ed.addOption(fieldID, label)
}

func (tx *Tx) RemoveOption(fieldID, value string) error {
	return tx.ed.removeOption(fieldID, value)
}

func (tx *Tx) DuplicateField(id string) string { return tx.ed.duplicateField(id) }

func (tx *Tx) DuplicateSection(id string) string { return tx.ed.duplicateSection(id) }

func (tx *Tx) AddSectionFromTemplate(templateID string) string {
	return tx.ed.addSectionFromTemplate(templateID)
}

// Form returns a copy of the batch draft, including uncommitted edits.
func (tx *Tx) Form() schema.Form {
	return schema.Clone(*tx.ed.form)
}
