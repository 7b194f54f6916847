package store

import "errors"

var (
	// ErrSectionRequired is returned by AddField when no section is named
	// while the form already has sections.
	ErrSectionRequired = errors.New("store: target section is required")
	// ErrOptionsUnsupported is returned when an option operation targets a
	// field type without choices.
	ErrOptionsUnsupported = errors.New("store: field type has no options")
	// ErrNotStatic is returned when options are edited by hand on a field
	// whose options come from the catalog.
	ErrNotStatic = errors.New("store: options are managed by the option source")
	// ErrUnknownOptionSource is returned for an option source outside the enum.
	ErrUnknownOptionSource = errors.New("store: unknown option source")
	// ErrFormNotFound is returned by LoadExistingForm for an id the catalog
	// does not know.
	ErrFormNotFound = errors.New("store: form not found in catalog")
	// ErrSaveBlocked is returned by ValidateForSave when the document has a
	// circular formula or an invalid root.
	ErrSaveBlocked = errors.New("store: save blocked")
)
