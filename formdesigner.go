// Package formdesigner is the entry point to the form designer engine. It
// re-exports the common constructors so simple callers only import one
// package:
//
//	st, err := formdesigner.LoadFile("form.json",
//		formdesigner.WithCatalog(cat),
//	)
//	if err != nil {
//		return err
//	}
//	id, _ := st.AddField(st.Form().Sections[0].ID, schema.FieldTypeText, -1)
//	_ = st.UpdateField(id, schema.Patch{"label": "Full name"})
//	data, _ := formdesigner.Encode(st.Form())
//
// The building blocks live under pkg/: schema (document model and codec),
// formula (expression engine), store (mutation API and history), catalog
// (host-provided configuration), notify (change fan-out) and tui (terminal
// designer).
package formdesigner

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goliatone/go-formdesigner/pkg/catalog"
	"github.com/goliatone/go-formdesigner/pkg/schema"
	"github.com/goliatone/go-formdesigner/pkg/store"
	"github.com/goliatone/go-formdesigner/pkg/tui"
)

// Form aliases schema.Form for callers that only use the facade.
type Form = schema.Form

// Store aliases store.Store.
type Store = store.Store

// Option aliases store.Option.
type Option = store.Option

// New constructs a store holding an empty form.
func New(options ...Option) (*Store, error) {
	return store.New(options...)
}

// Load decodes a persisted form (either validation shape) and opens a store
// on it. The loaded form is the only history entry.
func Load(data []byte, options ...Option) (*Store, error) {
	form, err := schema.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("formdesigner: load: %w", err)
	}
	return store.New(append(options, store.WithInitialForm(form))...)
}

// LoadFile reads path and passes its contents to Load.
func LoadFile(path string, options ...Option) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("formdesigner: read %s: %w", path, err)
	}
	return Load(data, options...)
}

// Encode serialises a form in the canonical shape.
func Encode(form Form, options ...schema.EncodeOption) ([]byte, error) {
	return schema.Encode(form, options...)
}

// LoadCatalog merges the built-in catalog with the catalog at path (a file
// or a directory). An empty path yields the built-in catalog alone.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	builtin, err := BuiltinCatalog()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return builtin, nil
	}
	host, err := catalog.LoadPath(path)
	if err != nil {
		return nil, err
	}
	return catalog.Merge(builtin, host)
}

// WithCatalog forwards to store.WithCatalog.
func WithCatalog(c *catalog.Catalog) Option {
	return store.WithCatalog(c)
}

// WithLogger forwards to store.WithLogger.
func WithLogger(logger *slog.Logger) Option {
	return store.WithLogger(logger)
}

// NewSession opens an interactive terminal designer over st.
func NewSession(st *Store, options ...tui.Option) (*tui.Session, error) {
	return tui.New(st, options...)
}
