package store

import (
	"io"
	"log/slog"

	"github.com/goliatone/go-formdesigner/pkg/catalog"
	"github.com/goliatone/go-formdesigner/pkg/notify"
	"github.com/goliatone/go-formdesigner/pkg/schema"
)

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the structured logger used for no-op and diagnostic events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCatalog injects the host catalog backing MASTER and LOOKUP option
// sources, existing forms and section templates.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Store) {
		s.catalog = c
	}
}

// WithIDGenerator overrides UUIDGenerator.
func WithIDGenerator(ids schema.IDFunc) Option {
	return func(s *Store) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithHistoryLimit caps the undo stack. Zero or less keeps every snapshot.
func WithHistoryLimit(limit int) Option {
	return func(s *Store) {
		s.historyLimit = limit
	}
}

// WithHub shares an existing notification hub with the store.
func WithHub(hub *notify.Hub) Option {
	return func(s *Store) {
		if hub != nil {
			s.hub = hub
		}
	}
}

// WithInitialForm seeds the store with form instead of an empty document.
// The form is normalised the same way SetSchema does it.
func WithInitialForm(form schema.Form) Option {
	return func(s *Store) {
		clone := schema.Clone(form)
		s.initial = &clone
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
