package store

import (
	"strings"

	"github.com/goliatone/go-formdesigner/pkg/formula"
)

// SetPreviewMode toggles preview. Entering preview starts from empty values.
func (s *Store) SetPreviewMode(on bool) {
	s.mu.Lock()
	changed := s.preview != on
	s.preview = on
	if changed && on {
		s.values = make(map[string]any)
	}
	s.mu.Unlock()
	if changed {
		s.hub.Notify()
	}
}

func (s *Store) PreviewMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// SetValue records a runtime value under a field id or fieldName. Values
// for formula fields are ignored; they are always computed.
func (s *Store) SetValue(key string, value any) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	s.mu.Lock()
	if field, ok := s.current.FieldByKey(key); ok && field.IsFormula() {
		s.mu.Unlock()
		return
	}
	s.values[key] = value
	s.mu.Unlock()
	s.hub.Notify()
}

// ResetValues drops every runtime value.
func (s *Store) ResetValues() {
	s.mu.Lock()
	s.values = make(map[string]any)
	s.mu.Unlock()
	s.hub.Notify()
}

// Values returns the runtime values with every formula field computed. Each
// field is reachable under both its id and its fieldName. Values recorded
// for fields that no longer exist are ignored, so formulas referencing a
// removed field read it as zero.
func (s *Store) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := make(map[string]any, len(s.values))
	for key, value := range s.values {
		if _, ok := s.current.FieldByKey(key); ok {
			live[key] = value
		}
	}
	return formula.ComputeValues(&s.current, live)
}
