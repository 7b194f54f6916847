// Package schema defines the form document produced by the designer: a Form
// holds ordered Sections, each Section holds ordered Fields. Field types are a
// closed enumeration and every type receives deterministic defaults through
// NewField.
//
// The canonical model is what the store mutates. Historical wire shapes (the
// validation rule array, the flat legacy validation object and the percentage
// `width` layout hint) are accepted by Decode and normalised into
// FieldValidations and FieldLayout.Span so callers never branch on which shape
// was persisted. Encode emits the canonical shape and, when asked, the legacy
// rule array for older consumers.
package schema
