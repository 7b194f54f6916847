package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrFormIDMissing    = errors.New("schema: form id is required")
	ErrFormTitleMissing = errors.New("schema: form title is required")
	ErrFormNameMissing  = errors.New("schema: form formName is required")
)

// IDFunc produces a fresh identifier for the given prefix ("field", "section").
type IDFunc func(prefix string) string

// ValidateRoot checks the identifiers every persisted form must carry.
func ValidateRoot(form Form) error {
	if strings.TrimSpace(form.ID) == "" {
		return ErrFormIDMissing
	}
	if strings.TrimSpace(form.Title) == "" {
		return ErrFormTitleMissing
	}
	if strings.TrimSpace(form.FormName) == "" {
		return ErrFormNameMissing
	}
	return nil
}

// Decode parses a persisted form, accepting legacy validation and width
// shapes, and normalises it. Missing root identifiers are a hard error.
func Decode(data []byte) (Form, error) {
	var form Form
	if err := json.Unmarshal(data, &form); err != nil {
		return Form{}, fmt.Errorf("schema: decode form: %w", err)
	}
	if err := decodeLegacyRules(data, &form); err != nil {
		return Form{}, err
	}
	if err := ValidateRoot(form); err != nil {
		return Form{}, fmt.Errorf("schema: load: %w", err)
	}
	Normalize(&form, nil)
	return form, nil
}

// decodeLegacyRules folds a sibling "validationRules" array (emitted by
// WithLegacyRules) into fields that carry no canonical validations.
func decodeLegacyRules(data []byte, form *Form) error {
	var wire struct {
		Sections []struct {
			Fields []struct {
				ValidationRules []ValidationRule `json:"validationRules"`
			} `json:"fields"`
		} `json:"sections"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("schema: decode legacy rules: %w", err)
	}
	for si := range wire.Sections {
		if si >= len(form.Sections) {
			break
		}
		for fi, wf := range wire.Sections[si].Fields {
			if fi >= len(form.Sections[si].Fields) || len(wf.ValidationRules) == 0 {
				continue
			}
			field := &form.Sections[si].Fields[fi]
			if field.Validations.IsZero() {
				converted := ValidationsFromRules(wf.ValidationRules)
				field.Validations = &converted
			}
		}
	}
	return nil
}

type encodeConfig struct {
	legacyRules bool
	indent      string
}

// EncodeOption customises Encode.
type EncodeOption func(*encodeConfig)

// WithLegacyRules emits a "validationRules" array next to each field's
// canonical validations for consumers that predate the object shape.
func WithLegacyRules() EncodeOption {
	return func(cfg *encodeConfig) {
		cfg.legacyRules = true
	}
}

// WithIndent pretty-prints the output.
func WithIndent(indent string) EncodeOption {
	return func(cfg *encodeConfig) {
		cfg.indent = indent
	}
}

type fieldWire struct {
	Field
	ValidationRules []ValidationRule `json:"validationRules,omitempty"`
}

type sectionWire struct {
	Section
	Fields []fieldWire `json:"fields"`
}

type formWire struct {
	Form
	Sections []sectionWire `json:"sections"`
}

// Encode serialises the form in its canonical shape.
func Encode(form Form, opts ...EncodeOption) ([]byte, error) {
	cfg := encodeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var payload any = form
	if cfg.legacyRules {
		wire := formWire{Form: form, Sections: make([]sectionWire, len(form.Sections))}
		for si, section := range form.Sections {
			sw := sectionWire{Section: section, Fields: make([]fieldWire, len(section.Fields))}
			for fi, field := range section.Fields {
				fw := fieldWire{Field: field}
				if field.Validations != nil {
					fw.ValidationRules = RulesFromValidations(*field.Validations)
				}
				sw.Fields[fi] = fw
			}
			wire.Sections[si] = sw
		}
		payload = wire
	}

	var (
		out []byte
		err error
	)
	if cfg.indent != "" {
		out, err = json.MarshalIndent(payload, "", cfg.indent)
	} else {
		out, err = json.Marshal(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("schema: encode form: %w", err)
	}
	return out, nil
}

// Normalize repairs everything that can be repaired without guessing intent:
// display strings lose markup, layouts sync span and width, option values
// are deduplicated, missing or duplicate ids are regenerated and order values
// follow array positions. Formula dependency lists are left to the caller. A
// nil ids func falls back to positional identifiers.
func Normalize(form *Form, ids IDFunc) {
	if form == nil {
		return
	}
	if ids == nil {
		ids = positionalIDs(form)
	}
	if form.Sections == nil {
		form.Sections = []Section{}
	}

	form.Title = SanitizeText(form.Title)
	form.Description = SanitizeText(form.Description)

	seenSections := make(map[string]struct{})
	seenFields := make(map[string]struct{})
	for si := range form.Sections {
		section := &form.Sections[si]
		if _, dup := seenSections[section.ID]; section.ID == "" || dup {
			section.ID = ids("section")
		}
		seenSections[section.ID] = struct{}{}
		section.Title = SanitizeText(section.Title)
		section.Description = SanitizeText(section.Description)
		if section.Fields == nil {
			section.Fields = []Field{}
		}
		for fi := range section.Fields {
			field := &section.Fields[fi]
			if _, dup := seenFields[field.ID]; field.ID == "" || dup {
				field.ID = ids("field")
			}
			seenFields[field.ID] = struct{}{}
			NormalizeField(field)
		}
	}
	form.Renumber()
}

// NormalizeField applies per-field normalisation in place.
func NormalizeField(field *Field) {
	field.Label = SanitizeText(field.Label)
	field.Placeholder = SanitizeText(field.Placeholder)
	field.Description = SanitizeText(field.Description)
	field.FieldName = strings.TrimSpace(field.FieldName)
	field.Layout.Normalize()
	field.Options = DedupeOptions(field.Options)
	if field.Validations != nil && field.Validations.IsZero() {
		field.Validations = nil
	}
	if field.Type.HasOptions() && field.OptionSource == "" {
		field.OptionSource = OptionSourceStatic
	}
	if field.Type == FieldTypeNumber && field.ValueSource == "" {
		field.ValueSource = ValueSourceManual
	}
	if !field.IsFormula() {
		field.Dependencies = nil
	}
}

// DedupeOptions drops options whose value repeats an earlier one. Options
// without a value get a generated "optN" value.
func DedupeOptions(options []Option) []Option {
	if len(options) == 0 {
		return options
	}
	seen := make(map[string]struct{}, len(options))
	out := make([]Option, 0, len(options))
	for _, opt := range options {
		opt.Label = SanitizeText(opt.Label)
		opt.Value = strings.TrimSpace(opt.Value)
		if opt.Value == "" {
			opt.Value = NextOptionValue(out)
		}
		if _, dup := seen[opt.Value]; dup {
			continue
		}
		seen[opt.Value] = struct{}{}
		out = append(out, opt)
	}
	return out
}

// NextOptionValue returns the first "optN" value not used by options.
func NextOptionValue(options []Option) string {
	used := make(map[string]struct{}, len(options))
	for _, opt := range options {
		used[opt.Value] = struct{}{}
	}
	for n := len(options) + 1; ; n++ {
		candidate := "opt" + strconv.Itoa(n)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}

func positionalIDs(form *Form) IDFunc {
	used := make(map[string]struct{})
	for _, section := range form.Sections {
		used[section.ID] = struct{}{}
		for _, field := range section.Fields {
			used[field.ID] = struct{}{}
		}
	}
	counters := make(map[string]int)
	return func(prefix string) string {
		for {
			counters[prefix]++
			candidate := prefix + "_" + strconv.Itoa(counters[prefix])
			if _, taken := used[candidate]; !taken {
				used[candidate] = struct{}{}
				return candidate
			}
		}
	}
}
