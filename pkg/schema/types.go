package schema

import (
	"encoding/json"
	"strings"
)

// FieldType is the closed set of controls the designer can place on a canvas.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeToggle   FieldType = "toggle"
	FieldTypeFile     FieldType = "file"
	FieldTypeEmail    FieldType = "email"
	FieldTypePhone    FieldType = "phone"
	FieldTypeImage    FieldType = "image"
)

// FieldTypes lists every supported type in toolbox order.
var FieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeTextarea,
	FieldTypeNumber,
	FieldTypeDate,
	FieldTypeSelect,
	FieldTypeCheckbox,
	FieldTypeRadio,
	FieldTypeToggle,
	FieldTypeFile,
	FieldTypeEmail,
	FieldTypePhone,
	FieldTypeImage,
}

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	for _, known := range FieldTypes {
		if known == t {
			return true
		}
	}
	return false
}

// HasOptions reports whether the type renders a choice list.
func (t FieldType) HasOptions() bool {
	return t == FieldTypeSelect || t == FieldTypeCheckbox || t == FieldTypeRadio
}

// OptionSource governs where a choice field's options come from.
type OptionSource string

const (
	OptionSourceStatic OptionSource = "STATIC"
	OptionSourceMaster OptionSource = "MASTER"
	OptionSourceLookup OptionSource = "LOOKUP"
)

// ValueSource distinguishes manually entered numbers from computed ones.
type ValueSource string

const (
	ValueSourceManual  ValueSource = "manual"
	ValueSourceFormula ValueSource = "formula"
)

// Form is the root document.
type Form struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	FormName    string      `json:"formName"`
	Description string      `json:"description,omitempty"`
	Sections    []Section   `json:"sections"`
	Layout      *GridLayout `json:"layout,omitempty"`
}

// Section groups fields on the canvas. Order mirrors the section's index in
// Form.Sections.
type Section struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Fields      []Field     `json:"fields"`
	Order       int         `json:"order"`
	Layout      *GridLayout `json:"layout,omitempty"`
	CSS         *CSS        `json:"css,omitempty"`
}

// GridLayout describes a form or section grid.
type GridLayout struct {
	Columns int    `json:"columns,omitempty"`
	Gap     string `json:"gap,omitempty"`
}

// CSS carries a class name plus inline style declarations.
type CSS struct {
	ClassName string            `json:"className,omitempty"`
	Style     map[string]string `json:"style,omitempty"`
}

// FieldLayout positions a field on the 12-column grid. Width is the legacy
// percentage representation and is kept in sync with Span.
type FieldLayout struct {
	Row    int   `json:"row,omitempty"`
	Column int   `json:"column,omitempty"`
	Span   int   `json:"span"`
	Width  Width `json:"width,omitempty"`
}

// Width is the legacy percentage hint ("50%"). It decodes from either a
// string or a raw number.
type Width string

// UnmarshalJSON accepts "50%", "half" or 50.
func (w *Width) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*w = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*w = Width(strings.TrimSpace(s))
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*w = FormatWidth(ParseWidth(n))
	return nil
}

// Option is a single choice entry. Value is unique within its field.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// UnmarshalJSON accepts numbers and booleans as label or value.
func (o *Option) UnmarshalJSON(data []byte) error {
	var aux struct {
		Label any `json:"label"`
		Value any `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	o.Label = toString(aux.Label)
	o.Value = toString(aux.Value)
	return nil
}

// ISDConfig configures the dial-code picker of phone fields.
type ISDConfig struct {
	Enabled         bool   `json:"enabled"`
	DefaultCode     string `json:"defaultCode,omitempty"`
	ShowFlag        bool   `json:"showFlag"`
	ShowCountryName bool   `json:"showCountryName"`
	AllowCustomCode bool   `json:"allowCustomCode"`
}

// Field is a single control definition.
type Field struct {
	ID           string            `json:"id"`
	Type         FieldType         `json:"type"`
	Label        string            `json:"label"`
	Placeholder  string            `json:"placeholder,omitempty"`
	Description  string            `json:"description,omitempty"`
	FieldName    string            `json:"fieldName,omitempty"`
	Required     bool              `json:"required"`
	Enabled      bool              `json:"enabled"`
	Visible      bool              `json:"visible"`
	Layout       FieldLayout       `json:"layout"`
	Order        int               `json:"order"`
	Validations  *FieldValidations `json:"validations,omitempty"`
	Options      []Option          `json:"options,omitempty"`
	OptionSource OptionSource      `json:"optionSource,omitempty"`
	MasterType   string            `json:"masterType,omitempty"`
	LookupSource string            `json:"lookupSource,omitempty"`
	CSS          *CSS              `json:"css,omitempty"`
	MultiSelect  bool              `json:"multiSelect,omitempty"`
	ISD          *ISDConfig        `json:"isd,omitempty"`
	ValueSource  ValueSource       `json:"valueSource,omitempty"`
	Formula      string            `json:"formula,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty"`
}

// UnmarshalJSON defaults enabled and visible to true when the keys are
// absent. Flags stored as strings or numbers ("true", 1) are coerced.
func (f *Field) UnmarshalJSON(data []byte) error {
	type alias Field
	aux := struct {
		*alias
		Required    any `json:"required"`
		Enabled     any `json:"enabled"`
		Visible     any `json:"visible"`
		MultiSelect any `json:"multiSelect"`
	}{alias: (*alias)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	f.Required = flag(aux.Required, false)
	f.Enabled = flag(aux.Enabled, true)
	f.Visible = flag(aux.Visible, true)
	f.MultiSelect = flag(aux.MultiSelect, false)
	return nil
}

func flag(value any, fallback bool) bool {
	if value == nil {
		return fallback
	}
	if b, ok := toBool(value); ok {
		return b
	}
	return fallback
}

// Key returns the binding key used for data and formula references.
func (f Field) Key() string {
	if name := strings.TrimSpace(f.FieldName); name != "" {
		return name
	}
	return f.ID
}

// IsFormula reports whether the field's value is computed.
func (f Field) IsFormula() bool {
	return f.Type == FieldTypeNumber && f.ValueSource == ValueSourceFormula && strings.TrimSpace(f.Formula) != ""
}

// FieldRef locates a field inside a form.
type FieldRef struct {
	Section int
	Index   int
}

// FindField returns the location of the field with the given id.
func (f *Form) FindField(id string) (FieldRef, bool) {
	if f == nil || id == "" {
		return FieldRef{}, false
	}
	for si := range f.Sections {
		for fi := range f.Sections[si].Fields {
			if f.Sections[si].Fields[fi].ID == id {
				return FieldRef{Section: si, Index: fi}, true
			}
		}
	}
	return FieldRef{}, false
}

// FieldByKey resolves a reference by id first, then by fieldName.
func (f *Form) FieldByKey(key string) (*Field, bool) {
	if f == nil || key == "" {
		return nil, false
	}
	if ref, ok := f.FindField(key); ok {
		return &f.Sections[ref.Section].Fields[ref.Index], true
	}
	for si := range f.Sections {
		for fi := range f.Sections[si].Fields {
			if f.Sections[si].Fields[fi].FieldName == key {
				return &f.Sections[si].Fields[fi], true
			}
		}
	}
	return nil, false
}

// SectionIndex returns the index of the section with the given id or -1.
func (f *Form) SectionIndex(id string) int {
	if f == nil || id == "" {
		return -1
	}
	for idx := range f.Sections {
		if f.Sections[idx].ID == id {
			return idx
		}
	}
	return -1
}

// Fields returns every field in render order.
func (f *Form) Fields() []Field {
	if f == nil {
		return nil
	}
	var out []Field
	for _, section := range f.Sections {
		out = append(out, section.Fields...)
	}
	return out
}

// Renumber rewrites every Order attribute to match array positions.
func (f *Form) Renumber() {
	if f == nil {
		return
	}
	for si := range f.Sections {
		f.Sections[si].Order = si
		for fi := range f.Sections[si].Fields {
			f.Sections[si].Fields[fi].Order = fi
		}
	}
}
