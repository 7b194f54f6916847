package schema

import (
	"errors"
	"fmt"
)

// ErrUnknownFieldType is returned when a field type is outside the enum.
var ErrUnknownFieldType = errors.New("schema: unknown field type")

// DefaultISDCode is the dial code phone fields start with.
const DefaultISDCode = "+91"

// TypeLabel returns the human name of a field type, used as the default label.
func TypeLabel(t FieldType) string {
	switch t {
	case FieldTypeText:
		return "Text Input"
	case FieldTypeTextarea:
		return "Text Area"
	case FieldTypeNumber:
		return "Number"
	case FieldTypeDate:
		return "Date"
	case FieldTypeSelect:
		return "Dropdown"
	case FieldTypeCheckbox:
		return "Checkbox Group"
	case FieldTypeRadio:
		return "Radio Group"
	case FieldTypeToggle:
		return "Toggle"
	case FieldTypeFile:
		return "File Upload"
	case FieldTypeEmail:
		return "Email"
	case FieldTypePhone:
		return "Phone Number"
	case FieldTypeImage:
		return "Image"
	}
	return ""
}

// DefaultOptions returns the two placeholder choices given to new choice fields.
func DefaultOptions() []Option {
	return []Option{
		{Label: "Option 1", Value: "opt1"},
		{Label: "Option 2", Value: "opt2"},
	}
}

// NewField builds a field of type t with deterministic defaults.
func NewField(t FieldType, id string) (Field, error) {
	field := Field{
		ID:      id,
		Type:    t,
		Label:   TypeLabel(t),
		Enabled: true,
		Visible: true,
		Layout:  FieldLayout{Span: MaxSpan},
	}

	switch t {
	case FieldTypeText:
		field.Placeholder = "Enter text"
	case FieldTypeTextarea:
		field.Placeholder = "Enter details"
	case FieldTypeNumber:
		field.Placeholder = "Enter a number"
		field.ValueSource = ValueSourceManual
	case FieldTypeDate:
		field.Placeholder = "Select a date"
	case FieldTypeSelect, FieldTypeCheckbox, FieldTypeRadio:
		field.Placeholder = "Select an option"
		field.Options = DefaultOptions()
		field.OptionSource = OptionSourceStatic
	case FieldTypeToggle:
	case FieldTypeFile, FieldTypeImage:
		field.Placeholder = "Choose a file"
	case FieldTypeEmail:
		field.Placeholder = "Enter email address"
	case FieldTypePhone:
		field.Placeholder = "Enter phone number"
		field.ISD = &ISDConfig{
			Enabled:     true,
			DefaultCode: DefaultISDCode,
			ShowFlag:    true,
		}
	default:
		return Field{}, fmt.Errorf("%w: %q", ErrUnknownFieldType, string(t))
	}

	field.Layout.SyncFromSpan()
	return field, nil
}
