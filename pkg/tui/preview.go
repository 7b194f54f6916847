package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formdesigner/pkg/schema"
)

// preview collects a runtime value for every visible input field and prints
// the resulting values, formulas included.
func (s *Session) preview(ctx context.Context) error {
	s.store.SetPreviewMode(true)
	defer s.store.SetPreviewMode(false)

	form := s.store.Form()
	for _, field := range form.Fields() {
		if !field.Visible || !field.Enabled || field.IsFormula() {
			continue
		}
		value, ok, err := s.promptValue(ctx, field)
		if err != nil {
			return err
		}
		if ok {
			s.store.SetValue(field.Key(), value)
		}
	}
	return s.driver.Info(ctx, FormatValues(form, s.store.Values()))
}

func (s *Session) promptValue(ctx context.Context, field schema.Field) (any, bool, error) {
	switch field.Type {
	case schema.FieldTypeFile, schema.FieldTypeImage:
		return nil, false, nil
	case schema.FieldTypeToggle:
		on, err := s.driver.Confirm(ctx, ConfirmConfig{Message: field.Label})
		return on, err == nil, err
	case schema.FieldTypeNumber:
		raw, err := s.driver.Input(ctx, InputConfig{
			Message:   field.Label,
			Help:      field.Placeholder,
			Validator: validateNumber,
		})
		if err != nil {
			return nil, false, err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, false, nil
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", field.Label, err)
		}
		return n, true, nil
	case schema.FieldTypeSelect, schema.FieldTypeRadio, schema.FieldTypeCheckbox:
		options := s.store.Catalog().OptionsFor(field)
		if len(options) == 0 {
			return nil, false, nil
		}
		labels := make([]string, len(options))
		for i, option := range options {
			labels[i] = option.Label
		}
		if field.Type == schema.FieldTypeCheckbox || field.MultiSelect {
			picked, err := s.driver.MultiSelect(ctx, SelectConfig{Message: field.Label, Options: labels})
			if err != nil {
				return nil, false, err
			}
			values := make([]string, 0, len(picked))
			for _, idx := range picked {
				if idx >= 0 && idx < len(options) {
					values = append(values, options[idx].Value)
				}
			}
			return values, true, nil
		}
		idx, err := s.choose(ctx, SelectConfig{Message: field.Label, Options: labels})
		if err != nil {
			return nil, false, err
		}
		return options[idx].Value, true, nil
	case schema.FieldTypeTextarea:
		text, err := s.driver.TextArea(ctx, TextAreaConfig{Message: field.Label, Help: field.Placeholder})
		if err != nil {
			return nil, false, err
		}
		return text, strings.TrimSpace(text) != "", nil
	default:
		text, err := s.driver.Input(ctx, InputConfig{Message: field.Label, Help: field.Placeholder})
		if err != nil {
			return nil, false, err
		}
		return text, strings.TrimSpace(text) != "", nil
	}
}

func validateNumber(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(input, 64); err != nil {
		return fmt.Errorf("%q is not a number", input)
	}
	return nil
}

// FormatValues lists one "key = value" line per field in canvas order.
// Computed fields carry their formula.
func FormatValues(form schema.Form, values map[string]any) string {
	var b strings.Builder
	for _, field := range form.Fields() {
		key := field.Key()
		value, ok := values[key]
		if !ok {
			value, ok = values[field.ID]
		}
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s = %v", key, value)
		if field.IsFormula() {
			fmt.Fprintf(&b, "  (= %s)", field.Formula)
		}
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return "(no values)"
	}
	return strings.TrimSuffix(b.String(), "\n")
}
