package tui

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formdesigner/pkg/schema"
)

// Outline renders a plain-text tree of the form, marking the selected field
// with an asterisk.
func Outline(form schema.Form, selected string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", form.Title, form.FormName)
	if len(form.Sections) == 0 {
		b.WriteString("  (no sections)\n")
		return b.String()
	}
	for si, section := range form.Sections {
		fmt.Fprintf(&b, "  %d. %s\n", si+1, section.Title)
		if len(section.Fields) == 0 {
			b.WriteString("     (empty)\n")
		}
		for fi, field := range section.Fields {
			marker := " "
			if field.ID == selected {
				marker = "*"
			}
			fmt.Fprintf(&b, "   %s %d.%d %s [%s] %s span=%d", marker, si+1, fi+1, field.Label, field.Type, field.Key(), field.Layout.Span)
			if field.Required {
				b.WriteString(" required")
			}
			if field.IsFormula() {
				fmt.Fprintf(&b, " = %s", field.Formula)
			}
			if field.Type.HasOptions() {
				fmt.Fprintf(&b, " options=%s", describeOptions(field))
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func describeOptions(field schema.Field) string {
	switch field.OptionSource {
	case schema.OptionSourceMaster:
		return "MASTER:" + field.MasterType
	case schema.OptionSourceLookup:
		return "LOOKUP:" + field.LookupSource
	}
	values := make([]string, 0, len(field.Options))
	for _, option := range field.Options {
		values = append(values, option.Value)
	}
	return "[" + strings.Join(values, ",") + "]"
}

// FieldNameFromLabel derives a binding key such as "first_name" from a
// display label.
func FieldNameFromLabel(label string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		case b.Len() > 0 && !underscore:
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
