package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formdesigner/pkg/schema"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
func boolp(v bool) *bool        { return &v }

func TestValidationsFromRules(t *testing.T) {
	t.Parallel()

	got := schema.ValidationsFromRules([]schema.ValidationRule{
		{Type: "minLength", Value: 3.0, Message: "Too short"},
		{Type: "regex", Value: "^[a-z]+$"},
		{Type: "max", Value: "99.5"},
		{Type: "unknownRule", Value: 1},
	})
	want := schema.FieldValidations{
		MinLength: intp(3),
		Pattern:   "^[a-z]+$",
		Max:       floatp(99.5),
		Messages:  map[string]string{schema.RuleMinLength: "Too short"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("converted rules mismatch (-want +got):\n%s", diff)
	}
}

func TestValidationsFromRules_DoesNotInferRequired(t *testing.T) {
	t.Parallel()

	got := schema.ValidationsFromRules([]schema.ValidationRule{
		{Type: "pattern", Value: "^\\d+$"},
		{Type: "maxLength", Value: 4},
	})
	if got.Required {
		t.Fatalf("required must not be inferred from other rules")
	}

	explicit := schema.ValidationsFromRules([]schema.ValidationRule{{Type: "required"}})
	if !explicit.Required {
		t.Fatalf("a bare required rule means required")
	}
	off := schema.ValidationsFromRules([]schema.ValidationRule{{Type: "required", Value: false}})
	if off.Required {
		t.Fatalf("required=false must be preserved")
	}
}

func TestValidationsFromLegacyObject(t *testing.T) {
	t.Parallel()

	got := schema.ValidationsFromLegacyObject(map[string]any{
		"required":       "true",
		"regex":          "^[0-9]+$",
		"min_length":     "2",
		"MaxLen":         8,
		"errorMessage":   "Invalid value",
		"patternMessage": "Digits only",
		"allowDecimals":  false,
		"preset":         "custom",
		"ignored":        "x",
	})
	want := schema.FieldValidations{
		Required:       true,
		Pattern:        "^[0-9]+$",
		MinLength:      intp(2),
		MaxLength:      intp(8),
		AllowDecimal:   boolp(false),
		ValidationType: "custom",
		Messages: map[string]string{
			schema.MessageDefault: "Invalid value",
			schema.RulePattern:    "Digits only",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("converted object mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldValidations_UnmarshalShapes(t *testing.T) {
	t.Parallel()

	var fromArray schema.FieldValidations
	if err := json.Unmarshal([]byte(`[{"type":"minLength","value":2},{"type":"required"}]`), &fromArray); err != nil {
		t.Fatalf("unmarshal array: %v", err)
	}
	var fromObject schema.FieldValidations
	if err := json.Unmarshal([]byte(`{"required":true,"minLength":2}`), &fromObject); err != nil {
		t.Fatalf("unmarshal object: %v", err)
	}
	if diff := cmp.Diff(fromArray, fromObject); diff != "" {
		t.Fatalf("both shapes should normalise to the same rules (-array +object):\n%s", diff)
	}

	var bad schema.FieldValidations
	if err := json.Unmarshal([]byte(`"required"`), &bad); err == nil {
		t.Fatalf("expected error for a scalar validations value")
	}
}

func TestRulesFromValidations_RoundTrip(t *testing.T) {
	t.Parallel()

	original := schema.FieldValidations{
		Required:      true,
		Pattern:       "^x$",
		MinLength:     intp(1),
		Min:           floatp(0),
		MaxSelected:   intp(3),
		MinDate:       "2024-01-01",
		DecimalPlaces: intp(2),
		Messages:      map[string]string{schema.RulePattern: "Only x"},
	}
	rules := schema.RulesFromValidations(original)

	var types []string
	for _, rule := range rules {
		types = append(types, rule.Type)
	}
	wantTypes := []string{"required", "pattern", "minLength", "min", "maxSelected", "minDate", "decimalPlaces"}
	if diff := cmp.Diff(wantTypes, types); diff != "" {
		t.Fatalf("rule order mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(original, schema.ValidationsFromRules(rules)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyPreset(t *testing.T) {
	t.Parallel()

	v := &schema.FieldValidations{
		Required:    true,
		Pattern:     "old",
		Max:         floatp(5),
		MinSelected: intp(1),
		Messages:    map[string]string{schema.RulePattern: "old message", schema.RuleRequired: "Required!"},
	}
	if !schema.ApplyPreset(v, schema.PresetPhoneNumber) {
		t.Fatalf("phoneNumber preset should apply")
	}

	want := &schema.FieldValidations{
		Required:       true,
		Pattern:        `^[6-9][0-9]{9}$`,
		MinLength:      intp(10),
		MaxLength:      intp(10),
		MinSelected:    intp(1),
		ValidationType: schema.PresetPhoneNumber,
		Messages: map[string]string{
			schema.RuleRequired: "Required!",
			schema.RulePattern:  "Enter a valid 10-digit phone number",
		},
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatalf("preset result mismatch (-want +got):\n%s", diff)
	}

	if schema.ApplyPreset(v, schema.PresetCustom) {
		t.Fatalf("custom has no bundle")
	}
	if v.ValidationType != schema.PresetCustom || v.Pattern == "" {
		t.Fatalf("custom should only record the type: %+v", v)
	}
}

func TestPresets(t *testing.T) {
	t.Parallel()

	want := []string{"amount", "email", "otp", "phoneNumber", "postalCode"}
	if diff := cmp.Diff(want, schema.Presets()); diff != "" {
		t.Fatalf("presets mismatch (-want +got):\n%s", diff)
	}
}
