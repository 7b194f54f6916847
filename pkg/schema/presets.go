package schema

import (
	"sort"
	"strings"
)

// Built-in validation presets.
const (
	PresetPostalCode  = "postalCode"
	PresetPhoneNumber = "phoneNumber"
	PresetOTP         = "otp"
	PresetAmount      = "amount"
	PresetEmail       = "email"
	PresetCustom      = "custom"
)

// governedRules are overwritten wholesale whenever a preset is applied.
var governedRules = []string{
	RulePattern, RuleMinLength, RuleMaxLength, RuleMin, RuleMax,
	RuleAllowDecimal, RuleDecimalPlaces, RuleAllowNegative,
}

var presets = map[string]func(*FieldValidations){
	PresetPostalCode: func(v *FieldValidations) {
		v.Pattern = `^[1-9][0-9]{5}$`
		v.MinLength = intPtr(6)
		v.MaxLength = intPtr(6)
		v.setMessage(RulePattern, "Enter a valid 6-digit postal code")
	},
	PresetPhoneNumber: func(v *FieldValidations) {
		v.Pattern = `^[6-9][0-9]{9}$`
		v.MinLength = intPtr(10)
		v.MaxLength = intPtr(10)
		v.setMessage(RulePattern, "Enter a valid 10-digit phone number")
	},
	PresetOTP: func(v *FieldValidations) {
		v.Pattern = `^[0-9]{6}$`
		v.MinLength = intPtr(6)
		v.MaxLength = intPtr(6)
		v.setMessage(RulePattern, "Enter the 6-digit code")
	},
	PresetAmount: func(v *FieldValidations) {
		v.Pattern = `^[0-9]+(\.[0-9]{1,2})?$`
		v.Min = floatPtr(0)
		v.AllowDecimal = boolPtr(true)
		v.DecimalPlaces = intPtr(2)
		v.AllowNegative = boolPtr(false)
		v.setMessage(RulePattern, "Enter a valid amount")
	},
	PresetEmail: func(v *FieldValidations) {
		v.Pattern = `^[^\s@]+@[^\s@]+\.[^\s@]+$`
		v.MaxLength = intPtr(254)
		v.setMessage(RulePattern, "Enter a valid email address")
	},
}

// Presets returns the names of the built-in presets, sorted.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset records name as the validation type and, for a known preset,
// replaces every governed rule with the preset bundle. Required, selection
// counts and date bounds are left alone. It reports whether a bundle was
// applied.
func ApplyPreset(v *FieldValidations, name string) bool {
	if v == nil {
		return false
	}
	name = strings.TrimSpace(name)
	v.ValidationType = name
	apply, ok := presets[name]
	if !ok {
		return false
	}
	v.Pattern = ""
	v.MinLength, v.MaxLength = nil, nil
	v.Min, v.Max = nil, nil
	v.AllowDecimal, v.DecimalPlaces, v.AllowNegative = nil, nil, nil
	for _, rule := range governedRules {
		delete(v.Messages, rule)
	}
	apply(v)
	if len(v.Messages) == 0 {
		v.Messages = nil
	}
	return true
}
