package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Canonical rule identifiers shared by the canonical object, the legacy rule
// array and the per-rule message map.
const (
	RuleRequired       = "required"
	RulePattern        = "pattern"
	RuleMinLength      = "minLength"
	RuleMaxLength      = "maxLength"
	RuleMin            = "min"
	RuleMax            = "max"
	RuleMinSelected    = "minSelected"
	RuleMaxSelected    = "maxSelected"
	RuleMinDate        = "minDate"
	RuleMaxDate        = "maxDate"
	RuleAllowDecimal   = "allowDecimal"
	RuleDecimalPlaces  = "decimalPlaces"
	RuleAllowNegative  = "allowNegative"
	RuleValidationType = "validationType"

	// MessageDefault keys the catch-all legacy "errorMessage".
	MessageDefault = "default"
)

// FieldValidations is the canonical per-field rule set. Pointer members
// distinguish an absent rule from a zero bound.
type FieldValidations struct {
	Required       bool              `json:"required,omitempty"`
	Pattern        string            `json:"pattern,omitempty"`
	Messages       map[string]string `json:"messages,omitempty"`
	MinLength      *int              `json:"minLength,omitempty"`
	MaxLength      *int              `json:"maxLength,omitempty"`
	Min            *float64          `json:"min,omitempty"`
	Max            *float64          `json:"max,omitempty"`
	MinSelected    *int              `json:"minSelected,omitempty"`
	MaxSelected    *int              `json:"maxSelected,omitempty"`
	MinDate        string            `json:"minDate,omitempty"`
	MaxDate        string            `json:"maxDate,omitempty"`
	AllowDecimal   *bool             `json:"allowDecimal,omitempty"`
	DecimalPlaces  *int              `json:"decimalPlaces,omitempty"`
	AllowNegative  *bool             `json:"allowNegative,omitempty"`
	ValidationType string            `json:"validationType,omitempty"`
}

// ValidationRule is the legacy tagged representation: {"type":"minLength","value":3}.
type ValidationRule struct {
	Type    string `json:"type"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

// UnmarshalJSON accepts the canonical object, the flat legacy object and the
// legacy rule array.
func (v *FieldValidations) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var rules []ValidationRule
		if err := json.Unmarshal(trimmed, &rules); err != nil {
			return fmt.Errorf("schema: decode validation rules: %w", err)
		}
		*v = ValidationsFromRules(rules)
		return nil
	case '{':
		var raw map[string]any
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("schema: decode validations: %w", err)
		}
		*v = ValidationsFromLegacyObject(raw)
		return nil
	default:
		return fmt.Errorf("schema: validations must be an object or array, got %q", string(trimmed[:1]))
	}
}

// IsZero reports whether no rule is set.
func (v *FieldValidations) IsZero() bool {
	if v == nil {
		return true
	}
	return !v.Required && v.Pattern == "" && len(v.Messages) == 0 &&
		v.MinLength == nil && v.MaxLength == nil && v.Min == nil && v.Max == nil &&
		v.MinSelected == nil && v.MaxSelected == nil && v.MinDate == "" && v.MaxDate == "" &&
		v.AllowDecimal == nil && v.DecimalPlaces == nil && v.AllowNegative == nil &&
		v.ValidationType == ""
}

// ValidationsFromRules converts the legacy rule array. A required rule
// without a value counts as required; required is never inferred from the
// presence of other rules.
func ValidationsFromRules(rules []ValidationRule) FieldValidations {
	var out FieldValidations
	for _, rule := range rules {
		key := canonicalRuleKey(rule.Type)
		if key == "" {
			continue
		}
		value := rule.Value
		if key == RuleRequired && value == nil {
			value = true
		}
		applyRule(&out, key, value)
		if strings.TrimSpace(rule.Message) != "" {
			out.setMessage(key, rule.Message)
		}
	}
	return out
}

// ValidationsFromLegacyObject converts a loosely typed flat object. Keys are
// matched case-insensitively and common aliases (regex, minlen, errorMessage)
// are understood. Unknown keys are ignored.
func ValidationsFromLegacyObject(raw map[string]any) FieldValidations {
	var out FieldValidations
	for rawKey, value := range raw {
		lowered := normaliseKey(rawKey)
		switch lowered {
		case "messages":
			if messages, ok := value.(map[string]any); ok {
				for rule, msg := range messages {
					key := canonicalRuleKey(rule)
					if key == "" {
						key = strings.TrimSpace(rule)
					}
					if text := toString(msg); strings.TrimSpace(text) != "" {
						out.setMessage(key, text)
					}
				}
			}
			continue
		case "errormessage", "message":
			if text := toString(value); strings.TrimSpace(text) != "" {
				out.setMessage(MessageDefault, text)
			}
			continue
		}
		if strings.HasSuffix(lowered, "message") {
			if key := canonicalRuleKey(strings.TrimSuffix(lowered, "message")); key != "" {
				if text := toString(value); strings.TrimSpace(text) != "" {
					out.setMessage(key, text)
				}
			}
			continue
		}
		if key := canonicalRuleKey(rawKey); key != "" {
			applyRule(&out, key, value)
		}
	}
	return out
}

// RulesFromValidations emits the legacy rule array in a stable order.
func RulesFromValidations(v FieldValidations) []ValidationRule {
	var out []ValidationRule
	add := func(key string, value any) {
		out = append(out, ValidationRule{Type: key, Value: value, Message: v.Messages[key]})
	}
	if v.Required {
		add(RuleRequired, true)
	}
	if v.Pattern != "" {
		add(RulePattern, v.Pattern)
	}
	if v.MinLength != nil {
		add(RuleMinLength, *v.MinLength)
	}
	if v.MaxLength != nil {
		add(RuleMaxLength, *v.MaxLength)
	}
	if v.Min != nil {
		add(RuleMin, *v.Min)
	}
	if v.Max != nil {
		add(RuleMax, *v.Max)
	}
	if v.MinSelected != nil {
		add(RuleMinSelected, *v.MinSelected)
	}
	if v.MaxSelected != nil {
		add(RuleMaxSelected, *v.MaxSelected)
	}
	if v.MinDate != "" {
		add(RuleMinDate, v.MinDate)
	}
	if v.MaxDate != "" {
		add(RuleMaxDate, v.MaxDate)
	}
	if v.AllowDecimal != nil {
		add(RuleAllowDecimal, *v.AllowDecimal)
	}
	if v.DecimalPlaces != nil {
		add(RuleDecimalPlaces, *v.DecimalPlaces)
	}
	if v.AllowNegative != nil {
		add(RuleAllowNegative, *v.AllowNegative)
	}
	if v.ValidationType != "" {
		add(RuleValidationType, v.ValidationType)
	}
	return out
}

func (v *FieldValidations) setMessage(rule, msg string) {
	if v.Messages == nil {
		v.Messages = make(map[string]string)
	}
	v.Messages[rule] = msg
}

func applyRule(v *FieldValidations, key string, value any) {
	switch key {
	case RuleRequired:
		if b, ok := toBool(value); ok {
			v.Required = b
		}
	case RulePattern:
		v.Pattern = toString(value)
	case RuleMinLength:
		if n, ok := toInt(value); ok {
			v.MinLength = intPtr(n)
		}
	case RuleMaxLength:
		if n, ok := toInt(value); ok {
			v.MaxLength = intPtr(n)
		}
	case RuleMin:
		if f, ok := toFloat(value); ok {
			v.Min = floatPtr(f)
		}
	case RuleMax:
		if f, ok := toFloat(value); ok {
			v.Max = floatPtr(f)
		}
	case RuleMinSelected:
		if n, ok := toInt(value); ok {
			v.MinSelected = intPtr(n)
		}
	case RuleMaxSelected:
		if n, ok := toInt(value); ok {
			v.MaxSelected = intPtr(n)
		}
	case RuleMinDate:
		v.MinDate = toString(value)
	case RuleMaxDate:
		v.MaxDate = toString(value)
	case RuleAllowDecimal:
		if b, ok := toBool(value); ok {
			v.AllowDecimal = boolPtr(b)
		}
	case RuleDecimalPlaces:
		if n, ok := toInt(value); ok {
			v.DecimalPlaces = intPtr(n)
		}
	case RuleAllowNegative:
		if b, ok := toBool(value); ok {
			v.AllowNegative = boolPtr(b)
		}
	case RuleValidationType:
		v.ValidationType = strings.TrimSpace(toString(value))
	}
}

var ruleAliases = map[string]string{
	"required":       RuleRequired,
	"pattern":        RulePattern,
	"regex":          RulePattern,
	"regexp":         RulePattern,
	"minlength":      RuleMinLength,
	"minlen":         RuleMinLength,
	"maxlength":      RuleMaxLength,
	"maxlen":         RuleMaxLength,
	"min":            RuleMin,
	"minvalue":       RuleMin,
	"max":            RuleMax,
	"maxvalue":       RuleMax,
	"minselected":    RuleMinSelected,
	"maxselected":    RuleMaxSelected,
	"mindate":        RuleMinDate,
	"maxdate":        RuleMaxDate,
	"allowdecimal":   RuleAllowDecimal,
	"allowdecimals":  RuleAllowDecimal,
	"decimalplaces":  RuleDecimalPlaces,
	"decimals":       RuleDecimalPlaces,
	"allownegative":  RuleAllowNegative,
	"validationtype": RuleValidationType,
	"preset":         RuleValidationType,
}

func canonicalRuleKey(raw string) string {
	return ruleAliases[normaliseKey(raw)]
}

func normaliseKey(raw string) string {
	replacer := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(replacer.Replace(strings.TrimSpace(raw)))
}
