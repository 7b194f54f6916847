package formula

import (
	"errors"
	"fmt"
	"strings"
)

// Result is the outcome of an advisory syntax check.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	err    error
}

// Err returns the sentinel behind an invalid result, or nil.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return ErrSyntax
}

func invalid(err error, reason string) Result {
	return Result{Valid: false, Reason: reason, err: err}
}

// ValidateSyntax checks a formula before it is accepted. References must name
// one of availableIDs or availableNames, parentheses must balance and the
// formula must not reference currentFieldID. The check is advisory: it
// never prevents Evaluate from running.
func ValidateSyntax(formula string, availableIDs, availableNames []string, currentFieldID string) Result {
	trimmed := strings.TrimSpace(formula)
	if trimmed == "" {
		return invalid(ErrEmptyFormula, "Formula cannot be empty")
	}

	depth := 0
	for i := 0; i < len(trimmed); i++ {
		ch := trimmed[i]
		switch {
		case ch == '(':
			depth++
		case ch == ')':
			depth--
			if depth < 0 {
				return invalid(ErrUnbalancedParens, fmt.Sprintf("Unexpected ')' at position %d", i))
			}
		case isWordChar(ch), isSpace(ch), ch == '.', ch == '+', ch == '-', ch == '*', ch == '/':
		default:
			return invalid(ErrUnexpectedCharacter, fmt.Sprintf("Unexpected character %q at position %d", string(ch), i))
		}
	}
	if depth != 0 {
		return invalid(ErrUnbalancedParens, "Unbalanced parentheses")
	}

	known := make(map[string]struct{}, len(availableIDs)+len(availableNames))
	for _, id := range availableIDs {
		known[id] = struct{}{}
	}
	for _, name := range availableNames {
		known[name] = struct{}{}
	}
	for _, dep := range ParseDependencies(trimmed) {
		if currentFieldID != "" && dep == currentFieldID {
			return invalid(ErrSelfReference, "Formula cannot reference its own field")
		}
		if _, ok := known[dep]; !ok {
			return invalid(ErrUnknownReference, fmt.Sprintf("Unknown field reference: %s", dep))
		}
	}

	if _, err := Parse(trimmed); err != nil {
		reason := "Invalid formula syntax"
		var ferr *Error
		if errors.As(err, &ferr) && ferr.Reason != "" {
			reason = "Invalid formula syntax: " + ferr.Reason
		}
		return invalid(ErrSyntax, reason)
	}
	return Result{Valid: true}
}
