package formula

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFormula        = errors.New("formula: empty formula")
	ErrUnbalancedParens    = errors.New("formula: unbalanced parentheses")
	ErrUnexpectedCharacter = errors.New("formula: unexpected character")
	ErrUnknownReference    = errors.New("formula: unknown field reference")
	ErrSelfReference       = errors.New("formula: field references itself")
	ErrSyntax              = errors.New("formula: invalid syntax")
	ErrCircularDependency  = errors.New("formula: circular dependency")
)

// Error carries the field a formula problem belongs to. It unwraps to one of
// the sentinel errors above.
type Error struct {
	FieldID string
	Formula string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Reason
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.FieldID != "" {
		return fmt.Sprintf("formula: field %q: %s", e.FieldID, msg)
	}
	return "formula: " + msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(err error, reason string) *Error {
	return &Error{Err: err, Reason: reason}
}
