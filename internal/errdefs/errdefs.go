// Package errdefs defines the error taxonomy shared by every layer of the
// engine. Callers match categories with errors.Is against the sentinels and
// pull details out with errors.As.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches any unregistered name or expression.
	ErrNotFound = errors.New("tablegrid: not found")
	// ErrStructural matches a broadcast graph that is not a tree over the
	// participating tables, and runaway (cyclic) resolution.
	ErrStructural = errors.New("tablegrid: structural error")
	// ErrValidation matches a malformed registration or call.
	ErrValidation = errors.New("tablegrid: validation error")
)

// NotFoundError reports a name that is not registered under Kind.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%q not found", e.Name)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound returns a *NotFoundError.
func NotFound(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}

// StructuralError reports a broadcast graph or dependency shape that cannot
// be evaluated.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string { return "structural error: " + e.Reason }

// Is lets errors.Is(err, ErrStructural) match.
func (e *StructuralError) Is(target error) bool { return target == ErrStructural }

// Structuralf formats a *StructuralError.
func Structuralf(format string, args ...any) error {
	return &StructuralError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports a violated precondition. Field names the offending
// argument when there is one.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := e.Reason
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "invalid " + msg
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

// Validationf formats a *ValidationError for field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// WrapValidation wraps err as a *ValidationError. It returns nil for a nil err.
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Reason: "value", Err: err}
}
