// Package apperr defines the typed failures returned by the workflow core.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a workflow failure
type Kind string

const (
	KindValidationFailed  Kind = "VALIDATION_FAILED"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindInvalidState      Kind = "INVALID_STATE"
	KindConflict          Kind = "CONFLICT"
	KindIncompleteRows    Kind = "INCOMPLETE_ROWS"
	KindNotFound          Kind = "NOT_FOUND"
)

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// FieldError describes one failing field or condition
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	return f.Field + ": " + f.Message
}

// Error is a workflow failure with its kind and, for validation failures,
// every failing field.
type Error struct {
	Kind    Kind         `json:"kind"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.Join(parts, "; "))
}

// Is reports whether target is an *Error of the same kind, so callers can
// write errors.Is(err, apperr.Conflict("")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a ValidationFailed error listing every failing field.
func Validation(fields ...FieldError) *Error {
	return &Error{
		Kind:    KindValidationFailed,
		Message: fmt.Sprintf("%d field(s) failed validation", len(fields)),
		Fields:  fields,
	}
}

// Unauthorized creates an Unauthorized error
func Unauthorized(format string, args ...interface{}) *Error {
	return New(KindUnauthorized, format, args...)
}

// InvalidTransition creates an InvalidTransition error
func InvalidTransition(format string, args ...interface{}) *Error {
	return New(KindInvalidTransition, format, args...)
}

// InvalidState creates an InvalidState error
func InvalidState(format string, args ...interface{}) *Error {
	return New(KindInvalidState, format, args...)
}

// Conflict creates a Conflict error
func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

// IncompleteRows creates an IncompleteRows error
func IncompleteRows(format string, args ...interface{}) *Error {
	return New(KindIncompleteRows, format, args...)
}

// NotFound creates a NotFound error
func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

// KindOf returns the kind of err, or "" when err is not a workflow failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FieldsOf returns the failing fields carried by err, if any.
func FieldsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// Collector accumulates field failures so validators can report all of them at once.
type Collector struct {
	fields []FieldError
}

// Add records a failing field
func (c *Collector) Add(field, message string) {
	c.fields = append(c.fields, FieldError{Field: field, Message: message})
}

// Require records field as missing when value is blank
func (c *Collector) Require(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.Add(field, "is required")
	}
}

// Merge appends failures from another list
func (c *Collector) Merge(fields []FieldError) {
	c.fields = append(c.fields, fields...)
}

// Fields returns the collected failures
func (c *Collector) Fields() []FieldError {
	return c.fields
}

// Err returns a ValidationFailed error, or nil when nothing failed.
func (c *Collector) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return Validation(c.fields...)
}
