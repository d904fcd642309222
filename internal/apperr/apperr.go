// Package apperr defines the error kinds returned by the marketplace core.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindValidation Kind = "validation_failed"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "server_fault"
)

// FieldErrors collects per-field validation messages.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e FieldErrors) Empty() bool { return len(e) == 0 }

// Error is the domain error carried through every layer up to the handlers.
type Error struct {
	Kind    Kind
	Message string
	Fields  FieldErrors

	// Expected and Actual are set on state conflicts.
	Expected string
	Actual   string
	// Current is the authoritative state of the entity after a conflict.
	Current any

	Cause error
}

func (e *Error) Error() string {
	if e.Kind == KindConflict && e.Expected != "" {
		return fmt.Sprintf("%s (expected %s, actual %s)", e.Message, e.Expected, e.Actual)
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches by kind so errors.Is(err, apperr.ErrConflict) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrInternal   = &Error{Kind: KindInternal}
)

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Validation(fields FieldErrors) *Error {
	return &Error{Kind: KindValidation, Message: "Validation error", Fields: fields}
}

// Invalid is a single-field validation failure.
func Invalid(field, msg string) *Error {
	fe := FieldErrors{}
	fe.Add(field, msg)
	return Validation(fe)
}

func Conflict(msg, expected, actual string) *Error {
	return &Error{Kind: KindConflict, Message: msg, Expected: expected, Actual: actual}
}

// WithCurrent attaches the entity's current state and returns e.
func (e *Error) WithCurrent(v any) *Error {
	e.Current = v
	return e
}

func Internal(op string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: op, Cause: cause}
}

// KindOf reports the kind of err. Errors that are not *Error are server faults.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
