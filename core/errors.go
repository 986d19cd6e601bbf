package core

import (
	"github.com/pkg/errors"
)

// Error conditions surfaced to callers. Domain errors wrap one of these,
// use errors.Is to match them.
var (
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrForbidden           = errors.New("permission denied")
	ErrUnauthenticated     = errors.New("user not authenticated")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidInput        = errors.New("invalid input")
)

// conditionError is a domain error belonging to one of the conditions above.
type conditionError struct {
	msg  string
	cond error
}

func (err *conditionError) Error() string { return err.msg }
func (err *conditionError) Unwrap() error { return err.cond }

// NewNotFoundError returns an error reading "<what> not found" that matches ErrNotFound.
func NewNotFoundError(what string) error {
	return &conditionError{msg: what + " not found", cond: ErrNotFound}
}

// NewConstraintError returns an error with the given message that matches ErrConstraintViolation.
func NewConstraintError(msg string) error {
	return &conditionError{msg: msg, cond: ErrConstraintViolation}
}

// NewInputError returns an error with the given message that matches ErrInvalidInput.
func NewInputError(msg string) error {
	return &conditionError{msg: msg, cond: ErrInvalidInput}
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError lists the invalid fields of an input.
// It unwraps to ErrInvalidInput unless Err says otherwise.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ErrInvalidInput.Error()
	}
	return err.Err.Error()
}

func (err *ValidationError) Unwrap() error {
	if err.Err == nil {
		return ErrInvalidInput
	}
	return err.Err
}

// FieldMessages maps field names to their error messages.
func (err *ValidationError) FieldMessages() map[string]string {
	msgs := make(map[string]string, len(err.Fields))
	for _, fErr := range err.Fields {
		msgs[fErr.Field] = fErr.Error
	}
	return msgs
}
