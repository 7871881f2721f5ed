package normalize

import (
	"errors"
	"fmt"
)

// Sentinel errors, matchable with errors.Is through the typed errors below.
var (
	ErrMissingField       = errors.New("missing field")
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrInvalidField       = errors.New("invalid field")
)

// MissingFieldError reports a required key absent from a raw record.
type MissingFieldError struct {
	Entity string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing field %q", e.Entity, e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// MalformedTimestampError reports a non-null timestamp that could not be parsed.
type MalformedTimestampError struct {
	Field string // Empty when the value was coerced outside a record.
	Value any
}

func (e *MalformedTimestampError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed timestamp %v", e.Value)
	}
	return fmt.Sprintf("%s: malformed timestamp %v", e.Field, e.Value)
}

func (e *MalformedTimestampError) Is(target error) bool { return target == ErrMalformedTimestamp }

// InvalidFieldError reports a value whose JSON type cannot be stored in the
// target column.
type InvalidFieldError struct {
	Entity string
	Field  string
	Value  any
	Want   string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s: field %q: want %s, got %v (%T)", e.Entity, e.Field, e.Want, e.Value, e.Value)
}

func (e *InvalidFieldError) Is(target error) bool { return target == ErrInvalidField }
