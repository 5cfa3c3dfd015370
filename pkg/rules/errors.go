package rules

import (
	"errors"
	"fmt"
)

// Common errors wrapped by ConfigError.
var (
	// ErrMissingField is returned when a required rule field is absent or empty.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidField is returned when a rule field has the wrong type.
	ErrInvalidField = errors.New("invalid field")
)

// ConfigError describes one rejected folder entry.
type ConfigError struct {
	// Index is the position of the entry in the folders list.
	Index int

	// Field is the offending key.
	Field string

	// Err is ErrMissingField or ErrInvalidField, possibly wrapped.
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("folder entry %d, field %q: %v", e.Index, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
