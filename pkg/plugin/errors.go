package plugin

import (
	"errors"
	"fmt"
)

// Common errors returned by the plugin package.
var (
	// ErrRegistrationConflict is returned when a plugin name is already registered.
	ErrRegistrationConflict = errors.New("plugin already registered")

	// ErrInvalidPlugin is returned for nil plugins or plugins without a name.
	ErrInvalidPlugin = errors.New("invalid plugin")

	// ErrInvalidManifest is returned when an external plugin manifest cannot be used.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
)

// RegistrationConflictError reports a duplicate plugin name.
type RegistrationConflictError struct {
	Name            string
	ExistingVersion string
	RejectedVersion string
}

func (e *RegistrationConflictError) Error() string {
	return fmt.Sprintf("plugin %q already registered (v%s), rejected v%s",
		e.Name, e.ExistingVersion, e.RejectedVersion)
}

func (e *RegistrationConflictError) Unwrap() error {
	return ErrRegistrationConflict
}
