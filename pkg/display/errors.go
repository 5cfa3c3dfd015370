package display

import "errors"

var (
	// ErrUnknownFormat is returned by ParseFormat for unsupported formats.
	ErrUnknownFormat = errors.New("unknown output format")

	// ErrNoDimensions is returned when grouped statistics have no dimensions.
	ErrNoDimensions = errors.New("no dimensions specified")
)
