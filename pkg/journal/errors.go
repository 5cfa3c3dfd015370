package journal

import "errors"

var (
	// ErrNoPath is returned by New when Config.DBPath is empty.
	ErrNoPath = errors.New("journal database path is empty")

	// ErrInvalidLimit is returned by Recent for negative limits.
	ErrInvalidLimit = errors.New("limit must not be negative")
)
