package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, error, or critical")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrInvalidStopRetries is returned when stop retries is <= 0.
	ErrInvalidStopRetries = errors.New("invalid stop retries: must be > 0")

	// ErrInvalidStopInterval is returned when stop interval is <= 0.
	ErrInvalidStopInterval = errors.New("invalid stop interval: must be > 0")

	// ErrInvalidStartWait is returned when start wait is <= 0.
	ErrInvalidStartWait = errors.New("invalid start wait: must be > 0")

	// ErrInvalidSettleDelay is returned when settle delay is negative.
	ErrInvalidSettleDelay = errors.New("invalid settle delay: must be >= 0")

	// ErrNoJournalPath is returned when the journal is enabled without a path.
	ErrNoJournalPath = errors.New("journal enabled but db_path is empty")

	// ErrInvalidMaxEntries is returned when journal max entries is negative.
	ErrInvalidMaxEntries = errors.New("invalid journal max entries: must be >= 0")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
