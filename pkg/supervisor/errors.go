package supervisor

import "errors"

// Common errors returned by the supervisor.
var (
	// ErrAlreadyRunning is returned by Start when a live daemon is recorded.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned by Stop when no live daemon is recorded.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrStopTimeout is returned when the daemon survives the forced signal.
	ErrStopTimeout = errors.New("daemon did not stop")

	// ErrStartFailed is returned when the detached daemon never recorded
	// itself as running.
	ErrStartFailed = errors.New("failed to start daemon")

	// ErrOwnProcess is returned by Stop when the record names the caller.
	ErrOwnProcess = errors.New("refusing to signal own process")

	// ErrInvalidRecord is returned for a PID file without a valid PID.
	ErrInvalidRecord = errors.New("invalid PID record")
)
