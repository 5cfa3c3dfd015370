package monitor

import "errors"

var (
	// ErrFollowerRunning is returned when Run is called on a running follower.
	ErrFollowerRunning = errors.New("follower is already running")

	// ErrNoSource is returned when the follower has no journal to read.
	ErrNoSource = errors.New("no journal source")
)
