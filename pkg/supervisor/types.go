// Package supervisor runs hump-yard as a singleton background process.
//
// A PID file records the running daemon. Status probes the recorded process,
// Start spawns a detached copy of the executable that calls RunForeground,
// and Stop signals it gracefully before forcing termination. Platform process
// control lives behind ProcessHandle.
//
// Example usage:
//
//	sup := supervisor.New(supervisor.Config{
//	    PIDFile:    supervisor.DefaultPIDPath(),
//	    Executable: exe,
//	    ChildArgs:  []string{"start", "--internal-worker"},
//	}, nil, logger.Default())
//
//	st, err := sup.Status()
//	if err == nil && st.State == supervisor.StateRunning {
//	    fmt.Printf("running (PID: %d)\n", st.PID)
//	}
package supervisor

import (
	"context"
	"time"
)

// State is the observed daemon state.
type State int

// Daemon states reported by Status.
const (
	// StateNotRunning means there is no PID record.
	StateNotRunning State = iota

	// StateRunning means the recorded process is alive.
	StateRunning

	// StateStale means a record existed but its process was gone. The
	// record has been removed.
	StateStale
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateNotRunning:
		return "not running"
	case StateRunning:
		return "running"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Status is the result of a liveness check.
type Status struct {
	State State

	// PID is the recorded process ID for StateRunning and StateStale.
	PID int
}

// Record is the content of the PID file.
type Record struct {
	PID int

	// DiscoveredAt is when the record was written.
	DiscoveredAt time.Time
}

// Spawn describes the detached child started by Start.
type Spawn struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

// ProcessHandle is the platform-specific process control used by the
// Supervisor.
type ProcessHandle interface {
	// Probe reports whether pid refers to a live process. A process that
	// exists but cannot be queried counts as alive.
	Probe(pid int) bool

	// SpawnDetached starts a process outside the caller's session and
	// returns its PID without waiting for it.
	SpawnDetached(sp Spawn) (int, error)

	// SignalGraceful asks pid to shut down.
	SignalGraceful(pid int) error

	// SignalForce terminates pid immediately.
	SignalForce(pid int) error
}

// Config contains supervisor configuration.
type Config struct {
	// PIDFile is the record path. Empty selects DefaultPIDPath().
	PIDFile string

	// StopRetries is the number of liveness polls after the graceful
	// signal before termination is forced.
	// Default: 10.
	StopRetries int

	// StopInterval is the delay between liveness polls.
	// Default: 500ms.
	StopInterval time.Duration

	// StartWait bounds how long Start waits for the child's record.
	// Default: 1s.
	StartWait time.Duration

	// Executable and ChildArgs launch the detached daemon. The child is
	// expected to call RunForeground.
	Executable string
	ChildArgs  []string
}

// StartOptions selects how Start runs the daemon.
type StartOptions struct {
	// Foreground runs Run in the current process instead of spawning.
	Foreground bool

	// LogLevel is passed to the detached child as --log-level.
	LogLevel string

	// Run is the daemon body for foreground starts. It must return once
	// its context is cancelled.
	Run func(ctx context.Context) error
}

// StopResult describes a completed Stop.
type StopResult struct {
	PID int

	// Forced is set when the process ignored the graceful signal.
	Forced bool
}
