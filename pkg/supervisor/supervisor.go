package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/0xmhha/hump-yard/pkg/logger"
)

// startPoll is how often Start checks for the child's record.
const startPoll = 100 * time.Millisecond

// Supervisor manages the daemon process recorded in one PID file.
type Supervisor struct {
	cfg    Config
	handle ProcessHandle
	logger logger.Logger

	self  int
	sleep func(time.Duration)
}

// New creates a supervisor. A nil handle selects DefaultHandle().
func New(cfg Config, handle ProcessHandle, log logger.Logger) *Supervisor {
	if cfg.PIDFile == "" {
		cfg.PIDFile = DefaultPIDPath()
	}
	if cfg.StopRetries <= 0 {
		cfg.StopRetries = 10
	}
	if cfg.StopInterval <= 0 {
		cfg.StopInterval = 500 * time.Millisecond
	}
	if cfg.StartWait <= 0 {
		cfg.StartWait = time.Second
	}
	if handle == nil {
		handle = DefaultHandle()
	}

	return &Supervisor{
		cfg:    cfg,
		handle: handle,
		logger: log,
		self:   os.Getpid(),
		sleep:  time.Sleep,
	}
}

// PIDFile returns the record path.
func (s *Supervisor) PIDFile() string {
	return s.cfg.PIDFile
}

// Status probes the recorded process. A stale or unreadable record is
// removed after being reported.
func (s *Supervisor) Status() (Status, error) {
	rec, err := ReadRecord(s.cfg.PIDFile)
	if err != nil {
		if !errors.Is(err, ErrInvalidRecord) {
			return Status{}, err
		}
		s.logger.Warn("removing unreadable PID file", "path", s.cfg.PIDFile, "error", err)
		return Status{State: StateStale}, RemoveRecord(s.cfg.PIDFile)
	}
	if rec == nil {
		return Status{State: StateNotRunning}, nil
	}

	if s.handle.Probe(rec.PID) {
		return Status{State: StateRunning, PID: rec.PID}, nil
	}

	s.logger.Info("removing stale PID file", "path", s.cfg.PIDFile, "pid", rec.PID)
	return Status{State: StateStale, PID: rec.PID}, RemoveRecord(s.cfg.PIDFile)
}

// Start launches the daemon unless one is already running. Foreground
// starts block in opts.Run and return its error; background starts return
// once the child has recorded itself, with its PID.
func (s *Supervisor) Start(ctx context.Context, opts StartOptions) (int, error) {
	st, err := s.Status()
	if err != nil {
		return 0, err
	}
	if st.State == StateRunning {
		return st.PID, fmt.Errorf("%w (PID: %d)", ErrAlreadyRunning, st.PID)
	}

	if opts.Foreground {
		if opts.Run == nil {
			return 0, fmt.Errorf("%w: no daemon body", ErrStartFailed)
		}
		return s.self, s.RunForeground(ctx, opts.Run)
	}

	return s.spawn(ctx, opts)
}

func (s *Supervisor) spawn(ctx context.Context, opts StartOptions) (int, error) {
	if s.cfg.Executable == "" {
		return 0, fmt.Errorf("%w: executable path is empty", ErrStartFailed)
	}

	args := append([]string{}, s.cfg.ChildArgs...)
	if opts.LogLevel != "" {
		args = append(args, "--log-level", opts.LogLevel)
	}

	childPID, err := s.handle.SpawnDetached(Spawn{
		Path: s.cfg.Executable,
		Args: args,
		Env:  os.Environ(),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStartFailed, err)
	}
	s.logger.Debug("spawned daemon", "pid", childPID, "args", args)

	attempts := int(s.cfg.StartWait / startPoll)
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		s.sleep(startPoll)

		rec, readErr := ReadRecord(s.cfg.PIDFile)
		if readErr != nil || rec == nil || !s.handle.Probe(rec.PID) {
			continue
		}
		if rec.PID != childPID {
			s.logger.Warn("another daemon recorded itself first", "pid", rec.PID, "child_pid", childPID)
			return rec.PID, fmt.Errorf("%w (PID: %d)", ErrAlreadyRunning, rec.PID)
		}
		s.logger.Info("daemon started", "pid", rec.PID)
		return rec.PID, nil
	}

	return 0, fmt.Errorf("%w: no running daemon recorded in %s after %v", ErrStartFailed, s.cfg.PIDFile, s.cfg.StartWait)
}

// RunForeground records the current process as the daemon, runs body until
// SIGINT, SIGTERM or ctx cancellation, and removes the record afterwards. A
// lock file next to the PID file keeps concurrent starts from both
// recording themselves.
func (s *Supervisor) RunForeground(ctx context.Context, body func(ctx context.Context) error) error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.PIDFile), 0o755); err != nil { // nolint:gosec
		return fmt.Errorf("failed to create PID directory: %w", err)
	}

	lock := flock.New(s.cfg.PIDFile + ".lock")

	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w: lock %s is held", ErrAlreadyRunning, lock.Path())
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			s.logger.Warn("failed to release lock", "error", unlockErr)
		}
	}()

	if rec, readErr := ReadRecord(s.cfg.PIDFile); readErr == nil && rec != nil &&
		rec.PID != s.self && s.handle.Probe(rec.PID) {
		return fmt.Errorf("%w (PID: %d)", ErrAlreadyRunning, rec.PID)
	}

	if err := WriteRecord(s.cfg.PIDFile, s.self); err != nil {
		return err
	}
	defer s.releaseRecord()

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.logger.Info("daemon running", "pid", s.self, "pid_file", s.cfg.PIDFile)
	err = body(runCtx)
	s.logger.Info("daemon stopped", "pid", s.self)
	return err
}

// releaseRecord removes the PID file if it still names this process.
func (s *Supervisor) releaseRecord() {
	rec, err := ReadRecord(s.cfg.PIDFile)
	if err != nil || rec == nil || rec.PID != s.self {
		return
	}
	if err := RemoveRecord(s.cfg.PIDFile); err != nil {
		s.logger.Warn("failed to remove PID file", "error", err)
	}
}

// Stop signals the recorded daemon to exit, polls for StopRetries
// intervals, and forces termination if it is still alive. Nothing is
// signalled when no live daemon is recorded.
func (s *Supervisor) Stop() (StopResult, error) {
	st, err := s.Status()
	if err != nil {
		return StopResult{}, err
	}
	if st.State != StateRunning {
		return StopResult{}, ErrNotRunning
	}

	pid := st.PID
	if pid == s.self {
		return StopResult{}, fmt.Errorf("%w (PID: %d)", ErrOwnProcess, pid)
	}

	s.logger.Info("stopping daemon", "pid", pid)
	if err := s.handle.SignalGraceful(pid); err != nil && s.handle.Probe(pid) {
		return StopResult{PID: pid}, fmt.Errorf("stop daemon: %w", err)
	}

	for i := 0; i < s.cfg.StopRetries; i++ {
		s.sleep(s.cfg.StopInterval)
		if !s.handle.Probe(pid) {
			return StopResult{PID: pid}, s.purge()
		}
	}

	s.logger.Warn("daemon did not stop gracefully, forcing", "pid", pid)
	if err := s.handle.SignalForce(pid); err != nil && s.handle.Probe(pid) {
		return StopResult{PID: pid, Forced: true}, fmt.Errorf("%w: %v", ErrStopTimeout, err)
	}

	s.sleep(s.cfg.StopInterval)
	if s.handle.Probe(pid) {
		return StopResult{PID: pid, Forced: true}, fmt.Errorf("%w (PID: %d)", ErrStopTimeout, pid)
	}

	return StopResult{PID: pid, Forced: true}, s.purge()
}

// Restart stops a running daemon, if any, and starts a new one.
func (s *Supervisor) Restart(ctx context.Context, opts StartOptions) (int, error) {
	if _, err := s.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return 0, err
	}
	return s.Start(ctx, opts)
}

func (s *Supervisor) purge() error {
	return RemoveRecord(s.cfg.PIDFile)
}
