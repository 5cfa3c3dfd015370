//go:build !windows

package supervisor

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

type unixHandle struct{}

// DefaultHandle returns the process control for the current platform.
func DefaultHandle() ProcessHandle {
	return unixHandle{}
}

// Probe sends signal 0. EPERM means the process exists under another user.
func (unixHandle) Probe(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// SpawnDetached starts sp in a new session with its standard streams on
// the null device.
func (unixHandle) SpawnDetached(sp Spawn) (int, error) {
	cmd := exec.Command(sp.Path, sp.Args...) // nolint:gosec
	cmd.Env = sp.Env
	cmd.Dir = sp.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("launch daemon: %w", err)
	}
	pid := cmd.Process.Pid
	return pid, cmd.Process.Release()
}

func (unixHandle) SignalGraceful(pid int) error {
	return sendSignal(pid, unix.SIGTERM)
}

func (unixHandle) SignalForce(pid int) error {
	return sendSignal(pid, unix.SIGKILL)
}

func sendSignal(pid int, sig unix.Signal) error {
	if err := unix.Kill(pid, sig); err != nil {
		return fmt.Errorf("send %s to %d: %w", unix.SignalName(sig), pid, err)
	}
	return nil
}
