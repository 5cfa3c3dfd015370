//go:build !windows

package supervisor

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const systemRunDir = "/var/run"

// DefaultPIDPath returns /var/run/hump-yard.pid when /var/run is writable,
// otherwise ~/.hump-yard.pid.
func DefaultPIDPath() string {
	if unix.Access(systemRunDir, unix.W_OK) == nil {
		return filepath.Join(systemRunDir, pidFileName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "." + pidFileName
	}
	return filepath.Join(home, "."+pidFileName)
}
