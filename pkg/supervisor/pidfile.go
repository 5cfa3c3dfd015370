package supervisor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const pidFileName = "hump-yard.pid"

// ReadRecord reads the PID file at path. A missing file yields (nil, nil).
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrInvalidRecord, strings.TrimSpace(string(data)), path)
	}

	rec := &Record{PID: pid}
	if info, statErr := os.Stat(path); statErr == nil {
		rec.DiscoveredAt = info.ModTime()
	}
	return rec, nil
}

// WriteRecord atomically replaces the PID file with pid.
func WriteRecord(path string, pid int) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil { // nolint:gosec
		return fmt.Errorf("failed to create PID directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(strconv.Itoa(pid) + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { // nolint:gosec
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// RemoveRecord deletes the PID file. A missing file is not an error.
func RemoveRecord(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}
