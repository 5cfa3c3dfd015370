//go:build windows

package supervisor

import (
	"os"
	"path/filepath"
)

// DefaultPIDPath returns %TEMP%\hump-yard.pid.
func DefaultPIDPath() string {
	return filepath.Join(os.TempDir(), pidFileName)
}
