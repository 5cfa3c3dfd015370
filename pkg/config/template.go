package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrConfigExists is returned by WriteTemplate when the target exists.
var ErrConfigExists = errors.New("config file already exists")

// Template is the starter configuration written by WriteTemplate. Its folder
// entries are placeholders that the rule loader skips until edited.
const Template = `# hump-yard configuration
#
# Each folder entry routes new files under "path" to a plugin. Keys other
# than path, recursive, extensions and plugin are passed to the plugin.

folders:
  - _comment: "Replace the path below with a real folder to enable this rule"
    path: /absolute/path/to/inbox
    plugin: noop
  - path: /absolute/path/to/scans
    recursive: true
    extensions: [.tiff, .tif, .jpg]
    plugin: rename
    prefix: "scan_"
    timestamp_format: "%Y%m%d_%H%M%S"

logging:
  level: info        # debug, info, warn, error, critical
  format: text       # text or json
  output: stderr     # stderr, stdout or a file path (rotated)
  file: ""           # log file of a detached daemon (default ~/.config/hump-yard/hump-yard.log)

supervisor:
  pid_file: ""       # default /var/run/hump-yard.pid, else ~/.hump-yard.pid
  stop_retries: 10
  stop_interval: 500ms
  start_wait: 1s

watcher:
  settle_delay: 0s   # wait for writers to finish before dispatching

journal:
  enabled: true
  db_path: ~/.config/hump-yard/journal.db
  max_entries: 1000

plugins:
  dirs:
    - ~/.config/hump-yard/plugins
`

// WriteTemplate writes Template to path, creating parent directories. An
// existing file is only replaced when force is set.
func WriteTemplate(path string, force bool) error {
	path = expandHome(path)

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(Template), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
