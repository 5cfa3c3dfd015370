package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by the loader.
const (
	EnvConfig    = "HUMP_YARD_CONFIG"
	EnvLogLevel  = "HUMP_YARD_LOG_LEVEL"
	EnvPIDFile   = "HUMP_YARD_PID_FILE"
	EnvJournalDB = "HUMP_YARD_JOURNAL_DB"
)

const appConfigDir = "hump-yard"

// configDir returns ~/.config/hump-yard, or "." without a home directory.
func configDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(homeDir, ".config", appConfigDir)
}

// defaultDBPath returns the default journal database path.
//
// Returns: ~/.config/hump-yard/journal.db.
func defaultDBPath() string {
	return filepath.Join(configDir(), "journal.db")
}

// defaultPluginDir returns the default external plugin manifest directory.
//
// Returns: ~/.config/hump-yard/plugins.
func defaultPluginDir() string {
	return filepath.Join(configDir(), "plugins")
}

// defaultLogFile returns the log file used by a detached daemon.
//
// Returns: ~/.config/hump-yard/hump-yard.log.
func defaultLogFile() string {
	return filepath.Join(configDir(), "hump-yard.log")
}

// DefaultConfigPath returns the per-user configuration file path.
//
// Returns: ~/.config/hump-yard/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
