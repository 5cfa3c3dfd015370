// Package config provides configuration management for hump-yard.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority, applied by the caller)
// 2. Environment variables
// 3. Configuration file (YAML; JSON documents are accepted as YAML)
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("monitored folders: %d\n", len(cfg.Folders))
package config

import (
	"strings"
	"time"

	"github.com/0xmhha/hump-yard/pkg/logger"
)

// Config represents the complete daemon configuration.
//
// Invariants:
// - Logging.Level is a known level name
// - Supervisor.StopRetries, StopInterval and StartWait must be > 0
// - Watcher.SettleDelay must be >= 0
// - Journal.DBPath must be set when the journal is enabled.
type Config struct {
	// Folders are the raw folder rules. They are validated by the rules
	// package so one bad entry does not reject the whole file.
	Folders []map[string]interface{} `yaml:"folders"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`

	// Background process settings
	Supervisor SupervisorConfig `yaml:"supervisor"`

	// Filesystem watcher settings
	Watcher WatcherConfig `yaml:"watcher"`

	// Dispatch history settings
	Journal JournalConfig `yaml:"journal"`

	// External plugin settings
	Plugins PluginsConfig `yaml:"plugins"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`

	// File receives the log of a detached daemon whose Output is a terminal
	// stream.
	File string `yaml:"file"`

	// Rotation limits for file output
	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
}

// SupervisorConfig contains background process settings.
type SupervisorConfig struct {
	// PID file path. Empty selects the platform default.
	PIDFile string `yaml:"pid_file"`

	// Liveness polls after the graceful stop signal
	StopRetries int `yaml:"stop_retries"`

	// Delay between liveness polls
	StopInterval time.Duration `yaml:"stop_interval"`

	// How long start waits for the detached daemon to come up
	StartWait time.Duration `yaml:"start_wait"`
}

// WatcherConfig contains filesystem watcher settings.
type WatcherConfig struct {
	// Quiet period before a new file is dispatched
	SettleDelay time.Duration `yaml:"settle_delay"`

	// Consecutive fsnotify errors before the watcher reports degradation
	CircuitBreakerThreshold int `yaml:"circuit_breaker_threshold"`
}

// JournalConfig contains dispatch history settings.
type JournalConfig struct {
	// Enabled toggles journaling. Nil means enabled.
	Enabled *bool `yaml:"enabled"`

	// Path to BoltDB database file
	DBPath string `yaml:"db_path"`

	// Number of entries kept
	MaxEntries int `yaml:"max_entries"`
}

// IsEnabled reports whether dispatch outcomes are journaled.
func (j JournalConfig) IsEnabled() bool {
	return j.Enabled == nil || *j.Enabled
}

// PluginsConfig contains external plugin settings.
type PluginsConfig struct {
	// Directories scanned for plugin manifests
	Dirs []string `yaml:"dirs"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Folder entries are not checked here; see rules.Load.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if !logger.ValidLevel(c.Logging.Level) {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	if c.Supervisor.StopRetries <= 0 {
		return ErrInvalidStopRetries
	}
	if c.Supervisor.StopInterval <= 0 {
		return ErrInvalidStopInterval
	}
	if c.Supervisor.StartWait <= 0 {
		return ErrInvalidStartWait
	}

	if c.Watcher.SettleDelay < 0 {
		return ErrInvalidSettleDelay
	}

	if c.Journal.IsEnabled() {
		if c.Journal.DBPath == "" {
			return ErrNoJournalPath
		}
		if c.Journal.MaxEntries < 0 {
			return ErrInvalidMaxEntries
		}
	}

	return nil
}

// LoggerConfig converts the logging section for logger.New.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Logging.Level,
		Output:     c.Logging.Output,
		Format:     c.Logging.Format,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
	}
}

// DaemonLoggerConfig is LoggerConfig for a detached daemon. A detached
// process has no terminal, so stderr and stdout output go to Logging.File.
func (c *Config) DaemonLoggerConfig() logger.Config {
	cfg := c.LoggerConfig()
	switch strings.ToLower(cfg.Output) {
	case "stderr", "stdout", "":
		if c.Logging.File != "" {
			cfg.Output = c.Logging.File
		}
	}
	return cfg
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Output:     "stderr",
			Format:     "text",
			File:       defaultLogFile(),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Supervisor: SupervisorConfig{
			StopRetries:  10,
			StopInterval: 500 * time.Millisecond,
			StartWait:    time.Second,
		},
		Watcher: WatcherConfig{
			CircuitBreakerThreshold: 5,
		},
		Journal: JournalConfig{
			DBPath:     defaultDBPath(),
			MaxEntries: 1000,
		},
		Plugins: PluginsConfig{
			Dirs: []string{defaultPluginDir()},
		},
	}
}
