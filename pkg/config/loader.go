package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile reads a single file without defaults or validation.
	LoadFromFile(path string) (*Config, error)

	// Path returns the file Load would read, or "" when none exists.
	Path() string
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, $HUMP_YARD_CONFIG is used when set; otherwise the
// first existing file of:
// 1. ./config.yaml
// 2. ./config.json
// 3. ~/.config/hump-yard/config.yaml.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()

	explicit := l.explicitPath()
	configPath := explicit
	if configPath == "" {
		configPath = l.findConfigFile()
	}

	if configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		cfg = l.mergeConfigs(cfg, fileCfg)
	}

	cfg = l.applyEnvVars(cfg)
	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(expandHome(path)) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

// Path implements Loader.Path.
func (l *loader) Path() string {
	if explicit := l.explicitPath(); explicit != "" {
		return explicit
	}
	return l.findConfigFile()
}

func (l *loader) explicitPath() string {
	if l.configPath != "" {
		return expandHome(l.configPath)
	}
	if env := strings.TrimSpace(os.Getenv(EnvConfig)); env != "" {
		return expandHome(env)
	}
	return ""
}

// findConfigFile searches for a config file in standard locations.
//
// Returns empty string if no config file is found.
func (l *loader) findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.json",
		DefaultConfigPath(),
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}

	return ""
}

// mergeConfigs merges file configuration into default configuration.
//
// File values override defaults, but only if they are set.
func (l *loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Folders != nil {
		result.Folders = override.Folders
	}

	// Merge logging config
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Output != "" {
		result.Logging.Output = override.Logging.Output
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}
	if override.Logging.File != "" {
		result.Logging.File = override.Logging.File
	}
	if override.Logging.MaxSizeMB > 0 {
		result.Logging.MaxSizeMB = override.Logging.MaxSizeMB
	}
	if override.Logging.MaxBackups > 0 {
		result.Logging.MaxBackups = override.Logging.MaxBackups
	}

	// Merge supervisor config
	if override.Supervisor.PIDFile != "" {
		result.Supervisor.PIDFile = override.Supervisor.PIDFile
	}
	if override.Supervisor.StopRetries != 0 {
		result.Supervisor.StopRetries = override.Supervisor.StopRetries
	}
	if override.Supervisor.StopInterval != 0 {
		result.Supervisor.StopInterval = override.Supervisor.StopInterval
	}
	if override.Supervisor.StartWait != 0 {
		result.Supervisor.StartWait = override.Supervisor.StartWait
	}

	// Merge watcher config
	if override.Watcher.SettleDelay != 0 {
		result.Watcher.SettleDelay = override.Watcher.SettleDelay
	}
	if override.Watcher.CircuitBreakerThreshold > 0 {
		result.Watcher.CircuitBreakerThreshold = override.Watcher.CircuitBreakerThreshold
	}

	// Merge journal config
	if override.Journal.Enabled != nil {
		enabled := *override.Journal.Enabled
		result.Journal.Enabled = &enabled
	}
	if override.Journal.DBPath != "" {
		result.Journal.DBPath = override.Journal.DBPath
	}
	if override.Journal.MaxEntries != 0 {
		result.Journal.MaxEntries = override.Journal.MaxEntries
	}

	// An explicit empty list disables external plugins.
	if override.Plugins.Dirs != nil {
		result.Plugins.Dirs = override.Plugins.Dirs
	}

	return &result
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - HUMP_YARD_LOG_LEVEL: Log level
//   - HUMP_YARD_PID_FILE: PID file path
//   - HUMP_YARD_JOURNAL_DB: Journal database path
func (l *loader) applyEnvVars(cfg *Config) *Config {
	result := *cfg

	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	if pidFile := os.Getenv(EnvPIDFile); pidFile != "" {
		result.Supervisor.PIDFile = pidFile
	}

	if dbPath := os.Getenv(EnvJournalDB); dbPath != "" {
		result.Journal.DBPath = dbPath
	}

	return &result
}

// expandPaths expands ~ in every path-valued setting.
func expandPaths(cfg *Config) {
	switch strings.ToLower(cfg.Logging.Output) {
	case "stdout", "stderr", "":
	default:
		cfg.Logging.Output = expandHome(cfg.Logging.Output)
	}
	cfg.Logging.File = expandHome(cfg.Logging.File)
	cfg.Supervisor.PIDFile = expandHome(cfg.Supervisor.PIDFile)
	cfg.Journal.DBPath = expandHome(cfg.Journal.DBPath)

	dirs := make([]string, len(cfg.Plugins.Dirs))
	for i, dir := range cfg.Plugins.Dirs {
		dirs[i] = expandHome(dir)
	}
	cfg.Plugins.Dirs = dirs
}

// Load is a convenience function that creates a loader and loads configuration.
//
// Equivalent to:
//
//	loader := NewLoader("")
//	return loader.Load()
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
