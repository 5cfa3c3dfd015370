package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/0xmhha/hump-yard/pkg/config"
	"github.com/0xmhha/hump-yard/pkg/journal"
	"github.com/0xmhha/hump-yard/pkg/logger"
	"github.com/0xmhha/hump-yard/pkg/supervisor"
)

type commandContext struct {
	configFlag  *string
	pidFileFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, pidFileFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		pidFileFlag: pidFileFlag,
	}
}

func (c *commandContext) loader() config.Loader {
	var path string
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	return config.NewLoader(path)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		loader := c.loader()
		cfg, err := loader.Load()
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = loader.Path()
	})
	return c.config, c.configErr
}

// ensureConfigFile writes the default template when no configuration file
// exists anywhere on the search path, then loads the configuration.
func (c *commandContext) ensureConfigFile(out io.Writer) (*config.Config, error) {
	if c.loader().Path() == "" {
		target := config.DefaultConfigPath()
		if err := config.WriteTemplate(target, false); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
		fmt.Fprintf(out, "No configuration found; wrote a template to %s\n", target)
		fmt.Fprintln(out, "Edit the folders section to choose what to monitor.")
	}
	return c.ensureConfig()
}

// pidFile resolves the PID file: --pid-file, then the configuration (which
// already includes $HUMP_YARD_PID_FILE), then the platform default.
func (c *commandContext) pidFile() string {
	if c.pidFileFlag != nil {
		if flag := strings.TrimSpace(*c.pidFileFlag); flag != "" {
			return flag
		}
	}
	if c.config != nil && c.config.Supervisor.PIDFile != "" {
		return c.config.Supervisor.PIDFile
	}
	return supervisor.DefaultPIDPath()
}

// logger builds the CLI logger. level overrides the configured level when
// set.
func (c *commandContext) logger(level string) logger.Logger {
	if c.config == nil {
		return logger.Default()
	}
	cfg := c.config.LoggerConfig()
	if level != "" {
		cfg.Level = level
	}
	return logger.New(cfg)
}

// daemonLogger builds the logger of a detached daemon process.
func (c *commandContext) daemonLogger(level string) logger.Logger {
	cfg := c.config.DaemonLoggerConfig()
	if level != "" {
		cfg.Level = level
	}
	return logger.New(cfg)
}

// supervisor builds a Supervisor whose detached child re-enters this binary
// with the resolved config and PID file.
func (c *commandContext) supervisor(log logger.Logger) (*supervisor.Supervisor, error) {
	exe, err := daemonExecutable()
	if err != nil {
		return nil, err
	}

	pidFile := c.pidFile()
	args := []string{"start", "--internal-worker", "--pid-file", pidFile}
	if c.configPath != "" {
		abs, err := filepath.Abs(c.configPath)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		args = append(args, "--config", abs)
	}

	sc := c.config.Supervisor
	return supervisor.New(supervisor.Config{
		PIDFile:      pidFile,
		StopRetries:  sc.StopRetries,
		StopInterval: sc.StopInterval,
		StartWait:    sc.StartWait,
		Executable:   exe,
		ChildArgs:    args,
	}, nil, log), nil
}

// journal opens the dispatch history configured for the daemon.
func (c *commandContext) journal(log logger.Logger) (*journal.Journal, error) {
	if !c.config.Journal.IsEnabled() {
		return nil, fmt.Errorf("the dispatch journal is disabled (journal.enabled: false)")
	}
	return journal.New(journal.Config{
		DBPath:     c.config.Journal.DBPath,
		MaxEntries: c.config.Journal.MaxEntries,
	}, log)
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[skipConfigLoad] == "true" {
			return true
		}
	}
	return false
}
