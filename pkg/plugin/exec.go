package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/0xmhha/hump-yard/pkg/logger"
)

// Environment passed to external plugin commands.
const (
	EnvFile       = "HUMP_YARD_FILE"
	EnvConfigJSON = "HUMP_YARD_CONFIG_JSON"
	EnvConfigPref = "HUMP_YARD_CFG_"
)

// Exit codes understood from external plugin commands. Anything else is an
// unexpected failure.
const (
	ExitSuccess = 0
	ExitFailed  = 1
)

// ExecPlugin runs an external command for each file.
//
// The file path is appended to the manifest arguments. Scalar plugin config
// values are exported as HUMP_YARD_CFG_<KEY>, and the full config as JSON in
// HUMP_YARD_CONFIG_JSON.
type ExecPlugin struct {
	manifest   Manifest
	command    string
	extensions []string
	logger     logger.Logger
}

// NewExecPlugin builds a plugin from m. A relative command containing a path
// separator is resolved against baseDir; bare names are looked up in PATH
// when the command runs.
func NewExecPlugin(m *Manifest, baseDir string, log logger.Logger) (*ExecPlugin, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil manifest", ErrInvalidManifest)
	}

	command := m.Command
	if !filepath.IsAbs(command) && strings.ContainsRune(command, filepath.Separator) {
		command = filepath.Join(baseDir, command)
	}

	exts := make([]string, 0, len(m.Extensions))
	for _, e := range m.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}

	return &ExecPlugin{
		manifest:   *m,
		command:    command,
		extensions: exts,
		logger:     log.With("plugin", m.Name),
	}, nil
}

func (p *ExecPlugin) Name() string    { return p.manifest.Name }
func (p *ExecPlugin) Version() string { return p.manifest.Version }

// CanHandle accepts existing regular files whose extension is listed in the
// manifest, or any existing regular file when none are listed.
func (p *ExecPlugin) CanHandle(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if len(p.extensions) == 0 {
		return true
	}
	return slices.Contains(p.extensions, strings.ToLower(filepath.Ext(filePath)))
}

// Process runs the command and maps its exit status.
func (p *ExecPlugin) Process(ctx context.Context, filePath string, config map[string]interface{}) (bool, error) {
	if p.manifest.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.manifest.Timeout)
		defer cancel()
	}

	env, err := commandEnv(filePath, config)
	if err != nil {
		return false, err
	}

	args := append(slices.Clone(p.manifest.Args), filePath)
	cmd := exec.CommandContext(ctx, p.command, args...) // nolint:gosec
	cmd.Env = env
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.logger.Debug("running external plugin", "command", p.command, "file", filePath)
	runErr := cmd.Run()
	if runErr == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) && ctx.Err() == nil {
		if exitErr.ExitCode() == ExitFailed {
			p.logger.Warn("external plugin reported failure",
				"file", filePath,
				"stderr", lastLine(stderr.String()))
			return false, nil
		}
		return false, fmt.Errorf("%s exited with code %d: %s",
			p.command, exitErr.ExitCode(), lastLine(stderr.String()))
	}
	if ctx.Err() != nil {
		return false, fmt.Errorf("%s: %w", p.command, ctx.Err())
	}
	return false, fmt.Errorf("run %s: %w", p.command, runErr)
}

func commandEnv(filePath string, config map[string]interface{}) ([]string, error) {
	raw, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("encode plugin config: %w", err)
	}

	env := append(os.Environ(),
		EnvFile+"="+filePath,
		EnvConfigJSON+"="+string(raw),
	)

	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := config[k].(type) {
		case string, bool, int, int64, float64:
			env = append(env, EnvConfigPref+envKey(k)+"="+fmt.Sprint(v))
		}
	}
	return env, nil
}

func envKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
