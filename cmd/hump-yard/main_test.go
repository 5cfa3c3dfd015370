package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/hump-yard/pkg/config"
	"github.com/0xmhha/hump-yard/pkg/journal"
	"github.com/0xmhha/hump-yard/pkg/logger"
	"github.com/0xmhha/hump-yard/pkg/supervisor"
)

// testEnv is an isolated home, working directory and PID file.
type testEnv struct {
	home    string
	dir     string
	pidFile string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv(config.EnvPIDFile, "")
	t.Setenv(config.EnvJournalDB, "")

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return &testEnv{home: home, dir: dir, pidFile: filepath.Join(dir, "run", "hump-yard.pid")}
}

// writeConfig writes a config keeping the journal, plugins and logs inside
// the test directory. extra is appended verbatim.
func (e *testEnv) writeConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(e.dir, "hump-yard.yaml")
	content := fmt.Sprintf(`logging:
  level: warn
  file: %q
journal:
  db_path: %q
plugins:
  dirs: [%q]
supervisor:
  stop_interval: 10ms
%s`, filepath.Join(e.dir, "daemon.log"), e.dbPath(), filepath.Join(e.dir, "plugins"), extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (e *testEnv) dbPath() string {
	return filepath.Join(e.dir, "journal.db")
}

func (e *testEnv) recordSelf(t *testing.T) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(e.pidFile), 0o755))
	require.NoError(t, supervisor.WriteRecord(e.pidFile, os.Getpid()))
}

func runCLI(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), err
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{name: "plain error", err: errors.New("boom"), wantCode: 1, wantOut: "Error: boom\n"},
		{name: "quiet exit code", err: &exitError{code: 3}, wantCode: 3, wantOut: ""},
		{name: "exit code with message", err: &exitError{code: 2, err: errors.New("bad")}, wantCode: 2, wantOut: "Error: bad\n"},
		{name: "cancelled", err: fmt.Errorf("run: %w", context.Canceled), wantCode: 1, wantOut: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Equal(t, tt.wantCode, reportError(&buf, tt.err))
			assert.Equal(t, tt.wantOut, buf.String())
		})
	}
}

func TestConfigInit(t *testing.T) {
	env := newTestEnv(t)
	target := filepath.Join(env.dir, "nested", "config.yaml")

	out, err := runCLI(t, context.Background(), "config", "init", "--path", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote sample configuration to "+target)
	assert.FileExists(t, target)

	_, err = runCLI(t, context.Background(), "config", "init", "-p", target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--overwrite")

	_, err = runCLI(t, context.Background(), "config", "init", "-p", target, "--overwrite")
	require.NoError(t, err)
}

func TestConfigInitDefaultPath(t *testing.T) {
	env := newTestEnv(t)

	_, err := runCLI(t, context.Background(), "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(env.home, ".config", "hump-yard", "config.yaml"))
}

func TestConfigShow(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeConfig(t, "")

	out, err := runCLI(t, context.Background(), "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# Source: "+path)
	assert.Contains(t, out, "level: warn")
	assert.Contains(t, out, "stop_retries: 10")
}

func TestConfigShowInvalidFile(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging: [unterminated\n"), 0o600))

	_, err := runCLI(t, context.Background(), "--config", path, "config", "show")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidYAML)
}

func TestConfigPath(t *testing.T) {
	newTestEnv(t)

	out, err := runCLI(t, context.Background(), "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "./config.yaml [not found]")
	assert.Contains(t, out, "Active configuration: none")

	require.NoError(t, os.WriteFile("config.yaml", []byte("logging: {level: info}\n"), 0o600))
	out, err = runCLI(t, context.Background(), "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "./config.yaml [found]")
	assert.Contains(t, out, "Active configuration: ./config.yaml")
}

func TestStatusNotRunning(t *testing.T) {
	env := newTestEnv(t)

	out, err := runCLI(t, context.Background(), "--pid-file", env.pidFile, "status")
	require.Error(t, err)
	assert.Equal(t, exitNotRunning, reportError(&bytes.Buffer{}, err))
	assert.Equal(t, "Daemon is not running\n", out)
}

func TestStatusRunning(t *testing.T) {
	env := newTestEnv(t)
	env.recordSelf(t)

	out, err := runCLI(t, context.Background(), "--pid-file", env.pidFile, "status")
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("Daemon is running (PID: %d)", os.Getpid()))
	assert.Contains(t, out, env.pidFile)
}

func TestStatusStaleRecord(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PID probing differs on windows")
	}
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(env.pidFile), 0o755))
	require.NoError(t, os.WriteFile(env.pidFile, []byte("99999999\n"), 0o600))

	out, err := runCLI(t, context.Background(), "--pid-file", env.pidFile, "status")
	require.Error(t, err)
	assert.Equal(t, exitNotRunning, reportError(&bytes.Buffer{}, err))
	assert.Contains(t, out, "removed stale PID file for PID 99999999")
	assert.NoFileExists(t, env.pidFile)
}

func TestStopNotRunning(t *testing.T) {
	env := newTestEnv(t)

	_, err := runCLI(t, context.Background(), "--pid-file", env.pidFile, "stop")
	require.Error(t, err)
	assert.ErrorIs(t, err, supervisor.ErrNotRunning)
	assert.Equal(t, 1, reportError(&bytes.Buffer{}, err))
}

func TestStopRefusesOwnProcess(t *testing.T) {
	env := newTestEnv(t)
	env.recordSelf(t)

	_, err := runCLI(t, context.Background(), "--pid-file", env.pidFile, "stop")
	require.Error(t, err)
	assert.ErrorIs(t, err, supervisor.ErrOwnProcess)
	assert.FileExists(t, env.pidFile)
}

func TestStartAlreadyRunning(t *testing.T) {
	env := newTestEnv(t)
	env.recordSelf(t)
	path := env.writeConfig(t, "")

	for _, args := range [][]string{{"start"}, {"start", "--foreground"}} {
		out, err := runCLI(t, context.Background(), append([]string{"--config", path, "--pid-file", env.pidFile}, args...)...)
		require.Error(t, err)
		assert.ErrorIs(t, err, supervisor.ErrAlreadyRunning)
		assert.NotContains(t, out, "Running in the foreground")
		assert.NotContains(t, out, "started successfully")
	}

	rec, err := supervisor.ReadRecord(env.pidFile)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), rec.PID)
}

func TestStartWritesTemplateWhenNoConfig(t *testing.T) {
	env := newTestEnv(t)
	env.recordSelf(t)

	out, err := runCLI(t, context.Background(), "--pid-file", env.pidFile, "start")
	assert.ErrorIs(t, err, supervisor.ErrAlreadyRunning)

	target := filepath.Join(env.home, ".config", "hump-yard", "config.yaml")
	assert.FileExists(t, target)
	assert.Contains(t, out, "wrote a template to "+target)
}

func TestStartRejectsInvalidLogLevel(t *testing.T) {
	env := newTestEnv(t)

	_, err := runCLI(t, context.Background(), "--pid-file", env.pidFile, "start", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid log level "loud"`)
	assert.NoFileExists(t, filepath.Join(env.home, ".config", "hump-yard", "config.yaml"))
}

func TestStartForegroundDispatches(t *testing.T) {
	env := newTestEnv(t)
	watch := filepath.Join(env.dir, "watch")
	require.NoError(t, os.Mkdir(watch, 0o755))
	path := env.writeConfig(t, fmt.Sprintf("folders:\n  - path: %q\n    extensions: [.jpg]\n    plugin: noop\n", watch))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := runCLI(t, ctx, "--config", path, "--pid-file", env.pidFile, "start", "--foreground")
		done <- result{out, err}
	}()

	require.Eventually(t, func() bool {
		rec, err := supervisor.ReadRecord(env.pidFile)
		return err == nil && rec != nil && rec.PID == os.Getpid()
	}, 5*time.Second, 20*time.Millisecond)

	// Give the watcher time to register after the record is written.
	time.Sleep(500 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(watch, "a.jpg"), []byte("x"), 0o600))

	j, err := journal.New(journal.Config{DBPath: env.dbPath()}, logger.Noop())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		n, lenErr := j.Len()
		return lenErr == nil && n == 1
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Contains(t, res.out, fmt.Sprintf("Running in the foreground (PID: %d)", os.Getpid()))
	case <-time.After(5 * time.Second):
		t.Fatal("foreground daemon did not stop")
	}
	assert.NoFileExists(t, env.pidFile)

	entries, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.StatusSuccess, entries[0].Status)
	assert.Equal(t, "noop", entries[0].Plugin)
}

func TestPluginsList(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeConfig(t, "")
	pluginDir := filepath.Join(env.dir, "plugins")
	require.NoError(t, os.Mkdir(pluginDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "thumb.yaml"),
		[]byte("name: thumb\nversion: 0.3.0\ncommand: thumb\n"), 0o600))

	out, err := runCLI(t, context.Background(), "--config", path, "plugins", "--format", "simple")
	require.NoError(t, err)
	assert.Equal(t, []string{"metadata 1.0.0", "noop 1.0.0", "rename 1.0.0", "thumb 0.3.0"},
		strings.Split(strings.TrimSpace(out), "\n"), "builtins register before manifests")

	out, err = runCLI(t, context.Background(), "--config", path, "plugins")
	require.NoError(t, err)
	assert.Contains(t, out, "thumb")
	assert.Contains(t, out, "Version")
}

func TestPluginsUnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeConfig(t, "")

	_, err := runCLI(t, context.Background(), "--config", path, "plugins", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func seedJournal(t *testing.T, env *testEnv) {
	t.Helper()
	j, err := journal.New(journal.Config{DBPath: env.dbPath()}, logger.Noop())
	require.NoError(t, err)

	seed := []journal.Entry{
		{Path: "/watch/a.jpg", Rule: "/watch", Plugin: "rename", Status: journal.StatusSuccess, Duration: time.Millisecond},
		{Path: "/watch/b.jpg", Rule: "/watch", Plugin: "rename", Status: journal.StatusFailed, Duration: 2 * time.Millisecond},
		{Path: "/watch/c.jpg", Rule: "/watch", Plugin: "exif", Status: journal.StatusNoPlugin},
	}
	for _, e := range seed {
		require.NoError(t, j.Record(e))
		time.Sleep(2 * time.Millisecond)
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeConfig(t, "")
	seedJournal(t, env)

	out, err := runCLI(t, context.Background(), "--config", path, "history", "--limit", "2", "--format", "json")
	require.NoError(t, err)

	var entries []journal.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "/watch/c.jpg", entries[0].Path, "newest first")
	assert.Equal(t, "/watch/b.jpg", entries[1].Path)

	out, err = runCLI(t, context.Background(), "--config", path, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "plugin_not_found")
	assert.Contains(t, out, "/watch/a.jpg")
}

func TestHistoryFollow(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeConfig(t, "")
	seedJournal(t, env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := runCLI(t, ctx, "--config", path, "history", "--follow", "--limit", "1", "--refresh", "10ms")
		done <- result{out, err}
	}()

	time.Sleep(200 * time.Millisecond)
	j, err := journal.New(journal.Config{DBPath: env.dbPath()}, logger.Noop())
	require.NoError(t, err)
	require.NoError(t, j.Record(journal.Entry{Path: "/watch/d.jpg", Plugin: "rename", Status: journal.StatusSuccess}))
	time.Sleep(300 * time.Millisecond)
	cancel()

	var res result
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("history --follow did not stop")
	}
	require.NoError(t, res.err)
	assert.NotContains(t, res.out, "/watch/b.jpg")
	assert.Contains(t, res.out, "/watch/c.jpg")
	assert.Contains(t, res.out, "/watch/d.jpg")
	assert.Less(t, strings.Index(res.out, "/watch/c.jpg"), strings.Index(res.out, "/watch/d.jpg"))
}

func TestHistoryRejectsNegativeLimit(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeConfig(t, "")

	_, err := runCLI(t, context.Background(), "--config", path, "history", "-n", "-1")
	require.Error(t, err)
}

func TestHistoryStats(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeConfig(t, "")
	seedJournal(t, env)

	out, err := runCLI(t, context.Background(), "--config", path, "history", "stats", "--format", "simple")
	require.NoError(t, err)
	assert.Contains(t, out, "Dispatches: 3 | OK: 1 | Failed: 1 | Errors: 0 | Not found: 1")

	out, err = runCLI(t, context.Background(), "--config", path, "history", "stats", "--group-by", "plugin", "--format", "simple")
	require.NoError(t, err)
	assert.Contains(t, out, "exif: 1 dispatches")
	assert.Contains(t, out, "rename: 2 dispatches, 50.0% ok")

	_, err = runCLI(t, context.Background(), "--config", path, "history", "stats", "--group-by", "model")
	require.Error(t, err)
}

func TestHistoryJournalDisabled(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeConfig(t, "")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), "journal:\n", "journal:\n  enabled: false\n", 1)), 0o600))

	_, err = runCLI(t, context.Background(), "--config", path, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}
