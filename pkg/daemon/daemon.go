// Package daemon assembles the folder rules, plugin registry, dispatcher and
// watchers into the long-running hump-yard process.
package daemon

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/0xmhha/hump-yard/pkg/config"
	"github.com/0xmhha/hump-yard/pkg/dispatcher"
	"github.com/0xmhha/hump-yard/pkg/journal"
	"github.com/0xmhha/hump-yard/pkg/logger"
	"github.com/0xmhha/hump-yard/pkg/plugin"
	"github.com/0xmhha/hump-yard/pkg/plugin/builtin"
	"github.com/0xmhha/hump-yard/pkg/rules"
	"github.com/0xmhha/hump-yard/pkg/watcher"
)

// Daemon watches the configured folders and dispatches new files.
type Daemon struct {
	cfg    *config.Config
	logger logger.Logger
	runID  string

	rules      *rules.RuleSet
	registry   *plugin.Registry
	journal    *journal.Journal
	dispatcher *dispatcher.Dispatcher
}

// Option configures a Daemon.
type Option func(*options)

type options struct {
	extra []plugin.Source
}

// WithPlugins registers plugins from src after the builtin ones.
func WithPlugins(src plugin.Source) Option {
	return func(o *options) {
		o.extra = append(o.extra, src)
	}
}

// New loads rules and plugins from cfg. Invalid folder entries and failing
// plugins are logged and skipped; an unusable journal disables journaling.
//
// Parameters:
//   - cfg: Validated configuration
//   - log: Logger instance
//   - opts: Additional plugin sources
//
// Returns:
//   - Daemon ready to Run
func New(cfg *config.Config, log logger.Logger, opts ...Option) *Daemon {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	runID := uuid.NewString()
	log = log.With("run_id", runID)

	rs, _ := rules.Load(cfg.Folders, log)
	reg := NewRegistry(cfg, log, o.extra...)

	d := &Daemon{
		cfg:      cfg,
		logger:   log,
		runID:    runID,
		rules:    rs,
		registry: reg,
	}

	var dispOpts []dispatcher.Option
	if cfg.Journal.IsEnabled() {
		j, err := journal.New(journal.Config{
			DBPath:     cfg.Journal.DBPath,
			MaxEntries: cfg.Journal.MaxEntries,
		}, log)
		if err != nil {
			log.Warn("journal unavailable, dispatch history disabled", "error", err)
		} else {
			d.journal = j
			dispOpts = append(dispOpts, dispatcher.WithRecorder(j))
		}
	}

	d.dispatcher = dispatcher.New(rs, reg, log, dispOpts...)
	return d
}

// NewRegistry builds the plugin registry: builtin plugins first, then extra
// sources, then manifests from the configured plugin directories.
func NewRegistry(cfg *config.Config, log logger.Logger, extra ...plugin.Source) *plugin.Registry {
	reg := plugin.NewRegistry(log)
	reg.DiscoverBuiltin(builtin.Factories(log))
	for _, src := range extra {
		reg.DiscoverBuiltin(src)
	}
	reg.DiscoverExternal(plugin.NewManifestSource(cfg.Plugins.Dirs, log))

	log.Info("plugins loaded", "plugins", reg.Names())
	return reg
}

// RunID identifies this daemon instance in logs.
func (d *Daemon) RunID() string {
	return d.runID
}

// Rules returns the loaded rule set.
func (d *Daemon) Rules() *rules.RuleSet {
	return d.rules
}

// Registry returns the populated plugin registry.
func (d *Daemon) Registry() *plugin.Registry {
	return d.registry
}

// Run starts one watcher per monitored root and blocks until ctx is
// cancelled. It returns after every watcher has stopped, so no dispatch is
// in flight when Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	roots := watchRoots(d.rules.Rules())
	if len(roots) == 0 {
		d.logger.Warn("no folders configured, waiting for shutdown")
	}

	wcfg := watcher.Config{
		SettleDelay:             d.cfg.Watcher.SettleDelay,
		CircuitBreakerThreshold: d.cfg.Watcher.CircuitBreakerThreshold,
	}
	handle := d.dispatcher.Handler(ctx)

	var wg sync.WaitGroup
	started := 0
	for _, root := range roots {
		w, err := watcher.New(root.path, root.recursive, wcfg, d.logger)
		if err != nil {
			d.logger.Warn("cannot monitor folder, skipping", "path", root.path, "error", err)
			continue
		}

		started++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if runErr := w.Run(ctx, handle); runErr != nil {
				d.logger.Error("watcher stopped unexpectedly", "path", w.Root(), "error", runErr)
			}
		}()
	}

	d.logger.Info("daemon started",
		"rules", d.rules.Len(),
		"watchers", started,
		"journal", d.journal != nil)

	<-ctx.Done()
	d.logger.Info("shutting down", "reason", context.Cause(ctx))
	wg.Wait()
	d.logger.Info("daemon stopped")
	return nil
}

type watchRoot struct {
	path      string
	recursive bool
}

// watchRoots reduces rules to the directories that need a watcher. Rules on
// the same folder share one watcher and folders below a recursive root are
// covered by it, so every file event reaches the dispatcher once.
func watchRoots(rs []rules.FolderRule) []watchRoot {
	var roots []watchRoot
	index := make(map[string]int)
	for _, r := range rs {
		if i, ok := index[r.Path]; ok {
			roots[i].recursive = roots[i].recursive || r.Recursive
			continue
		}
		index[r.Path] = len(roots)
		roots = append(roots, watchRoot{path: r.Path, recursive: r.Recursive})
	}

	kept := make([]watchRoot, 0, len(roots))
	for _, root := range roots {
		if !coveredByRecursive(root.path, roots) {
			kept = append(kept, root)
		}
	}
	return kept
}

func coveredByRecursive(path string, roots []watchRoot) bool {
	for _, other := range roots {
		if !other.recursive || other.path == path {
			continue
		}
		rel, err := filepath.Rel(other.path, path)
		if err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
