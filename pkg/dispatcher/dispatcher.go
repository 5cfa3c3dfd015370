// Package dispatcher routes new-file events to the plugin selected by the
// matching folder rule.
//
// Dispatch never fails from the caller's point of view: every plugin
// failure, including a panic, is contained, logged and reported through the
// returned Outcome.
package dispatcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/0xmhha/hump-yard/pkg/journal"
	"github.com/0xmhha/hump-yard/pkg/logger"
	"github.com/0xmhha/hump-yard/pkg/plugin"
	"github.com/0xmhha/hump-yard/pkg/rules"
	"github.com/0xmhha/hump-yard/pkg/watcher"
)

// Result classifies what happened to an event.
type Result int

const (
	// ResultIgnored covers directories and files no rule matches.
	ResultIgnored Result = iota
	// ResultPluginNotFound means the rule names an unregistered plugin.
	ResultPluginNotFound
	// ResultRejected means the plugin declined the file in CanHandle.
	ResultRejected
	// ResultSuccess means Process returned true.
	ResultSuccess
	// ResultFailed means Process returned false.
	ResultFailed
	// ResultError means Process returned an error or panicked.
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultIgnored:
		return "ignored"
	case ResultPluginNotFound:
		return "plugin_not_found"
	case ResultRejected:
		return "rejected"
	case ResultSuccess:
		return "success"
	case ResultFailed:
		return "failed"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the result of dispatching one event.
type Outcome struct {
	Path     string
	Rule     *rules.FolderRule
	Plugin   string
	Result   Result
	Err      *DispatchError
	Duration time.Duration
}

// Recorder persists outcomes. *journal.Journal satisfies it.
type Recorder interface {
	Record(journal.Entry) error
}

// Dispatcher matches events against a RuleSet and invokes plugins from a
// Registry. It is safe for concurrent use by several watchers.
type Dispatcher struct {
	rules    *rules.RuleSet
	registry *plugin.Registry
	recorder Recorder
	logger   logger.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder records every outcome that reached a rule.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// New creates a dispatcher over a loaded rule set and a populated registry.
func New(rs *rules.RuleSet, reg *plugin.Registry, log logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		rules:    rs,
		registry: reg,
		logger:   log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handler adapts Dispatch to a watcher.Handler bound to ctx.
func (d *Dispatcher) Handler(ctx context.Context) watcher.Handler {
	return func(ev watcher.Event) {
		d.Dispatch(ctx, ev)
	}
}

// Dispatch handles one event synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, ev watcher.Event) Outcome {
	out := Outcome{Path: ev.Path, Result: ResultIgnored}
	if ev.IsDir {
		return out
	}

	rule, ok := d.rules.Match(ev.Path)
	if !ok {
		d.logger.Debug("no rule matches file", "file", ev.Path)
		return out
	}
	out.Rule = rule
	out.Plugin = rule.Plugin

	log := d.logger.With("file", ev.Path, "plugin", rule.Plugin)

	p, ok := d.registry.Resolve(rule.Plugin)
	if !ok {
		log.Error("plugin not found", "rule", rule.Path)
		out.Result = ResultPluginNotFound
		d.record(out)
		return out
	}

	var accepted bool
	if err := contain(log, func() { accepted = p.CanHandle(ev.Path) }); err != nil {
		out.Result = ResultError
		out.Err = &DispatchError{Path: ev.Path, Plugin: rule.Plugin, Err: err}
		log.Error("plugin applicability check raised an error", "error", err)
		d.record(out)
		return out
	}
	if !accepted {
		log.Warn("plugin cannot handle file")
		out.Result = ResultRejected
		d.record(out)
		return out
	}

	version := "unknown"
	_ = contain(log, func() { version = p.Version() })
	log.Info("processing file", "version", version)

	start := time.Now()
	var (
		processed bool
		procErr   error
	)
	err := contain(log, func() { processed, procErr = p.Process(ctx, ev.Path, rule.PluginConfig) })
	if err == nil {
		err = procErr
	}
	out.Duration = time.Since(start)

	switch {
	case err != nil:
		out.Result = ResultError
		out.Err = &DispatchError{Path: ev.Path, Plugin: rule.Plugin, Err: err}
		log.Error("plugin raised an error", "error", err, "duration", out.Duration)
		d.notify(p, out.Err, log)
	case processed:
		out.Result = ResultSuccess
		log.Info("file processed", "duration", out.Duration)
	default:
		out.Result = ResultFailed
		log.Error("plugin reported failure", "duration", out.Duration)
	}

	d.record(out)
	return out
}

// contain runs a plugin callback and converts a panic into an error
// wrapping ErrPluginPanic.
func contain(log logger.Logger, fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		log.Debug("plugin panic stack", "stack", string(debug.Stack()))
		err = fmt.Errorf("%w: %v", ErrPluginPanic, r)
	}()
	fn()
	return nil
}

// notify calls OnError when the plugin implements it. A panicking hook is
// logged and swallowed.
func (d *Dispatcher) notify(p plugin.Plugin, derr *DispatchError, log logger.Logger) {
	h, ok := p.(plugin.ErrorHandler)
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("plugin error hook panicked", "panic", r)
		}
	}()
	h.OnError(derr.Path, derr)
}

func (d *Dispatcher) record(out Outcome) {
	if d.recorder == nil {
		return
	}

	entry := journal.Entry{
		Time:     time.Now(),
		Path:     out.Path,
		Plugin:   out.Plugin,
		Status:   status(out.Result),
		Duration: out.Duration,
	}
	if out.Rule != nil {
		entry.Rule = out.Rule.Path
	}
	if out.Err != nil {
		entry.Error = out.Err.Err.Error()
	}

	if err := d.recorder.Record(entry); err != nil {
		d.logger.Warn("failed to record dispatch", "file", out.Path, "error", err)
	}
}

func status(r Result) journal.Status {
	switch r {
	case ResultSuccess:
		return journal.StatusSuccess
	case ResultFailed:
		return journal.StatusFailed
	case ResultPluginNotFound:
		return journal.StatusNoPlugin
	case ResultRejected:
		return journal.StatusRejected
	default:
		return journal.StatusError
	}
}
