// Package plugin defines the file processor contract and the registry the
// dispatcher resolves processors from.
//
// Plugins are registered explicitly. Bundled processors come from a static
// factory map; external processors are described by YAML manifests and run
// as child processes. Discovery from either origin is best-effort: a broken
// candidate is logged and skipped.
//
// Example usage:
//
//	reg := plugin.NewRegistry(log)
//	reg.DiscoverBuiltin(builtin.Factories(log))
//	reg.DiscoverExternal(plugin.NewManifestSource(cfg.Plugins.Dirs, log))
//	if p, ok := reg.Resolve("rename"); ok {
//	    ok, err := p.Process(ctx, "/watch/a.jpg", map[string]interface{}{"prefix": "x_"})
//	}
package plugin

import (
	"context"
	"sort"
)

// Plugin is a named, versioned file processor.
type Plugin interface {
	// Name is the unique registry key.
	Name() string

	// Version is reported in logs and diagnostics.
	Version() string

	// CanHandle is a cheap applicability check. It must not modify anything.
	CanHandle(filePath string) bool

	// Process performs the work. It returns true on success and false on a
	// failure the plugin handled itself. A non-nil error (or a panic) is an
	// unexpected failure; the dispatcher isolates it and calls OnError.
	Process(ctx context.Context, filePath string, config map[string]interface{}) (bool, error)
}

// ErrorHandler is implemented by plugins that want to observe unexpected
// Process failures. Plugins without it get the dispatcher's default, which
// logs and continues.
type ErrorHandler interface {
	OnError(filePath string, err error)
}

// Factory constructs a plugin instance.
type Factory func() (Plugin, error)

// Candidate is one plugin a Source offers for registration.
type Candidate struct {
	// Origin identifies the candidate in logs (factory key or manifest path).
	Origin string

	// New builds the plugin.
	New Factory
}

// Source yields plugin candidates for discovery.
type Source interface {
	Candidates() ([]Candidate, error)
}

// Factories is a Source backed by a static name → constructor map.
type Factories map[string]Factory

// Candidates returns one candidate per factory, ordered by key.
func (f Factories) Candidates() ([]Candidate, error) {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Candidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, Candidate{Origin: k, New: f[k]})
	}
	return out, nil
}
