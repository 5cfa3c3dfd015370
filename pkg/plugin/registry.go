package plugin

import (
	"fmt"
	"strings"
	"sync"

	"github.com/0xmhha/hump-yard/pkg/logger"
)

// Registry maps plugin names to plugins.
//
// It is filled during start-up and only read afterwards; the lock exists so
// that diagnostics may read it while discovery is still running.
type Registry struct {
	logger logger.Logger

	mu      sync.RWMutex
	plugins map[string]Plugin
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		logger:  log,
		plugins: make(map[string]Plugin),
	}
}

// Register adds p. A name that is already taken yields a
// *RegistrationConflictError and leaves the registry unchanged.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("%w: nil plugin", ErrInvalidPlugin)
	}
	name := strings.TrimSpace(p.Name())
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPlugin)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.plugins[name]; ok {
		return &RegistrationConflictError{
			Name:            name,
			ExistingVersion: existing.Version(),
			RejectedVersion: p.Version(),
		}
	}

	r.plugins[name] = p
	r.order = append(r.order, name)
	r.logger.Info("registered plugin", "plugin", name, "version", p.Version())
	return nil
}

// Resolve returns the plugin registered under name.
func (r *Registry) Resolve(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[name]
	return p, ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// DiscoverBuiltin registers the candidates of a bundled source.
// It returns the number of plugins registered.
func (r *Registry) DiscoverBuiltin(src Source) int {
	return r.discover("builtin", src)
}

// DiscoverExternal registers the candidates of an external source.
// It returns the number of plugins registered.
func (r *Registry) DiscoverExternal(src Source) int {
	return r.discover("external", src)
}

func (r *Registry) discover(kind string, src Source) int {
	if src == nil {
		return 0
	}

	candidates, err := src.Candidates()
	if err != nil {
		r.logger.Error("plugin discovery failed", "kind", kind, "error", err)
	}

	registered := 0
	for _, c := range candidates {
		p, buildErr := build(c)
		if buildErr != nil {
			r.logger.Error("failed to load plugin",
				"kind", kind,
				"origin", c.Origin,
				"error", buildErr)
			continue
		}

		if regErr := r.Register(p); regErr != nil {
			r.logger.Error("plugin registration rejected",
				"kind", kind,
				"origin", c.Origin,
				"error", regErr)
			continue
		}
		registered++
	}

	r.logger.Debug("plugin discovery finished",
		"kind", kind,
		"candidates", len(candidates),
		"registered", registered)
	return registered
}

// build runs a candidate factory, turning a panic into an error.
func build(c Candidate) (p Plugin, err error) {
	if c.New == nil {
		return nil, fmt.Errorf("%w: no factory", ErrInvalidPlugin)
	}
	defer func() {
		if rec := recover(); rec != nil {
			p = nil
			err = fmt.Errorf("plugin factory panicked: %v", rec)
		}
	}()
	return c.New()
}
