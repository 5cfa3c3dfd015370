package dispatcher

import (
	"errors"
	"fmt"
)

// ErrPluginPanic is wrapped by DispatchError when a plugin callback panicked.
var ErrPluginPanic = errors.New("plugin panicked")

// DispatchError describes an unexpected plugin failure. It is handed to the
// plugin's OnError hook and never returned to the watcher.
type DispatchError struct {
	Path   string
	Plugin string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("plugin %s failed on %s: %v", e.Plugin, e.Path, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
