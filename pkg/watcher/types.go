// Package watcher turns fsnotify notifications for one monitored folder into
// new-file events.
//
// A Watcher owns exactly one root. Run blocks on the caller's goroutine and
// invokes the handler synchronously, so a slow handler delays the next event
// for that root only.
//
// Example usage:
//
//	w, err := watcher.New("/srv/inbox", true, watcher.Config{
//	    SettleDelay: 500 * time.Millisecond,
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = w.Run(ctx, func(ev watcher.Event) {
//	    fmt.Println("new file:", ev.Path)
//	})
package watcher

import "time"

// Event reports a newly created filesystem entry.
type Event struct {
	// Path is the entry path as seen under the watched root.
	Path string

	// IsDir is set when the entry is a directory.
	IsDir bool

	// Timestamp is when the creation was observed.
	Timestamp time.Time
}

// Handler receives events. It runs on the goroutine that called Run.
type Handler func(Event)

// Config contains watcher configuration.
type Config struct {
	// SettleDelay holds a new file back until no write has been seen for
	// this long, so writers can finish before the file is handled.
	// Zero delivers create events immediately.
	SettleDelay time.Duration

	// CircuitBreakerThreshold is the number of consecutive fsnotify errors
	// after which the watcher reports itself degraded and stops logging
	// every error.
	// Default: 5.
	CircuitBreakerThreshold int
}
