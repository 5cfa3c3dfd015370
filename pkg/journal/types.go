// Package journal keeps a bounded history of dispatch outcomes in BoltDB.
//
// The database is opened per operation rather than held for the lifetime of
// the daemon, so the CLI can read the history while the daemon is writing it.
//
// Example usage:
//
//	j, err := journal.New(journal.Config{
//	    DBPath: "~/.local/state/hump-yard/journal.db",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	entries, err := j.Recent(20)
package journal

import "time"

// Status is the result of one dispatch as stored in the journal.
type Status string

// Dispatch statuses.
const (
	// StatusSuccess means the plugin reported success.
	StatusSuccess Status = "success"

	// StatusFailed means the plugin reported failure without an error.
	StatusFailed Status = "failed"

	// StatusError means the plugin returned an error or panicked.
	StatusError Status = "error"

	// StatusNoPlugin means the matched rule named an unregistered plugin.
	StatusNoPlugin Status = "plugin_not_found"

	// StatusRejected means the plugin declined the file in CanHandle.
	StatusRejected Status = "rejected"
)

// Entry is one recorded dispatch.
type Entry struct {
	// ID is a random UUID assigned on Record when empty.
	ID string `json:"id"`

	// Time is when the dispatch finished.
	Time time.Time `json:"time"`

	// Path is the file that triggered the dispatch.
	Path string `json:"path"`

	// Rule is the folder path of the matched rule.
	Rule string `json:"rule"`

	// Plugin is the plugin name the rule selected.
	Plugin string `json:"plugin"`

	// Status is the dispatch result.
	Status Status `json:"status"`

	// Error holds the failure message for StatusError entries.
	Error string `json:"error,omitempty"`

	// Duration is how long Process ran.
	Duration time.Duration `json:"duration"`
}

// Config configures a Journal.
type Config struct {
	// DBPath is the BoltDB file. "~" is expanded.
	DBPath string

	// MaxEntries bounds the history; older entries are pruned on Record.
	// Zero means DefaultMaxEntries.
	MaxEntries int

	// Timeout is how long to wait for the database file lock.
	// Default: 1 second.
	Timeout time.Duration
}

// DefaultMaxEntries is the history bound used when Config.MaxEntries is zero.
const DefaultMaxEntries = 1000
