// Package monitor follows the dispatch journal while the daemon runs.
//
// A Follower polls the journal at a fixed interval and hands every newly
// recorded entry to a callback, together with running statistics.
//
// Example usage:
//
//	f := monitor.New(monitor.Config{RefreshInterval: time.Second}, j, log)
//	err := f.Run(ctx, func(u monitor.Update) error {
//	    for _, e := range u.Entries {
//	        fmt.Println(e.Status, e.Path)
//	    }
//	    return nil
//	})
package monitor

import (
	"time"

	"github.com/0xmhha/hump-yard/pkg/aggregator"
	"github.com/0xmhha/hump-yard/pkg/journal"
)

// Source is the read side of the journal.
type Source interface {
	// Recent returns up to limit entries, newest first.
	Recent(limit int) ([]journal.Entry, error)
}

// Config holds the configuration for a Follower.
type Config struct {
	// RefreshInterval is the delay between journal polls.
	// Default: 1s.
	RefreshInterval time.Duration

	// Backlog is the number of existing entries delivered by the first
	// update. Zero starts with an empty first update.
	Backlog int

	// Window bounds how many entries one poll reads. Entries recorded
	// faster than Window per interval are skipped.
	// Default: 100.
	Window int
}

// Update is delivered once per poll that found new entries, and once for
// the initial backlog.
type Update struct {
	// Timestamp of the poll
	Timestamp time.Time

	// Entries are the new entries, oldest first
	Entries []journal.Entry

	// Stats aggregates every entry delivered since the follower started
	Stats aggregator.Statistics

	// Delta counts the new entries by outcome
	Delta DeltaStats
}

// DeltaStats summarizes the entries of one Update.
type DeltaStats struct {
	NewEntries int
	Succeeded  int
	Failed     int
	Errored    int
}
