package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/0xmhha/hump-yard/pkg/aggregator"
	"github.com/0xmhha/hump-yard/pkg/journal"
	"github.com/0xmhha/hump-yard/pkg/logger"
)

const (
	defaultRefreshInterval = time.Second
	defaultWindow          = 100
)

// Follower polls a journal for new entries.
type Follower struct {
	config Config
	source Source
	logger logger.Logger

	mu      sync.Mutex
	running bool

	agg      aggregator.Aggregator
	lastID   string
	lastTime time.Time
}

// New creates a follower.
//
// Parameters:
//   - cfg: Follower configuration
//   - src: Journal to poll
//   - log: Logger instance
//
// Returns a Follower ready to Run.
func New(cfg Config, src Source, log logger.Logger) *Follower {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.Backlog < 0 {
		cfg.Backlog = 0
	}

	return &Follower{
		config: cfg,
		source: src,
		logger: log,
		agg:    aggregator.New(aggregator.Config{}),
	}
}

// Run delivers the backlog, then polls until ctx is cancelled. It returns
// nil on cancellation and the callback's error if the callback fails.
// Journal read errors are logged and retried on the next tick.
func (f *Follower) Run(ctx context.Context, fn func(Update) error) error {
	if f.source == nil {
		return ErrNoSource
	}

	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return ErrFollowerRunning
	}
	f.running = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
	}()

	if err := f.start(fn); err != nil {
		return err
	}

	ticker := time.NewTicker(f.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := f.poll(fn); err != nil {
				return err
			}
		}
	}
}

// start positions the follower after the newest existing entry and
// delivers up to Backlog of the existing entries.
func (f *Follower) start(fn func(Update) error) error {
	limit := f.config.Backlog
	if limit == 0 {
		limit = 1
	}

	entries, err := f.source.Recent(limit)
	if err != nil {
		f.logger.Warn("failed to read journal", "error", err)
		entries = nil
	}

	if len(entries) > 0 {
		f.lastID = entries[0].ID
		f.lastTime = entries[0].Time
	}
	if f.config.Backlog == 0 {
		entries = nil
	}

	return f.deliver(reverse(entries), fn)
}

func (f *Follower) poll(fn func(Update) error) error {
	entries, err := f.source.Recent(f.config.Window)
	if err != nil {
		f.logger.Warn("failed to read journal", "error", err)
		return nil
	}

	fresh := newSince(entries, f.lastID, f.lastTime)
	if len(fresh) == 0 {
		return nil
	}

	newest := fresh[len(fresh)-1]
	f.lastID = newest.ID
	f.lastTime = newest.Time
	return f.deliver(fresh, fn)
}

func (f *Follower) deliver(entries []journal.Entry, fn func(Update) error) error {
	var delta DeltaStats
	for _, e := range entries {
		f.agg.Add(e)
		delta.NewEntries++
		switch e.Status {
		case journal.StatusSuccess:
			delta.Succeeded++
		case journal.StatusFailed:
			delta.Failed++
		case journal.StatusError:
			delta.Errored++
		}
	}

	return fn(Update{
		Timestamp: time.Now(),
		Entries:   entries,
		Stats:     f.agg.Stats(),
		Delta:     delta,
	})
}

// newSince returns the entries recorded after the one identified by lastID,
// oldest first. entries must be newest first.
func newSince(entries []journal.Entry, lastID string, lastTime time.Time) []journal.Entry {
	var fresh []journal.Entry
	for _, e := range entries {
		if lastID != "" && e.ID == lastID {
			break
		}
		if !lastTime.IsZero() && !e.Time.After(lastTime) {
			break
		}
		fresh = append(fresh, e)
	}
	return reverse(fresh)
}

func reverse(entries []journal.Entry) []journal.Entry {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}
