package aggregator

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/0xmhha/hump-yard/pkg/journal"
)

// aggregator implements the Aggregator interface.
type aggregator struct {
	config Config

	mu        sync.RWMutex
	durations []time.Duration
	stats     Statistics
	groups    map[string]*group
}

// group holds statistics for a specific dimension combination.
type group struct {
	durations []time.Duration
	stats     Statistics
}

// New creates a new aggregator.
//
// Parameters:
//   - cfg: Aggregator configuration
//
// Returns a configured Aggregator.
func New(cfg Config) Aggregator {
	return &aggregator{
		config: cfg,
		groups: make(map[string]*group),
	}
}

// Add implements Aggregator.Add.
func (a *aggregator) Add(entry journal.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	updateStats(&a.stats, entry)
	if a.config.TrackPercentiles {
		a.durations = append(a.durations, entry.Duration)
	}

	if len(a.config.GroupBy) == 0 {
		return
	}

	key := a.dimensionKey(entry)
	g, exists := a.groups[key]
	if !exists {
		g = &group{}
		a.groups[key] = g
	}

	updateStats(&g.stats, entry)
	if a.config.TrackPercentiles {
		g.durations = append(g.durations, entry.Duration)
	}
}

// Stats implements Aggregator.Stats.
func (a *aggregator) Stats() Statistics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.withPercentiles(a.stats, a.durations)
}

// GroupedStats implements Aggregator.GroupedStats.
func (a *aggregator) GroupedStats() map[string]Statistics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make(map[string]Statistics, len(a.groups))
	for key, g := range a.groups {
		result[key] = a.withPercentiles(g.stats, g.durations)
	}
	return result
}

// Reset implements Aggregator.Reset.
func (a *aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.durations = nil
	a.stats = Statistics{}
	a.groups = make(map[string]*group)
}

func (a *aggregator) withPercentiles(stats Statistics, durations []time.Duration) Statistics {
	if !a.config.TrackPercentiles || len(durations) == 0 {
		return stats
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	stats.P50Duration = percentile(sorted, 50)
	stats.P95Duration = percentile(sorted, 95)
	stats.P99Duration = percentile(sorted, 99)
	return stats
}

// updateStats folds one entry into stats.
func updateStats(stats *Statistics, entry journal.Entry) {
	stats.Count++
	switch entry.Status {
	case journal.StatusSuccess:
		stats.Succeeded++
	case journal.StatusFailed:
		stats.Failed++
	case journal.StatusError:
		stats.Errored++
	case journal.StatusNoPlugin:
		stats.NotFound++
	case journal.StatusRejected:
		stats.Rejected++
	}

	stats.TotalDuration += entry.Duration
	stats.AvgDuration = stats.TotalDuration / time.Duration(stats.Count)

	if stats.Count == 1 {
		stats.MinDuration = entry.Duration
		stats.MaxDuration = entry.Duration
	} else {
		if entry.Duration < stats.MinDuration {
			stats.MinDuration = entry.Duration
		}
		if entry.Duration > stats.MaxDuration {
			stats.MaxDuration = entry.Duration
		}
	}

	if stats.FirstSeen.IsZero() || entry.Time.Before(stats.FirstSeen) {
		stats.FirstSeen = entry.Time
	}
	if stats.LastSeen.IsZero() || entry.Time.After(stats.LastSeen) {
		stats.LastSeen = entry.Time
	}
}

// dimensionKey creates a unique key for the configured dimensions.
func (a *aggregator) dimensionKey(entry journal.Entry) string {
	parts := make([]string, len(a.config.GroupBy))
	for i, dim := range a.config.GroupBy {
		switch dim {
		case DimPlugin:
			parts[i] = entry.Plugin
		case DimRule:
			parts[i] = entry.Rule
		case DimStatus:
			parts[i] = string(entry.Status)
		case DimDate:
			parts[i] = entry.Time.Local().Format("2006-01-02")
		case DimHour:
			parts[i] = entry.Time.Local().Format("2006-01-02 15:00")
		}
	}
	return strings.Join(parts, "|")
}

// SplitKey splits a GroupedStats key into its dimension values.
func SplitKey(key string) []string {
	return strings.Split(key, "|")
}

// percentile calculates the nth percentile of a sorted slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	// Linear interpolation between closest ranks.
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[lower]
	}

	fraction := rank - float64(lower)
	return time.Duration(float64(sorted[lower])*(1-fraction) + float64(sorted[upper])*fraction)
}
