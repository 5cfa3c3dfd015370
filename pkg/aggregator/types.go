// Package aggregator summarizes dispatch history.
//
// It aggregates journal entries across plugins, rules, statuses and time
// windows, providing counts and duration percentiles.
//
// Example usage:
//
//	agg := aggregator.New(aggregator.Config{
//	    GroupBy:          []aggregator.Dimension{aggregator.DimPlugin},
//	    TrackPercentiles: true,
//	})
//
//	for _, e := range entries {
//	    agg.Add(e)
//	}
//
//	stats := agg.Stats()
//	fmt.Printf("Dispatches: %d (%.0f%% ok)\n", stats.Count, stats.SuccessRate()*100)
package aggregator

import (
	"fmt"
	"strings"
	"time"

	"github.com/0xmhha/hump-yard/pkg/journal"
)

// Dimension represents an aggregation dimension.
type Dimension string

const (
	// DimPlugin aggregates by plugin name.
	DimPlugin Dimension = "plugin"

	// DimRule aggregates by the matched rule's folder.
	DimRule Dimension = "rule"

	// DimStatus aggregates by dispatch status.
	DimStatus Dimension = "status"

	// DimDate aggregates by date (YYYY-MM-DD).
	DimDate Dimension = "date"

	// DimHour aggregates by hour (YYYY-MM-DD HH:00).
	DimHour Dimension = "hour"
)

// ParseDimensions parses a comma-separated dimension list.
//
// Parameters:
//   - s: Dimension names, e.g. "plugin,date"
//
// Returns ErrUnknownDimension for names other than the Dim constants.
func ParseDimensions(s string) ([]Dimension, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	dims := make([]Dimension, 0, len(parts))
	for _, p := range parts {
		d := Dimension(strings.ToLower(strings.TrimSpace(p)))
		switch d {
		case DimPlugin, DimRule, DimStatus, DimDate, DimHour:
			dims = append(dims, d)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, p)
		}
	}
	return dims, nil
}

// Aggregator computes dispatch statistics.
type Aggregator interface {
	// Add adds a journal entry to the aggregator.
	Add(entry journal.Entry)

	// Stats returns statistics across all entries.
	Stats() Statistics

	// GroupedStats returns statistics grouped by the configured dimensions.
	//
	// Keys join the dimension values with "|" in GroupBy order. With no
	// GroupBy the map is empty.
	GroupedStats() map[string]Statistics

	// Reset clears all aggregated data.
	Reset()
}

// Statistics contains aggregated dispatch statistics.
type Statistics struct {
	// Count is the number of entries.
	Count int `json:"count"`

	// Succeeded counts StatusSuccess entries.
	Succeeded int `json:"succeeded"`

	// Failed counts StatusFailed entries.
	Failed int `json:"failed"`

	// Errored counts StatusError entries.
	Errored int `json:"errored"`

	// NotFound counts StatusNoPlugin entries.
	NotFound int `json:"not_found"`

	// Rejected counts StatusRejected entries.
	Rejected int `json:"rejected"`

	// TotalDuration is the summed processing time.
	TotalDuration time.Duration `json:"total_duration"`

	// AvgDuration is the mean processing time per entry.
	AvgDuration time.Duration `json:"avg_duration"`

	MinDuration time.Duration `json:"min_duration"`
	MaxDuration time.Duration `json:"max_duration"`

	// P50Duration, P95Duration and P99Duration are only set when
	// Config.TrackPercentiles is enabled.
	P50Duration time.Duration `json:"p50_duration,omitempty"`
	P95Duration time.Duration `json:"p95_duration,omitempty"`
	P99Duration time.Duration `json:"p99_duration,omitempty"`

	// FirstSeen is the time of the oldest entry.
	FirstSeen time.Time `json:"first_seen"`

	// LastSeen is the time of the newest entry.
	LastSeen time.Time `json:"last_seen"`
}

// SuccessRate returns Succeeded / Count, or 0 for empty statistics.
func (s Statistics) SuccessRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Count)
}

// Config contains aggregator configuration.
type Config struct {
	// GroupBy specifies aggregation dimensions.
	//
	// Examples:
	//   - [DimPlugin] - aggregate by plugin
	//   - [DimPlugin, DimStatus] - aggregate by plugin and status
	//   - [DimDate] - aggregate by date
	//
	// Default: no grouping (overall stats only).
	GroupBy []Dimension

	// TrackPercentiles enables percentile calculation.
	//
	// Percentile calculation keeps every duration in memory.
	//
	// Default: false.
	TrackPercentiles bool
}
