package display

import (
	"fmt"
	"io"

	"github.com/0xmhha/hump-yard/pkg/aggregator"
	"github.com/0xmhha/hump-yard/pkg/journal"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatHistory implements Formatter.FormatHistory.
func (f *simpleFormatter) FormatHistory(w io.Writer, entries []journal.Entry) error {
	for _, e := range entries {
		line := fmt.Sprintf("%s %s %s %s (%s)", formatTime(e.Time), e.Status, e.Plugin, e.Path, formatDuration(e.Duration))
		if e.Error != "" {
			line += ": " + e.Error
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// FormatPlugins implements Formatter.FormatPlugins.
func (f *simpleFormatter) FormatPlugins(w io.Writer, plugins []PluginInfo) error {
	for _, p := range plugins {
		if _, err := fmt.Fprintf(w, "%s %s\n", p.Name, p.Version); err != nil {
			return err
		}
	}
	return nil
}

// FormatStats implements Formatter.FormatStats.
func (f *simpleFormatter) FormatStats(w io.Writer, stats aggregator.Statistics) error {
	_, err := fmt.Fprintf(w, "Dispatches: %d | OK: %d | Failed: %d | Errors: %d | Not found: %d | Rejected: %d | Avg: %s\n",
		stats.Count,
		stats.Succeeded,
		stats.Failed,
		stats.Errored,
		stats.NotFound,
		stats.Rejected,
		formatDuration(stats.AvgDuration))
	return err
}

// FormatGroupedStats implements Formatter.FormatGroupedStats.
func (f *simpleFormatter) FormatGroupedStats(w io.Writer, grouped map[string]aggregator.Statistics, dimensions []string) error {
	if err := validateDimensions(dimensions); err != nil {
		return err
	}

	for _, key := range sortedKeys(grouped) {
		stats := grouped[key]
		if _, err := fmt.Fprintf(w, "%s: %d dispatches, %s ok (avg: %s)\n",
			key,
			stats.Count,
			formatPercent(stats.SuccessRate()),
			formatDuration(stats.AvgDuration)); err != nil {
			return err
		}
	}
	return nil
}
