// Package display provides output formatting for dispatch history,
// history statistics and the plugin list.
//
// It supports multiple output formats (table, JSON, simple text).
package display

import (
	"io"

	"github.com/0xmhha/hump-yard/pkg/aggregator"
	"github.com/0xmhha/hump-yard/pkg/journal"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays data in a bordered table.
	FormatTable Format = "table"

	// FormatJSON displays data as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays one line per item.
	FormatSimple Format = "simple"
)

// PluginInfo describes one registered plugin.
type PluginInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Formatter formats and displays daemon data.
type Formatter interface {
	// FormatHistory formats journal entries, newest first.
	//
	// Parameters:
	//   - w: Output writer
	//   - entries: Entries to format
	//
	// Returns error if formatting fails.
	FormatHistory(w io.Writer, entries []journal.Entry) error

	// FormatPlugins formats the registered plugins in registration order.
	FormatPlugins(w io.Writer, plugins []PluginInfo) error

	// FormatStats formats overall history statistics.
	FormatStats(w io.Writer, stats aggregator.Statistics) error

	// FormatGroupedStats formats grouped statistics.
	//
	// Parameters:
	//   - w: Output writer
	//   - grouped: Grouped statistics to format
	//   - dimensions: Dimension names for display
	//
	// Returns error if formatting fails.
	FormatGroupedStats(w io.Writer, grouped map[string]aggregator.Statistics, dimensions []string) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// Width bounds table rows in columns. Long paths and error messages
	// are trimmed to fit. Zero disables the bound.
	Width int

	// ShowPercentiles enables percentile display in statistics.
	ShowPercentiles bool

	// Compact enables compact output (less decoration).
	// Default: false.
	Compact bool
}
