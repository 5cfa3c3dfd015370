package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/hump-yard/pkg/aggregator"
	"github.com/0xmhha/hump-yard/pkg/journal"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// groupedJSON is one element of the FormatGroupedStats JSON array.
type groupedJSON struct {
	Group map[string]string     `json:"group"`
	Stats aggregator.Statistics `json:"stats"`
}

// FormatHistory implements Formatter.FormatHistory.
func (f *jsonFormatter) FormatHistory(w io.Writer, entries []journal.Entry) error {
	if entries == nil {
		entries = []journal.Entry{}
	}
	return f.encode(w, entries)
}

// FormatPlugins implements Formatter.FormatPlugins.
func (f *jsonFormatter) FormatPlugins(w io.Writer, plugins []PluginInfo) error {
	if plugins == nil {
		plugins = []PluginInfo{}
	}
	return f.encode(w, plugins)
}

// FormatStats implements Formatter.FormatStats.
func (f *jsonFormatter) FormatStats(w io.Writer, stats aggregator.Statistics) error {
	return f.encode(w, stats)
}

// FormatGroupedStats implements Formatter.FormatGroupedStats.
func (f *jsonFormatter) FormatGroupedStats(w io.Writer, grouped map[string]aggregator.Statistics, dimensions []string) error {
	if err := validateDimensions(dimensions); err != nil {
		return err
	}

	out := make([]groupedJSON, 0, len(grouped))
	for _, key := range sortedKeys(grouped) {
		group := make(map[string]string, len(dimensions))
		parts := aggregator.SplitKey(key)
		for i, dim := range dimensions {
			if i < len(parts) {
				group[dim] = parts[i]
			}
		}
		out = append(out, groupedJSON{Group: group, Stats: grouped[key]})
	}
	return f.encode(w, out)
}

func (f *jsonFormatter) encode(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}
