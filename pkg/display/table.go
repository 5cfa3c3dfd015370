package display

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/0xmhha/hump-yard/pkg/aggregator"
	"github.com/0xmhha/hump-yard/pkg/journal"
)

// minFlexWidth is the narrowest a trimmed column is allowed to become.
const minFlexWidth = 12

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatHistory implements Formatter.FormatHistory.
func (f *tableFormatter) FormatHistory(w io.Writer, entries []journal.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No history")
		return err
	}

	header := []string{"Time", "Status", "Plugin", "Duration", "File", "Error"}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			formatTime(e.Time),
			string(e.Status),
			e.Plugin,
			formatDuration(e.Duration),
			e.Path,
			e.Error,
		}
	}

	return f.writeTable(w, header, rows, []int{4}, []int{5, 6})
}

// FormatPlugins implements Formatter.FormatPlugins.
func (f *tableFormatter) FormatPlugins(w io.Writer, plugins []PluginInfo) error {
	if len(plugins) == 0 {
		_, err := fmt.Fprintln(w, "No plugins registered")
		return err
	}

	rows := make([][]string, len(plugins))
	for i, p := range plugins {
		rows[i] = []string{p.Name, p.Version}
	}
	return f.writeTable(w, []string{"Name", "Version"}, rows, nil, nil)
}

// FormatStats implements Formatter.FormatStats.
func (f *tableFormatter) FormatStats(w io.Writer, stats aggregator.Statistics) error {
	if stats.Count == 0 {
		_, err := fmt.Fprintln(w, "No history")
		return err
	}

	rows := [][]string{
		{"Dispatches", formatNumber(stats.Count)},
		{"Succeeded", formatNumber(stats.Succeeded)},
		{"Failed", formatNumber(stats.Failed)},
		{"Errors", formatNumber(stats.Errored)},
		{"Plugin Not Found", formatNumber(stats.NotFound)},
		{"Rejected", formatNumber(stats.Rejected)},
		{"Success Rate", formatPercent(stats.SuccessRate())},
		{"Average Duration", formatDuration(stats.AvgDuration)},
		{"Min Duration", formatDuration(stats.MinDuration)},
		{"Max Duration", formatDuration(stats.MaxDuration)},
	}

	if f.config.ShowPercentiles {
		rows = append(rows,
			[]string{"P50 Duration", formatDuration(stats.P50Duration)},
			[]string{"P95 Duration", formatDuration(stats.P95Duration)},
			[]string{"P99 Duration", formatDuration(stats.P99Duration)},
		)
	}

	rows = append(rows,
		[]string{"First Seen", formatTime(stats.FirstSeen)},
		[]string{"Last Seen", formatTime(stats.LastSeen)},
	)

	return f.writeTable(w, []string{"Metric", "Value"}, rows, []int{2}, nil)
}

// FormatGroupedStats implements Formatter.FormatGroupedStats.
func (f *tableFormatter) FormatGroupedStats(w io.Writer, grouped map[string]aggregator.Statistics, dimensions []string) error {
	if err := validateDimensions(dimensions); err != nil {
		return err
	}
	if len(grouped) == 0 {
		_, err := fmt.Fprintln(w, "No history")
		return err
	}

	n := len(dimensions)
	header := append(append([]string{}, dimensions...), "Dispatches", "OK", "Failed", "Errors", "Success", "Avg")

	rows := make([][]string, 0, len(grouped))
	for _, key := range sortedKeys(grouped) {
		stats := grouped[key]
		row := make([]string, len(header))
		for i, part := range aggregator.SplitKey(key) {
			if i < n {
				row[i] = part
			}
		}
		row[n] = formatNumber(stats.Count)
		row[n+1] = formatNumber(stats.Succeeded)
		row[n+2] = formatNumber(stats.Failed)
		row[n+3] = formatNumber(stats.Errored)
		row[n+4] = formatPercent(stats.SuccessRate())
		row[n+5] = formatDuration(stats.AvgDuration)
		rows = append(rows, row)
	}

	right := make([]int, 0, 6)
	for i := n + 1; i <= n+6; i++ {
		right = append(right, i)
	}
	return f.writeTable(w, header, rows, right, nil)
}

// writeTable renders rows with go-pretty.
//
// Parameters:
//   - right: 1-based column numbers aligned right
//   - flex: 1-based column numbers trimmed when Config.Width is exceeded
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string, right, flex []int) error {
	tw := table.NewWriter()
	if f.config.Compact {
		tw.SetStyle(table.StyleLight)
		tw.Style().Options.DrawBorder = false
	} else {
		tw.SetStyle(table.StyleRounded)
	}

	hdr := make(table.Row, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	tw.AppendHeader(hdr)

	for _, row := range rows {
		r := make(table.Row, len(header))
		for i := range header {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	limits := f.flexLimits(header, rows, flex)
	configs := make([]table.ColumnConfig, 0, len(header))
	for i := range header {
		cc := table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		}
		if contains(right, i+1) {
			cc.Align = text.AlignRight
		}
		if limit, ok := limits[i+1]; ok {
			cc.WidthMax = limit
			cc.WidthMaxEnforcer = text.Trim
		}
		configs = append(configs, cc)
	}
	tw.SetColumnConfigs(configs)

	_, err := fmt.Fprintln(w, tw.Render())
	return err
}

// flexLimits spreads the width left over by fixed columns across the flex
// columns. It returns no limits when everything already fits.
func (f *tableFormatter) flexLimits(header []string, rows [][]string, flex []int) map[int]int {
	if f.config.Width <= 0 || len(flex) == 0 {
		return nil
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = text.RuneWidthWithoutEscSequences(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				if n := text.RuneWidthWithoutEscSequences(cell); n > widths[i] {
					widths[i] = n
				}
			}
		}
	}

	// Each column carries a separator and padding of three cells plus one
	// closing border.
	total := 1
	fixed := 1
	for i, wd := range widths {
		total += wd + 3
		if !contains(flex, i+1) {
			fixed += wd + 3
		}
	}
	if total <= f.config.Width {
		return nil
	}

	share := (f.config.Width - fixed) / len(flex)
	share -= 3
	if share < minFlexWidth {
		share = minFlexWidth
	}

	limits := make(map[int]int, len(flex))
	for _, col := range flex {
		limits[col] = share
	}
	return limits
}

func contains(cols []int, col int) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}
