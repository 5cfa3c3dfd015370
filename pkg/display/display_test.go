package display

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/0xmhha/hump-yard/pkg/aggregator"
	"github.com/0xmhha/hump-yard/pkg/journal"
)

var sampleEntries = []journal.Entry{
	{
		ID:       "b",
		Time:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local),
		Path:     "/watch/photos/IMG_0002.JPG",
		Rule:     "/watch/photos",
		Plugin:   "exif",
		Status:   journal.StatusError,
		Error:    "exif: unexpected EOF",
		Duration: 12 * time.Millisecond,
	},
	{
		ID:       "a",
		Time:     time.Date(2024, 1, 1, 11, 0, 0, 0, time.Local),
		Path:     "/watch/photos/IMG_0001.JPG",
		Rule:     "/watch/photos",
		Plugin:   "rename",
		Status:   journal.StatusSuccess,
		Duration: 3 * time.Millisecond,
	},
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{name: "default format (table)", config: Config{}, want: "*display.tableFormatter"},
		{name: "table format", config: Config{Format: FormatTable}, want: "*display.tableFormatter"},
		{name: "json format", config: Config{Format: FormatJSON}, want: "*display.jsonFormatter"},
		{name: "simple format", config: Config{Format: FormatSimple}, want: "*display.simpleFormatter"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			formatter := New(tt.config)
			if formatter == nil {
				t.Fatal("New() returned nil")
			}
			if got := fmt.Sprintf("%T", formatter); got != tt.want {
				t.Errorf("New() type = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatTable},
		{in: "table", want: FormatTable},
		{in: "JSON", want: FormatJSON},
		{in: " simple ", want: FormatSimple},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("ParseFormat(%q) error = %v, want ErrUnknownFormat", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestTableFormatter_FormatHistory(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := New(Config{}).FormatHistory(&buf, sampleEntries); err != nil {
		t.Fatalf("FormatHistory() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Status", "IMG_0001.JPG", "rename", "success", "exif: unexpected EOF", "2024-01-01 12:00:00", "12ms"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q:\n%s", want, output)
		}
	}
	if strings.Index(output, "IMG_0002") > strings.Index(output, "IMG_0001") {
		t.Error("entries must keep the given newest-first order")
	}
}

func TestTableFormatter_FormatHistoryEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := New(Config{}).FormatHistory(&buf, nil); err != nil {
		t.Fatalf("FormatHistory() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "No history" {
		t.Errorf("FormatHistory(nil) = %q, want %q", got, "No history")
	}
}

func TestTableFormatter_WidthTrimsLongColumns(t *testing.T) {
	t.Parallel()

	long := []journal.Entry{{
		Time:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local),
		Path:   "/watch/" + strings.Repeat("deep/", 40) + "file.jpg",
		Plugin: "rename",
		Status: journal.StatusError,
		Error:  strings.Repeat("very long failure ", 20),
	}}

	var wide, narrow bytes.Buffer
	if err := New(Config{}).FormatHistory(&wide, long); err != nil {
		t.Fatal(err)
	}
	if err := New(Config{Width: 100}).FormatHistory(&narrow, long); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(wide.String(), "file.jpg") {
		t.Error("unbounded output must keep the full path")
	}
	if strings.Contains(narrow.String(), "file.jpg") {
		t.Error("bounded output must trim the path")
	}
	if len(narrow.String()) >= len(wide.String()) {
		t.Error("bounded output must be shorter")
	}
}

func TestTableFormatter_FormatPlugins(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := New(Config{Compact: true}).FormatPlugins(&buf, []PluginInfo{
		{Name: "noop", Version: "1.0.0"},
		{Name: "thumb", Version: "0.2.0"},
	})
	if err != nil {
		t.Fatalf("FormatPlugins() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "thumb") || !strings.Contains(output, "0.2.0") {
		t.Errorf("Output missing plugin row:\n%s", output)
	}
	if strings.Index(output, "noop") > strings.Index(output, "thumb") {
		t.Error("plugins must keep registration order")
	}
}

func TestTableFormatter_FormatStats(t *testing.T) {
	t.Parallel()

	stats := aggregator.Statistics{
		Count:       1500,
		Succeeded:   1200,
		Failed:      200,
		Errored:     100,
		AvgDuration: 15 * time.Millisecond,
		P50Duration: 14 * time.Millisecond,
		FirstSeen:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local),
		LastSeen:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local),
	}

	var buf bytes.Buffer
	if err := New(Config{ShowPercentiles: true}).FormatStats(&buf, stats); err != nil {
		t.Fatalf("FormatStats() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"1,500", "1,200", "80.0%", "15ms", "P50", "2024-01-01"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q", want)
		}
	}
}

func TestTableFormatter_FormatGroupedStats(t *testing.T) {
	t.Parallel()

	grouped := map[string]aggregator.Statistics{
		"rename": {Count: 4, Succeeded: 3, Failed: 1, AvgDuration: time.Millisecond},
		"exif":   {Count: 2, Succeeded: 2, AvgDuration: 2 * time.Millisecond},
	}

	var buf bytes.Buffer
	if err := New(Config{}).FormatGroupedStats(&buf, grouped, []string{"Plugin"}); err != nil {
		t.Fatalf("FormatGroupedStats() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "75.0%") || !strings.Contains(output, "100.0%") {
		t.Errorf("Output missing success rates:\n%s", output)
	}
	if strings.Index(output, "exif") > strings.Index(output, "rename") {
		t.Error("groups must be sorted by key")
	}

	if err := New(Config{}).FormatGroupedStats(&buf, grouped, nil); !errors.Is(err, ErrNoDimensions) {
		t.Errorf("FormatGroupedStats() without dimensions error = %v", err)
	}
}

func TestJSONFormatter(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatJSON})

	var buf bytes.Buffer
	if err := formatter.FormatHistory(&buf, sampleEntries); err != nil {
		t.Fatalf("FormatHistory() error = %v", err)
	}
	var entries []journal.Entry
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entries) != 2 || entries[0].Error != "exif: unexpected EOF" {
		t.Errorf("decoded entries = %+v", entries)
	}

	buf.Reset()
	if err := formatter.FormatPlugins(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("FormatPlugins(nil) = %q, want []", got)
	}

	buf.Reset()
	grouped := map[string]aggregator.Statistics{"rename|success": {Count: 3, Succeeded: 3}}
	if err := formatter.FormatGroupedStats(&buf, grouped, []string{"plugin", "status"}); err != nil {
		t.Fatal(err)
	}
	var groups []groupedJSON
	if err := json.Unmarshal(buf.Bytes(), &groups); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(groups) != 1 || groups[0].Group["status"] != "success" || groups[0].Stats.Count != 3 {
		t.Errorf("decoded groups = %+v", groups)
	}
}

func TestSimpleFormatter(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatSimple})

	var buf bytes.Buffer
	if err := formatter.FormatHistory(&buf, sampleEntries); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("FormatHistory() wrote %d lines, want 2", len(lines))
	}
	if !strings.HasSuffix(lines[0], ": exif: unexpected EOF") {
		t.Errorf("first line = %q", lines[0])
	}

	buf.Reset()
	if err := formatter.FormatStats(&buf, aggregator.Statistics{Count: 2, Succeeded: 1, Errored: 1}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Dispatches: 2 | OK: 1") {
		t.Errorf("FormatStats() = %q", buf.String())
	}
}

func TestFormatHelpers(t *testing.T) {
	t.Parallel()

	numbers := map[int]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567"}
	for n, want := range numbers {
		if got := formatNumber(n); got != want {
			t.Errorf("formatNumber(%d) = %q, want %q", n, got, want)
		}
	}

	durations := map[time.Duration]string{
		0:                                     "0s",
		1500 * time.Nanosecond:                "2µs",
		1234567 * time.Nanosecond:             "1ms",
		90*time.Second + 400*time.Millisecond: "1m30s",
	}
	for d, want := range durations {
		if got := formatDuration(d); got != want {
			t.Errorf("formatDuration(%v) = %q, want %q", d, got, want)
		}
	}

	if got := formatTime(time.Time{}); got != "-" {
		t.Errorf("formatTime(zero) = %q", got)
	}
}

func TestTerminalWidthNonTerminal(t *testing.T) {
	t.Parallel()

	if got := TerminalWidth(&bytes.Buffer{}); got != 0 {
		t.Errorf("TerminalWidth(buffer) = %d, want 0", got)
	}

	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := TerminalWidth(f); got != 0 {
		t.Errorf("TerminalWidth(file) = %d, want 0", got)
	}
}
